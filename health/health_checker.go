// Package health provides health checking for the catalog service.
package health

import (
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/giygas/prescription-builder/interfaces"
)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore interfaces.DataStore
	slots     []time.Duration // offsets from midnight of the scheduled reloads
}

// NewHealthChecker creates a health checker. refreshAt uses the scheduler's
// "HH:MM;HH:MM" format; malformed entries are ignored.
func NewHealthChecker(dataStore interfaces.DataStore, refreshAt string) *HealthCheckerImpl {
	return &HealthCheckerImpl{
		dataStore: dataStore,
		slots:     parseRefreshSlots(refreshAt),
	}
}

// HealthCheck returns HTTP-specific health data
// Used by /health HTTP endpoint
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	index := h.dataStore.GetIndex()
	lastUpdate := h.dataStore.GetLastUpdated()
	isUpdating := h.dataStore.IsUpdating()

	dataAge := time.Since(lastUpdate)

	switch {
	case index.Len() == 0:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > 48*time.Hour:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > 24*time.Hour:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	case isUpdating && dataAge > 6*time.Hour:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"last_update":    lastUpdate.Format(time.RFC3339),
		"data_age_hours": math.Round(dataAge.Hours()*10) / 10,
		"medicines":      index.Len(),
		"generics":       index.GenericCount(),
		"is_updating":    isUpdating,
	}
	if !lastUpdate.IsZero() {
		data["uptime_hours"] = math.Round(time.Since(h.dataStore.GetServerStartTime()).Hours()*10) / 10
	}
	if next := h.CalculateNextUpdate(); !next.IsZero() {
		data["next_update"] = next.Format(time.RFC3339)
	}
	if report := h.dataStore.GetDataQualityReport(); report != nil && report.DuplicateRows > 0 {
		data["duplicate_rows"] = report.DuplicateRows
	}

	return status, data, httpStatus
}

// CalculateNextUpdate returns the next scheduled reload time, or the zero time
// when no schedule is configured.
func (h *HealthCheckerImpl) CalculateNextUpdate() time.Time {
	return nextSlot(time.Now(), h.slots)
}

func nextSlot(now time.Time, slots []time.Duration) time.Time {
	if len(slots) == 0 {
		return time.Time{}
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for _, s := range slots {
		if t := midnight.Add(s); t.After(now) {
			return t
		}
	}

	// past the last slot: first slot tomorrow
	return midnight.AddDate(0, 0, 1).Add(slots[0])
}

func parseRefreshSlots(spec string) []time.Duration {
	var slots []time.Duration
	for part := range strings.SplitSeq(spec, ";") {
		t, err := time.Parse("15:04", strings.TrimSpace(part))
		if err != nil {
			continue
		}
		slots = append(slots, time.Duration(t.Hour())*time.Hour+time.Duration(t.Minute())*time.Minute)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	return slots
}
