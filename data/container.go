// Package data provides thread-safe storage of the catalog index with
// atomic swaps, so lookups never see a half-loaded catalog.
package data

import (
	"sync/atomic"
	"time"

	"github.com/giygas/prescription-builder/catalog"
	"github.com/giygas/prescription-builder/interfaces"
	"github.com/giygas/prescription-builder/logging"
)

// Compile-time check to ensure DataContainer implements DataStore
var _ interfaces.DataStore = (*DataContainer)(nil)

// DataContainer holds the catalog with atomic values for zero-downtime reloads
type DataContainer struct {
	index           atomic.Value // *catalog.Index
	report          atomic.Value // *interfaces.DataQualityReport
	lastUpdated     atomic.Value // time.Time
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewDataContainer creates a DataContainer holding an empty catalog
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.index.Store(catalog.NewIndex(nil))
	dc.report.Store(&interfaces.DataQualityReport{})
	dc.lastUpdated.Store(time.Time{})
	dc.serverStartTime.Store(time.Time{})
	return dc
}

// GetIndex returns the current catalog index
func (dc *DataContainer) GetIndex() *catalog.Index {
	if v := dc.index.Load(); v != nil {
		if ix, ok := v.(*catalog.Index); ok && ix != nil {
			return ix
		}
	}

	logging.Warn("Catalog index is empty or invalid")
	return catalog.NewIndex(nil)
}

// GetDataQualityReport returns the report of the last reload
func (dc *DataContainer) GetDataQualityReport() *interfaces.DataQualityReport {
	if v := dc.report.Load(); v != nil {
		if r, ok := v.(*interfaces.DataQualityReport); ok && r != nil {
			return r
		}
	}
	return &interfaces.DataQualityReport{}
}

// GetLastUpdated returns the time of the last successful reload
func (dc *DataContainer) GetLastUpdated() time.Time {
	if v := dc.lastUpdated.Load(); v != nil {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// IsUpdating reports whether a reload is in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

func (dc *DataContainer) GetServerStartTime() time.Time {
	if v := dc.serverStartTime.Load(); v != nil {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}
	return time.Time{}
}

// UpdateData swaps in a new index and its quality report
func (dc *DataContainer) UpdateData(index *catalog.Index, report *interfaces.DataQualityReport) {
	if index == nil {
		index = catalog.NewIndex(nil)
	}
	if report == nil {
		report = &interfaces.DataQualityReport{}
	}
	dc.index.Store(index)
	dc.report.Store(report)
	dc.lastUpdated.Store(time.Now())
}

// BeginUpdate marks the start of a reload.
// Returns false if another reload is already running.
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a reload
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}
