package prescription

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/giygas/prescription-builder/catalog/entities"
	"github.com/giygas/prescription-builder/logging"
	"github.com/giygas/prescription-builder/metrics"
	"github.com/google/uuid"
)

// Export fallbacks for missing patient fields
const (
	UnknownPatient      = "Unknown"
	AsAdvised           = "As Advised"
	patientIDPrefix     = "PID-"
	patientIDRandomPart = 8
)

// DocumentRenderer is the render side of the catalog service.
type DocumentRenderer interface {
	GeneratePDF(ctx context.Context, req entities.ExportRequest) ([]byte, error)
}

// ExportStatus is what the view needs to know about exports.
type ExportStatus struct {
	InFlight     bool
	LastError    string
	LastArtifact string
}

// Exporter submits the cart for rendering, one export at a time.
type Exporter struct {
	renderer   DocumentRenderer
	sink       Sink
	prescriber entities.Prescriber
	inFlight   atomic.Bool
}

// NewExporter creates an exporter. A nil sink discards the artifact after
// returning it to the caller.
func NewExporter(renderer DocumentRenderer, sink Sink, prescriber entities.Prescriber) *Exporter {
	return &Exporter{
		renderer:   renderer,
		sink:       sink,
		prescriber: prescriber,
	}
}

// InFlight reports whether an export is outstanding.
func (e *Exporter) InFlight() bool {
	return e.inFlight.Load()
}

// Export renders the cart for patient and hands the document to the sink.
// It returns ErrEmptyCart without any request for an empty cart and
// ErrExportInProgress while another export is outstanding. Failures are not
// retried.
func (e *Exporter) Export(ctx context.Context, patient entities.PatientInfo, cart *Cart) ([]byte, string, error) {
	if cart == nil || cart.IsEmpty() {
		metrics.PrescriptionExportTotal.WithLabelValues("empty").Inc()
		return nil, "", ErrEmptyCart
	}

	if !e.inFlight.CompareAndSwap(false, true) {
		metrics.PrescriptionExportTotal.WithLabelValues("rejected").Inc()
		return nil, "", ErrExportInProgress
	}
	defer e.inFlight.Store(false)

	req := BuildExportRequest(patient, e.prescriber, cart)

	doc, err := e.renderer.GeneratePDF(ctx, req)
	if err != nil {
		metrics.PrescriptionExportTotal.WithLabelValues("error").Inc()
		logging.Error("Prescription export failed", "error", err, "items", len(req.Medicines))
		return nil, "", fmt.Errorf("export failed: %w", err)
	}

	location := ""
	if e.sink != nil {
		location, err = e.sink.Deliver(doc)
		if err != nil {
			metrics.PrescriptionExportTotal.WithLabelValues("error").Inc()
			logging.Error("Failed to save prescription", "error", err)
			return doc, "", fmt.Errorf("failed to save prescription: %w", err)
		}
	}

	metrics.PrescriptionExportTotal.WithLabelValues("success").Inc()
	logging.Info("Prescription exported",
		"patient_id", req.PatientID,
		"items", len(req.Medicines),
		"total", req.TotalCost,
		"location", location,
	)
	return doc, location, nil
}

// BuildExportRequest assembles the render payload. The total comes from the
// cart itself, rounded to two decimals.
func BuildExportRequest(patient entities.PatientInfo, prescriber entities.Prescriber, cart *Cart) entities.ExportRequest {
	patientID := strings.TrimSpace(patient.PatientID)
	if patientID == "" {
		patientID = generatePatientID()
	}

	return entities.ExportRequest{
		PatientName:     orDefault(patient.Name, UnknownPatient),
		Age:             strings.TrimSpace(patient.Age),
		Sex:             strings.TrimSpace(patient.Sex),
		PatientID:       patientID,
		NextAppointment: orDefault(patient.NextAppointment, AsAdvised),
		Medicines:       cart.Items(),
		TotalCost:       round2(cart.Total()),
		DoctorName:      prescriber.DoctorName,
		Specialization:  prescriber.Specialization,
		RegNo:           prescriber.RegNo,
		Phone:           prescriber.Phone,
	}
}

// generatePatientID is swapped in tests.
var generatePatientID = NewPatientID

// NewPatientID returns a placeholder such as PID-1F3A9C2B.
func NewPatientID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return patientIDPrefix + strings.ToUpper(id[:patientIDRandomPart])
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
