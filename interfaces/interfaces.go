// Package interfaces defines the contracts between the catalog service
// components so that handlers, the scheduler and health checks can be tested
// against fakes.
package interfaces

import (
	"context"
	"time"

	"github.com/giygas/prescription-builder/catalog"
	"github.com/giygas/prescription-builder/catalog/entities"
)

// DataQualityReport summarizes catalog rows worth a second look.
// Reported issues never block a reload.
type DataQualityReport struct {
	TotalRows         int
	DuplicateRows     int      // same generic, brand, strength and type
	MissingBrand      int
	MissingStrength   int
	MissingType       int
	ZeroPrice         int
	DuplicateExamples []string // up to 10 "generic/brand/strength/type" keys
}

// DataStore holds the current catalog index and swaps it atomically on reload.
type DataStore interface {
	GetIndex() *catalog.Index
	GetLastUpdated() time.Time
	IsUpdating() bool
	GetServerStartTime() time.Time
	GetDataQualityReport() *DataQualityReport

	UpdateData(index *catalog.Index, report *DataQualityReport)
	BeginUpdate() bool
	EndUpdate()
}

// CatalogLoader fetches raw catalog rows from the configured source.
type CatalogLoader interface {
	Load(ctx context.Context) ([]entities.MedicineOption, error)
	Describe() string
}

// Scheduler manages automated catalog reloads.
type Scheduler interface {
	Start() error
	Stop()
	Reload(ctx context.Context) error
}

// HealthChecker reports service health.
type HealthChecker interface {
	// HealthCheck returns the status word, detail fields and the HTTP status to answer with
	HealthCheck() (status string, details map[string]any, httpStatus int)
	CalculateNextUpdate() time.Time
}

// DataValidator validates user input and reports on catalog quality.
type DataValidator interface {
	ValidateInput(input string) error
	ValidateExportRequest(req *entities.ExportRequest) error
	ReportDataQuality(rows []entities.MedicineOption) *DataQualityReport
}

// Renderer turns an export request into a printable document.
type Renderer interface {
	Render(req entities.ExportRequest) ([]byte, error)
	ContentType() string
}
