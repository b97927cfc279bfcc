// Package render turns an export request into a printable prescription.
package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/giygas/prescription-builder/catalog/entities"
	"github.com/giygas/prescription-builder/interfaces"
	"github.com/go-pdf/fpdf"
)

// Printed in place of missing export fields.
const (
	DefaultPatientName     = "Unknown"
	DefaultDoctorName      = "Dr. Unknown"
	DefaultNextAppointment = "As Advised"

	// DateLayout is DD-MM-YYYY
	DateLayout = "02-01-2006"
)

var _ interfaces.Renderer = (*PDFRenderer)(nil)

type column struct {
	title string
	width float64
	align string
}

var columns = []column{
	{"#", 8, "C"},
	{"Medicine", 52, "L"},
	{"Type", 22, "L"},
	{"Schedule", 22, "C"},
	{"Meal", 26, "C"},
	{"Qty", 14, "R"},
	{"Price", 22, "R"},
	{"Subtotal", 24, "R"},
}

// PDFRenderer lays out an A4 prescription with fpdf.
type PDFRenderer struct {
	// Now stamps the document date; nil means time.Now.
	Now func() time.Time
}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

func (r *PDFRenderer) ContentType() string { return "application/pdf" }

// WithDefaults fills the fields the document always prints.
func WithDefaults(req entities.ExportRequest) entities.ExportRequest {
	if strings.TrimSpace(req.PatientName) == "" {
		req.PatientName = DefaultPatientName
	}
	if strings.TrimSpace(req.DoctorName) == "" {
		req.DoctorName = DefaultDoctorName
	}
	if strings.TrimSpace(req.NextAppointment) == "" {
		req.NextAppointment = DefaultNextAppointment
	}
	return req
}

// Render produces the PDF bytes. TotalCost is printed as sent.
func (r *PDFRenderer) Render(req entities.ExportRequest) ([]byte, error) {
	req = WithDefaults(req)
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle("Prescription", true)
	pdf.SetCreator("prescription-builder", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()

	// prescriber header
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 8, tr(req.DoctorName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range []string{req.Specialization, labelled("Reg. No", req.RegNo), labelled("Phone", req.Phone)} {
		if line != "" {
			pdf.CellFormat(0, 5, tr(line), "", 1, "L", false, 0, "")
		}
	}
	pdf.CellFormat(0, 5, "Date: "+now().Format(DateLayout), "", 1, "R", false, 0, "")
	pdf.Ln(2)
	y := pdf.GetY()
	pdf.Line(10, y, 200, y)
	pdf.Ln(3)

	// patient block
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(110, 6, tr("Patient: "+req.PatientName), "", 0, "L", false, 0, "")
	pdf.CellFormat(40, 6, tr(labelled("Age", req.Age)), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr(labelled("Sex", req.Sex)), "", 1, "L", false, 0, "")
	if req.PatientID != "" {
		pdf.CellFormat(0, 6, tr("Patient ID: "+req.PatientID), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 9, "Rx", "", 1, "L", false, 0, "")

	// medicine table
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range columns {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for i, m := range req.Medicines {
		cells := []string{
			strconv.Itoa(i + 1),
			medicineLabel(m),
			m.Type,
			m.TimeSchedule,
			m.MealTime,
			strconv.Itoa(m.Quantity),
			formatMoney(m.Price),
			formatMoney(m.Subtotal()),
		}
		for j, c := range columns {
			pdf.CellFormat(c.width, 6, tr(fit(cells[j], c.width)), "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(166, 7, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(24, 7, formatMoney(req.TotalCost), "1", 1, "R", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, tr("Next appointment: "+req.NextAppointment), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render prescription: %w", err)
	}
	return buf.Bytes(), nil
}

func labelled(label, value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return label + ": " + value
}

func medicineLabel(m entities.PrescriptionItem) string {
	name := m.Brand
	if name == "" {
		name = m.MedicineName
	}
	if name == "" {
		name = m.Generic
	}
	if m.Strength != "" {
		name += " " + m.Strength
	}
	return name
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// fit truncates text that would overflow a cell of width mm at 9pt
func fit(s string, width float64) string {
	limit := int(width / 1.9)
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "."
}
