// Package validation checks operator input reaching the catalog service and
// reports on the quality of a freshly loaded catalog.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/giygas/prescription-builder/catalog"
	"github.com/giygas/prescription-builder/catalog/entities"
	"github.com/giygas/prescription-builder/interfaces"
)

const (
	maxInputLength     = 100
	maxExportMedicines = 200
	maxExportField     = 200
	maxDuplicateSample = 10
)

var (
	// letters of any script, digits, spaces and the punctuation found in strengths
	// and dosage forms ("120mg/5ml", "0.1%", "500mg+125mg", "Tablet (ER)")
	inputRegex = regexp.MustCompile(`^[\p{L}\p{N}\s\-\.\+'/%(),]+$`)

	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"eval(", "expression(", "@import",
		"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
		"`", "$(", "${",
		"../", "..\\", "%2e%2e", "file://",
		"{$ne:", "{$gt:", "{$where:", "{$regex:",
	}
)

// Compile-time check
var _ interfaces.DataValidator = (*DataValidatorImpl)(nil)

// DataValidatorImpl implements interfaces.DataValidator
type DataValidatorImpl struct{}

// NewDataValidator creates a new data validator
func NewDataValidator() *DataValidatorImpl {
	return &DataValidatorImpl{}
}

// ValidateInput checks one cascade value (generic, strength or type).
// Empty input is allowed: it means "not selected".
func (v *DataValidatorImpl) ValidateInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return nil
	}

	if utf8.RuneCountInString(input) > maxInputLength {
		return fmt.Errorf("input too long: maximum %d characters", maxInputLength)
	}

	lower := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("input contains potentially dangerous content")
		}
	}

	if !inputRegex.MatchString(input) {
		return fmt.Errorf("input contains invalid characters")
	}

	if hasExcessiveRepetition(input) {
		return fmt.Errorf("input contains excessive character repetition")
	}

	return nil
}

// ValidateExportRequest bounds the size of a document request.
// Dosing fields are free text on purpose and are only length-checked.
func (v *DataValidatorImpl) ValidateExportRequest(req *entities.ExportRequest) error {
	if req == nil {
		return fmt.Errorf("export request is empty")
	}
	if len(req.Medicines) > maxExportMedicines {
		return fmt.Errorf("too many medicines: maximum %d", maxExportMedicines)
	}

	fields := map[string]string{
		"patient_name":     req.PatientName,
		"age":              req.Age,
		"sex":              req.Sex,
		"patient_id":       req.PatientID,
		"next_appointment": req.NextAppointment,
		"doctor_name":      req.DoctorName,
		"specialization":   req.Specialization,
		"reg_no":           req.RegNo,
		"phone":            req.Phone,
	}
	for name, value := range fields {
		if utf8.RuneCountInString(value) > maxExportField {
			return fmt.Errorf("%s too long: maximum %d characters", name, maxExportField)
		}
	}

	for i, m := range req.Medicines {
		if m.Quantity < 1 {
			return fmt.Errorf("medicine %d: quantity must be at least 1", i)
		}
		if m.Price < 0 {
			return fmt.Errorf("medicine %d: price cannot be negative", i)
		}
		if utf8.RuneCountInString(m.TimeSchedule) > maxExportField || utf8.RuneCountInString(m.MealTime) > maxExportField {
			return fmt.Errorf("medicine %d: dosing text too long", i)
		}
	}

	return nil
}

// ReportDataQuality counts duplicates, missing fields and zero prices.
func (v *DataValidatorImpl) ReportDataQuality(rows []entities.MedicineOption) *interfaces.DataQualityReport {
	report := &interfaces.DataQualityReport{TotalRows: len(rows)}
	seen := make(map[string]int, len(rows))

	for _, row := range rows {
		key := strings.Join([]string{
			catalog.NormalizeGeneric(row.Generic),
			strings.ToLower(strings.TrimSpace(row.Brand)),
			strings.TrimSpace(row.Strength),
			strings.TrimSpace(row.Type),
		}, "/")
		seen[key]++
		if seen[key] == 2 {
			report.DuplicateRows++
			if len(report.DuplicateExamples) < maxDuplicateSample {
				report.DuplicateExamples = append(report.DuplicateExamples, key)
			}
		}

		if strings.TrimSpace(row.Brand) == "" {
			report.MissingBrand++
		}
		if strings.TrimSpace(row.Strength) == "" {
			report.MissingStrength++
		}
		if strings.TrimSpace(row.Type) == "" {
			report.MissingType++
		}
		if row.Price == 0 {
			report.ZeroPrice++
		}
	}

	return report
}

// hasExcessiveRepetition flags the same character repeated more than 10 times in a row
func hasExcessiveRepetition(input string) bool {
	run := 1
	var prev rune
	for i, r := range input {
		if i > 0 && r == prev {
			run++
			if run > 10 {
				return true
			}
		} else {
			run = 1
		}
		prev = r
	}
	return false
}
