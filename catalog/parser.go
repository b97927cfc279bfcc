package catalog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/giygas/prescription-builder/catalog/entities"
	"github.com/giygas/prescription-builder/logging"
	"golang.org/x/text/encoding/charmap"
)

// column names accepted in the header row, lowercased
var headerAliases = map[string]string{
	"generic":       "generic",
	"generic_name":  "generic",
	"medicine name": "medicine_name",
	"medicine_name": "medicine_name",
	"brand":         "brand",
	"company":       "brand",
	"strength":      "strength",
	"type":          "type",
	"dosage form":   "type",
	"form":          "type",
	"price":         "price",
	"price_clean":   "price",
}

// ParseStats counts what a parse kept and skipped.
type ParseStats struct {
	Rows           int
	SkippedEmpty   int
	SkippedColumns int
	PriceCoerced   int
}

// decodeLegacy returns the content as UTF-8; bytes that are not valid UTF-8
// are treated as ISO-8859-1, the encoding of older catalog exports.
func decodeLegacy(raw []byte) io.Reader {
	if utf8.Valid(raw) {
		return bytes.NewReader(raw)
	}
	return charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(raw))
}

// sniffDelimiter prefers tabs when the header row has any.
func sniffDelimiter(raw []byte) rune {
	header := raw
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		header = raw[:i]
	}
	if bytes.Contains(header, []byte("\t")) {
		return '\t'
	}
	return ','
}

// ParseTable reads a delimited catalog export with a header row.
// Rows missing a required column are skipped; unparsable prices become 0.
func ParseTable(raw []byte) ([]entities.MedicineOption, ParseStats, error) {
	var stats ParseStats

	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(decodeLegacy(raw))
	r.Comma = sniffDelimiter(raw)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, stats, fmt.Errorf("catalog is empty")
	}
	if err != nil {
		return nil, stats, fmt.Errorf("failed to read catalog header: %w", err)
	}

	cols := make(map[string]int)
	for i, name := range header {
		if canonical, ok := headerAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
			if _, dup := cols[canonical]; !dup {
				cols[canonical] = i
			}
		}
	}
	for _, required := range []string{"generic", "brand", "strength", "type"} {
		if _, ok := cols[required]; !ok {
			return nil, stats, fmt.Errorf("catalog header is missing the %q column", required)
		}
	}

	field := func(record []string, name string) (string, bool) {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return "", false
		}
		return strings.TrimSpace(record[i]), true
	}

	var rows []entities.MedicineOption
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("failed to read catalog line %d: %w", stats.Rows+stats.SkippedEmpty+stats.SkippedColumns+2, err)
		}

		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			stats.SkippedEmpty++
			continue
		}

		generic, ok1 := field(record, "generic")
		brand, ok2 := field(record, "brand")
		strength, ok3 := field(record, "strength")
		typ, ok4 := field(record, "type")
		if !ok1 || !ok2 || !ok3 || !ok4 || generic == "" {
			stats.SkippedColumns++
			continue
		}

		name, _ := field(record, "medicine_name")
		rawPrice, _ := field(record, "price")
		price, ok := ParsePrice(rawPrice)
		if !ok {
			stats.PriceCoerced++
		}

		rows = append(rows, entities.MedicineOption{
			Generic:      generic,
			MedicineName: name,
			Brand:        brand,
			Strength:     strength,
			Type:         typ,
			Price:        price,
		})
		stats.Rows++
	}

	if stats.SkippedEmpty > 0 || stats.SkippedColumns > 0 || stats.PriceCoerced > 0 {
		logging.Info("Catalog parse summary",
			"rows", stats.Rows,
			"skipped_empty", stats.SkippedEmpty,
			"skipped_missing_columns", stats.SkippedColumns,
			"price_coerced", stats.PriceCoerced,
		)
	}

	return rows, stats, nil
}

// ParsePrice reads a price written with either '.' or ',' as decimal separator,
// with optional thousands separators and currency noise. A lone separator
// followed by exactly three digits ("1,250") groups thousands. The second
// result is false when the value could not be read; the price is then 0.
func ParsePrice(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
			return r
		}
		return -1
	}, s)
	if s == "" {
		return 0, false
	}

	s = normalizeSeparators(s)

	p, err := strconv.ParseFloat(s, 64)
	if err != nil || p < 0 {
		return 0, false
	}
	return p, true
}

// normalizeSeparators rewrites s so only a '.' decimal point remains.
func normalizeSeparators(s string) string {
	dots, commas := strings.Count(s, "."), strings.Count(s, ",")
	strip := strings.NewReplacer(".", "", ",", "")

	switch {
	case dots+commas == 0:
		return s
	case dots == 0 || commas == 0:
		last := strings.LastIndexAny(s, ".,")
		// "1,000,000" or "1,250"
		if dots+commas > 1 || len(s)-last-1 == 3 {
			return strip.Replace(s)
		}
	}

	// mixed: the last separator is the decimal one
	last := strings.LastIndexAny(s, ".,")
	return strip.Replace(s[:last]) + "." + s[last+1:]
}
