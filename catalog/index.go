// Package catalog loads the medicine catalog from its configured source and
// answers the cascade lookups (generic, strength, dosage form, brand).
package catalog

import (
	"sort"
	"strings"

	"github.com/giygas/prescription-builder/catalog/entities"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// NormalizeGeneric is the matching key for generic names: trimmed and lowercased.
func NormalizeGeneric(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// DisplayGeneric is the title-cased form shown to operators.
func DisplayGeneric(s string) string {
	return titleCaser.String(NormalizeGeneric(s))
}

// Index is an immutable, query-ready view of the catalog. A reload builds a new Index.
type Index struct {
	options   []entities.MedicineOption
	byGeneric map[string][]int
	generics  []string
}

// NewIndex normalizes the rows and indexes them by generic name.
func NewIndex(rows []entities.MedicineOption) *Index {
	ix := &Index{
		options:   make([]entities.MedicineOption, 0, len(rows)),
		byGeneric: make(map[string][]int),
	}

	for _, row := range rows {
		key := NormalizeGeneric(row.Generic)
		if key == "" {
			continue
		}
		row.Generic = DisplayGeneric(key)
		row.Brand = strings.TrimSpace(row.Brand)
		row.MedicineName = strings.TrimSpace(row.MedicineName)
		row.Strength = strings.TrimSpace(row.Strength)
		row.Type = strings.TrimSpace(row.Type)
		if row.Price < 0 {
			row.Price = 0
		}

		if _, seen := ix.byGeneric[key]; !seen {
			ix.generics = append(ix.generics, row.Generic)
		}
		ix.byGeneric[key] = append(ix.byGeneric[key], len(ix.options))
		ix.options = append(ix.options, row)
	}

	sort.Strings(ix.generics)
	return ix
}

// Len is the number of indexed rows.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.options)
}

// GenericCount is the number of distinct generics.
func (ix *Index) GenericCount() int {
	if ix == nil {
		return 0
	}
	return len(ix.generics)
}

// Generics returns the sorted display names of all generics.
func (ix *Index) Generics() []string {
	if ix == nil {
		return []string{}
	}
	out := make([]string, len(ix.generics))
	copy(out, ix.generics)
	return out
}

// Rows returns a copy of every indexed row.
func (ix *Index) Rows() []entities.MedicineOption {
	if ix == nil {
		return nil
	}
	out := make([]entities.MedicineOption, len(ix.options))
	copy(out, ix.options)
	return out
}

// Options lists the sorted distinct strengths and dosage forms of a generic.
// A non-empty strength scopes the dosage forms to that strength; the strengths
// list always covers the whole generic.
func (ix *Index) Options(generic, strength string) entities.OptionsResponse {
	resp := entities.OptionsResponse{Strengths: []string{}, Types: []string{}}
	key := NormalizeGeneric(generic)
	if ix == nil || key == "" {
		return resp
	}

	strength = strings.TrimSpace(strength)
	strengths := make(map[string]struct{})
	types := make(map[string]struct{})

	for _, i := range ix.byGeneric[key] {
		row := ix.options[i]
		if row.Strength != "" {
			strengths[row.Strength] = struct{}{}
		}
		if row.Type != "" && (strength == "" || row.Strength == strength) {
			types[row.Type] = struct{}{}
		}
	}

	resp.Strengths = sortedKeys(strengths)
	resp.Types = sortedKeys(types)
	return resp
}

// Details returns the rows matching generic, strength and type exactly
// (generic case-insensitively), in catalog order.
func (ix *Index) Details(q entities.MedicineQuery) []entities.MedicineOption {
	out := []entities.MedicineOption{}
	if ix == nil {
		return out
	}

	strength := strings.TrimSpace(q.Strength)
	typ := strings.TrimSpace(q.Type)
	for _, i := range ix.byGeneric[NormalizeGeneric(q.Generic)] {
		row := ix.options[i]
		if row.Strength == strength && row.Type == typ {
			out = append(out, row)
		}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
