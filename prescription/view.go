package prescription

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/giygas/prescription-builder/catalog/entities"
)

// View is the render description of the builder screen.
type View struct {
	Query      entities.MedicineQuery
	Strengths  []string
	Types      []string
	Candidates []CandidateRow
	Items      []ItemRow
	Total      string

	HasItems       bool
	ShowEmptyState bool
	CanResolve     bool
	CanExport      bool
	Loading        bool

	Notice string
	Export ExportStatus
}

// CandidateRow is one brand offered for adding.
type CandidateRow struct {
	Position int
	Brand    string
	Strength string
	Type     string
	Price    string
}

// ItemRow is one cart line.
type ItemRow struct {
	Position     int
	Medicine     string
	Type         string
	Quantity     int
	TimeSchedule string
	MealTime     string
	Price        string
	Subtotal     string
}

// Project builds the view from the resolver state, the cart items and the
// export status. It has no side effects.
func Project(state ResolverState, items []entities.PrescriptionItem, export ExportStatus) View {
	v := View{
		Query:          state.Query,
		Strengths:      append([]string(nil), state.Strengths...),
		Types:          append([]string(nil), state.Types...),
		Candidates:     make([]CandidateRow, 0, len(state.Candidates)),
		Items:          make([]ItemRow, 0, len(items)),
		Total:          FormatMoney(sumItems(items)),
		HasItems:       len(items) > 0,
		ShowEmptyState: len(items) == 0,
		CanResolve:     state.Query.Complete(),
		Loading:        state.Pending > 0,
		Notice:         state.Notice,
		Export:         export,
	}
	v.CanExport = v.HasItems && !export.InFlight

	for i, c := range state.Candidates {
		v.Candidates = append(v.Candidates, CandidateRow{
			Position: i,
			Brand:    c.Brand,
			Strength: c.Strength,
			Type:     c.Type,
			Price:    FormatMoney(c.Price),
		})
	}

	for i, it := range items {
		name := it.Brand
		if it.Strength != "" {
			name += " " + it.Strength
		}
		v.Items = append(v.Items, ItemRow{
			Position:     i,
			Medicine:     name,
			Type:         it.Type,
			Quantity:     it.Quantity,
			TimeSchedule: it.TimeSchedule,
			MealTime:     it.MealTime,
			Price:        FormatMoney(it.Price),
			Subtotal:     FormatMoney(it.Subtotal()),
		})
	}

	return v
}

// RenderText prints the view as plain text tables.
func RenderText(w io.Writer, v View) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Generic:\t%s\n", orDash(v.Query.Generic))
	fmt.Fprintf(tw, "Strength:\t%s\t%s\n", orDash(v.Query.Strength), choices(v.Strengths))
	fmt.Fprintf(tw, "Type:\t%s\t%s\n", orDash(v.Query.Type), choices(v.Types))
	if v.Loading {
		fmt.Fprintln(tw, "Loading...")
	}
	if v.Notice != "" {
		fmt.Fprintf(tw, "! %s\n", v.Notice)
	}

	if len(v.Candidates) > 0 {
		fmt.Fprintln(tw, "\n#\tBrand\tStrength\tType\tPrice")
		for _, c := range v.Candidates {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", c.Position, c.Brand, c.Strength, c.Type, c.Price)
		}
	}

	fmt.Fprintln(tw)
	if v.ShowEmptyState {
		fmt.Fprintln(tw, "No medicines added yet.")
	} else {
		fmt.Fprintln(tw, "#\tMedicine\tType\tQty\tSchedule\tMeal\tPrice\tSubtotal")
		for _, it := range v.Items {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				it.Position, it.Medicine, it.Type, strconv.Itoa(it.Quantity), it.TimeSchedule, it.MealTime, it.Price, it.Subtotal)
		}
	}
	fmt.Fprintf(tw, "Total:\t%s\n", v.Total)

	switch {
	case v.Export.InFlight:
		fmt.Fprintln(tw, "Export in progress...")
	case v.Export.LastError != "":
		fmt.Fprintf(tw, "! Export failed: %s\n", v.Export.LastError)
	case v.Export.LastArtifact != "":
		fmt.Fprintf(tw, "Saved %s\n", v.Export.LastArtifact)
	}

	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func choices(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return "[" + strings.Join(list, " | ") + "]"
}
