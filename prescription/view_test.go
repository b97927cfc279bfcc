package prescription

import (
	"bytes"
	"testing"

	"github.com/giygas/prescription-builder/catalog/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectEmpty(t *testing.T) {
	v := Project(ResolverState{}, nil, ExportStatus{})

	assert.True(t, v.ShowEmptyState)
	assert.False(t, v.HasItems)
	assert.False(t, v.CanExport)
	assert.False(t, v.CanResolve)
	assert.Equal(t, "0.00", v.Total)
}

func TestProjectWithItems(t *testing.T) {
	c := cartWithNapa(t)
	state := ResolverState{
		Query:      entities.MedicineQuery{Generic: "Paracetamol", Strength: "500mg", Type: "Tablet"},
		Strengths:  []string{"500mg"},
		Types:      []string{"Tablet"},
		Candidates: []entities.MedicineOption{napa},
		Pending:    1,
	}

	v := Project(state, c.Items(), ExportStatus{})
	assert.True(t, v.HasItems)
	assert.False(t, v.ShowEmptyState)
	assert.True(t, v.CanResolve)
	assert.True(t, v.CanExport)
	assert.True(t, v.Loading)
	assert.Equal(t, "12.50", v.Total)
	require.Len(t, v.Items, 2)
	assert.Equal(t, ItemRow{Position: 1, Medicine: "Napa 500mg", Type: "Tablet", Quantity: 3, TimeSchedule: "1+1+1", MealTime: "After Meal", Price: "2.50", Subtotal: "7.50"}, v.Items[1])
	require.Len(t, v.Candidates, 1)
	assert.Equal(t, "2.50", v.Candidates[0].Price)

	busy := Project(state, c.Items(), ExportStatus{InFlight: true})
	assert.False(t, busy.CanExport, "export is disabled while one is in flight")
}

func TestProjectIsIdempotent(t *testing.T) {
	c := cartWithNapa(t)
	state := ResolverState{Query: entities.MedicineQuery{Generic: "Paracetamol"}, Strengths: []string{"500mg"}}

	first := Project(state, c.Items(), ExportStatus{LastArtifact: "Prescription.pdf"})
	second := Project(state, c.Items(), ExportStatus{LastArtifact: "Prescription.pdf"})
	assert.Equal(t, first, second)
	assert.Equal(t, 2, c.Len())
}

func TestRenderText(t *testing.T) {
	c := cartWithNapa(t)
	state := ResolverState{
		Query:     entities.MedicineQuery{Generic: "Paracetamol", Strength: "500mg"},
		Strengths: []string{"120mg/5ml", "500mg"},
		Notice:    "No brands found.",
	}

	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, Project(state, c.Items(), ExportStatus{LastError: "status 500"})))
	out := buf.String()

	assert.Contains(t, out, "Paracetamol")
	assert.Contains(t, out, "[120mg/5ml | 500mg]")
	assert.Contains(t, out, "! No brands found.")
	assert.Contains(t, out, "Napa 500mg")
	assert.Contains(t, out, "12.50")
	assert.Contains(t, out, "Export failed: status 500")

	buf.Reset()
	require.NoError(t, RenderText(&buf, Project(ResolverState{}, nil, ExportStatus{})))
	assert.Contains(t, buf.String(), "No medicines added yet.")
}
