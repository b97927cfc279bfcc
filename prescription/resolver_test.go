package prescription

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/giygas/prescription-builder/catalog/entities"
	"github.com/giygas/prescription-builder/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLookup answers from fixed tables. Calls whose key has a gate block
// until the gate is closed.
type fakeLookup struct {
	mu         sync.Mutex
	options    map[string]entities.OptionsResponse
	details    map[entities.MedicineQuery][]entities.MedicineOption
	gates      map[string]chan struct{}
	optionsErr error
	detailsErr error
	calls      []string
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		options: map[string]entities.OptionsResponse{},
		details: map[entities.MedicineQuery][]entities.MedicineOption{},
		gates:   map[string]chan struct{}{},
	}
}

func optionsKey(generic, strength string) string { return "options:" + generic + "|" + strength }

func detailsKey(q entities.MedicineQuery) string {
	return "details:" + q.Generic + "|" + q.Strength + "|" + q.Type
}

func (f *fakeLookup) gate(key string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[key] = ch
	return ch
}

func (f *fakeLookup) wait(ctx context.Context, key string) error {
	f.mu.Lock()
	f.calls = append(f.calls, key)
	ch := f.gates[key]
	f.mu.Unlock()

	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeLookup) GetOptions(ctx context.Context, generic, strength string) (entities.OptionsResponse, error) {
	key := optionsKey(generic, strength)
	if err := f.wait(ctx, key); err != nil {
		return entities.OptionsResponse{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.options[key], f.optionsErr
}

func (f *fakeLookup) GetDetails(ctx context.Context, q entities.MedicineQuery) ([]entities.MedicineOption, error) {
	if err := f.wait(ctx, detailsKey(q)); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.details[q], f.detailsErr
}

func (f *fakeLookup) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func paracetamolLookup() *fakeLookup {
	f := newFakeLookup()
	f.options[optionsKey("Paracetamol", "")] = entities.OptionsResponse{
		Strengths: []string{"120mg/5ml", "500mg"},
		Types:     []string{"Syrup", "Tablet"},
	}
	f.options[optionsKey("Paracetamol", "500mg")] = entities.OptionsResponse{
		Strengths: []string{"120mg/5ml", "500mg"},
		Types:     []string{"Tablet"},
	}
	f.details[entities.MedicineQuery{Generic: "Paracetamol", Strength: "500mg", Type: "Tablet"}] = []entities.MedicineOption{napa}
	return f
}

func TestResolverCascade(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(paracetamolLookup())

	require.NoError(t, r.OnFieldChange(ctx, FieldGeneric, "Paracetamol"))
	r.Wait()
	s := r.State()
	assert.Equal(t, []string{"120mg/5ml", "500mg"}, s.Strengths)
	assert.Equal(t, []string{"Syrup", "Tablet"}, s.Types)

	require.NoError(t, r.OnFieldChange(ctx, FieldStrength, "500mg"))
	r.Wait()
	s = r.State()
	assert.Equal(t, []string{"Tablet"}, s.Types, "types are scoped to the strength")
	assert.Equal(t, []string{"120mg/5ml", "500mg"}, s.Strengths, "strength lookups leave strengths alone")

	require.NoError(t, r.OnFieldChange(ctx, FieldType, "Tablet"))
	require.True(t, r.ResolveOptions(ctx))
	r.Wait()
	s = r.State()
	require.Len(t, s.Candidates, 1)
	assert.Equal(t, "Napa", s.Candidates[0].Brand)
	assert.Zero(t, s.Pending)

	got, err := r.Candidate(0)
	require.NoError(t, err)
	assert.Equal(t, napa, got)
	_, err = r.Candidate(1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestResolverGenericChangeClearsDownstream(t *testing.T) {
	ctx := context.Background()
	f := paracetamolLookup()
	r := NewResolver(f)

	require.NoError(t, r.OnFieldChange(ctx, FieldGeneric, "Paracetamol"))
	require.NoError(t, r.OnFieldChange(ctx, FieldStrength, "500mg"))
	require.NoError(t, r.OnFieldChange(ctx, FieldType, "Tablet"))
	r.ResolveOptions(ctx)
	r.Wait()
	require.NotEmpty(t, r.State().Candidates)

	calls := f.callCount()
	require.NoError(t, r.OnFieldChange(ctx, FieldGeneric, ""))
	r.Wait()

	s := r.State()
	assert.Equal(t, entities.MedicineQuery{}, s.Query)
	assert.Empty(t, s.Strengths)
	assert.Empty(t, s.Types)
	assert.Empty(t, s.Candidates)
	assert.Equal(t, calls, f.callCount(), "an empty generic issues no lookup")
}

func TestResolverStrengthAndTypeClearCandidates(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(paracetamolLookup())

	require.NoError(t, r.OnFieldChange(ctx, FieldGeneric, "Paracetamol"))
	require.NoError(t, r.OnFieldChange(ctx, FieldStrength, "500mg"))
	require.NoError(t, r.OnFieldChange(ctx, FieldType, "Tablet"))
	r.ResolveOptions(ctx)
	r.Wait()

	require.NoError(t, r.OnFieldChange(ctx, FieldType, "Syrup"))
	assert.Empty(t, r.State().Candidates)
	assert.Equal(t, "500mg", r.State().Query.Strength)

	require.NoError(t, r.OnFieldChange(ctx, FieldStrength, "120mg/5ml"))
	r.Wait()
	s := r.State()
	assert.Empty(t, s.Query.Type, "strength change clears type")
	assert.Empty(t, s.Candidates)
}

func TestResolverResolveOptionsNeedsFullQuery(t *testing.T) {
	ctx := context.Background()
	f := paracetamolLookup()
	r := NewResolver(f)

	assert.False(t, r.ResolveOptions(ctx))

	require.NoError(t, r.OnFieldChange(ctx, FieldGeneric, "Paracetamol"))
	require.NoError(t, r.OnFieldChange(ctx, FieldStrength, "500mg"))
	r.Wait()
	calls := f.callCount()

	assert.False(t, r.ResolveOptions(ctx))
	r.Wait()
	assert.Equal(t, calls, f.callCount())
	assert.Empty(t, r.State().Candidates)
}

func TestResolverDiscardsStaleGenericResponse(t *testing.T) {
	ctx := context.Background()
	f := newFakeLookup()
	f.options[optionsKey("A", "")] = entities.OptionsResponse{Strengths: []string{"a-1"}, Types: []string{"a-type"}}
	f.options[optionsKey("B", "")] = entities.OptionsResponse{Strengths: []string{"b-1", "b-2"}, Types: []string{"b-type"}}
	gateA := f.gate(optionsKey("A", ""))
	gateB := f.gate(optionsKey("B", ""))

	r := NewResolver(f)
	require.NoError(t, r.OnFieldChange(ctx, FieldGeneric, "A"))
	require.NoError(t, r.OnFieldChange(ctx, FieldGeneric, "B"))

	close(gateB)
	require.Eventually(t, func() bool { return len(r.State().Strengths) == 2 }, time.Second, 5*time.Millisecond)

	close(gateA)
	r.Wait()

	s := r.State()
	assert.Equal(t, "B", s.Query.Generic)
	assert.Equal(t, []string{"b-1", "b-2"}, s.Strengths)
	assert.Equal(t, []string{"b-type"}, s.Types)
	assert.Zero(t, s.Pending)
}

func staleOptions() float64 {
	return testutil.ToFloat64(metrics.StaleResponsesTotal.WithLabelValues("options"))
}

func TestResolverGenericResponseAfterStrengthChange(t *testing.T) {
	ctx := context.Background()
	f := paracetamolLookup()
	gate := f.gate(optionsKey("Paracetamol", ""))
	before := staleOptions()

	r := NewResolver(f)
	require.NoError(t, r.OnFieldChange(ctx, FieldGeneric, "Paracetamol"))
	require.NoError(t, r.OnFieldChange(ctx, FieldStrength, "500mg"))
	require.Eventually(t, func() bool { return len(r.State().Types) == 1 }, time.Second, 5*time.Millisecond)

	close(gate)
	r.Wait()

	s := r.State()
	assert.Equal(t, []string{"120mg/5ml", "500mg"}, s.Strengths, "strengths of the generic lookup still apply")
	assert.Equal(t, []string{"Tablet"}, s.Types, "types stay scoped to the newer strength")
	assert.Zero(t, s.Pending)
	assert.Equal(t, before+1, staleOptions())
}

func TestResolverDiscardsStaleStrengthResponse(t *testing.T) {
	ctx := context.Background()
	f := paracetamolLookup()
	f.options[optionsKey("Paracetamol", "120mg/5ml")] = entities.OptionsResponse{
		Strengths: []string{"120mg/5ml", "500mg"},
		Types:     []string{"Syrup"},
	}

	r := NewResolver(f)
	require.NoError(t, r.OnFieldChange(ctx, FieldGeneric, "Paracetamol"))
	r.Wait()

	gate := f.gate(optionsKey("Paracetamol", "120mg/5ml"))
	before := staleOptions()

	require.NoError(t, r.OnFieldChange(ctx, FieldStrength, "120mg/5ml"))
	require.NoError(t, r.OnFieldChange(ctx, FieldStrength, "500mg"))
	require.Eventually(t, func() bool { return len(r.State().Types) == 1 }, time.Second, 5*time.Millisecond)

	close(gate)
	r.Wait()

	s := r.State()
	assert.Equal(t, "500mg", s.Query.Strength)
	assert.Equal(t, []string{"Tablet"}, s.Types)
	assert.Zero(t, s.Pending)
	assert.Equal(t, before+1, staleOptions())
}

func TestResolverDiscardsStaleDetails(t *testing.T) {
	ctx := context.Background()
	f := paracetamolLookup()
	q := entities.MedicineQuery{Generic: "Paracetamol", Strength: "500mg", Type: "Tablet"}
	gate := f.gate(detailsKey(q))

	r := NewResolver(f)
	require.NoError(t, r.OnFieldChange(ctx, FieldGeneric, "Paracetamol"))
	require.NoError(t, r.OnFieldChange(ctx, FieldStrength, "500mg"))
	require.NoError(t, r.OnFieldChange(ctx, FieldType, "Tablet"))
	require.True(t, r.ResolveOptions(ctx))

	// the operator moves on before the brands arrive
	require.NoError(t, r.OnFieldChange(ctx, FieldType, "Syrup"))
	close(gate)
	r.Wait()

	assert.Empty(t, r.State().Candidates)
}

func TestResolverLookupFailureLeavesCascade(t *testing.T) {
	ctx := context.Background()
	f := paracetamolLookup()
	r := NewResolver(f)

	require.NoError(t, r.OnFieldChange(ctx, FieldGeneric, "Paracetamol"))
	r.Wait()

	f.mu.Lock()
	f.optionsErr = errors.New("connection refused")
	f.mu.Unlock()

	require.NoError(t, r.OnFieldChange(ctx, FieldStrength, "500mg"))
	r.Wait()

	s := r.State()
	assert.Contains(t, s.Notice, "connection refused")
	assert.Equal(t, "500mg", s.Query.Strength)
	assert.Equal(t, []string{"120mg/5ml", "500mg"}, s.Strengths)
}

func TestResolverRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(newFakeLookup())

	assert.ErrorIs(t, r.OnFieldChange(ctx, "brand", "Napa"), ErrUnknownField)
	assert.ErrorIs(t, r.OnFieldChange(ctx, FieldStrength, "500mg"), ErrNoGeneric)
	assert.ErrorIs(t, r.OnFieldChange(ctx, FieldType, "Tablet"), ErrNoGeneric)
	assert.Equal(t, entities.MedicineQuery{}, r.State().Query)
}

func TestResolverStateIsACopy(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(paracetamolLookup())
	require.NoError(t, r.OnFieldChange(ctx, FieldGeneric, "Paracetamol"))
	r.Wait()

	s := r.State()
	s.Strengths[0] = "changed"
	assert.Equal(t, "120mg/5ml", r.State().Strengths[0])
}
