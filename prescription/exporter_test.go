package prescription

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/giygas/prescription-builder/catalog/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRenderer records requests; with a gate set, calls block until it is closed.
type fakeRenderer struct {
	mu       sync.Mutex
	requests []entities.ExportRequest
	gate     chan struct{}
	started  chan struct{}
	err      error
}

func (f *fakeRenderer) GeneratePDF(ctx context.Context, req entities.ExportRequest) ([]byte, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	gate, started := f.gate, f.started
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.3"), nil
}

func (f *fakeRenderer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type memorySink struct {
	docs [][]byte
}

func (m *memorySink) Deliver(doc []byte) (string, error) {
	m.docs = append(m.docs, doc)
	return "memory", nil
}

func cartWithNapa(t *testing.T) *Cart {
	t.Helper()
	c := NewCart()
	c.Add(napa)
	c.Add(napa)
	require.NoError(t, c.SetQuantity(0, "2"))
	require.NoError(t, c.SetQuantity(1, "3"))
	return c
}

func TestExportEmptyCartMakesNoRequest(t *testing.T) {
	r := &fakeRenderer{}
	e := NewExporter(r, nil, entities.Prescriber{})

	_, _, err := e.Export(context.Background(), entities.PatientInfo{Name: "Rahim"}, NewCart())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.True(t, IsValidation(err))
	assert.Zero(t, r.count())
	assert.False(t, e.InFlight())

	_, _, err = e.Export(context.Background(), entities.PatientInfo{}, nil)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestExportPayload(t *testing.T) {
	r := &fakeRenderer{}
	sink := &memorySink{}
	prescriber := entities.Prescriber{DoctorName: "Dr. Ayesha Rahman", Specialization: "Medicine", RegNo: "A-1234", Phone: "0170000000"}
	e := NewExporter(r, sink, prescriber)

	doc, location, err := e.Export(context.Background(), entities.PatientInfo{Age: " 34 ", Sex: "F"}, cartWithNapa(t))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(doc))
	assert.Equal(t, "memory", location)
	require.Len(t, sink.docs, 1)

	require.Equal(t, 1, r.count())
	req := r.requests[0]
	assert.Equal(t, UnknownPatient, req.PatientName)
	assert.Equal(t, AsAdvised, req.NextAppointment)
	assert.Regexp(t, regexp.MustCompile(`^PID-[0-9A-F]{8}$`), req.PatientID)
	assert.Equal(t, "34", req.Age)
	assert.InDelta(t, 12.5, req.TotalCost, 1e-9)
	assert.Len(t, req.Medicines, 2)
	assert.Equal(t, "Dr. Ayesha Rahman", req.DoctorName)
	assert.Equal(t, "A-1234", req.RegNo)
}

func TestExportKeepsGivenPatientFields(t *testing.T) {
	c := NewCart()
	c.Add(entities.MedicineOption{Brand: "X", Price: 0.1})
	require.NoError(t, c.SetQuantity(0, "3"))

	req := BuildExportRequest(entities.PatientInfo{Name: "Rahim", PatientID: "P-77", NextAppointment: "2 weeks"}, entities.Prescriber{}, c)
	assert.Equal(t, "Rahim", req.PatientName)
	assert.Equal(t, "P-77", req.PatientID)
	assert.Equal(t, "2 weeks", req.NextAppointment)
	assert.Equal(t, 0.3, req.TotalCost, "total is rounded to cents")
}

func TestExportPatientIDGeneratedOnlyWhenMissing(t *testing.T) {
	calls := 0
	generatePatientID = func() string {
		calls++
		return "PID-00000000"
	}
	t.Cleanup(func() { generatePatientID = NewPatientID })

	c := NewCart()
	c.Add(napa)

	req := BuildExportRequest(entities.PatientInfo{PatientID: " P-77 "}, entities.Prescriber{}, c)
	assert.Equal(t, "P-77", req.PatientID)
	assert.Zero(t, calls, "no placeholder for a given ID")

	req = BuildExportRequest(entities.PatientInfo{PatientID: "   "}, entities.Prescriber{}, c)
	assert.Equal(t, "PID-00000000", req.PatientID)
	assert.Equal(t, 1, calls)
}

func TestExportSingleFlight(t *testing.T) {
	r := &fakeRenderer{gate: make(chan struct{}), started: make(chan struct{}, 1)}
	e := NewExporter(r, nil, entities.Prescriber{})
	c := cartWithNapa(t)
	ctx := context.Background()

	firstDone := make(chan error, 1)
	go func() {
		_, _, err := e.Export(ctx, entities.PatientInfo{}, c)
		firstDone <- err
	}()

	select {
	case <-r.started:
	case <-time.After(time.Second):
		t.Fatal("first export never reached the renderer")
	}
	assert.True(t, e.InFlight())

	_, _, err := e.Export(ctx, entities.PatientInfo{}, c)
	assert.ErrorIs(t, err, ErrExportInProgress)
	assert.Equal(t, 1, r.count(), "the rejected export sent nothing")

	close(r.gate)
	require.NoError(t, <-firstDone)
	assert.False(t, e.InFlight())

	r.mu.Lock()
	r.started = nil
	r.mu.Unlock()
	_, _, err = e.Export(ctx, entities.PatientInfo{}, c)
	assert.NoError(t, err)
	assert.Equal(t, 2, r.count())
}

func TestExportFailureReleasesGuard(t *testing.T) {
	r := &fakeRenderer{err: errors.New("status 500")}
	e := NewExporter(r, nil, entities.Prescriber{})
	c := cartWithNapa(t)

	_, _, err := e.Export(context.Background(), entities.PatientInfo{}, c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.False(t, e.InFlight())

	r.err = nil
	_, _, err = e.Export(context.Background(), entities.PatientInfo{}, c)
	assert.NoError(t, err)
	assert.Equal(t, 2, r.count(), "no retries")
}

func TestFileSink(t *testing.T) {
	dir := t.TempDir()

	loc, err := FileSink{Dir: dir}.Deliver([]byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultArtifactName), loc)

	custom := filepath.Join(dir, "out", "rahim.pdf")
	loc, err = FileSink{Path: custom}.Deliver([]byte("%PDF-2"))
	require.NoError(t, err)
	assert.Equal(t, custom, loc)

	raw, err := os.ReadFile(custom)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-2", string(raw))
	_, err = os.Stat(custom + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestNewPatientIDIsUnique(t *testing.T) {
	assert.NotEqual(t, NewPatientID(), NewPatientID())
}
