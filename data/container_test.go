package data

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/giygas/prescription-builder/catalog"
	"github.com/giygas/prescription-builder/catalog/entities"
	"github.com/giygas/prescription-builder/interfaces"
)

func TestNewDataContainer(t *testing.T) {
	dc := NewDataContainer()

	if dc.IsUpdating() {
		t.Error("NewDataContainer should not be updating")
	}
	if !dc.GetLastUpdated().IsZero() {
		t.Error("NewDataContainer should have zero lastUpdated time")
	}
	if dc.GetIndex().Len() != 0 {
		t.Error("NewDataContainer should have an empty index")
	}
	if dc.GetDataQualityReport() == nil {
		t.Error("report should never be nil")
	}
}

func TestUpdateData(t *testing.T) {
	dc := NewDataContainer()

	ix := catalog.NewIndex([]entities.MedicineOption{
		{Generic: "Paracetamol", Brand: "Napa", Strength: "500mg", Type: "Tablet", Price: 2.5},
		{Generic: "Omeprazole", Brand: "Seclo", Strength: "20mg", Type: "Capsule", Price: 6},
	})
	dc.UpdateData(ix, &interfaces.DataQualityReport{TotalRows: 2})

	if dc.GetIndex().Len() != 2 {
		t.Errorf("Expected 2 rows, got %d", dc.GetIndex().Len())
	}
	if dc.GetDataQualityReport().TotalRows != 2 {
		t.Errorf("report not stored")
	}
	if dc.GetLastUpdated().IsZero() {
		t.Error("LastUpdated should be set after UpdateData")
	}

	dc.UpdateData(nil, nil)
	if dc.GetIndex() == nil || dc.GetIndex().Len() != 0 {
		t.Error("nil index should be replaced by an empty one")
	}
}

func TestBeginEndUpdate(t *testing.T) {
	dc := NewDataContainer()

	if !dc.BeginUpdate() {
		t.Fatal("first BeginUpdate should succeed")
	}
	if dc.BeginUpdate() {
		t.Error("second BeginUpdate should fail while updating")
	}
	if !dc.IsUpdating() {
		t.Error("IsUpdating should be true")
	}
	dc.EndUpdate()
	if !dc.BeginUpdate() {
		t.Error("BeginUpdate should succeed after EndUpdate")
	}
}

func TestConcurrentBeginUpdate(t *testing.T) {
	dc := NewDataContainer()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if dc.BeginUpdate() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("expected exactly one winner, got %d", wins.Load())
	}
}

func TestConcurrentReadsDuringSwap(t *testing.T) {
	dc := NewDataContainer()
	rows := []entities.MedicineOption{{Generic: "Paracetamol", Brand: "Napa", Strength: "500mg", Type: "Tablet"}}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			dc.UpdateData(catalog.NewIndex(rows), nil)
		}()
		go func() {
			defer wg.Done()
			if n := dc.GetIndex().Len(); n != 0 && n != 1 {
				t.Errorf("unexpected index length %d", n)
			}
		}()
	}
	wg.Wait()
}
