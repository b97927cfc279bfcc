package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleTSV = "Generic\tBrand\tStrength\tType\tPrice\nParacetamol\tNapa\t500mg\tTablet\t2.5\n"

func TestNewLoaderDispatch(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"files/medicines.tsv", "*catalog.FileLoader"},
		{"https://example.org/m.tsv", "*catalog.HTTPLoader"},
		{"postgres://rx:secret@db/rx", "*catalog.PostgresLoader"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			got := typeName(NewLoader(tt.source))
			if got != tt.want {
				t.Errorf("NewLoader(%q) = %s, want %s", tt.source, got, tt.want)
			}
		})
	}
}

func TestFileLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medicines.tsv")
	if err := os.WriteFile(path, []byte(sampleTSV), 0o600); err != nil {
		t.Fatal(err)
	}

	rows, err := (&FileLoader{Path: path}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rows) != 1 || rows[0].Brand != "Napa" {
		t.Errorf("unexpected rows %+v", rows)
	}

	if _, err := (&FileLoader{Path: filepath.Join(t.TempDir(), "missing.tsv")}).Load(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestHTTPLoader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/medicines.tsv" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(sampleTSV))
	}))
	defer srv.Close()

	rows, err := (&HTTPLoader{URL: srv.URL + "/medicines.tsv", Client: srv.Client()}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected 1 row, got %d", len(rows))
	}

	_, err = (&HTTPLoader{URL: srv.URL + "/gone.tsv", Client: srv.Client()}).Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestPostgresLoaderDescribeRedactsPassword(t *testing.T) {
	got := NewPostgresLoader("postgres://rx:secret@db:5432/rx").Describe()
	if strings.Contains(got, "secret") {
		t.Errorf("password leaked in %q", got)
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *FileLoader:
		return "*catalog.FileLoader"
	case *HTTPLoader:
		return "*catalog.HTTPLoader"
	case *PostgresLoader:
		return "*catalog.PostgresLoader"
	}
	return "unknown"
}
