package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/giygas/prescription-builder/catalog/entities"
	"github.com/giygas/prescription-builder/logging"
)

// Loader fetches the full catalog from one source.
type Loader interface {
	Load(ctx context.Context) ([]entities.MedicineOption, error)
	Describe() string
}

// NewLoader picks a loader for the CATALOG_SOURCE value: a postgres DSN,
// an http(s) URL or a local file path.
func NewLoader(source string) Loader {
	switch {
	case strings.HasPrefix(source, "postgres://"), strings.HasPrefix(source, "postgresql://"):
		return NewPostgresLoader(source)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return &HTTPLoader{URL: source, Client: &http.Client{Timeout: 5 * time.Minute}}
	}
	return &FileLoader{Path: source}
}

// FileLoader reads a TSV or CSV export from disk.
type FileLoader struct {
	Path string
}

func (l *FileLoader) Describe() string { return "file:" + l.Path }

func (l *FileLoader) Load(ctx context.Context) ([]entities.MedicineOption, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(filepath.Clean(l.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	rows, _, err := ParseTable(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", l.Path, err)
	}
	return rows, nil
}

// HTTPLoader downloads a TSV or CSV export.
type HTTPLoader struct {
	URL    string
	Client *http.Client
}

func (l *HTTPLoader) Describe() string { return "url:" + l.URL }

func (l *HTTPLoader) Load(ctx context.Context) ([]entities.MedicineOption, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", l.URL, err)
	}

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", l.URL, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download %s: status %d", l.URL, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	rows, _, err := ParseTable(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", l.URL, err)
	}
	return rows, nil
}
