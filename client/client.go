// Package client is a stateless wrapper around the catalog lookup and render
// endpoints.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/giygas/prescription-builder/catalog/entities"
	"github.com/giygas/prescription-builder/logging"
)

// maxResponseSize bounds lookup and document bodies
const maxResponseSize = 32 << 20

// NetworkError reports a failed request: transport failure or a non-success
// status. Status is 0 when no response was received.
type NetworkError struct {
	Op     string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// CatalogClient talks to the catalog service over JSON/HTTP.
type CatalogClient struct {
	baseURL string
	http    *http.Client
}

// New creates a client for baseURL. timeout <= 0 means no client-side timeout.
func New(baseURL string, timeout time.Duration) *CatalogClient {
	return &CatalogClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// GetOptions fetches the strengths and dosage forms of a generic. A non-empty
// strength scopes the returned types.
func (c *CatalogClient) GetOptions(ctx context.Context, generic, strength string) (entities.OptionsResponse, error) {
	var resp entities.OptionsResponse
	err := c.postJSON(ctx, "get_options", entities.OptionsRequest{Generic: generic, Strength: strength}, &resp)
	return resp, err
}

// GetDetails fetches the brands matching an exact query. "No brands found"
// is an empty list, not an error.
func (c *CatalogClient) GetDetails(ctx context.Context, q entities.MedicineQuery) ([]entities.MedicineOption, error) {
	var resp entities.DetailsResponse
	err := c.postJSON(ctx, "get_details", q, &resp)

	var netErr *NetworkError
	if errors.As(err, &netErr) && netErr.Status == http.StatusNotFound {
		return []entities.MedicineOption{}, nil
	}
	if err != nil {
		return nil, err
	}
	if resp.Options == nil {
		resp.Options = []entities.MedicineOption{}
	}
	return resp.Options, nil
}

// Generics lists the catalog's generic names.
func (c *CatalogClient) Generics(ctx context.Context) ([]string, error) {
	const op = "generics"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/generics", nil)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	body, err := c.do(op, req)
	if err != nil {
		return nil, err
	}

	var names []string
	if err := json.Unmarshal(body, &names); err != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("invalid response: %w", err)}
	}
	return names, nil
}

// GeneratePDF submits an export request and returns the rendered document.
func (c *CatalogClient) GeneratePDF(ctx context.Context, export entities.ExportRequest) ([]byte, error) {
	const op = "generate_pdf"

	payload, err := json.Marshal(export)
	if err != nil {
		return nil, fmt.Errorf("failed to encode export request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate_pdf", bytes.NewReader(payload))
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(op, req)
}

func (c *CatalogClient) postJSON(ctx context.Context, op string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+op, bytes.NewReader(payload))
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(op, req)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("invalid response: %w", err)}
	}
	return nil
}

// do sends req and returns the body of a 2xx response
func (c *CatalogClient) do(op string, req *http.Request) ([]byte, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "op", op, "error", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	logging.Debug("Catalog request completed", "op", op, "status", resp.StatusCode, "duration", time.Since(start).String())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NetworkError{Op: op, Status: resp.StatusCode, Err: errors.New(errorMessage(body, resp.StatusCode))}
	}
	return body, nil
}

// errorMessage extracts {"error": "..."} or falls back to the status text
func errorMessage(body []byte, status int) string {
	var e entities.ErrorResponse
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return http.StatusText(status)
}
