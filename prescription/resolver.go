// Package prescription holds the operator-side state of the prescription
// builder: the selection cascade, the cart, the export guard and the view
// projection over them.
package prescription

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/giygas/prescription-builder/catalog/entities"
	"github.com/giygas/prescription-builder/logging"
	"github.com/giygas/prescription-builder/metrics"
)

// Cascade fields
const (
	FieldGeneric  = "generic"
	FieldStrength = "strength"
	FieldType     = "type"
)

// CatalogLookup is the lookup side of the catalog service.
type CatalogLookup interface {
	GetOptions(ctx context.Context, generic, strength string) (entities.OptionsResponse, error)
	GetDetails(ctx context.Context, q entities.MedicineQuery) ([]entities.MedicineOption, error)
}

// ResolverState is a snapshot of the cascade.
type ResolverState struct {
	Query      entities.MedicineQuery
	Strengths  []string
	Types      []string
	Candidates []entities.MedicineOption
	Notice     string // last lookup failure, cleared by the next field change
	Pending    int    // lookups in flight
}

// Resolver owns the generic → strength → type cascade and the candidate list.
//
// Lookups run on their own goroutines and are never cancelled. Every lookup
// is tagged with the sequence number of the list it will fill (strength
// choices, type choices or candidates); a response is applied only while its
// number is still the latest issued for that list, so a slow answer to an
// abandoned query can never overwrite a newer selection.
type Resolver struct {
	lookup CatalogLookup

	mu    sync.Mutex
	state ResolverState

	strengthsSeq  uint64
	typesSeq      uint64
	candidatesSeq uint64

	wg sync.WaitGroup
}

// NewResolver creates a resolver with an empty cascade
func NewResolver(lookup CatalogLookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// OnFieldChange applies an operator change to one cascade field and resets
// everything downstream of it.
func (r *Resolver) OnFieldChange(ctx context.Context, field, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch field {
	case FieldGeneric:
		r.state.Query = entities.MedicineQuery{Generic: value}
		r.state.Strengths = nil
		r.state.Types = nil
		r.state.Candidates = nil
		r.state.Notice = ""
		r.strengthsSeq++
		r.typesSeq++
		r.candidatesSeq++
		if value == "" {
			return nil
		}
		r.issueOptions(ctx, value, "", r.strengthsSeq, r.typesSeq, true)

	case FieldStrength:
		if r.state.Query.Generic == "" {
			return ErrNoGeneric
		}
		r.state.Query.Strength = value
		r.state.Query.Type = ""
		r.state.Types = nil
		r.state.Candidates = nil
		r.state.Notice = ""
		r.typesSeq++
		r.candidatesSeq++
		r.issueOptions(ctx, r.state.Query.Generic, value, 0, r.typesSeq, false)

	case FieldType:
		if r.state.Query.Generic == "" {
			return ErrNoGeneric
		}
		r.state.Query.Type = value
		r.state.Candidates = nil
		r.state.Notice = ""
		r.candidatesSeq++

	default:
		return fmt.Errorf("%q: %w", field, ErrUnknownField)
	}

	return nil
}

// ResolveOptions looks up the brands for the full query. It does nothing
// unless generic, strength and type are all set, and reports whether a
// lookup was issued.
func (r *Resolver) ResolveOptions(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.state.Query.Complete() {
		return false
	}

	r.candidatesSeq++
	seq := r.candidatesSeq
	q := r.state.Query
	r.state.Candidates = nil
	r.state.Notice = ""
	r.state.Pending++
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()
		options, err := r.lookup.GetDetails(ctx, q)
		r.applyDetails(seq, options, err)
	}()

	return true
}

// Wait blocks until every issued lookup has been applied or discarded.
func (r *Resolver) Wait() {
	r.wg.Wait()
}

// State returns a copy of the current cascade.
func (r *Resolver) State() ResolverState {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.state
	s.Strengths = slices.Clone(r.state.Strengths)
	s.Types = slices.Clone(r.state.Types)
	s.Candidates = slices.Clone(r.state.Candidates)
	return s
}

// Candidate returns the candidate at pos.
func (r *Resolver) Candidate(pos int) (entities.MedicineOption, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pos < 0 || pos >= len(r.state.Candidates) {
		return entities.MedicineOption{}, fmt.Errorf("candidate %d of %d: %w", pos, len(r.state.Candidates), ErrIndexOutOfRange)
	}
	return r.state.Candidates[pos], nil
}

// issueOptions must be called with r.mu held. strengthsSeq is ignored when
// withStrengths is false.
func (r *Resolver) issueOptions(ctx context.Context, generic, strength string, strengthsSeq, typesSeq uint64, withStrengths bool) {
	r.state.Pending++
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()
		resp, err := r.lookup.GetOptions(ctx, generic, strength)
		r.applyOptions(strengthsSeq, typesSeq, withStrengths, resp, err)
	}()
}

func (r *Resolver) applyOptions(strengthsSeq, typesSeq uint64, withStrengths bool, resp entities.OptionsResponse, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Pending--

	strengthsCurrent := withStrengths && strengthsSeq == r.strengthsSeq
	typesCurrent := typesSeq == r.typesSeq

	if !strengthsCurrent && !typesCurrent {
		discardStale("options", err)
		return
	}
	if !typesCurrent {
		// strengths still apply; the types half is superseded
		discardStale("options", err)
	}

	if err != nil {
		logging.Warn("Options lookup failed", "error", err)
		r.state.Notice = fmt.Sprintf("Could not load options: %v", err)
		return
	}

	if strengthsCurrent {
		r.state.Strengths = slices.Clone(resp.Strengths)
	}
	if typesCurrent && (len(resp.Types) > 0 || !withStrengths) {
		r.state.Types = slices.Clone(resp.Types)
	}
}

func (r *Resolver) applyDetails(seq uint64, options []entities.MedicineOption, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Pending--

	if seq != r.candidatesSeq {
		discardStale("details", err)
		return
	}

	if err != nil {
		logging.Warn("Details lookup failed", "error", err)
		r.state.Notice = fmt.Sprintf("Could not load brands: %v", err)
		return
	}

	if len(options) == 0 {
		r.state.Notice = "No brands found."
	}
	r.state.Candidates = slices.Clone(options)
}

func discardStale(lookup string, err error) {
	metrics.StaleResponsesTotal.WithLabelValues(lookup).Inc()
	logging.Debug("Discarded stale lookup response", "lookup", lookup, "error", err)
}
