// Package traversal implements the per-step edge cursor used by distributed
// graph traversals, together with the fan-out fetcher that fills it.
//
// A traversal step asks every storage engine of the cluster for the edges of
// one vertex at one depth. The engines' answers are merged into a single
// ordered sequence owned by an EdgeCursor, which hands the edges out either one
// at a time or all at once, never twice.
package traversal

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/sanonone/kektorgraph/pkg/document"
	"github.com/sanonone/kektorgraph/pkg/shard"
)

var (
	// ErrInvalidStep is returned when a Step lacks a required collaborator.
	ErrInvalidStep = errors.New("invalid traversal step")
	// ErrUnknownEngine is returned when a step names an engine the fetcher has no client for.
	ErrUnknownEngine = errors.New("unknown engine")
	// ErrInvalidResponse is returned for engine answers that break the wire contract.
	ErrInvalidResponse = errors.New("invalid engine response")
)

// Resolver turns an edge's internal reference into its external id.
// Implementations must not fail for documents produced by a correct fetcher.
type Resolver interface {
	ResolveID(ref document.Reference) string
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ref document.Reference) string

func (f ResolverFunc) ResolveID(ref document.Reference) string { return f(ref) }

// EdgeFilter carries the engine-side edge conditions of a traversal.
type EdgeFilter struct {
	Direction      shard.Direction
	Relations      []string
	DepthRelations map[uint64][]string
	AtTime         int64
}

// Step is the context of one traversal step. It replaces a back-reference to
// the traverser: every collaborator the cursor needs is an explicit field.
//
// FilteredPaths and ReadDocuments are usually shared by all steps of a
// traversal; both are safe for concurrent use.
type Step struct {
	// Database is the database every engine is asked about.
	Database string
	// Engines lists the ids of the engines taking part in the traversal.
	Engines []string
	// Resolver comes from the enclosing transaction.
	Resolver Resolver
	// Fetcher performs the fan-out.
	Fetcher Fetcher

	FilteredPaths *FilteredPaths
	ReadDocuments *ReadCounter

	Filter EdgeFilter

	// ArenaChunkSize sizes the per-cursor document arena (0 = default).
	ArenaChunkSize int

	Logger *slog.Logger
}

// NewStep returns a step with fresh FilteredPaths and ReadDocuments.
func NewStep(database string, engines []string, resolver Resolver, fetcher Fetcher) *Step {
	return &Step{
		Database:      database,
		Engines:       engines,
		Resolver:      resolver,
		Fetcher:       fetcher,
		FilteredPaths: NewFilteredPaths(),
		ReadDocuments: &ReadCounter{},
	}
}

func (s *Step) validate() error {
	switch {
	case s == nil:
		return fmt.Errorf("%w: nil step", ErrInvalidStep)
	case s.Database == "":
		return fmt.Errorf("%w: database is required", ErrInvalidStep)
	case len(s.Engines) == 0:
		return fmt.Errorf("%w: no engines", ErrInvalidStep)
	case s.Resolver == nil:
		return fmt.Errorf("%w: resolver is required", ErrInvalidStep)
	case s.Fetcher == nil:
		return fmt.Errorf("%w: fetcher is required", ErrInvalidStep)
	case s.FilteredPaths == nil:
		return fmt.Errorf("%w: filtered paths registry is required", ErrInvalidStep)
	case s.ReadDocuments == nil:
		return fmt.Errorf("%w: read documents counter is required", ErrInvalidStep)
	case !s.Filter.Direction.Valid():
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidStep, s.Filter.Direction)
	}
	return nil
}

func (s *Step) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// FilteredPaths is the registry of path ids excluded from a traversal.
// The fetcher adds the ids engines report as filtered and never delivers an
// edge whose id is already registered. Traversers may add ids too, e.g. to
// cut cycles.
type FilteredPaths struct {
	mu    sync.RWMutex
	paths map[string]struct{}
}

func NewFilteredPaths() *FilteredPaths {
	return &FilteredPaths{paths: make(map[string]struct{})}
}

// Add registers id and reports whether it was new.
func (f *FilteredPaths) Add(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.paths[id]; ok {
		return false
	}
	f.paths[id] = struct{}{}
	return true
}

func (f *FilteredPaths) Contains(id string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.paths[id]
	return ok
}

func (f *FilteredPaths) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.paths)
}

// ReadCounter counts documents physically read by the engines. It only grows.
type ReadCounter struct {
	n atomic.Int64
}

// Add increments the counter and returns the new total. Negative deltas are ignored.
func (c *ReadCounter) Add(delta int64) int64 {
	if delta <= 0 {
		return c.n.Load()
	}
	return c.n.Add(delta)
}

func (c *ReadCounter) Load() int64 { return c.n.Load() }
