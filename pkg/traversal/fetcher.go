package traversal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sanonone/kektorgraph/pkg/document"
	"github.com/sanonone/kektorgraph/pkg/metrics"
	"github.com/sanonone/kektorgraph/pkg/shard"
	"github.com/sanonone/kektorgraph/pkg/storage/arena"
)

// FetchRequest is everything a Fetcher needs for one step.
type FetchRequest struct {
	Database string
	Engines  []string
	// Vertex is the start vertex in wire form (see document.VertexValue).
	Vertex json.RawMessage
	Depth  uint64
	Filter EdgeFilter

	// Arena receives the bytes of every delivered edge.
	Arena *arena.Arena
	// Edges receives the delivered edges, in order.
	Edges *[]document.Edge

	FilteredPaths *FilteredPaths
	ReadDocuments *ReadCounter
}

// Fetcher fills a FetchRequest's destinations from the engines of the cluster.
//
// Implementations must contact every engine, keep each engine's order, store
// edge bytes in the arena, skip edges whose path is already filtered, count
// every document read (filtered ones included) and fail the whole fetch on
// any engine or decoding error, leaving the destinations untouched.
type Fetcher interface {
	FetchEdges(ctx context.Context, req *FetchRequest) error
}

// EngineClient is the transport to one storage engine.
type EngineClient interface {
	ID() string
	ReadEdges(ctx context.Context, database string, req *shard.EdgeRequest) (*shard.EdgeResponse, error)
}

// EngineError reports the engine a fetch failed on.
type EngineError struct {
	Engine string
	Err    error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine %s: %v", e.Engine, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// FanOut is the Fetcher that queries all engines in parallel.
type FanOut struct {
	mu      sync.RWMutex
	engines map[string]EngineClient
	logger  *slog.Logger
}

// NewFanOut creates a fetcher over the given engine clients.
func NewFanOut(logger *slog.Logger, clients ...EngineClient) *FanOut {
	if logger == nil {
		logger = slog.Default()
	}
	f := &FanOut{
		engines: make(map[string]EngineClient, len(clients)),
		logger:  logger,
	}
	for _, c := range clients {
		f.engines[c.ID()] = c
	}
	return f
}

// Register adds or replaces the client for c.ID().
func (f *FanOut) Register(c EngineClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.engines[c.ID()] = c
}

// Engines returns the ids of all registered engines.
func (f *FanOut) Engines() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ids := make([]string, 0, len(f.engines))
	for id := range f.engines {
		ids = append(ids, id)
	}
	return ids
}

// decoded holds one engine's answer after validation.
type decoded struct {
	engine   string
	edges    [][]byte
	headers  []document.Header
	filtered []string
	read     int64
}

// FetchEdges implements Fetcher. It blocks until every engine answered or the
// first one failed.
func (f *FanOut) FetchEdges(ctx context.Context, req *FetchRequest) (err error) {
	if req.Arena == nil || req.Edges == nil || req.FilteredPaths == nil || req.ReadDocuments == nil {
		return fmt.Errorf("%w: fetch request is missing a destination", ErrInvalidStep)
	}

	clients, err := f.clientsFor(req.Engines)
	if err != nil {
		return err
	}

	start := time.Now()
	requestID := uuid.NewString()
	log := f.logger.With("request_id", requestID, "database", req.Database, "depth", req.Depth)

	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
			log.Error("edge fetch failed", "error", err)
		}
		metrics.FetchesTotal.WithLabelValues(result).Inc()
		metrics.FetchDuration.Observe(time.Since(start).Seconds())
	}()

	engineReq := &shard.EdgeRequest{
		RequestID:      requestID,
		Keys:           req.Vertex,
		Depth:          req.Depth,
		Direction:      req.Filter.Direction,
		Relations:      req.Filter.Relations,
		DepthRelations: req.Filter.DepthRelations,
		AtTime:         req.Filter.AtTime,
	}

	responses := make([]*shard.EdgeResponse, len(clients))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range clients {
		g.Go(func() error {
			resp, err := c.ReadEdges(gctx, req.Database, engineReq)
			if err == nil && resp == nil {
				err = fmt.Errorf("%w: empty response", ErrInvalidResponse)
			}
			if err != nil {
				metrics.EngineRequestsTotal.WithLabelValues(c.ID(), "error").Inc()
				return &EngineError{Engine: c.ID(), Err: err}
			}
			metrics.EngineRequestsTotal.WithLabelValues(c.ID(), "ok").Inc()
			responses[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Validate everything before touching the destinations, so a bad
	// answer from the last engine cannot leave a partial result behind.
	answers := make([]decoded, len(clients))
	for i, resp := range responses {
		d, err := decodeResponse(clients[i].ID(), resp)
		if err != nil {
			return err
		}
		answers[i] = d
	}

	// Register every engine's filtered paths first: an edge deleted on one
	// engine must not come back through a stale replica on another.
	for _, d := range answers {
		for _, id := range d.filtered {
			req.FilteredPaths.Add(id)
		}
		req.ReadDocuments.Add(d.read)
		metrics.DocumentsRead.Add(float64(d.read))
	}

	delivered, skipped := 0, 0
	for _, d := range answers {
		for j, canon := range d.edges {
			hdr := d.headers[j]
			if req.FilteredPaths.Contains(hdr.Ref.String()) {
				skipped++
				continue
			}
			owned := req.Arena.Append(canon)
			*req.Edges = append(*req.Edges, document.FromCanonical(owned, hdr))
			delivered++
		}
	}

	metrics.EdgesFetched.Add(float64(delivered))
	metrics.EdgesSkipped.Add(float64(skipped))
	log.Debug("edges fetched",
		"engines", len(clients),
		"delivered", delivered,
		"skipped", skipped,
		"duration", time.Since(start).String(),
	)
	return nil
}

func (f *FanOut) clientsFor(ids []string) ([]EngineClient, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no engines", ErrInvalidStep)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	clients := make([]EngineClient, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		c, ok := f.engines[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, id)
		}
		clients = append(clients, c)
	}
	return clients, nil
}

func decodeResponse(engine string, resp *shard.EdgeResponse) (decoded, error) {
	d := decoded{
		engine:  engine,
		edges:   make([][]byte, 0, len(resp.Edges)),
		headers: make([]document.Header, 0, len(resp.Edges)),
		read:    resp.ReadIndex,
	}
	if resp.ReadIndex < 0 {
		return d, &EngineError{Engine: engine, Err: fmt.Errorf("%w: negative readIndex %d", ErrInvalidResponse, resp.ReadIndex)}
	}

	for i, raw := range resp.Edges {
		canon, hdr, err := document.Canonicalize(raw)
		if err != nil {
			return d, &EngineError{Engine: engine, Err: fmt.Errorf("edge %d: %w", i, err)}
		}
		d.edges = append(d.edges, canon)
		d.headers = append(d.headers, hdr)
	}

	for _, id := range resp.Filtered {
		if _, err := document.ParseReference(id); err != nil {
			return d, &EngineError{Engine: engine, Err: fmt.Errorf("%w: filtered path: %w", ErrInvalidResponse, err)}
		}
		d.filtered = append(d.filtered, id)
	}
	return d, nil
}

// IsFetchError reports whether err came from an engine during a fetch.
func IsFetchError(err error) bool {
	var ee *EngineError
	return errors.As(err, &ee)
}
