package traversal

import (
	"context"
	"fmt"

	"github.com/sanonone/kektorgraph/pkg/document"
	"github.com/sanonone/kektorgraph/pkg/storage/arena"
)

// Item is one edge handed out by an EdgeCursor.
type Item struct {
	// ID is the external id resolved from the edge's internal reference.
	ID       string
	Edge     document.Edge
	Position int
}

// EdgeCursor exposes the edges of one vertex at one depth.
//
// The edges are fetched once, when the cursor is created, and then handed out
// exactly once: either one by one through Next/NextItem, or all together
// through a ReadAll issued before any of them was consumed.
//
// A cursor is driven by a single goroutine; it does no locking.
type EdgeCursor struct {
	edges    []document.Edge
	position int
	// drained is set by a fresh ReadAll; it marks an empty sequence as
	// consumed too, where position alone cannot.
	drained  bool
	closed   bool
	resolver Resolver
	arena    *arena.Arena
}

// NewEdgeCursor fetches the edges of vertexID at depth from every engine of
// the step. It blocks until the fan-out completes. A fetch failure is returned
// as an error and no cursor is produced; a vertex without edges yields a valid,
// empty cursor.
func NewEdgeCursor(ctx context.Context, vertexID string, depth uint64, step *Step) (*EdgeCursor, error) {
	if err := step.validate(); err != nil {
		return nil, err
	}

	c := &EdgeCursor{
		resolver: step.Resolver,
		arena:    arena.New(step.ArenaChunkSize),
	}

	req := &FetchRequest{
		Database:      step.Database,
		Engines:       step.Engines,
		Vertex:        document.VertexValue(vertexID),
		Depth:         depth,
		Filter:        step.Filter,
		Arena:         c.arena,
		Edges:         &c.edges,
		FilteredPaths: step.FilteredPaths,
		ReadDocuments: step.ReadDocuments,
	}
	if err := step.Fetcher.FetchEdges(ctx, req); err != nil {
		c.arena.Release()
		return nil, fmt.Errorf("fetch edges of %s at depth %d: %w", vertexID, depth, err)
	}

	step.logger().Debug("edge cursor ready", "vertex", vertexID, "depth", depth, "edges", len(c.edges))
	return c, nil
}

// Next delivers the next edge to visit and reports whether there was one.
// visit receives the external id, the edge and its position.
func (c *EdgeCursor) Next(visit func(id string, edge document.Edge, pos int)) bool {
	item, ok := c.NextItem()
	if !ok {
		return false
	}
	visit(item.ID, item.Edge, item.Position)
	return true
}

// HasNext reports whether NextItem would return an edge.
func (c *EdgeCursor) HasNext() bool {
	return !c.closed && c.position < len(c.edges)
}

// NextItem returns the next edge, or false once the cursor is exhausted.
func (c *EdgeCursor) NextItem() (Item, bool) {
	if !c.HasNext() {
		return Item{}, false
	}
	edge := c.edges[c.position]
	item := Item{
		ID:       c.resolver.ResolveID(edge.Ref()),
		Edge:     edge,
		Position: c.position,
	}
	c.position++
	return item, true
}

// ReadAll adds every edge to result, provided nothing was consumed yet.
//
// It returns true only for the first call on an untouched cursor; afterwards,
// or after any successful Next, it is a no-op returning false. Structurally
// equal edges collapse in result. cursorID is reserved for paging and is set
// to 0.
func (c *EdgeCursor) ReadAll(result *document.Set, cursorID *uint64) bool {
	if cursorID != nil {
		*cursorID = 0
	}
	if c.closed || c.drained || c.position != 0 || result == nil {
		return false
	}
	for _, edge := range c.edges {
		result.Add(edge)
	}
	c.position = len(c.edges)
	c.drained = true
	return true
}

// Len returns the number of edges fetched.
func (c *EdgeCursor) Len() int { return len(c.edges) }

// Remaining returns how many edges are still undelivered.
func (c *EdgeCursor) Remaining() int {
	if c.closed {
		return 0
	}
	return len(c.edges) - c.position
}

// Close releases the arena holding the edges. Edges obtained from the cursor
// must not be used after Close.
func (c *EdgeCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.edges = nil
	c.arena.Release()
	return nil
}
