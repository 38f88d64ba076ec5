package traversal

import (
	"context"
	"errors"
	"fmt"
)

// ErrTooManyVertices is returned when a walk exceeds WalkOptions.MaxVertices.
var ErrTooManyVertices = errors.New("walk vertex limit exceeded")

// WalkOptions bounds a breadth-first walk.
type WalkOptions struct {
	// MaxDepth is the number of steps taken from the start vertex (default 1).
	MaxDepth uint64
	// Target stops the walk as soon as it is discovered; the result then
	// carries the path leading to it.
	Target string
	// MaxVertices aborts the walk once more vertices were discovered (0 = no limit).
	MaxVertices int
}

// WalkEdge is an edge followed during a walk.
type WalkEdge struct {
	ID    string `json:"id"`
	From  string `json:"from"`
	To    string `json:"to"`
	Depth uint64 `json:"depth"`
}

// WalkResult is the subgraph discovered by Walk.
type WalkResult struct {
	// Vertices in discovery order, start vertex first.
	Vertices []string   `json:"vertices"`
	Edges    []WalkEdge `json:"edges"`
	// Path is start..Target when a target was given and reached.
	Path          []string `json:"path,omitempty"`
	ReadDocuments int64    `json:"read_documents"`
}

// Walk expands start breadth-first, one EdgeCursor per vertex and depth, all
// sharing the step's FilteredPaths and ReadDocuments. Every followed edge is
// registered as a filtered path, so no edge is followed twice even when the
// direction lets it show up from both of its endpoints.
func Walk(ctx context.Context, start string, step *Step, opts WalkOptions) (*WalkResult, error) {
	if err := step.validate(); err != nil {
		return nil, err
	}
	if opts.MaxDepth == 0 {
		opts.MaxDepth = 1
	}

	before := step.ReadDocuments.Load()
	res := &WalkResult{Vertices: []string{start}}
	// parent maps each discovered vertex to the one it was reached from.
	parent := map[string]string{start: ""}
	frontier := []string{start}

	found := opts.Target != "" && opts.Target == start

	for depth := uint64(0); depth < opts.MaxDepth && len(frontier) > 0 && !found; depth++ {
		var next []string
		for _, vertex := range frontier {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			cur, err := NewEdgeCursor(ctx, vertex, depth, step)
			if err != nil {
				return nil, err
			}
			for cur.HasNext() {
				item, _ := cur.NextItem()
				step.FilteredPaths.Add(item.Edge.Ref().String())

				neighbor := item.Edge.To()
				if neighbor == vertex {
					neighbor = item.Edge.From()
				}
				res.Edges = append(res.Edges, WalkEdge{
					ID:    item.ID,
					From:  item.Edge.From(),
					To:    item.Edge.To(),
					Depth: depth,
				})

				if _, seen := parent[neighbor]; seen {
					continue
				}
				parent[neighbor] = vertex
				res.Vertices = append(res.Vertices, neighbor)
				next = append(next, neighbor)

				if opts.MaxVertices > 0 && len(res.Vertices) > opts.MaxVertices {
					cur.Close()
					return nil, fmt.Errorf("%w: %d", ErrTooManyVertices, opts.MaxVertices)
				}
				if neighbor == opts.Target {
					found = true
					break
				}
			}
			cur.Close()
			if found {
				break
			}
		}
		frontier = next
	}

	if found {
		for v := opts.Target; v != ""; v = parent[v] {
			res.Path = append(res.Path, v)
		}
		for i, j := 0, len(res.Path)-1; i < j; i, j = i+1, j-1 {
			res.Path[i], res.Path[j] = res.Path[j], res.Path[i]
		}
	}

	res.ReadDocuments = step.ReadDocuments.Load() - before
	step.logger().Debug("walk finished",
		"start", start,
		"vertices", len(res.Vertices),
		"edges", len(res.Edges),
		"found", found,
	)
	return res, nil
}
