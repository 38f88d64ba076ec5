package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sanonone/kektorgraph/pkg/document"
	"github.com/sanonone/kektorgraph/pkg/shard"
	"github.com/sanonone/kektorgraph/pkg/traversal"
)

// Options configures the tool service.
type Options struct {
	Database string
	Engines  []string
	Fetcher  traversal.Fetcher
	Resolver traversal.Resolver
	// Filter holds the defaults applied when a call does not override them.
	Filter         traversal.EdgeFilter
	ArenaChunkSize int
	Logger         *slog.Logger
}

// DefaultMaxVertices bounds walks that do not set their own limit.
const DefaultMaxVertices = 1000

type Service struct {
	opts Options
}

func NewService(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{opts: opts}
}

// --- Tool Handlers ---

// ExpandEdges runs one traversal step from args.Vertex and returns its edges.
func (s *Service) ExpandEdges(ctx context.Context, req *mcp.CallToolRequest, args ExpandEdgesArgs) (*mcp.CallToolResult, ExpandEdgesResult, error) {
	if args.Vertex == "" {
		return nil, ExpandEdgesResult{}, errors.New("vertex is required")
	}

	step, err := s.step(args.Database, args.Direction, args.Relations)
	if err != nil {
		return nil, ExpandEdgesResult{}, err
	}

	cur, err := traversal.NewEdgeCursor(ctx, args.Vertex, args.Depth, step)
	if err != nil {
		return nil, ExpandEdgesResult{}, err
	}
	defer cur.Close()

	res := ExpandEdgesResult{
		Vertex: args.Vertex,
		Depth:  args.Depth,
		Edges:  make([]EdgeView, 0, cur.Len()),
	}

	if args.Bulk {
		res.Mode = "read_all"
		var all document.Set
		cur.ReadAll(&all, nil)
		for i, e := range all.Edges() {
			v, err := s.view(e, i)
			if err != nil {
				return nil, ExpandEdgesResult{}, err
			}
			res.Edges = append(res.Edges, v)
		}
	} else {
		res.Mode = "next"
		for cur.HasNext() {
			item, _ := cur.NextItem()
			v, err := s.view(item.Edge, item.Position)
			if err != nil {
				return nil, ExpandEdgesResult{}, err
			}
			res.Edges = append(res.Edges, v)
		}
	}

	res.ReadDocuments = step.ReadDocuments.Load()
	res.FilteredPaths = step.FilteredPaths.Len()

	s.opts.Logger.Info("expand_edges",
		"vertex", args.Vertex,
		"depth", args.Depth,
		"mode", res.Mode,
		"edges", len(res.Edges),
		"read", res.ReadDocuments,
	)
	return nil, res, nil
}

// WalkGraph walks breadth-first from args.Vertex, following every edge at most once.
func (s *Service) WalkGraph(ctx context.Context, req *mcp.CallToolRequest, args WalkGraphArgs) (*mcp.CallToolResult, traversal.WalkResult, error) {
	if args.Vertex == "" {
		return nil, traversal.WalkResult{}, errors.New("vertex is required")
	}
	if args.MaxVertices <= 0 {
		args.MaxVertices = DefaultMaxVertices
	}

	step, err := s.step(args.Database, args.Direction, args.Relations)
	if err != nil {
		return nil, traversal.WalkResult{}, err
	}

	res, err := traversal.Walk(ctx, args.Vertex, step, traversal.WalkOptions{
		MaxDepth:    args.MaxDepth,
		Target:      args.Target,
		MaxVertices: args.MaxVertices,
	})
	if err != nil {
		return nil, traversal.WalkResult{}, err
	}

	s.opts.Logger.Info("walk_graph",
		"vertex", args.Vertex,
		"max_depth", args.MaxDepth,
		"vertices", len(res.Vertices),
		"edges", len(res.Edges),
	)
	return nil, *res, nil
}

// step builds a fresh traversal step; call arguments override the defaults.
func (s *Service) step(database, direction string, relations []string) (*traversal.Step, error) {
	if database == "" {
		database = s.opts.Database
	}

	filter := s.opts.Filter
	if direction != "" {
		filter.Direction = shard.Direction(direction)
	}
	if !filter.Direction.Valid() {
		return nil, fmt.Errorf("unknown direction %q", filter.Direction)
	}
	if len(relations) > 0 {
		filter.Relations = slices.Clone(relations)
	}

	step := traversal.NewStep(database, s.opts.Engines, s.opts.Resolver, s.opts.Fetcher)
	step.Filter = filter
	step.ArenaChunkSize = s.opts.ArenaChunkSize
	step.Logger = s.opts.Logger
	return step, nil
}

// view decodes the edge out of the cursor's arena, which is released before
// the result is serialized.
func (s *Service) view(e document.Edge, pos int) (EdgeView, error) {
	var doc map[string]any
	if err := e.Decode(&doc); err != nil {
		return EdgeView{}, fmt.Errorf("decode edge %s: %w", e.Ref(), err)
	}
	return EdgeView{
		ID:       s.opts.Resolver.ResolveID(e.Ref()),
		From:     e.From(),
		To:       e.To(),
		Position: pos,
		Document: doc,
	}, nil
}
