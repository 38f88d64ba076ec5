package traversal

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sanonone/kektorgraph/pkg/document"
	"github.com/sanonone/kektorgraph/pkg/shard"
)

// ring: a -> b -> c -> a, plus a -> d.
func ringStep(t *testing.T) *Step {
	t.Helper()
	eng, err := shard.Open(shard.Options{Database: "graph"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { eng.Close() })

	for _, raw := range []string{
		`{"_key":"k1","_from":"a","_to":"b"}`,
		`{"_key":"k2","_from":"b","_to":"c"}`,
		`{"_key":"k3","_from":"c","_to":"a"}`,
		`{"_key":"k4","_from":"a","_to":"d"}`,
	} {
		if _, err := eng.InsertEdge([]byte(raw), 1); err != nil {
			t.Fatal(err)
		}
	}
	resolver := ResolverFunc(func(ref document.Reference) string { return "e/" + ref.Key })
	return NewStep("graph", []string{"s1"}, resolver, NewFanOut(nil, shard.NewLocal("s1", eng)))
}

func edgeIDs(edges []WalkEdge) []string {
	var ids []string
	for _, e := range edges {
		ids = append(ids, e.ID)
	}
	return ids
}

func TestWalkOutbound(t *testing.T) {
	res, err := Walk(context.Background(), "a", ringStep(t), WalkOptions{MaxDepth: 3})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b", "d", "c"}, res.Vertices); diff != "" {
		t.Errorf("vertices (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"e/k1", "e/k4", "e/k2", "e/k3"}, edgeIDs(res.Edges)); diff != "" {
		t.Errorf("edges (-want +got):\n%s", diff)
	}
	if res.Edges[3].Depth != 2 {
		t.Errorf("closing edge depth = %d, want 2", res.Edges[3].Depth)
	}
	if res.ReadDocuments != 4 {
		t.Errorf("read documents = %d, want 4", res.ReadDocuments)
	}
}

func TestWalkAnyFollowsEachEdgeOnce(t *testing.T) {
	step := ringStep(t)
	step.Filter.Direction = shard.Any

	res, err := Walk(context.Background(), "a", step, WalkOptions{MaxDepth: 5})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b", "d", "c"}, res.Vertices); diff != "" {
		t.Errorf("vertices (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"e/k1", "e/k4", "e/k3", "e/k2"}, edgeIDs(res.Edges)); diff != "" {
		t.Errorf("edges (-want +got):\n%s", diff)
	}
	if step.FilteredPaths.Len() != 4 {
		t.Errorf("filtered paths = %d, want 4", step.FilteredPaths.Len())
	}
}

func TestWalkFindsTarget(t *testing.T) {
	res, err := Walk(context.Background(), "a", ringStep(t), WalkOptions{MaxDepth: 4, Target: "c"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, res.Path); diff != "" {
		t.Errorf("path (-want +got):\n%s", diff)
	}

	res, err = Walk(context.Background(), "a", ringStep(t), WalkOptions{MaxDepth: 1, Target: "c"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != nil {
		t.Errorf("target beyond depth reported path %v", res.Path)
	}
}

func TestWalkLimits(t *testing.T) {
	_, err := Walk(context.Background(), "a", ringStep(t), WalkOptions{MaxDepth: 3, MaxVertices: 2})
	if !errors.Is(err, ErrTooManyVertices) {
		t.Errorf("error = %v, want ErrTooManyVertices", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Walk(ctx, "a", ringStep(t), WalkOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
