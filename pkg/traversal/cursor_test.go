package traversal

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sanonone/kektorgraph/pkg/document"
)

// staticFetcher delivers a fixed list of documents the way a real fetcher
// does: canonical bytes copied into the request's arena.
type staticFetcher struct {
	docs  []string
	err   error
	calls int
	last  *FetchRequest
}

func (f *staticFetcher) FetchEdges(_ context.Context, req *FetchRequest) error {
	f.calls++
	f.last = req
	if f.err != nil {
		return f.err
	}
	for _, raw := range f.docs {
		canon, hdr, err := document.Canonicalize([]byte(raw))
		if err != nil {
			return err
		}
		*req.Edges = append(*req.Edges, document.FromCanonical(req.Arena.Append(canon), hdr))
	}
	return nil
}

var byKey = ResolverFunc(func(ref document.Reference) string { return "edges/" + ref.Key })

const (
	e1 = `{"_cid":1,"_key":"e1","_from":"v/1","_to":"v/2"}`
	e2 = `{"_cid":1,"_key":"e2","_from":"v/1","_to":"v/3"}`
	e3 = `{"_cid":1,"_key":"e3","_from":"v/1","_to":"v/4"}`
)

func newCursor(t *testing.T, docs ...string) (*EdgeCursor, *staticFetcher) {
	t.Helper()
	f := &staticFetcher{docs: docs}
	step := NewStep("graph", []string{"dbs1"}, byKey, f)
	c, err := NewEdgeCursor(context.Background(), "v/1", 1, step)
	if err != nil {
		t.Fatalf("NewEdgeCursor: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, f
}

type delivery struct {
	ID  string
	Key string
	Pos int
}

func TestCursorNextDeliversInOrder(t *testing.T) {
	c, f := newCursor(t, e1, e2, e3)

	if f.calls != 1 {
		t.Fatalf("fetcher called %d times, want 1", f.calls)
	}
	if string(f.last.Vertex) != `"v/1"` || f.last.Depth != 1 {
		t.Errorf("fetch request vertex=%s depth=%d", f.last.Vertex, f.last.Depth)
	}

	var got []delivery
	for i := 0; i < 3; i++ {
		ok := c.Next(func(id string, edge document.Edge, pos int) {
			got = append(got, delivery{ID: id, Key: edge.Ref().Key, Pos: pos})
		})
		if !ok {
			t.Fatalf("Next #%d returned false", i+1)
		}
	}

	want := []delivery{
		{ID: "edges/e1", Key: "e1", Pos: 0},
		{ID: "edges/e2", Key: "e2", Pos: 1},
		{ID: "edges/e3", Key: "e3", Pos: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("deliveries mismatch (-want +got):\n%s", diff)
	}

	for i := 0; i < 3; i++ {
		if c.Next(func(string, document.Edge, int) { t.Error("visitor called on exhausted cursor") }) {
			t.Fatal("Next returned true after exhaustion")
		}
	}
}

func TestCursorRemaining(t *testing.T) {
	for n := 0; n <= 5; n++ {
		c, _ := newCursor(t, e1, e2, e3)
		for i := 0; i < n; i++ {
			c.Next(func(string, document.Edge, int) {})
		}
		want := max(0, 3-n)
		if c.Remaining() != want {
			t.Errorf("after %d Next calls Remaining() = %d, want %d", n, c.Remaining(), want)
		}
		if c.HasNext() != (want > 0) {
			t.Errorf("after %d Next calls HasNext() = %v", n, c.HasNext())
		}
	}
}

func TestCursorReadAllOnce(t *testing.T) {
	c, _ := newCursor(t, e1, e2, e3)

	var result document.Set
	cursorID := uint64(99)
	if !c.ReadAll(&result, &cursorID) {
		t.Fatal("fresh ReadAll returned false")
	}
	if cursorID != 0 {
		t.Errorf("cursorID = %d, want 0", cursorID)
	}
	if result.Len() != 3 {
		t.Fatalf("result has %d edges, want 3", result.Len())
	}
	for _, raw := range []string{e1, e2, e3} {
		if !result.Contains(document.MustParse(raw)) {
			t.Errorf("result misses %s", raw)
		}
	}

	if c.ReadAll(&result, nil) {
		t.Error("second ReadAll returned true")
	}
	if result.Len() != 3 {
		t.Errorf("second ReadAll changed result: %d edges", result.Len())
	}
}

func TestCursorReadAllThenNext(t *testing.T) {
	c, _ := newCursor(t, e1, e2)

	var result document.Set
	if !c.ReadAll(&result, nil) {
		t.Fatal("ReadAll returned false")
	}
	if result.Len() != 2 {
		t.Fatalf("result has %d edges, want 2", result.Len())
	}
	if c.Next(func(string, document.Edge, int) { t.Error("visitor called after ReadAll") }) {
		t.Error("Next returned true after ReadAll")
	}
	if c.Remaining() != 0 {
		t.Errorf("Remaining() = %d after ReadAll", c.Remaining())
	}
}

func TestCursorNextThenReadAll(t *testing.T) {
	c, _ := newCursor(t, e1, e2, e3)

	if !c.Next(func(string, document.Edge, int) {}) {
		t.Fatal("Next returned false")
	}
	var result document.Set
	if c.ReadAll(&result, nil) {
		t.Error("ReadAll after Next returned true")
	}
	if result.Len() != 0 {
		t.Errorf("ReadAll after Next inserted %d edges", result.Len())
	}

	// The remaining edges are still available one by one.
	item, ok := c.NextItem()
	if !ok || item.Position != 1 || item.ID != "edges/e2" {
		t.Errorf("NextItem = %+v, %v", item, ok)
	}
}

func TestCursorEmptySequence(t *testing.T) {
	c, _ := newCursor(t)
	if c.Next(func(string, document.Edge, int) { t.Error("visitor called") }) {
		t.Error("Next on empty cursor returned true")
	}

	fresh, _ := newCursor(t)
	var result document.Set
	if !fresh.ReadAll(&result, nil) {
		t.Error("ReadAll on fresh empty cursor returned false")
	}
	if result.Len() != 0 {
		t.Errorf("result has %d edges", result.Len())
	}
	if fresh.ReadAll(&result, nil) {
		t.Error("second ReadAll on empty cursor returned true")
	}
}

func TestCursorReadAllCollapsesDuplicates(t *testing.T) {
	// Same document from two engines, formatted differently.
	e1Replica := `{"_to":"v/2", "_key":"e1", "_from":"v/1", "_cid":1}`
	c, _ := newCursor(t, e1, e1Replica, e2)

	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
	var result document.Set
	c.ReadAll(&result, nil)
	if result.Len() != 2 {
		t.Errorf("result has %d edges, want 2", result.Len())
	}
}

func TestCursorFetchFailure(t *testing.T) {
	boom := &EngineError{Engine: "dbs2", Err: errors.New("connection refused")}
	f := &staticFetcher{err: boom}

	c, err := NewEdgeCursor(context.Background(), "v/1", 0, NewStep("graph", []string{"dbs2"}, byKey, f))
	if c != nil {
		t.Error("cursor returned despite fetch failure")
	}
	if !errors.Is(err, boom) || !IsFetchError(err) {
		t.Errorf("error = %v, want wrapped engine error", err)
	}
}

func TestCursorInvalidStep(t *testing.T) {
	f := &staticFetcher{}
	steps := map[string]*Step{
		"nil":         nil,
		"no db":       NewStep("", []string{"a"}, byKey, f),
		"no engines":  NewStep("graph", nil, byKey, f),
		"no resolver": NewStep("graph", []string{"a"}, nil, f),
		"no fetcher":  NewStep("graph", []string{"a"}, byKey, nil),
		"bad direction": {
			Database: "graph", Engines: []string{"a"}, Resolver: byKey, Fetcher: f,
			FilteredPaths: NewFilteredPaths(), ReadDocuments: &ReadCounter{},
			Filter: EdgeFilter{Direction: "sideways"},
		},
		"no registry": {
			Database: "graph", Engines: []string{"a"}, Resolver: byKey, Fetcher: f,
			ReadDocuments: &ReadCounter{},
		},
	}
	for name, step := range steps {
		t.Run(name, func(t *testing.T) {
			if _, err := NewEdgeCursor(context.Background(), "v/1", 0, step); !errors.Is(err, ErrInvalidStep) {
				t.Errorf("expected ErrInvalidStep, got %v", err)
			}
		})
	}
	if f.calls != 0 {
		t.Errorf("fetcher called %d times for invalid steps", f.calls)
	}
}

func TestCursorClose(t *testing.T) {
	c, f := newCursor(t, e1, e2)
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if f.last.Arena.Len() != 0 {
		t.Error("arena not released on Close")
	}
	if c.Next(func(string, document.Edge, int) {}) {
		t.Error("Next after Close returned true")
	}
	var result document.Set
	if c.ReadAll(&result, nil) {
		t.Error("ReadAll after Close returned true")
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
