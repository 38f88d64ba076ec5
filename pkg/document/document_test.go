package document

import (
	"errors"
	"testing"
)

func TestCanonicalEquality(t *testing.T) {
	a, err := Parse([]byte(`{"_key":"e1","_cid":7,"_from":"v/a","_to":"v/b","weight":1.50}`))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Parse([]byte("{\n  \"weight\": 1.50, \"_to\": \"v/b\",\n \"_from\":\"v/a\", \"_cid\": 7, \"_key\": \"e1\"}"))
	if err != nil {
		t.Fatal(err)
	}

	if !a.Equal(b) {
		t.Errorf("structurally equal edges differ:\n%s\n%s", a, b)
	}
	if a.Hash() != b.Hash() {
		t.Error("hash mismatch for equal edges")
	}
	// Numbers are kept verbatim, not normalized through float64.
	c := MustParse(`{"_key":"e1","_cid":7,"_from":"v/a","_to":"v/b","weight":1.5}`)
	if a.Equal(c) {
		t.Error("1.50 and 1.5 should not collapse")
	}

	if got := a.Ref(); got != (Reference{Collection: 7, Key: "e1"}) {
		t.Errorf("Ref() = %+v", got)
	}
	if a.From() != "v/a" || a.To() != "v/b" {
		t.Errorf("From/To = %q/%q", a.From(), a.To())
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":     `{"_key":`,
		"array":        `[1,2]`,
		"null":         `null`,
		"no cid":       `{"_key":"e1"}`,
		"negative cid": `{"_key":"e1","_cid":-1}`,
		"string cid":   `{"_key":"e1","_cid":"7"}`,
		"no key":       `{"_cid":7}`,
		"empty key":    `{"_cid":7,"_key":""}`,
		"bad from":     `{"_cid":7,"_key":"e1","_from":12}`,
		"trailing":     `{"_cid":7,"_key":"e1"} {}`,
		"invalid utf8": "{\"_cid\":7,\"_key\":\"e1\",\"note\":\"a\xffb\"}",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestReferenceString(t *testing.T) {
	ref := Reference{Collection: 42, Key: "k/with/slash"}
	got, err := ParseReference(ref.String())
	if err != nil {
		t.Fatal(err)
	}
	if got != ref {
		t.Errorf("ParseReference(%q) = %+v", ref.String(), got)
	}
	if _, err := ParseReference("nope"); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestVertexValue(t *testing.T) {
	v := VertexValue(`persons/"alice"`)
	if string(v) != `"persons/\"alice\""` {
		t.Errorf("VertexValue = %s", v)
	}
	id, err := VertexFromValue(v)
	if err != nil || id != `persons/"alice"` {
		t.Errorf("VertexFromValue = %q, %v", id, err)
	}
}

func TestSetDeduplicates(t *testing.T) {
	e1 := MustParse(`{"_cid":1,"_key":"a","_from":"v/1","_to":"v/2"}`)
	e1copy := MustParse(`{"_to":"v/2","_from":"v/1","_key":"a","_cid":1}`)
	e2 := MustParse(`{"_cid":1,"_key":"b","_from":"v/1","_to":"v/3"}`)

	var s Set
	if !s.Add(e1) {
		t.Error("first add should insert")
	}
	if s.Add(e1copy) {
		t.Error("structural duplicate should not insert")
	}
	if !s.Add(e2) {
		t.Error("distinct edge should insert")
	}
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if !s.Contains(e1copy) {
		t.Error("Contains should match by content")
	}

	edges := s.Edges()
	if !edges[0].Equal(e1) || !edges[1].Equal(e2) {
		t.Errorf("insertion order lost: %v", edges)
	}

	n := 0
	for range s.All() {
		n++
	}
	if n != 2 {
		t.Errorf("All() yielded %d edges", n)
	}
}
