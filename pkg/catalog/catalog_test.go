package catalog

import (
	"errors"
	"testing"

	"github.com/sanonone/kektorgraph/pkg/document"
)

func TestResolveID(t *testing.T) {
	c, err := New(Collection{ID: 10, Name: "knows"}, Collection{ID: 11, Name: "mentions"})
	if err != nil {
		t.Fatal(err)
	}

	if got := c.ResolveID(document.Reference{Collection: 10, Key: "e1"}); got != "knows/e1" {
		t.Errorf("ResolveID = %q, want knows/e1", got)
	}
	if got := c.ResolveID(document.Reference{Collection: 99, Key: "e1"}); got != "_unknown/e1" {
		t.Errorf("ResolveID for unknown = %q, want _unknown/e1", got)
	}

	id, err := c.ID("mentions")
	if err != nil || id != 11 {
		t.Errorf("ID(mentions) = %d, %v", id, err)
	}
	if _, err := c.ID("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	cols := c.Collections()
	if len(cols) != 2 || cols[0].ID != 10 || cols[1].ID != 11 {
		t.Errorf("Collections() = %+v", cols)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	c, err := New(Collection{ID: 1, Name: "a"})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Register(Collection{ID: 1, Name: "b"}); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}
	if err := c.Register(Collection{ID: 2, Name: "a"}); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("expected ErrDuplicateName, got %v", err)
	}
	if err := c.Register(Collection{ID: 0, Name: "z"}); err == nil {
		t.Error("expected error for zero id")
	}
}
