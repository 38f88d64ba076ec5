// Package catalog maps edge collection ids to their names.
//
// Edge documents carry the numeric collection id (_cid). Turning that into the
// externally visible "<collection>/<key>" identifier is the job of the catalog,
// which plays the role of the transaction's identity resolver.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sanonone/kektorgraph/pkg/document"
)

// UnknownCollection is the name reported for ids the catalog does not know.
const UnknownCollection = "_unknown"

var (
	ErrDuplicateID   = errors.New("duplicate collection id")
	ErrDuplicateName = errors.New("duplicate collection name")
	ErrNotFound      = errors.New("collection not found")
)

// Collection is a single catalog entry.
type Collection struct {
	ID   uint64 `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// Catalog is a thread-safe, read-mostly id <-> name registry.
type Catalog struct {
	mu     sync.RWMutex
	byID   map[uint64]string
	byName map[string]uint64
}

// New builds a catalog from the given entries.
func New(collections ...Collection) (*Catalog, error) {
	c := &Catalog{
		byID:   make(map[uint64]string, len(collections)),
		byName: make(map[string]uint64, len(collections)),
	}
	for _, col := range collections {
		if err := c.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Register adds a collection. Ids and names must be unique.
func (c *Catalog) Register(col Collection) error {
	if col.ID == 0 || col.Name == "" {
		return fmt.Errorf("invalid collection %+v: id and name are required", col)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byID[col.ID]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateID, col.ID)
	}
	if _, ok := c.byName[col.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateName, col.Name)
	}
	c.byID[col.ID] = col.Name
	c.byName[col.Name] = col.ID
	return nil
}

// Name returns the name for a collection id.
func (c *Catalog) Name(id uint64) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.byID[id]
	return name, ok
}

// ID returns the id for a collection name.
func (c *Catalog) ID(name string) (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return id, nil
}

// ResolveID turns an internal reference into "<collection name>/<key>".
// It never fails: unknown collections resolve to "_unknown/<key>".
func (c *Catalog) ResolveID(ref document.Reference) string {
	name, ok := c.Name(ref.Collection)
	if !ok {
		name = UnknownCollection
	}
	return name + "/" + ref.Key
}

// Collections lists all entries ordered by id.
func (c *Catalog) Collections() []Collection {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Collection, 0, len(c.byID))
	for id, name := range c.byID {
		out = append(out, Collection{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
