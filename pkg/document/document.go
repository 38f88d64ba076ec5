// Package document defines the edge documents exchanged between the shard
// engines and the traversal layer.
//
// An edge travels as a JSON object. The system attributes are:
//
//	_cid   numeric id of the edge collection (internal reference, part 1)
//	_key   document key inside the collection (internal reference, part 2)
//	_from  start vertex id
//	_to    end vertex id
//
// Everything else (relation, weight, createdAt, deletedAt, properties) is payload.
// Documents are kept in a canonical encoding so that two structurally equal
// edges are also byte-equal, which is what deduplication relies on.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
)

// System attribute names.
const (
	AttrCollection = "_cid"
	AttrKey        = "_key"
	AttrFrom       = "_from"
	AttrTo         = "_to"
	AttrRelation   = "relation"
	AttrCreatedAt  = "createdAt"
	AttrDeletedAt  = "deletedAt"
)

// ErrMalformed is returned for payloads that are not valid edge documents.
var ErrMalformed = errors.New("malformed edge document")

// Reference is the internal collection/document reference carried by an edge.
type Reference struct {
	Collection uint64
	Key        string
}

// String renders the reference as "<cid>/<key>". The same string identifies
// the edge's path segment in the filtered paths registry.
func (r Reference) String() string {
	return strconv.FormatUint(r.Collection, 10) + "/" + r.Key
}

// ParseReference is the inverse of Reference.String.
func ParseReference(s string) (Reference, error) {
	i := strings.IndexByte(s, '/')
	if i <= 0 || i == len(s)-1 {
		return Reference{}, fmt.Errorf("%w: bad reference %q", ErrMalformed, s)
	}
	cid, err := strconv.ParseUint(s[:i], 10, 64)
	if err != nil {
		return Reference{}, fmt.Errorf("%w: bad collection id in %q", ErrMalformed, s)
	}
	return Reference{Collection: cid, Key: s[i+1:]}, nil
}

// Header holds the system attributes extracted while canonicalizing.
type Header struct {
	Ref  Reference
	From string
	To   string
}

// Edge is an immutable edge document. The bytes are in canonical form and are
// usually backed by an arena, so an Edge must not outlive the cursor step that
// produced it.
type Edge struct {
	raw  []byte
	hdr  Header
	hash uint64
}

// Canonicalize validates raw as an edge document and re-encodes it with sorted
// keys, no insignificant whitespace and numbers preserved verbatim.
func Canonicalize(raw []byte) ([]byte, Header, error) {
	// Re-encoding would replace invalid sequences with U+FFFD.
	if !utf8.Valid(raw) {
		return nil, Header{}, fmt.Errorf("%w: invalid utf-8", ErrMalformed)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, Header{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if obj == nil {
		return nil, Header{}, fmt.Errorf("%w: not an object", ErrMalformed)
	}
	if dec.More() {
		return nil, Header{}, fmt.Errorf("%w: trailing data", ErrMalformed)
	}

	hdr, err := headerOf(obj)
	if err != nil {
		return nil, Header{}, err
	}

	canon, err := json.Marshal(obj)
	if err != nil {
		return nil, Header{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return canon, hdr, nil
}

func headerOf(obj map[string]any) (Header, error) {
	var hdr Header

	switch v := obj[AttrCollection].(type) {
	case json.Number:
		cid, err := strconv.ParseUint(v.String(), 10, 64)
		if err != nil {
			return hdr, fmt.Errorf("%w: %s must be an unsigned integer", ErrMalformed, AttrCollection)
		}
		hdr.Ref.Collection = cid
	default:
		return hdr, fmt.Errorf("%w: missing %s", ErrMalformed, AttrCollection)
	}

	key, ok := obj[AttrKey].(string)
	if !ok || key == "" {
		return hdr, fmt.Errorf("%w: missing %s", ErrMalformed, AttrKey)
	}
	hdr.Ref.Key = key

	// _from/_to are optional for the reference but must be strings when present.
	if v, ok := obj[AttrFrom]; ok {
		if hdr.From, ok = v.(string); !ok {
			return hdr, fmt.Errorf("%w: %s must be a string", ErrMalformed, AttrFrom)
		}
	}
	if v, ok := obj[AttrTo]; ok {
		if hdr.To, ok = v.(string); !ok {
			return hdr, fmt.Errorf("%w: %s must be a string", ErrMalformed, AttrTo)
		}
	}
	return hdr, nil
}

// FromCanonical wraps bytes previously produced by Canonicalize. The slice is
// retained, not copied.
func FromCanonical(canon []byte, hdr Header) Edge {
	return Edge{raw: canon, hdr: hdr, hash: xxhash.Sum64(canon)}
}

// Parse canonicalizes raw into a heap-backed Edge.
func Parse(raw []byte) (Edge, error) {
	canon, hdr, err := Canonicalize(raw)
	if err != nil {
		return Edge{}, err
	}
	return FromCanonical(canon, hdr), nil
}

// MustParse is Parse for literals known to be valid. It panics on error.
func MustParse(raw string) Edge {
	e, err := Parse([]byte(raw))
	if err != nil {
		panic(err)
	}
	return e
}

// Bytes returns the canonical encoding. Callers must not modify it.
func (e Edge) Bytes() []byte { return e.raw }

func (e Edge) Ref() Reference { return e.hdr.Ref }
func (e Edge) From() string   { return e.hdr.From }
func (e Edge) To() string     { return e.hdr.To }

// Hash is the xxhash64 of the canonical bytes.
func (e Edge) Hash() uint64 { return e.hash }

func (e Edge) IsZero() bool { return e.raw == nil }

// Equal reports structural equality.
func (e Edge) Equal(o Edge) bool {
	return e.hash == o.hash && bytes.Equal(e.raw, o.raw)
}

// Decode unmarshals the document into v.
func (e Edge) Decode(v any) error {
	return json.Unmarshal(e.raw, v)
}

func (e Edge) String() string { return string(e.raw) }

// VertexValue wraps a vertex id into the wire value expected by the engines.
func VertexValue(vertexID string) json.RawMessage {
	b, _ := json.Marshal(vertexID)
	return b
}

// VertexFromValue unwraps a value produced by VertexValue.
func VertexFromValue(v json.RawMessage) (string, error) {
	var id string
	if err := json.Unmarshal(v, &id); err != nil {
		return "", fmt.Errorf("%w: vertex must be a string: %v", ErrMalformed, err)
	}
	return id, nil
}
