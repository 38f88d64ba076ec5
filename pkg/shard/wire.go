package shard

import "encoding/json"

// Direction selects which index a read scans.
type Direction string

const (
	Outbound Direction = "outbound"
	Inbound  Direction = "inbound"
	Any      Direction = "any"
)

// Valid reports whether d is a known direction. The empty value means Outbound.
func (d Direction) Valid() bool {
	switch d {
	case "", Outbound, Inbound, Any:
		return true
	}
	return false
}

// EdgeRequest asks one engine for the edges incident to a vertex at a given depth.
type EdgeRequest struct {
	RequestID string          `json:"requestId,omitempty"`
	Keys      json.RawMessage `json:"keys"` // vertex id as a JSON string
	Depth     uint64          `json:"depth"`
	Direction Direction       `json:"direction,omitempty"`
	// Relations restricts the relation attribute for every depth (empty = all).
	Relations []string `json:"relations,omitempty"`
	// DepthRelations overrides Relations for specific depths.
	DepthRelations map[uint64][]string `json:"depthRelations,omitempty"`
	// AtTime evaluates soft deletes and creation times as of this unix-nano
	// timestamp. Zero means now.
	AtTime int64 `json:"atTime,omitempty"`
}

// RelationsFor returns the relation filter that applies at depth.
func (r *EdgeRequest) RelationsFor(depth uint64) []string {
	if rel, ok := r.DepthRelations[depth]; ok {
		return rel
	}
	return r.Relations
}

// EdgeResponse is the answer of one engine.
type EdgeResponse struct {
	Edges []json.RawMessage `json:"edges"`
	// ReadIndex is the number of documents physically scanned, filtered ones included.
	ReadIndex int64 `json:"readIndex"`
	// Filtered lists the path ids ("<cid>/<key>") the engine excluded as deleted.
	Filtered []string `json:"filtered,omitempty"`
}

// ErrorBody is the JSON error envelope used by the shard HTTP endpoint.
type ErrorBody struct {
	Error        bool   `json:"error"`
	ErrorNum     int    `json:"errorNum"`
	ErrorMessage string `json:"errorMessage"`
}

// Error numbers carried in ErrorBody.
const (
	ErrNumInternal           = 4
	ErrNumBadParameter       = 10
	ErrNumUnauthorized       = 11
	ErrNumEdgeNotFound       = 1202
	ErrNumCollectionNotFound = 1203
	ErrNumConflict           = 1210
	ErrNumDatabaseNotFound   = 1228
)
