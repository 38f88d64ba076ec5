package shard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/sanonone/kektorgraph/pkg/document"
	"github.com/sanonone/kektorgraph/pkg/metrics"
	"github.com/sanonone/kektorgraph/pkg/persistence"
)

// removeRecord is the payload of an OpRemove frame.
type removeRecord struct {
	Ref string `json:"ref"`
	At  int64  `json:"at"`
}

// InsertEdge stores a new edge in the given collection.
//
// raw must be a JSON object with _key, _from and _to. The engine stamps _cid
// with collection and sets createdAt (unix nanos) when absent. Any deletedAt
// sent by the caller is dropped: new edges are live.
func (e *Engine) InsertEdge(raw []byte, collection uint64) (document.Reference, error) {
	if collection == 0 {
		return document.Reference{}, fmt.Errorf("%w: collection id is required", ErrBadRequest)
	}

	obj, err := decodeObject(raw)
	if err != nil {
		return document.Reference{}, err
	}
	obj[document.AttrCollection] = json.Number(strconv.FormatUint(collection, 10))
	if _, ok := obj[document.AttrCreatedAt]; !ok {
		obj[document.AttrCreatedAt] = json.Number(strconv.FormatInt(time.Now().UnixNano(), 10))
	}
	delete(obj, document.AttrDeletedAt)

	rec, err := recordFromObject(obj)
	if err != nil {
		return document.Reference{}, err
	}
	if rec.from == "" || rec.to == "" {
		return document.Reference{}, fmt.Errorf("%w: %s and %s are required", ErrBadRequest, document.AttrFrom, document.AttrTo)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return document.Reference{}, ErrClosed
	}
	if _, ok := e.records[rec.ref]; ok {
		return document.Reference{}, fmt.Errorf("%w: %s", ErrEdgeExists, rec.ref)
	}
	if err := e.persist(persistence.OpInsert, rec.raw); err != nil {
		return document.Reference{}, err
	}
	e.index(rec)
	metrics.ShardEdgesStored.WithLabelValues(e.opts.Database).Inc()
	return rec.ref, nil
}

// RemoveEdge soft-deletes an edge by setting its deletedAt attribute.
// at <= 0 means now. Removing an already deleted edge is a no-op.
func (e *Engine) RemoveEdge(ref document.Reference, at int64) error {
	if at <= 0 {
		at = time.Now().UnixNano()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	rec, ok := e.records[ref]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, ref)
	}
	if rec.deletedAt != 0 {
		return nil
	}

	payload, err := json.Marshal(removeRecord{Ref: ref.String(), At: at})
	if err != nil {
		return err
	}
	if err := e.persist(persistence.OpRemove, payload); err != nil {
		return err
	}
	return softDelete(rec, at)
}

// ReadEdges answers one fan-out request. Every scanned edge counts toward
// ReadIndex. Deleted edges are reported in Filtered, edges not yet created at
// AtTime or outside the depth's relation set are skipped.
func (e *Engine) ReadEdges(ctx context.Context, req *EdgeRequest) (*EdgeResponse, error) {
	vertex, err := document.VertexFromValue(req.Keys)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if !req.Direction.Valid() {
		return nil, fmt.Errorf("%w: unknown direction %q", ErrBadRequest, req.Direction)
	}
	relations := req.RelationsFor(req.Depth)

	e.mu.RLock()
	defer e.mu.RUnlock()

	resp := &EdgeResponse{Edges: []json.RawMessage{}}
	seen := make(map[document.Reference]struct{})

	visit := func(item indexItem) bool {
		if item.vertex != vertex {
			return false
		}
		rec := item.rec
		if _, dup := seen[rec.ref]; dup {
			// Self loops show up in both indexes for Any.
			return true
		}
		seen[rec.ref] = struct{}{}
		resp.ReadIndex++

		switch {
		case req.AtTime > 0 && rec.createdAt > req.AtTime:
		case rec.deletedAt != 0 && (req.AtTime == 0 || rec.deletedAt <= req.AtTime):
			resp.Filtered = append(resp.Filtered, rec.ref.String())
		case len(relations) > 0 && !slices.Contains(relations, rec.relation):
		default:
			resp.Edges = append(resp.Edges, rec.raw)
		}
		return true
	}

	pivot := indexItem{vertex: vertex}
	switch req.Direction {
	case Inbound:
		e.inbound.Ascend(pivot, visit)
	case Any:
		e.outbound.Ascend(pivot, visit)
		e.inbound.Ascend(pivot, visit)
	default:
		e.outbound.Ascend(pivot, visit)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	metrics.ShardDocumentsScanned.WithLabelValues(e.opts.Database).Add(float64(resp.ReadIndex))
	e.logger.Debug("edges read",
		"request_id", req.RequestID,
		"vertex", vertex,
		"depth", req.Depth,
		"returned", len(resp.Edges),
		"filtered", len(resp.Filtered),
		"read", resp.ReadIndex,
	)
	return resp, nil
}

// applyFrame replays one edge log frame.
func (e *Engine) applyFrame(op persistence.OpCode, payload []byte) error {
	switch op {
	case persistence.OpInsert:
		obj, err := decodeObject(payload)
		if err != nil {
			return err
		}
		rec, err := recordFromObject(obj)
		if err != nil {
			return err
		}
		if old, ok := e.records[rec.ref]; ok {
			e.unindex(old)
		}
		e.index(rec)
	case persistence.OpRemove:
		var rr removeRecord
		if err := json.Unmarshal(payload, &rr); err != nil {
			return fmt.Errorf("bad remove record: %w", err)
		}
		ref, err := document.ParseReference(rr.Ref)
		if err != nil {
			return err
		}
		if rec, ok := e.records[ref]; ok {
			return softDelete(rec, rr.At)
		}
	default:
		return fmt.Errorf("unknown opcode 0x%02x", byte(op))
	}
	return nil
}

func (e *Engine) index(rec *record) {
	e.records[rec.ref] = rec
	e.outbound.Set(indexItem{vertex: rec.from, rec: rec})
	e.inbound.Set(indexItem{vertex: rec.to, rec: rec})
}

func (e *Engine) unindex(rec *record) {
	delete(e.records, rec.ref)
	e.outbound.Delete(indexItem{vertex: rec.from, rec: rec})
	e.inbound.Delete(indexItem{vertex: rec.to, rec: rec})
}

func decodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: edge must be an object", ErrBadRequest)
	}
	return obj, nil
}

func recordFromObject(obj map[string]any) (*record, error) {
	encoded, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	canon, hdr, err := document.Canonicalize(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	rec := &record{
		ref:  hdr.Ref,
		from: hdr.From,
		to:   hdr.To,
		raw:  canon,
	}
	if rel, ok := obj[document.AttrRelation].(string); ok {
		rec.relation = rel
	}
	if rec.createdAt, err = int64Attr(obj, document.AttrCreatedAt); err != nil {
		return nil, err
	}
	if rec.deletedAt, err = int64Attr(obj, document.AttrDeletedAt); err != nil {
		return nil, err
	}
	return rec, nil
}

func int64Attr(obj map[string]any, name string) (int64, error) {
	v, ok := obj[name]
	if !ok || v == nil {
		return 0, nil
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrBadRequest, name)
	}
	i, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrBadRequest, name)
	}
	return i, nil
}

// softDelete rewrites the stored document with deletedAt set. The previous
// byte slice is left untouched for readers still holding it.
func softDelete(rec *record, at int64) error {
	obj, err := decodeObject(rec.raw)
	if err != nil {
		return err
	}
	obj[document.AttrDeletedAt] = json.Number(strconv.FormatInt(at, 10))
	encoded, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	canon, _, err := document.Canonicalize(encoded)
	if err != nil {
		return err
	}
	rec.raw = canon
	rec.deletedAt = at
	return nil
}
