// Package shard implements a shard storage engine for edge documents.
//
// An Engine owns the edges of one database shard. It keeps two ordered
// indexes (by _from and by _to) in memory, persists every mutation to an
// append-only edge log and answers the per-step edge reads issued by the
// traversal fan-out.
//
// Basic usage:
//
//	eng, err := shard.Open(shard.DefaultOptions("./data"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
package shard

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/tidwall/btree"

	"github.com/sanonone/kektorgraph/pkg/document"
	"github.com/sanonone/kektorgraph/pkg/persistence"
)

var (
	ErrEdgeNotFound     = errors.New("edge not found")
	ErrEdgeExists       = errors.New("edge already exists")
	ErrDatabaseNotFound = errors.New("database not found")
	ErrBadRequest       = errors.New("bad edge request")
	ErrClosed           = errors.New("engine closed")
)

// Options configures an Engine.
type Options struct {
	// DataDir holds the edge log. Empty means memory only.
	DataDir string

	// LogFilename is the edge log name inside DataDir (default "edges.log").
	LogFilename string

	// Database is the name of the database this shard belongs to.
	Database string

	// SyncWrites fsyncs after every mutation instead of only flushing to the OS.
	SyncWrites bool

	Logger *slog.Logger
}

// DefaultOptions returns options for a persistent engine in dataDir.
func DefaultOptions(dataDir string) Options {
	return Options{
		DataDir:     dataDir,
		LogFilename: "edges.log",
		Database:    "_system",
	}
}

// record is one stored edge. raw is replaced, never mutated, on soft delete.
type record struct {
	ref       document.Reference
	from      string
	to        string
	relation  string
	createdAt int64
	deletedAt int64
	raw       []byte
}

// indexItem orders records by (vertex, collection, key).
type indexItem struct {
	vertex string
	rec    *record
}

func indexLess(a, b indexItem) bool {
	if a.vertex != b.vertex {
		return a.vertex < b.vertex
	}
	if a.rec == nil || b.rec == nil {
		// Pivot items carry no record and sort first for their vertex.
		return a.rec == nil && b.rec != nil
	}
	if a.rec.ref.Collection != b.rec.ref.Collection {
		return a.rec.ref.Collection < b.rec.ref.Collection
	}
	return a.rec.ref.Key < b.rec.ref.Key
}

// Engine is a shard storage engine. It is safe for concurrent use.
type Engine struct {
	mu       sync.RWMutex
	records  map[document.Reference]*record
	outbound *btree.BTreeG[indexItem]
	inbound  *btree.BTreeG[indexItem]

	log    *persistence.Log
	opts   Options
	logger *slog.Logger
	closed bool
}

// Open creates the engine and replays its edge log, if any.
func Open(opts Options) (*Engine, error) {
	if opts.Database == "" {
		opts.Database = "_system"
	}
	if opts.LogFilename == "" {
		opts.LogFilename = "edges.log"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		records:  make(map[document.Reference]*record),
		outbound: btree.NewBTreeG[indexItem](indexLess),
		inbound:  btree.NewBTreeG[indexItem](indexLess),
		opts:     opts,
		logger:   logger.With("database", opts.Database),
	}

	if opts.DataDir == "" {
		return e, nil
	}

	if err := os.MkdirAll(opts.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	logPath := filepath.Join(opts.DataDir, opts.LogFilename)

	n, end, err := persistence.Replay(logPath, e.applyFrame)
	if err != nil {
		return nil, fmt.Errorf("failed to replay edge log: %w", err)
	}
	// New frames must follow the last good one, not the torn tail.
	cut, err := persistence.TruncateTail(logPath, end)
	if err != nil {
		return nil, err
	}
	if cut {
		e.logger.Warn("edge log had a torn tail, truncated", "offset", end)
	}
	if n > 0 {
		e.logger.Info("edge log replayed", "frames", n, "edges", len(e.records))
	}

	l, err := persistence.OpenLog(logPath)
	if err != nil {
		return nil, err
	}
	e.log = l
	return e, nil
}

// Database returns the database name served by this engine.
func (e *Engine) Database() string { return e.opts.Database }

// Close flushes and closes the edge log. Further writes fail with ErrClosed.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	if e.log == nil {
		return nil
	}

	var result *multierror.Error
	if err := e.log.Sync(); err != nil {
		result = multierror.Append(result, fmt.Errorf("sync edge log: %w", err))
	}
	if err := e.log.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close edge log: %w", err))
	}
	return result.ErrorOrNil()
}

// Stats describes the stored edges.
type Stats struct {
	Edges   int `json:"edges"`
	Deleted int `json:"deleted"`
}

func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var s Stats
	for _, rec := range e.records {
		s.Edges++
		if rec.deletedAt != 0 {
			s.Deleted++
		}
	}
	return s
}

// persist appends a frame; the caller holds e.mu.
func (e *Engine) persist(op persistence.OpCode, payload []byte) error {
	if e.log == nil {
		return nil
	}
	if err := e.log.Append(op, payload); err != nil {
		return fmt.Errorf("persistence error (edge log write failed): %w", err)
	}
	if e.opts.SyncWrites {
		return e.log.Sync()
	}
	return e.log.Flush()
}
