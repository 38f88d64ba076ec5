// Package persistence implements the append-only edge log of a shard engine.
//
// Every mutation of a shard is written as one CRC-protected frame. On startup
// the engine replays the frames to rebuild its in-memory indexes.
package persistence

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// Log appends frames to a file.
type Log struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	fw   *FrameWriter
	path string
}

// OpenLog opens or creates the log at path.
func OpenLog(path string) (*Log, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open edge log: %w", err)
	}

	buf := bufio.NewWriter(file)
	return &Log{
		file: file,
		buf:  buf,
		fw:   NewFrameWriter(buf),
		path: path,
	}, nil
}

// Append writes one record. It is buffered until Flush or Sync.
func (l *Log) Append(op OpCode, payload []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fw.WriteFrame(op, payload)
}

// Flush hands buffered frames to the OS.
func (l *Log) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Flush()
}

// Sync flushes and fsyncs.
func (l *Log) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.buf.Flush(); err != nil {
		return err
	}
	return l.file.Sync()
}

// Close flushes pending frames and closes the file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.buf.Flush(); err != nil {
		_ = l.file.Close()
		return err
	}
	return l.file.Close()
}

func (l *Log) Path() string { return l.path }

// Replay calls apply for every frame in the file at path and returns the
// number of frames applied and the offset just past the last good frame.
// A missing file is an empty log. A torn final frame ends the replay without
// error; the caller truncates the file to the returned offset before
// appending. Any other corruption is returned.
func Replay(path string, apply func(op OpCode, payload []byte) error) (int, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open edge log: %w", err)
	}
	defer file.Close()

	r := bufio.NewReader(file)
	n := 0
	var off int64
	for {
		op, payload, err := ReadFrame(r)
		if err == io.EOF || errors.Is(err, ErrIncompleteFrame) {
			return n, off, nil
		}
		if err != nil {
			return n, off, fmt.Errorf("edge log %s, frame %d: %w", path, n, err)
		}
		if err := apply(op, payload); err != nil {
			return n, off, fmt.Errorf("edge log %s, frame %d: %w", path, n, err)
		}
		n++
		off += int64(HeaderSize + len(payload))
	}
}

// TruncateTail cuts the file at path down to size when it is longer, dropping
// a torn final frame. It reports whether anything was removed.
func TruncateTail(path string, size int64) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if info.Size() <= size {
		return false, nil
	}
	if err := os.Truncate(path, size); err != nil {
		return false, fmt.Errorf("failed to truncate edge log: %w", err)
	}
	return true, nil
}
