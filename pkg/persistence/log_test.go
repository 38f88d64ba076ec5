package persistence

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLogReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edges.log")

	l, err := OpenLog(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Append(OpInsert, []byte(`{"a":1}`)); err != nil {
		t.Fatal(err)
	}
	if err := l.Append(OpRemove, []byte(`{"b":2}`)); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	var ops []OpCode
	var payloads []string
	n, end, err := Replay(path, func(op OpCode, payload []byte) error {
		ops = append(ops, op)
		payloads = append(payloads, string(payload))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || ops[0] != OpInsert || ops[1] != OpRemove {
		t.Fatalf("replayed %d frames: %v", n, ops)
	}
	if payloads[0] != `{"a":1}` || payloads[1] != `{"b":2}` {
		t.Errorf("payloads = %v", payloads)
	}
	if info, _ := os.Stat(path); end != info.Size() {
		t.Errorf("end offset = %d, file size %d", end, info.Size())
	}
}

func TestReplayToleratesTornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edges.log")

	l, err := OpenLog(path)
	if err != nil {
		t.Fatal(err)
	}
	l.Append(OpInsert, []byte("first"))
	l.Append(OpInsert, []byte("second"))
	l.Close()

	info, _ := os.Stat(path)
	if err := os.Truncate(path, info.Size()-3); err != nil {
		t.Fatal(err)
	}

	n, end, err := Replay(path, func(OpCode, []byte) error { return nil })
	if err != nil {
		t.Fatalf("torn tail should not fail replay: %v", err)
	}
	if n != 1 {
		t.Errorf("replayed %d frames, want 1", n)
	}
	if want := int64(HeaderSize + len("first")); end != want {
		t.Errorf("end offset = %d, want %d", end, want)
	}

	cut, err := TruncateTail(path, end)
	if err != nil || !cut {
		t.Fatalf("TruncateTail = %v, %v", cut, err)
	}
	if info, _ := os.Stat(path); info.Size() != end {
		t.Errorf("size after truncate = %d, want %d", info.Size(), end)
	}
	if cut, _ := TruncateTail(path, end); cut {
		t.Error("second TruncateTail removed data")
	}
}

func TestReplayDetectsCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edges.log")

	l, err := OpenLog(path)
	if err != nil {
		t.Fatal(err)
	}
	l.Append(OpInsert, []byte("payload"))
	l.Close()

	data, _ := os.ReadFile(path)
	data[HeaderSize] ^= 0xFF
	os.WriteFile(path, data, 0644)

	_, _, err = Replay(path, func(OpCode, []byte) error { return nil })
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("expected ErrChecksumMismatch, got %v", err)
	}
}

func TestReplayMissingFile(t *testing.T) {
	n, end, err := Replay(filepath.Join(t.TempDir(), "absent.log"), func(OpCode, []byte) error {
		t.Fatal("apply called on missing log")
		return nil
	})
	if n != 0 || end != 0 || err != nil {
		t.Errorf("Replay on missing file = %d, %d, %v", n, end, err)
	}
}
