package persistence

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
)

// Constants for the edge log binary format.
const (
	// MagicByte marks the start of a frame.
	MagicByte = 0xA5

	// HeaderSize: Magic(1) + OpCode(1) + Length(4) + CRC32(4).
	HeaderSize = 10

	// MaxPayloadSize bounds a single record; larger lengths mean a corrupted header.
	MaxPayloadSize = 64 * 1024 * 1024
)

// OpCode identifies the record type stored in a frame.
type OpCode byte

const (
	OpInsert OpCode = 0x01
	OpRemove OpCode = 0x02
)

var (
	// ErrInvalidMagic indicates the stream lost synchronization or is not an edge log.
	ErrInvalidMagic = errors.New("invalid magic byte")
	// ErrChecksumMismatch indicates corruption within the frame payload.
	ErrChecksumMismatch = errors.New("crc32 checksum mismatch")
	// ErrIncompleteFrame indicates the file ended mid-frame (e.g. power loss during write).
	ErrIncompleteFrame = errors.New("incomplete frame")
	// ErrFrameTooLarge indicates a length field beyond MaxPayloadSize.
	ErrFrameTooLarge = errors.New("frame too large")
)

// FrameWriter writes frames to an io.Writer.
type FrameWriter struct {
	w io.Writer
}

func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// WriteFrame encodes [Magic(1)][OpCode(1)][Length(4)][CRC(4)][Payload(N)].
// Header and payload go out in one Write so a buffered writer sees a single record.
func (fw *FrameWriter) WriteFrame(op OpCode, payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return ErrFrameTooLarge
	}

	frame := make([]byte, HeaderSize+len(payload))
	frame[0] = MagicByte
	frame[1] = byte(op)
	binary.LittleEndian.PutUint32(frame[2:6], uint32(len(payload)))
	binary.LittleEndian.PutUint32(frame[6:10], crc32.ChecksumIEEE(payload))
	copy(frame[HeaderSize:], payload)

	_, err := fw.w.Write(frame)
	return err
}

// ReadFrame reads and validates the next frame.
// It returns io.EOF only on a clean frame boundary.
func ReadFrame(r io.Reader) (OpCode, []byte, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF {
			return 0, nil, io.EOF
		}
		return 0, nil, ErrIncompleteFrame
	}

	if header[0] != MagicByte {
		return 0, nil, ErrInvalidMagic
	}

	op := OpCode(header[1])
	length := binary.LittleEndian.Uint32(header[2:6])
	expectedCRC := binary.LittleEndian.Uint32(header[6:10])
	if length > MaxPayloadSize {
		return 0, nil, ErrFrameTooLarge
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, ErrIncompleteFrame
	}

	if crc32.ChecksumIEEE(payload) != expectedCRC {
		return 0, nil, ErrChecksumMismatch
	}
	return op, payload, nil
}
