// Package arena implements the document arena used by the traversal layer.
//
// An Arena owns the bytes of every edge document fetched during one traversal
// step. Documents are copied into fixed-size chunks and handed out as slices
// into those chunks; the slices stay valid until Release, which drops all
// chunks at once. Nothing is freed individually.
package arena

const (
	// DefaultChunkSize is 64KB.
	DefaultChunkSize = 64 * 1024

	// minChunkSize keeps tiny configured sizes from degenerating into one
	// chunk per document.
	minChunkSize = 512
)

// Chunk is one contiguous allocation of the arena.
type Chunk struct {
	ID   int
	Data []byte // len = bytes in use, cap = chunk capacity
}

func (c *Chunk) free() int { return cap(c.Data) - len(c.Data) }

// Arena is an append-only owner of document buffers.
// It is not safe for concurrent use; a single step appends and reads it.
type Arena struct {
	chunkSize int
	chunks    []*Chunk
	docs      int
	size      int
}

// New creates an empty arena. A chunkSize <= 0 selects DefaultChunkSize.
func New(chunkSize int) *Arena {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkSize < minChunkSize {
		chunkSize = minChunkSize
	}
	return &Arena{chunkSize: chunkSize}
}

// Append copies b into the arena and returns the arena-owned copy.
// The returned slice has its capacity clipped so appending to it can never
// overwrite a neighbouring document.
func (a *Arena) Append(b []byte) []byte {
	n := len(b)

	var chunk *Chunk
	if len(a.chunks) > 0 && a.chunks[len(a.chunks)-1].free() >= n {
		chunk = a.chunks[len(a.chunks)-1]
	} else {
		capacity := a.chunkSize
		if n > capacity {
			// Oversized documents get a dedicated chunk.
			capacity = n
		}
		chunk = a.addChunk(capacity)
	}

	start := len(chunk.Data)
	chunk.Data = append(chunk.Data, b...)
	a.docs++
	a.size += n
	return chunk.Data[start : start+n : start+n]
}

func (a *Arena) addChunk(capacity int) *Chunk {
	chunk := &Chunk{
		ID:   len(a.chunks),
		Data: make([]byte, 0, capacity),
	}
	a.chunks = append(a.chunks, chunk)
	return chunk
}

// Len returns the number of documents appended since the last Release.
func (a *Arena) Len() int { return a.docs }

// Size returns the number of document bytes held.
func (a *Arena) Size() int { return a.size }

// Chunks returns the number of chunks currently allocated.
func (a *Arena) Chunks() int { return len(a.chunks) }

// Release drops every chunk. Slices returned by Append must not be used
// afterwards. The arena is empty and reusable after Release.
func (a *Arena) Release() {
	for _, c := range a.chunks {
		c.Data = nil
	}
	a.chunks = nil
	a.docs = 0
	a.size = 0
}
