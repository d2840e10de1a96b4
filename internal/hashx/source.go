package hashx

import (
	"bytes"
	"io"
)

// ByteSource yields the content of one candidate as sequential chunks.
// Size is the total byte length, or -1 when unknown until fully read
// (lazy network sources). Implementations are single-use: a ByteSource
// is consumed by exactly one hash or upload pass and then closed.
type ByteSource interface {
	io.ReadCloser

	// Size returns the total length in bytes, or -1 if unknown.
	Size() int64
}

// NewBytesSource wraps an in-memory byte slice as a ByteSource. Used for
// direct file captures whose bytes are already resident, and in tests.
func NewBytesSource(b []byte) ByteSource {
	return &readerSource{r: bytes.NewReader(b), size: int64(len(b))}
}

// NewReaderSource wraps an arbitrary reader as a ByteSource with a declared
// size (-1 when unknown). Close closes the underlying reader when it
// implements io.Closer.
func NewReaderSource(r io.Reader, size int64) ByteSource {
	return &readerSource{r: r, size: size}
}

type readerSource struct {
	r    io.Reader
	size int64
}

func (s *readerSource) Read(p []byte) (int, error) { return s.r.Read(p) }

func (s *readerSource) Size() int64 { return s.size }

func (s *readerSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
