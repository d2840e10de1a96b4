// Package hashx computes streaming SHA-256 digests of candidate byte
// sources. Hashing runs on a pool of dedicated worker goroutines fed
// through a request channel, so a large file never stalls the goroutine
// driving the user interface; the only values crossing the boundary are
// the ByteSource going in and progress/result messages coming out.
package hashx

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/dkovalev/assetvault/internal/common"
)

const (
	// DefaultChunkSize is the read granularity for streaming hashing.
	DefaultChunkSize = 64 * 1024

	// progressThreshold is the source size above which progress callbacks
	// are emitted. Small files finish fast enough that reporting is noise.
	progressThreshold = 10 * 1024 * 1024
)

// Options tune one hash computation.
type Options struct {
	// ChunkSize is the read size per iteration; 0 means DefaultChunkSize.
	// The chunk size never affects the resulting digest.
	ChunkSize int

	// Progress, when non-nil, receives the completed fraction (0.0–1.0)
	// after each chunk for sources larger than 10 MB with a known size.
	Progress func(fraction float64)
}

// Hasher computes content digests. The reconciler depends on this
// interface so tests can substitute a recording fake.
type Hasher interface {
	// Hash consumes src and returns the lowercase hex SHA-256 of its
	// content. It closes src in all cases. A read failure is reported
	// as common.ErrSourceUnavailable; callers must treat that as "hash
	// unknown", not as fatal.
	Hash(ctx context.Context, src ByteSource, opts Options) (string, error)
}

// Pool is a Hasher backed by a fixed set of worker goroutines.
type Pool struct {
	requests chan request
	done     chan struct{}
}

type request struct {
	ctx    context.Context
	src    ByteSource
	opts   Options
	result chan result
}

type result struct {
	digest string
	err    error
}

// NewPool starts workers goroutines ready to hash. workers < 1 is
// treated as 1. Call Close when done.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		requests: make(chan request),
		done:     make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Close stops accepting new requests. In-flight computations finish.
func (p *Pool) Close() {
	close(p.done)
}

func (p *Pool) worker() {
	for {
		select {
		case <-p.done:
			return
		case req := <-p.requests:
			digest, err := sum(req.ctx, req.src, req.opts)
			req.result <- result{digest: digest, err: err}
		}
	}
}

// Hash implements Hasher. It blocks until a worker picks the request up
// and finishes, or until ctx is cancelled. Cancellation leaves no
// partial state anywhere: the caller simply never observes a digest.
func (p *Pool) Hash(ctx context.Context, src ByteSource, opts Options) (string, error) {
	req := request{ctx: ctx, src: src, opts: opts, result: make(chan result, 1)}

	select {
	case p.requests <- req:
	case <-ctx.Done():
		_ = src.Close()
		return "", ctx.Err()
	case <-p.done:
		_ = src.Close()
		return "", errors.New("hasher closed")
	}

	select {
	case res := <-req.result:
		return res.digest, res.err
	case <-ctx.Done():
		// The worker still drains the source and discards the result.
		return "", ctx.Err()
	}
}

func sum(ctx context.Context, src ByteSource, opts Options) (string, error) {
	defer src.Close()

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	size := src.Size()
	report := opts.Progress != nil && size > progressThreshold

	h := sha256.New()
	buf := make([]byte, chunkSize)
	var read int64

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, err := src.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
			read += int64(n)
			if report {
				opts.Progress(min(float64(read)/float64(size), 1.0))
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			return "", fmt.Errorf("%w: read at offset %d: %v", common.ErrSourceUnavailable, read, err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Sum hashes src synchronously on the calling goroutine. The registry
// server uses this while draining an upload body; the client always goes
// through a Pool.
func Sum(ctx context.Context, src ByteSource, opts Options) (string, error) {
	return sum(ctx, src, opts)
}
