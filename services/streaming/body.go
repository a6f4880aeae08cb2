package streaming

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"mediastream/internal/httprange"
)

const (
	DefaultChunkSize = 64 * 1024
	MinChunkSize     = 1024
	MaxChunkSize     = 1024 * 1024
)

// Body is a lazy reader over exactly one byte window of an open file.
// It owns the file handle; Close releases it and is safe to call repeatedly.
type Body struct {
	ctx       context.Context
	file      io.ReadSeekCloser
	path      string
	remaining int64
	limiter   *rate.Limiter

	closeOnce sync.Once
	closeErr  error
}

// NewBody positions file at rng.Start. On failure the file is closed.
func NewBody(ctx context.Context, file io.ReadSeekCloser, path string, rng httprange.ByteRange, limiter *rate.Limiter) (*Body, error) {
	if _, err := file.Seek(rng.Start, io.SeekStart); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("seek %q to %d: %w", path, rng.Start, err)
	}
	return &Body{
		ctx:       ctx,
		file:      file,
		path:      path,
		remaining: rng.Length(),
		limiter:   limiter,
	}, nil
}

// Remaining is the number of bytes not yet handed out.
func (b *Body) Remaining() int64 {
	return b.remaining
}

// Read never returns bytes beyond the end of the window.
func (b *Body) Read(p []byte) (int, error) {
	if b.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > b.remaining {
		p = p[:b.remaining]
	}

	if b.limiter != nil {
		if burst := b.limiter.Burst(); burst > 0 && len(p) > burst {
			p = p[:burst]
		}
		if err := b.limiter.WaitN(b.ctx, len(p)); err != nil {
			return 0, err
		}
	}

	n, err := b.file.Read(p)
	b.remaining -= int64(n)

	if errors.Is(err, io.EOF) && b.remaining > 0 {
		// The file shrank underneath us.
		return n, io.ErrUnexpectedEOF
	}
	return n, err
}

func (b *Body) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = b.file.Close()
		if b.remaining > 0 {
			slog.Default().Debug("streaming.body.closed_early",
				"path", b.path,
				"remaining", b.remaining,
			)
		}
	})
	return b.closeErr
}

// NewLimiter returns a limiter capping throughput at bytesPerSecond, or nil when uncapped.
func NewLimiter(bytesPerSecond int64, chunkSize int) *rate.Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}
	burst := chunkSize
	if int64(burst) > bytesPerSecond {
		burst = int(bytesPerSecond)
	}
	return rate.NewLimiter(rate.Limit(bytesPerSecond), burst)
}

// ClampChunkSize keeps a configured buffer size inside the supported bounds.
func ClampChunkSize(size int) int {
	switch {
	case size <= 0:
		return DefaultChunkSize
	case size < MinChunkSize:
		return MinChunkSize
	case size > MaxChunkSize:
		return MaxChunkSize
	default:
		return size
	}
}
