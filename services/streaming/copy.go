package streaming

import (
	"context"
	"errors"
	"io"
	"net/http"
)

// Copy pumps src into dst one chunk at a time, flushing after every chunk so the
// client socket applies backpressure instead of the process buffering the file.
// expected is the byte count the response promised; fewer bytes is a read failure.
//
// The returned error is always a *StreamError.
func Copy(ctx context.Context, dst io.Writer, src io.Reader, path string, expected int64, chunkSize int) (int64, error) {
	buf := make([]byte, ClampChunkSize(chunkSize))
	flusher, _ := dst.(http.Flusher)

	var written int64
	fail := func(op string, err error) (int64, error) {
		return written, &StreamError{
			Op:            op,
			Path:          path,
			BytesWritten:  written,
			TotalExpected: expected,
			UnderlyingErr: err,
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return fail(OpCancel, err)
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			m, writeErr := dst.Write(buf[:n])
			written += int64(m)
			if writeErr == nil && m < n {
				writeErr = io.ErrShortWrite
			}
			if writeErr != nil {
				return fail(OpWrite, writeErr)
			}
			if flusher != nil {
				flusher.Flush()
			}
		}

		if readErr != nil {
			switch {
			case errors.Is(readErr, io.EOF):
				if written < expected {
					return fail(OpRead, io.ErrUnexpectedEOF)
				}
				return written, nil
			case errors.Is(readErr, context.Canceled), errors.Is(readErr, context.DeadlineExceeded):
				return fail(OpCancel, readErr)
			default:
				return fail(OpRead, readErr)
			}
		}
	}
}
