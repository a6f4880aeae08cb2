package streaming

import (
	"errors"
	"fmt"
)

// Stream failure operations.
const (
	OpRead   = "read"
	OpWrite  = "write"
	OpCancel = "cancel"
)

// RangeError reports a Range header that cannot be served for a resource of Size bytes.
type RangeError struct {
	Size int64
	Err  error
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("range error for %d byte resource: %v", e.Size, e.Err)
}

func (e *RangeError) Unwrap() error {
	return e.Err
}

// StreamError represents a body copy that stopped after the response was committed.
type StreamError struct {
	Op            string
	Path          string
	BytesWritten  int64
	TotalExpected int64
	UnderlyingErr error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream %s failed for %q: wrote %d/%d bytes, underlying error: %v",
		e.Op, e.Path, e.BytesWritten, e.TotalExpected, e.UnderlyingErr)
}

func (e *StreamError) Unwrap() error {
	return e.UnderlyingErr
}

// ClientGone reports whether the failure came from the receiving side
// (disconnect or cancelled request) rather than from the content store.
func (e *StreamError) ClientGone() bool {
	return e.Op == OpWrite || e.Op == OpCancel
}

// IsClientGone is the errors.As shortcut for StreamError.ClientGone.
func IsClientGone(err error) bool {
	var se *StreamError
	return errors.As(err, &se) && se.ClientGone()
}
