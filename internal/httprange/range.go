package httprange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	HeaderRange        = "Range"
	HeaderContentRange = "Content-Range"
	HeaderAcceptRanges = "Accept-Ranges"

	unitPrefix = "bytes="
)

var (
	// ErrInvalidRange is the root of every parse failure so callers can branch once.
	ErrInvalidRange  = errors.New("invalid range")
	ErrMalformed     = fmt.Errorf("%w: malformed range header", ErrInvalidRange)
	ErrMultiRange    = fmt.Errorf("%w: multiple ranges are not supported", ErrInvalidRange)
	ErrUnsatisfiable = fmt.Errorf("%w: range not satisfiable", ErrInvalidRange)
)

// ByteRange is an end-inclusive window [Start, End] over a resource of Size bytes.
// A zero-size resource has the empty full range Start=0, End=-1.
type ByteRange struct {
	Start int64
	End   int64
	Size  int64
}

// Full returns the range covering the whole resource.
func Full(size int64) ByteRange {
	return ByteRange{Start: 0, End: size - 1, Size: size}
}

// Length is the number of bytes covered by the range.
func (r ByteRange) Length() int64 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// IsFull reports whether the range spans the entire resource.
func (r ByteRange) IsFull() bool {
	return r.Start == 0 && r.End == r.Size-1
}

// ContentRange renders the Content-Range header value for a 206 response.
func (r ByteRange) ContentRange() string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, r.Size)
}

// UnsatisfiedContentRange renders the Content-Range header value for a 416 response.
func UnsatisfiedContentRange(size int64) string {
	return fmt.Sprintf("bytes */%d", size)
}

// Parse interprets a Range header value against a resource of the given size.
//
// An empty header yields the full range with requested=false. Otherwise only the
// single-range form "bytes=<start>-[<end>]" is accepted: the suffix form, other
// units and comma separated lists are rejected. An end beyond the resource is
// clamped to size-1 because players routinely ask for more than exists.
func Parse(header string, size int64) (rng ByteRange, requested bool, err error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Full(size), false, nil
	}

	if !strings.HasPrefix(header, unitPrefix) {
		return ByteRange{}, true, fmt.Errorf("%w: %q", ErrMalformed, header)
	}
	rangeSet := header[len(unitPrefix):]
	if strings.Contains(rangeSet, ",") {
		return ByteRange{}, true, fmt.Errorf("%w: %q", ErrMultiRange, header)
	}

	startText, endText, ok := strings.Cut(rangeSet, "-")
	if !ok || !isDigits(startText) || (endText != "" && !isDigits(endText)) {
		return ByteRange{}, true, fmt.Errorf("%w: %q", ErrMalformed, header)
	}

	start, err := strconv.ParseInt(startText, 10, 64)
	if err != nil {
		// Only overflow is possible here; such an offset lies past any real file.
		return ByteRange{}, true, fmt.Errorf("%w: start %s beyond size %d", ErrUnsatisfiable, startText, size)
	}
	if start >= size {
		return ByteRange{}, true, fmt.Errorf("%w: start %d beyond size %d", ErrUnsatisfiable, start, size)
	}

	end := size - 1
	if endText != "" {
		parsed, err := strconv.ParseInt(endText, 10, 64)
		if err == nil && parsed < end {
			end = parsed
		}
	}

	if start > end {
		return ByteRange{}, true, fmt.Errorf("%w: start %d after end %d", ErrMalformed, start, end)
	}

	return ByteRange{Start: start, End: end, Size: size}, true, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
