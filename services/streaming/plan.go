package streaming

import (
	"net/http"
	"strconv"

	"mediastream/internal/httprange"
)

// Plan fully determines the status line and headers of a media response.
type Plan struct {
	Status        int
	ContentType   string
	ContentLength int64
	Range         *httprange.ByteRange // set only for partial responses
}

// NewPlan derives the response plan for a parsed range.
func NewPlan(rng httprange.ByteRange, requested bool, contentType string) Plan {
	if !requested {
		return Plan{
			Status:        http.StatusOK,
			ContentType:   contentType,
			ContentLength: rng.Size,
		}
	}

	partial := rng
	return Plan{
		Status:        http.StatusPartialContent,
		ContentType:   contentType,
		ContentLength: rng.Length(),
		Range:         &partial,
	}
}

// Window returns the byte range the body must cover.
func (p Plan) Window() httprange.ByteRange {
	if p.Range != nil {
		return *p.Range
	}
	return httprange.Full(p.ContentLength)
}

// Header renders the plan into response headers.
func (p Plan) Header() http.Header {
	h := make(http.Header)
	h.Set("Content-Type", p.ContentType)
	h.Set("Content-Length", strconv.FormatInt(p.ContentLength, 10))
	h.Set(httprange.HeaderAcceptRanges, "bytes")
	if p.Range != nil {
		h.Set(httprange.HeaderContentRange, p.Range.ContentRange())
	}
	return h
}
