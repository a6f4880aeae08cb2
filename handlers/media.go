package handlers

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gorilla/mux"
	"github.com/mozillazg/go-unidecode"

	"mediastream/internal/httprange"
	"mediastream/services/streaming"
	"mediastream/utils"
)

// MediaHandler exposes a stream provider as a byte-range capable GET /media/{mediaName} endpoint.
type MediaHandler struct {
	streamer streaming.Provider

	// SendFilename adds an inline Content-Disposition carrying the media name.
	SendFilename bool
}

// NewMediaHandler returns a handler that serves media from the given provider.
func NewMediaHandler(provider streaming.Provider) *MediaHandler {
	return &MediaHandler{streamer: provider}
}

func (h *MediaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodGet, http.MethodHead:
		// Supported below
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.streamer == nil {
		http.Error(w, "stream provider not configured", http.StatusServiceUnavailable)
		return
	}

	name := strings.TrimSpace(mux.Vars(r)["mediaName"])
	if name == "" {
		http.NotFound(w, r)
		return
	}

	requestID := utils.RequestID(r.Context())
	ranges := r.Header.Values(httprange.HeaderRange)
	if len(ranges) > 1 {
		log.Printf("[media] rejecting %d Range headers name=%q request=%s", len(ranges), name, requestID)
		http.Error(w, "multiple ranges are not supported", http.StatusBadRequest)
		return
	}
	rangeHeader := r.Header.Get(httprange.HeaderRange)
	log.Printf("[media] request name=%q method=%s range=%q request=%s", name, r.Method, rangeHeader, requestID)

	resp, err := h.streamer.Stream(r.Context(), streaming.Request{
		Path:        name,
		RangeHeader: rangeHeader,
		Method:      r.Method,
	})
	if err != nil {
		h.writeError(w, r, name, err)
		return
	}
	defer resp.Close()

	// Propagate provider headers.
	for key, values := range resp.Headers {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	if w.Header().Get(httprange.HeaderAcceptRanges) == "" {
		w.Header().Set(httprange.HeaderAcceptRanges, "bytes")
	}
	if h.SendFilename && resp.Filename != "" {
		w.Header().Set("Content-Disposition", contentDisposition(resp.Filename))
	}

	status := resp.Status
	if status == 0 {
		if rangeHeader != "" {
			status = http.StatusPartialContent
		} else {
			status = http.StatusOK
		}
	}

	w.WriteHeader(status)
	if r.Method == http.MethodHead || resp.Body == nil {
		return
	}

	written, err := streaming.Copy(r.Context(), w, resp.Body, name, resp.ContentLength, resp.ChunkSize)
	if err != nil {
		// Headers are committed; all that is left is telling the operator.
		if streaming.IsClientGone(err) {
			slog.Default().Info("[media] client stopped receiving",
				"name", name,
				"written", written,
				"expected", resp.ContentLength,
				"request_id", requestID,
				"error", err,
			)
			return
		}
		slog.Default().Error("[media] stream aborted",
			"name", name,
			"written", written,
			"expected", resp.ContentLength,
			"request_id", requestID,
			"error", err,
		)
		return
	}

	slog.Default().Debug("[media] stream complete",
		"name", name,
		"status", status,
		"written", written,
		"request_id", requestID,
	)
}

func (h *MediaHandler) writeError(w http.ResponseWriter, r *http.Request, name string, err error) {
	var rangeErr *streaming.RangeError
	switch {
	case errors.Is(err, streaming.ErrNotFound):
		log.Printf("[media] not found name=%q err=%v", name, err)
		http.NotFound(w, r)
	case errors.As(err, &rangeErr) && errors.Is(err, httprange.ErrUnsatisfiable):
		log.Printf("[media] unsatisfiable range name=%q err=%v", name, err)
		w.Header().Set(httprange.HeaderContentRange, httprange.UnsatisfiedContentRange(rangeErr.Size))
		http.Error(w, "requested range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
	case errors.Is(err, httprange.ErrInvalidRange):
		log.Printf("[media] invalid range name=%q err=%v", name, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		slog.Default().Error("[media] failed to prepare stream",
			"name", name,
			"request_id", utils.RequestID(r.Context()),
			"error", err,
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// contentDisposition builds an inline disposition with an ASCII fallback name
// for old clients and the exact UTF-8 name in filename*.
func contentDisposition(name string) string {
	base := path.Base(name)
	fallback := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return -1
		}
		return r
	}, unidecode.Unidecode(base))
	if fallback == "" {
		fallback = "media"
	}
	return fmt.Sprintf(`inline; filename="%s"; filename*=UTF-8''%s`, fallback, url.PathEscape(base))
}
