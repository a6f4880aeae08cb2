package streaming

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/spf13/afero"

	"mediastream/internal/httprange"
	"mediastream/internal/mediastore"
)

// ContentTypeAuto asks the provider to sniff each file instead of using a fixed type.
const ContentTypeAuto = "auto"

const defaultContentType = "video/mp4"

// Locator is the content store the local provider reads from.
type Locator interface {
	Resolve(name string) (mediastore.Media, error)
	Open(ctx context.Context, m mediastore.Media) (afero.File, error)
	DetectContentType(m mediastore.Media) string
}

var _ Locator = (*mediastore.Store)(nil)

// LocalConfig tunes how media is served from the local store.
type LocalConfig struct {
	ContentType       string // fixed MIME type, or ContentTypeAuto
	ChunkSize         int
	MaxBytesPerSecond int64 // per stream; zero disables throttling
}

// LocalProvider serves whole files and single byte ranges from a Locator.
type LocalProvider struct {
	store Locator
	cfg   LocalConfig
}

var _ Provider = (*LocalProvider)(nil)

// NewLocalProvider applies defaults to cfg and returns a provider over store.
func NewLocalProvider(store Locator, cfg LocalConfig) *LocalProvider {
	cfg.ContentType = strings.TrimSpace(cfg.ContentType)
	if cfg.ContentType == "" {
		cfg.ContentType = defaultContentType
	}
	cfg.ChunkSize = ClampChunkSize(cfg.ChunkSize)
	return &LocalProvider{store: store, cfg: cfg}
}

// Stream resolves req.Path, plans the response for req.RangeHeader and opens a body
// covering exactly the planned window. HEAD requests get headers only.
func (p *LocalProvider) Stream(ctx context.Context, req Request) (*Response, error) {
	media, err := p.store.Resolve(req.Path)
	if err != nil {
		if errors.Is(err, mediastore.ErrNotFound) || errors.Is(err, mediastore.ErrInvalidName) {
			return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return nil, fmt.Errorf("resolve media: %w", err)
	}

	rng, requested, err := httprange.Parse(req.RangeHeader, media.Size)
	if err != nil {
		return nil, &RangeError{Size: media.Size, Err: err}
	}

	contentType := p.cfg.ContentType
	if strings.EqualFold(contentType, ContentTypeAuto) {
		contentType = p.store.DetectContentType(media)
	}

	plan := NewPlan(rng, requested, contentType)

	slog.Default().Info("streaming.local.plan",
		"path", media.Path,
		"method", req.Method,
		"status", plan.Status,
		"range_start", rng.Start,
		"range_end", rng.End,
		"content_length", plan.ContentLength,
		"file_size", media.Size,
	)

	resp := &Response{
		Body:          http.NoBody,
		Headers:       plan.Header(),
		Status:        plan.Status,
		ContentLength: plan.ContentLength,
		Filename:      media.Name,
		ChunkSize:     p.cfg.ChunkSize,
	}

	if req.Method == http.MethodHead || plan.ContentLength == 0 {
		return resp, nil
	}

	file, err := p.store.Open(ctx, media)
	if err != nil {
		if errors.Is(err, mediastore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return nil, err
	}

	body, err := NewBody(ctx, file, media.Path, plan.Window(), NewLimiter(p.cfg.MaxBytesPerSecond, p.cfg.ChunkSize))
	if err != nil {
		return nil, err
	}
	resp.Body = body
	return resp, nil
}
