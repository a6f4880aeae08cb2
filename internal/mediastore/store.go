package mediastore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrNotFound    = errors.New("media not found")
	ErrInvalidName = errors.New("invalid media name")
)

const (
	defaultOpenAttempts   uint = 3
	defaultOpenRetryDelay      = 50 * time.Millisecond

	fallbackContentType = "application/octet-stream"
)

// Media describes a resolved entry of the content store.
type Media struct {
	Name    string // cleaned identifier, relative to the store root
	Path    string // location used in logs; absolute for directory stores
	Size    int64
	ModTime time.Time
}

// Store resolves media identifiers against a read-only content store.
type Store struct {
	fs   afero.Fs
	root string

	openAttempts   uint
	openRetryDelay time.Duration
}

// Option tweaks a Store at construction time.
type Option func(*Store)

// WithOpenRetry configures how often a transient open failure is retried.
func WithOpenRetry(attempts uint, delay time.Duration) Option {
	return func(s *Store) {
		if attempts > 0 {
			s.openAttempts = attempts
		}
		if delay >= 0 {
			s.openRetryDelay = delay
		}
	}
}

// NewDirStore returns a store rooted at an OS directory. The directory must exist.
func NewDirStore(root string, opts ...Option) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve media root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat media root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("media root %q is not a directory", abs)
	}

	base := afero.NewReadOnlyFs(afero.NewBasePathFs(afero.NewOsFs(), abs))
	return NewStore(base, abs, opts...), nil
}

// NewStore wraps an arbitrary afero filesystem. root is only used to build display paths.
func NewStore(fsys afero.Fs, root string, opts ...Option) *Store {
	s := &Store{
		fs:             fsys,
		root:           root,
		openAttempts:   defaultOpenAttempts,
		openRetryDelay: defaultOpenRetryDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the location the store was created for.
func (s *Store) Root() string { return s.root }

// Resolve maps an identifier to a readable regular file inside the store.
func (s *Store) Resolve(name string) (Media, error) {
	cleaned, err := cleanName(name)
	if err != nil {
		return Media{}, err
	}

	info, err := s.fs.Stat(cleaned)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return Media{}, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return Media{}, fmt.Errorf("stat %q: %w", name, err)
	}
	if info.IsDir() || !info.Mode().IsRegular() {
		return Media{}, fmt.Errorf("%w: %q is not a regular file", ErrNotFound, name)
	}

	// Stat succeeding does not mean we may read it.
	f, err := s.fs.Open(cleaned)
	if err != nil {
		return Media{}, fmt.Errorf("%w: %q is not readable: %v", ErrNotFound, name, err)
	}
	_ = f.Close()

	return Media{
		Name:    cleaned,
		Path:    s.displayPath(cleaned),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Size returns the byte size of the named media.
func (s *Store) Size(name string) (int64, error) {
	m, err := s.Resolve(name)
	if err != nil {
		return 0, err
	}
	return m.Size, nil
}

// Open opens resolved media for reading. Running out of descriptors under load
// is retried a few times before giving up.
func (s *Store) Open(ctx context.Context, m Media) (afero.File, error) {
	var file afero.File
	err := retry.Do(
		func() error {
			f, err := s.fs.Open(m.Name)
			if err != nil {
				return err
			}
			file = f
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(s.openAttempts),
		retry.Delay(s.openRetryDelay),
		retry.RetryIf(isTransientOpenError),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.Default().Warn("mediastore.open.retry",
				"path", m.Path,
				"attempt", n+1,
				"error", err,
			)
		}),
	)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, m.Name)
		}
		return nil, fmt.Errorf("open %q: %w", m.Path, err)
	}
	return file, nil
}

// DetectContentType sniffs the head of the file, falling back to the extension.
func (s *Store) DetectContentType(m Media) string {
	byExt := mime.TypeByExtension(strings.ToLower(path.Ext(m.Name)))

	f, err := s.fs.Open(m.Name)
	if err != nil {
		if byExt != "" {
			return byExt
		}
		return fallbackContentType
	}
	defer f.Close()

	detected, err := mimetype.DetectReader(f)
	if err != nil || detected.Is(fallbackContentType) {
		if byExt != "" {
			return byExt
		}
		return fallbackContentType
	}
	return detected.String()
}

func (s *Store) displayPath(name string) string {
	if s.root == "" {
		return name
	}
	return filepath.Join(s.root, filepath.FromSlash(name))
}

// cleanName normalises an identifier and rejects anything that could leave the root.
func cleanName(name string) (string, error) {
	normalized := norm.NFC.String(strings.TrimSpace(name))
	switch {
	case normalized == "":
		return "", fmt.Errorf("%w: empty", ErrInvalidName)
	case strings.ContainsRune(normalized, 0):
		return "", fmt.Errorf("%w: contains NUL", ErrInvalidName)
	case strings.Contains(normalized, `\`):
		return "", fmt.Errorf("%w: %q contains a backslash", ErrInvalidName, name)
	case strings.HasPrefix(normalized, "/") || filepath.IsAbs(normalized):
		return "", fmt.Errorf("%w: %q is absolute", ErrInvalidName, name)
	}

	for _, segment := range strings.Split(normalized, "/") {
		if segment == ".." {
			return "", fmt.Errorf("%w: %q escapes the content root", ErrInvalidName, name)
		}
	}

	cleaned := path.Clean(normalized)
	if cleaned == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return cleaned, nil
}

func isTransientOpenError(err error) bool {
	return errors.Is(err, syscall.EMFILE) || errors.Is(err, syscall.ENFILE)
}
