package streaming_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"testing"

	"github.com/sourcegraph/conc"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediastream/internal/httprange"
	"mediastream/internal/mediastore"
	"mediastream/services/streaming"
)

func fixture(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func newProvider(t *testing.T, files map[string][]byte, cfg streaming.LocalConfig) *streaming.LocalProvider {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for name, data := range files {
		require.NoError(t, afero.WriteFile(fsys, name, data, 0o644))
	}
	store := mediastore.NewStore(afero.NewReadOnlyFs(fsys), "")
	return streaming.NewLocalProvider(store, cfg)
}

func drain(t *testing.T, resp *streaming.Response) []byte {
	t.Helper()
	defer resp.Close()
	var buf bytes.Buffer
	_, err := streaming.Copy(context.Background(), &buf, resp.Body, "test", resp.ContentLength, resp.ChunkSize)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestLocalProviderFullFile(t *testing.T) {
	data := fixture(1000)
	p := newProvider(t, map[string][]byte{"video.mp4": data}, streaming.LocalConfig{})

	resp, err := p.Stream(context.Background(), streaming.Request{Path: "video.mp4", Method: http.MethodGet})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.EqualValues(t, 1000, resp.ContentLength)
	assert.Equal(t, "1000", resp.Headers.Get("Content-Length"))
	assert.Equal(t, "video/mp4", resp.Headers.Get("Content-Type"))
	assert.Empty(t, resp.Headers.Get("Content-Range"))
	assert.Equal(t, data, drain(t, resp))
}

func TestLocalProviderRanges(t *testing.T) {
	data := fixture(1000)
	p := newProvider(t, map[string][]byte{"video.mp4": data}, streaming.LocalConfig{ChunkSize: 1024})

	testCases := []struct {
		header       string
		start, end   int
		contentRange string
	}{
		{header: "bytes=100-199", start: 100, end: 199, contentRange: "bytes 100-199/1000"},
		{header: "bytes=900-2000", start: 900, end: 999, contentRange: "bytes 900-999/1000"},
		{header: "bytes=900-", start: 900, end: 999, contentRange: "bytes 900-999/1000"},
		{header: "bytes=0-0", start: 0, end: 0, contentRange: "bytes 0-0/1000"},
		{header: "bytes=0-999", start: 0, end: 999, contentRange: "bytes 0-999/1000"},
	}

	for _, tc := range testCases {
		t.Run(tc.header, func(t *testing.T) {
			resp, err := p.Stream(context.Background(), streaming.Request{
				Path:        "video.mp4",
				RangeHeader: tc.header,
				Method:      http.MethodGet,
			})
			require.NoError(t, err)

			length := tc.end - tc.start + 1
			assert.Equal(t, http.StatusPartialContent, resp.Status)
			assert.EqualValues(t, length, resp.ContentLength)
			assert.Equal(t, fmt.Sprint(length), resp.Headers.Get("Content-Length"))
			assert.Equal(t, tc.contentRange, resp.Headers.Get("Content-Range"))
			assert.Equal(t, "bytes", resp.Headers.Get("Accept-Ranges"))
			assert.Equal(t, data[tc.start:tc.end+1], drain(t, resp))
		})
	}
}

func TestLocalProviderRandomRangesAreExact(t *testing.T) {
	const size = 10_000
	data := fixture(size)
	// A chunk size that never divides the window evenly exercises the final-chunk truncation.
	p := newProvider(t, map[string][]byte{"video.mp4": data}, streaming.LocalConfig{ChunkSize: 1031})

	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		start := rnd.Intn(size)
		end := start + rnd.Intn(size-start)

		resp, err := p.Stream(context.Background(), streaming.Request{
			Path:        "video.mp4",
			RangeHeader: fmt.Sprintf("bytes=%d-%d", start, end),
			Method:      http.MethodGet,
		})
		require.NoError(t, err)
		require.Equal(t, data[start:end+1], drain(t, resp), "range %d-%d", start, end)
	}
}

func TestLocalProviderNotFound(t *testing.T) {
	p := newProvider(t, map[string][]byte{"video.mp4": fixture(10)}, streaming.LocalConfig{})

	for _, name := range []string{"missing.mp4", "../video.mp4", ""} {
		_, err := p.Stream(context.Background(), streaming.Request{Path: name, Method: http.MethodGet})
		assert.ErrorIs(t, err, streaming.ErrNotFound, "path %q", name)
	}
}

func TestLocalProviderRangeErrors(t *testing.T) {
	p := newProvider(t, map[string][]byte{"video.mp4": fixture(1000)}, streaming.LocalConfig{})

	testCases := []struct {
		header string
		want   error
	}{
		{header: "bytes=abc-", want: httprange.ErrMalformed},
		{header: "bytes=0-1,5-6", want: httprange.ErrMultiRange},
		{header: "bytes=1000-", want: httprange.ErrUnsatisfiable},
	}

	for _, tc := range testCases {
		_, err := p.Stream(context.Background(), streaming.Request{
			Path:        "video.mp4",
			RangeHeader: tc.header,
			Method:      http.MethodGet,
		})
		require.ErrorIs(t, err, tc.want, "header %q", tc.header)

		var rangeErr *streaming.RangeError
		require.True(t, errors.As(err, &rangeErr))
		assert.EqualValues(t, 1000, rangeErr.Size)
		assert.NotErrorIs(t, err, streaming.ErrNotFound)
	}
}

func TestLocalProviderHeadHasNoBody(t *testing.T) {
	p := newProvider(t, map[string][]byte{"video.mp4": fixture(1000)}, streaming.LocalConfig{})

	resp, err := p.Stream(context.Background(), streaming.Request{
		Path:        "video.mp4",
		RangeHeader: "bytes=100-199",
		Method:      http.MethodHead,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusPartialContent, resp.Status)
	assert.Equal(t, "bytes 100-199/1000", resp.Headers.Get("Content-Range"))
	assert.Equal(t, http.NoBody, resp.Body)
}

func TestLocalProviderEmptyFile(t *testing.T) {
	p := newProvider(t, map[string][]byte{"empty.mp4": {}}, streaming.LocalConfig{})

	resp, err := p.Stream(context.Background(), streaming.Request{Path: "empty.mp4", Method: http.MethodGet})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "0", resp.Headers.Get("Content-Length"))
	assert.Empty(t, drain(t, resp))

	_, err = p.Stream(context.Background(), streaming.Request{Path: "empty.mp4", RangeHeader: "bytes=0-", Method: http.MethodGet})
	assert.ErrorIs(t, err, httprange.ErrUnsatisfiable)
}

func TestLocalProviderContentType(t *testing.T) {
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
	files := map[string][]byte{"poster": png}

	fixed := newProvider(t, files, streaming.LocalConfig{ContentType: "video/webm"})
	resp, err := fixed.Stream(context.Background(), streaming.Request{Path: "poster", Method: http.MethodHead})
	require.NoError(t, err)
	assert.Equal(t, "video/webm", resp.Headers.Get("Content-Type"))

	auto := newProvider(t, files, streaming.LocalConfig{ContentType: streaming.ContentTypeAuto})
	resp, err = auto.Stream(context.Background(), streaming.Request{Path: "poster", Method: http.MethodHead})
	require.NoError(t, err)
	assert.Equal(t, "image/png", resp.Headers.Get("Content-Type"))
}

func TestLocalProviderConcurrentIdenticalRequests(t *testing.T) {
	data := fixture(64 * 1024)
	p := newProvider(t, map[string][]byte{"video.mp4": data}, streaming.LocalConfig{ChunkSize: 4096})

	const workers = 16
	bodies := make([][]byte, workers)
	errs := make([]error, workers)

	var wg conc.WaitGroup
	for i := 0; i < workers; i++ {
		i := i
		wg.Go(func() {
			resp, err := p.Stream(context.Background(), streaming.Request{
				Path:        "video.mp4",
				RangeHeader: "bytes=1000-50000",
				Method:      http.MethodGet,
			})
			if err != nil {
				errs[i] = err
				return
			}
			defer resp.Close()
			var buf bytes.Buffer
			_, errs[i] = streaming.Copy(context.Background(), &buf, resp.Body, "video.mp4", resp.ContentLength, resp.ChunkSize)
			bodies[i] = buf.Bytes()
		})
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, data[1000:50001], bodies[i], "worker %d", i)
	}
}
