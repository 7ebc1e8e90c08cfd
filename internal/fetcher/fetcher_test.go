package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/harvest/internal/common"
	"github.com/ternarybob/harvest/internal/models"
)

// fakeStrategy is a scripted fetch tier for fetcher ordering tests.
type fakeStrategy struct {
	name   string
	result *models.FetchResult
	err    error
	calls  int
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Fetch(ctx context.Context, url string) (*models.FetchResult, error) {
	f.calls++
	return f.result, f.err
}

func TestTieredFetcher_FirstSuccessWins(t *testing.T) {
	first := &fakeStrategy{name: "first", result: &models.FetchResult{OK: true, Tier: models.TierHTTP}}
	second := &fakeStrategy{name: "second", result: &models.FetchResult{OK: true, Tier: models.TierBrowser}}

	result := NewTieredFetcher(common.GetLogger(), first, second).Fetch(context.Background(), "https://example.com/a")

	assert.True(t, result.OK)
	assert.Equal(t, models.TierHTTP, result.Tier)
	assert.Equal(t, 1, first.calls)
	assert.Zero(t, second.calls)
}

func TestTieredFetcher_FallsThroughOnFailure(t *testing.T) {
	first := &fakeStrategy{name: "first", err: fmt.Errorf("connection refused")}
	second := &fakeStrategy{name: "second", result: &models.FetchResult{OK: true, Tier: models.TierBrowser}}

	result := NewTieredFetcher(common.GetLogger(), first, second).Fetch(context.Background(), "https://example.com/a")

	assert.True(t, result.OK)
	assert.Equal(t, models.TierBrowser, result.Tier)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestTieredFetcher_KeepsLastDefinitiveResult(t *testing.T) {
	// An HTTP 404 is a definitive answer worth reporting over a vague
	// browser failure that carries no status.
	first := &fakeStrategy{
		name:   "first",
		result: &models.FetchResult{OK: false, HTTPStatus: 404, Tier: models.TierHTTP},
		err:    fmt.Errorf("http status 404"),
	}
	second := &fakeStrategy{name: "second", err: fmt.Errorf("browser unavailable")}

	result := NewTieredFetcher(common.GetLogger(), first, second).Fetch(context.Background(), "https://example.com/a")

	assert.False(t, result.OK)
	assert.Equal(t, 404, result.HTTPStatus)
	assert.Equal(t, models.TierHTTP, result.Tier)
}

func TestTieredFetcher_TotalFailureIsTierNone(t *testing.T) {
	first := &fakeStrategy{name: "first", err: fmt.Errorf("dns failure")}
	second := &fakeStrategy{name: "second", err: fmt.Errorf("browser unavailable")}

	result := NewTieredFetcher(common.GetLogger(), first, second).Fetch(context.Background(), "https://example.com/a")

	require.NotNil(t, result)
	assert.False(t, result.OK)
	assert.Equal(t, models.TierNone, result.Tier)
	assert.Equal(t, "https://example.com/a", result.FinalURL)
}

func newTestHTTPStrategy(t *testing.T) *HTTPStrategy {
	t.Helper()
	return NewHTTPStrategy(common.DefaultConfig().Fetcher, nil, common.GetLogger())
}

func TestHTTPStrategy_FetchesHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body><p>hello</p></body></html>")
	}))
	defer server.Close()

	result, err := newTestHTTPStrategy(t).Fetch(context.Background(), server.URL)
	require.NoError(t, err)

	assert.True(t, result.OK)
	assert.Equal(t, models.TierHTTP, result.Tier)
	assert.Equal(t, 200, result.HTTPStatus)
	assert.Contains(t, result.Body, "hello")
	assert.False(t, result.Binary)
}

func TestHTTPStrategy_ErrorStatusReturnsResultAndError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	result, err := newTestHTTPStrategy(t).Fetch(context.Background(), server.URL)
	require.Error(t, err)
	require.NotNil(t, result)

	assert.False(t, result.OK)
	assert.Equal(t, 404, result.HTTPStatus)
}

func TestHTTPStrategy_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>landed</body></html>")
	})

	result, err := newTestHTTPStrategy(t).Fetch(context.Background(), server.URL+"/start")
	require.NoError(t, err)

	assert.True(t, result.OK)
	assert.Equal(t, server.URL+"/final", result.FinalURL)
}

func TestHTTPStrategy_DetectsPDFByMagicBytes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Deliberately generic content type; the magic bytes decide
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("%PDF-1.4 fake document"))
	}))
	defer server.Close()

	result, err := newTestHTTPStrategy(t).Fetch(context.Background(), server.URL)
	require.NoError(t, err)

	assert.True(t, result.OK)
	assert.True(t, result.Binary)
	assert.NotEmpty(t, result.BinaryBody)
	assert.Empty(t, result.Body)
}

func TestHTTPStrategy_DetectsPDFByContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 fake document"))
	}))
	defer server.Close()

	result, err := newTestHTTPStrategy(t).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.True(t, result.Binary)
}

func TestHTTPStrategy_EmptyBodyIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
	}))
	defer server.Close()

	result, err := newTestHTTPStrategy(t).Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.False(t, result.OK)
}

func TestHTTPStrategy_ConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // Nothing listening anymore

	result, err := newTestHTTPStrategy(t).Fetch(context.Background(), server.URL)
	require.Error(t, err)
	require.NotNil(t, result)
	assert.False(t, result.OK)
	assert.Equal(t, models.TierHTTP, result.Tier)
}

func TestRateLimiter_DelaysSameHost(t *testing.T) {
	limiter := NewRateLimiter(0)
	require.NoError(t, limiter.Wait(context.Background(), "https://example.com/a"))
	require.NoError(t, limiter.Wait(context.Background(), "https://example.com/b"))
}

func TestRateLimiter_CancelledContext(t *testing.T) {
	limiter := NewRateLimiter(10 * time.Second)
	require.NoError(t, limiter.Wait(context.Background(), "https://example.com/a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := limiter.Wait(ctx, "https://example.com/b")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecodeText_GBK(t *testing.T) {
	// "中文" in GBK
	gbk := []byte{0xD6, 0xD0, 0xCE, 0xC4}
	text, err := decodeText(gbk, "text/html; charset=gbk")
	require.NoError(t, err)
	assert.Equal(t, "中文", text)
	assert.True(t, strings.HasPrefix(text, "中"))
}
