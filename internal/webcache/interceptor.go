package webcache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/mlodari/camposanto/internal/common"
	"github.com/mlodari/camposanto/internal/logging"
)

// Options wires an Interceptor.
type Options struct {
	// Base is the transport actually hitting the network; nil means
	// http.DefaultTransport.
	Base http.RoundTripper

	// APIHost is the host of the remote data API (routing decisions 2 and 3).
	APIHost string

	// DataTables is the allow-list of collection names whose endpoints get
	// the cache-first-with-TTL policy.
	DataTables []string

	// TTL is the freshness window for data-endpoint entries; zero means one
	// hour.
	TTL time.Duration

	// Version numbers the cache generation. Activate purges stores from
	// other generations.
	Version int

	// SyncHook is invoked for the trigger-sync control message. The
	// interceptor itself implements no sync logic.
	SyncHook func(ctx context.Context) error

	Logger logging.Logger
}

// Interceptor is an http.RoundTripper applying per-route caching policies.
type Interceptor struct {
	base       http.RoundTripper
	apiHost    string
	dataTables map[string]struct{}
	ttl        time.Duration
	version    int
	syncHook   func(ctx context.Context) error
	logger     logging.Logger

	caches  *CacheSet
	static  string
	dynamic string

	now func() time.Time
}

func New(opts Options) *Interceptor {
	if opts.Base == nil {
		opts.Base = http.DefaultTransport
	}
	if opts.TTL == 0 {
		opts.TTL = time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}

	tables := make(map[string]struct{}, len(opts.DataTables))
	for _, t := range opts.DataTables {
		tables[t] = struct{}{}
	}

	return &Interceptor{
		base:       opts.Base,
		apiHost:    opts.APIHost,
		dataTables: tables,
		ttl:        opts.TTL,
		version:    opts.Version,
		syncHook:   opts.SyncHook,
		logger:     opts.Logger,
		caches:     NewCacheSet(),
		static:     fmt.Sprintf("static-v%d", opts.Version),
		dynamic:    fmt.Sprintf("dynamic-v%d", opts.Version),
		now:        time.Now,
	}
}

// Activate purges every cache store except the current static and dynamic
// ones, so assets from earlier deployments cannot be served again.
func (i *Interceptor) Activate() {
	i.caches.DeleteExcept(i.static, i.dynamic)
	i.logger.Info(context.Background(), "cache interceptor activated", "version", i.version)
}

// RoundTrip applies the routing policy, in priority order: non-idempotent
// requests pass through untouched; recognized data endpoints are
// cache-first with TTL; other API-host requests are network-first; all
// remaining requests are cache-first with network fallback.
func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return i.base.RoundTrip(req)
	}

	switch {
	case i.isDataEndpoint(req):
		return i.dataFirst(req)
	case req.URL.Host == i.apiHost:
		return i.networkFirst(req)
	default:
		return i.staticFirst(req)
	}
}

// isDataEndpoint recognizes GETs for allow-listed collections on the API
// host, e.g. /rest/v1/Cimitero.
func (i *Interceptor) isDataEndpoint(req *http.Request) bool {
	if req.URL.Host != i.apiHost {
		return false
	}
	const prefix = "/rest/v1/"
	path := req.URL.Path
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	table := strings.TrimPrefix(path, prefix)
	if idx := strings.IndexByte(table, '/'); idx >= 0 {
		table = table[:idx]
	}
	_, ok := i.dataTables[table]
	return ok
}

// dataFirst serves fresh cache entries without touching the network, goes to
// the network when the entry is absent or stale, and degrades stale-entry →
// synthesized offline error when the network fails.
func (i *Interceptor) dataFirst(req *http.Request) (*http.Response, error) {
	store := i.caches.Open(i.dynamic)
	key := req.URL.String()

	var cached *CachedResponse
	if v, ok := store.Get(key); ok {
		cached = v.(*CachedResponse)
		if i.now().Sub(cached.CapturedAt) < i.ttl {
			return cached.response(req), nil
		}
	}

	resp, err := i.base.RoundTrip(req)
	if err == nil && resp.StatusCode < 300 {
		entry, err := capture(resp, i.now())
		if err != nil {
			return nil, err
		}
		store.Set(key, entry, cache.NoExpiration)
		return entry.response(req), nil
	}
	if err == nil {
		return resp, nil
	}

	if cached != nil {
		i.logger.Warn(req.Context(), "network unreachable, serving stale entry", "url", key)
		return cached.response(req), nil
	}
	return i.offlineResponse(req), nil
}

// networkFirst never caches: these payloads are not safe to serve stale, so
// the only fallback is the structured offline error.
func (i *Interceptor) networkFirst(req *http.Request) (*http.Response, error) {
	resp, err := i.base.RoundTrip(req)
	if err != nil {
		return i.offlineResponse(req), nil
	}
	return resp, nil
}

// staticFirst serves the cache when possible and opportunistically populates
// it from successful fetches. A navigation request that fails completely
// falls back to the cached app-shell root.
func (i *Interceptor) staticFirst(req *http.Request) (*http.Response, error) {
	store := i.caches.Open(i.static)
	key := req.URL.String()

	if v, ok := store.Get(key); ok {
		return v.(*CachedResponse).response(req), nil
	}

	resp, err := i.base.RoundTrip(req)
	if err == nil {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			entry, cerr := capture(resp, i.now())
			if cerr != nil {
				return nil, cerr
			}
			store.Set(key, entry, cache.NoExpiration)
			return entry.response(req), nil
		}
		return resp, nil
	}

	if isNavigation(req) {
		rootKey := req.URL.Scheme + "://" + req.URL.Host + "/"
		if v, ok := store.Get(rootKey); ok {
			i.logger.Warn(req.Context(), "navigation fetch failed, serving app shell", "url", key)
			return v.(*CachedResponse).response(req), nil
		}
	}
	return nil, err
}

func isNavigation(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "text/html")
}

// capture drains resp into a cache entry stamped with the capture timestamp.
func capture(resp *http.Response, at time.Time) (*CachedResponse, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	header := resp.Header.Clone()
	header.Set(common.CapturedAtHeaderName, at.UTC().Format(time.RFC3339))

	return &CachedResponse{
		Status:     resp.StatusCode,
		Header:     header,
		Body:       body,
		CapturedAt: at,
	}, nil
}

// response materializes the entry as an http.Response for the given request.
func (c *CachedResponse) response(req *http.Request) *http.Response {
	return &http.Response{
		StatusCode:    c.Status,
		Status:        http.StatusText(c.Status),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        c.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(c.Body)),
		ContentLength: int64(len(c.Body)),
		Request:       req,
	}
}

// offlineResponse synthesizes the structured offline-error body. The status
// is deliberately 200: callers branch on the offline flag, not on the HTTP
// status.
func (i *Interceptor) offlineResponse(req *http.Request) *http.Response {
	body := []byte(`{"error":true,"message":"network unreachable, request not completed","offline":true}`)

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set(common.OfflineHeaderName, "1")

	return &http.Response{
		StatusCode:    http.StatusOK,
		Status:        http.StatusText(http.StatusOK),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
