package transport

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/quartz"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/flagsmith/pkg/cache"
	"github.com/dmitrymomot/flagsmith/pkg/logger"
	"github.com/dmitrymomot/flagsmith/pkg/storage"
)

const (
	// CacheKeyPrefix namespaces response records in the durable storage.
	CacheKeyPrefix = "cache:"
	// HeaderCache is set on responses served by CacheTransport: HIT or MISS.
	HeaderCache = "X-Cache"

	defaultCacheTTL  = 60 * time.Second
	defaultCacheSize = 128
)

// record is a cached response as persisted in storage.
type record struct {
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"stored_at"`
}

func (r *record) response(req *http.Request, state string) *http.Response {
	header := r.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	header.Set(HeaderCache, state)

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", r.Status, http.StatusText(r.Status)),
		StatusCode:    r.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(r.Body)),
		ContentLength: int64(len(r.Body)),
		Request:       req,
	}
}

// CacheTransport serves repeated GET requests from a two-level cache: an
// in-process LRU in front of a durable storage.Storage. Only 200 responses are
// stored. Concurrent misses for the same key share one upstream request.
type CacheTransport struct {
	next   http.RoundTripper
	store  storage.Storage
	lru    *cache.LRUCache[string, *record]
	ttl    time.Duration
	clock  quartz.Clock
	logger *slog.Logger
	group  singleflight.Group
}

// CacheOption configures a CacheTransport.
type CacheOption func(*cacheOptions)

type cacheOptions struct {
	ttl    time.Duration
	size   int
	clock  quartz.Clock
	logger *slog.Logger
}

// WithCacheTTL sets how long a response stays fresh. Default 60s.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(o *cacheOptions) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithCacheSize sets the in-process LRU capacity. Default 128.
func WithCacheSize(n int) CacheOption {
	return func(o *cacheOptions) {
		if n > 0 {
			o.size = n
		}
	}
}

func WithCacheClock(c quartz.Clock) CacheOption {
	return func(o *cacheOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

func WithCacheLogger(l *slog.Logger) CacheOption {
	return func(o *cacheOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewCacheTransport wraps next. A nil store keeps responses in memory only;
// a nil next selects http.DefaultTransport.
func NewCacheTransport(next http.RoundTripper, store storage.Storage, opts ...CacheOption) *CacheTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	o := &cacheOptions{
		ttl:    defaultCacheTTL,
		size:   defaultCacheSize,
		clock:  quartz.NewReal(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	return &CacheTransport{
		next:   next,
		store:  store,
		lru:    cache.NewLRUCache[string, *record](o.size, cache.WithTTL(o.ttl), cache.WithClock(o.clock)),
		ttl:    o.ttl,
		clock:  o.clock,
		logger: o.logger,
	}
}

// CacheKey identifies a request by method, URL and environment key, so two
// environments sharing a storage never see each other's flags.
func CacheKey(req *http.Request) string {
	h := sha256.New()
	_, _ = io.WriteString(h, req.Method)
	_, _ = io.WriteString(h, "\n")
	_, _ = io.WriteString(h, req.URL.String())
	_, _ = io.WriteString(h, "\n")
	_, _ = io.WriteString(h, req.Header.Get("X-Environment-Key"))
	return CacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (t *CacheTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return t.next.RoundTrip(req)
	}

	ctx := req.Context()
	key := CacheKey(req)

	if rec, ok := t.lookup(ctx, key); ok {
		return rec.response(req, "HIT"), nil
	}

	v, err, _ := t.group.Do(key, func() (any, error) {
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		rec := &record{
			Status:   resp.StatusCode,
			Header:   resp.Header.Clone(),
			Body:     body,
			StoredAt: t.clock.Now(),
		}
		if resp.StatusCode == http.StatusOK {
			t.save(ctx, key, rec)
		}
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*record).response(req, "MISS"), nil
}

// Invalidate drops key from both cache levels.
func (t *CacheTransport) Invalidate(ctx context.Context, key string) error {
	t.lru.Remove(key)
	if t.store == nil {
		return nil
	}
	return t.store.Delete(ctx, key)
}

func (t *CacheTransport) lookup(ctx context.Context, key string) (*record, bool) {
	if rec, ok := t.lru.Get(key); ok {
		return rec, true
	}
	if t.store == nil {
		return nil, false
	}

	data, err := t.store.Get(ctx, key)
	if err != nil {
		t.logger.WarnContext(ctx, "response cache read failed", logger.Error(err))
		return nil, false
	}
	if data == nil {
		return nil, false
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		t.logger.WarnContext(ctx, "response cache record dropped", logger.Error(errors.Join(ErrCacheRecord, err)))
		return nil, false
	}
	remaining := t.ttl - t.clock.Since(rec.StoredAt)
	if remaining <= 0 {
		return nil, false
	}
	t.lru.PutWithTTL(key, &rec, remaining)
	return &rec, true
}

func (t *CacheTransport) save(ctx context.Context, key string, rec *record) {
	t.lru.Put(key, rec)
	if t.store == nil {
		return
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.logger.WarnContext(ctx, "response cache encode failed", logger.Error(err))
		return
	}
	if err := t.store.Set(ctx, key, data); err != nil {
		t.logger.WarnContext(ctx, "response cache write failed", logger.Error(err))
	}
}
