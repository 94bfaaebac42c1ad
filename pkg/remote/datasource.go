package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/flagsmith/pkg/logger"
	"github.com/dmitrymomot/flagsmith/pkg/requestid"
)

const (
	// DefaultBaseURL is the Flagsmith edge API.
	DefaultBaseURL = "https://edge.api.flagsmith.com/api/v1/"
	// DefaultUserAgent is sent when no WithUserAgent option is given.
	DefaultUserAgent = "flagsmith-go-client/1.0"

	// Headers set on every request.
	HeaderEnvironmentKey = "X-Environment-Key"
	HeaderRequestID      = requestid.Header

	// maxErrorBody bounds how much of a failed response is kept for diagnostics.
	maxErrorBody = 64 << 10
)

// Relative endpoint paths.
const (
	PathIdentities = "identities/"
	PathFlags      = "flags/"
	PathTraits     = "traits/"
	PathAnalytics  = "analytics/flags/"
)

// Config holds what the data source needs to address the service.
type Config struct {
	BaseURL        string
	EnvironmentKey string
}

// DataSource performs the remote calls of the client. It does not retry;
// retries, caching and circuit breaking belong to the http.RoundTripper.
// Safe for concurrent use.
type DataSource struct {
	baseURL   *url.URL
	envKey    string
	client    *http.Client
	handler   ErrorHandler
	logger    *slog.Logger
	userAgent string
}

// Option configures a DataSource.
type Option func(*DataSource)

// WithHTTPClient sets the HTTP client, ignoring nil.
func WithHTTPClient(c *http.Client) Option {
	return func(d *DataSource) {
		if c != nil {
			d.client = c
		}
	}
}

// WithErrorHandler replaces the default classifying handler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(d *DataSource) {
		if h != nil {
			d.handler = h
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(d *DataSource) {
		if l != nil {
			d.logger = l
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(d *DataSource) {
		if ua != "" {
			d.userAgent = ua
		}
	}
}

// NewDataSource validates cfg and builds a DataSource.
// An empty BaseURL selects DefaultBaseURL.
func NewDataSource(cfg Config, opts ...Option) (*DataSource, error) {
	if strings.TrimSpace(cfg.EnvironmentKey) == "" {
		return nil, fmt.Errorf("%w: environment key is required", ErrInvalidArgument)
	}

	raw := cfg.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: base url: %w", ErrInvalidArgument, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("%w: base url must use http or https", ErrInvalidArgument)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("%w: base url host is required", ErrInvalidArgument)
	}
	// Endpoints resolve relative to the base, which needs a trailing slash.
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	d := &DataSource{
		baseURL:   base,
		envKey:    cfg.EnvironmentKey,
		client:    http.DefaultClient,
		logger:    slog.Default(),
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.handler == nil {
		d.handler = NewDefaultErrorHandler(d.logger)
	}
	return d, nil
}

// BaseURL returns the normalized base URL.
func (d *DataSource) BaseURL() string { return d.baseURL.String() }

// GetIdentityFlagsAndTraits fetches the flags and traits of one identity.
func (d *DataSource) GetIdentityFlagsAndTraits(ctx context.Context, identity string) (*IdentityFlagsAndTraits, error) {
	if identity == "" {
		return nil, fmt.Errorf("%w: identity is required", ErrInvalidArgument)
	}
	var out IdentityFlagsAndTraits
	q := url.Values{"identity": {identity}}
	if err := d.do(ctx, http.MethodGet, PathIdentities, q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetFlags fetches the environment flags.
func (d *DataSource) GetFlags(ctx context.Context) ([]Flag, error) {
	var out []Flag
	if err := d.do(ctx, http.MethodGet, PathFlags, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PostTraits upserts one trait and returns the service's echo.
func (d *DataSource) PostTraits(ctx context.Context, trait TraitWithIdentity) (*TraitWithIdentity, error) {
	if trait.Identity.Identifier == "" {
		return nil, fmt.Errorf("%w: identity is required", ErrInvalidArgument)
	}
	if trait.Key == "" {
		return nil, fmt.Errorf("%w: trait key is required", ErrInvalidArgument)
	}
	var out TraitWithIdentity
	if err := d.do(ctx, http.MethodPost, PathTraits, nil, trait, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PostAnalytics pushes aggregated flag evaluation counts.
// The acknowledgement body carries nothing useful and is discarded.
func (d *DataSource) PostAnalytics(ctx context.Context, counts map[string]int) error {
	if counts == nil {
		counts = map[string]int{}
	}
	return d.do(ctx, http.MethodPost, PathAnalytics, nil, counts, nil)
}

func (d *DataSource) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	callerID := requestid.FromContext(ctx)
	reqCtx, requestID := requestid.Ensure(ctx)
	start := time.Now()

	err := d.roundTrip(reqCtx, method, path, query, body, out, requestID)

	log := d.logger.With(
		slog.String("method", method),
		slog.String("path", path),
		logger.Duration(time.Since(start)),
	)
	if callerID != requestID {
		// A caller-supplied ID reaches the log through the context.
		log = log.With(logger.RequestID(requestID))
	}
	if err != nil {
		log.DebugContext(ctx, "flagsmith request failed", logger.Error(err))
		return d.handler.Handle(ctx, err)
	}
	log.DebugContext(ctx, "flagsmith request completed")
	return nil
}

func (d *DataSource) roundTrip(ctx context.Context, method, path string, query url.Values, body, out any, requestID string) error {
	ref := &url.URL{Path: path}
	if len(query) > 0 {
		ref.RawQuery = query.Encode()
	}
	target := d.baseURL.ResolveReference(ref)

	var reader io.Reader
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set(HeaderEnvironmentKey, d.envKey)
	req.Header.Set(HeaderRequestID, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: errBody}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
