// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package world is the HTTP client of the host world server. It implements
// the session registry, inventory, reputation, notification and catalog
// ports of the reward engine.
package world

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/ManuGH/playreward/internal/cache"
	"github.com/ManuGH/playreward/internal/domain/reward/model"
	"github.com/ManuGH/playreward/internal/domain/reward/ports"
	"github.com/ManuGH/playreward/internal/log"
	"github.com/ManuGH/playreward/internal/metrics"
)

const (
	DefaultTimeout  = 5 * time.Second
	DefaultCacheTTL = 10 * time.Minute

	maxErrorBody = 256
)

// Options configures a Client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit int // requests per second, 0 disables limiting
	RateBurst int
	Cache     cache.Cache
	CacheTTL  time.Duration

	BreakerThreshold int
	BreakerReset     time.Duration

	// HTTPClient overrides the default instrumented client.
	HTTPClient *http.Client
}

// Client talks to the host world server.
type Client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
	breaker *CircuitBreaker
	cache   cache.Cache
	ttl     time.Duration
	lookups singleflight.Group
	logger  zerolog.Logger
}

var _ ports.World = (*Client)(nil)

// New validates opts and builds a client.
func New(opts Options) (*Client, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("world: invalid base url %q", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewMemoryCache(time.Minute)
	}
	if opts.BreakerReset <= 0 {
		opts.BreakerReset = 10 * time.Second
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.RateBurst
	if burst <= 0 {
		burst = max(opts.RateLimit, 1)
	}

	return &Client{
		base:    strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
		limiter: rate.NewLimiter(limit, burst),
		breaker: NewCircuitBreaker(opts.BreakerThreshold, opts.BreakerReset),
		cache:   opts.Cache,
		ttl:     opts.CacheTTL,
		logger:  log.WithComponent("world"),
	}, nil
}

// Breaker exposes the circuit breaker state for health reporting.
func (c *Client) Breaker() BreakerState { return c.breaker.State() }

func (c *Client) ActiveSessions(ctx context.Context) ([]model.Session, error) {
	var out struct {
		Sessions []sessionDTO `json:"sessions"`
	}
	if err := c.do(ctx, "sessions.list", http.MethodGet, "/api/sessions", nil, &out); err != nil {
		return nil, err
	}
	sessions := make([]model.Session, 0, len(out.Sessions))
	for _, s := range out.Sessions {
		sessions = append(sessions, s.model())
	}
	return sessions, nil
}

func (c *Client) Session(ctx context.Context, id model.SessionID) (model.Session, bool, error) {
	var out sessionDTO
	err := c.do(ctx, "sessions.get", http.MethodGet, sessionPath(id, ""), nil, &out)
	if errors.Is(err, ErrNotFound) {
		return model.Session{}, false, nil
	}
	if err != nil {
		return model.Session{}, false, err
	}
	return out.model(), true, nil
}

func (c *Client) CanStore(ctx context.Context, id model.SessionID, items []model.ItemGrant) (bool, error) {
	in := struct {
		Items []model.ItemGrant `json:"items"`
	}{Items: items}
	var out struct {
		Fits bool `json:"fits"`
	}
	if err := c.do(ctx, "items.check", http.MethodPost, sessionPath(id, "/items/check"), in, &out); err != nil {
		return false, err
	}
	return out.Fits, nil
}

func (c *Client) AddItem(ctx context.Context, id model.SessionID, item model.ItemGrant) error {
	return c.do(ctx, "items.add", http.MethodPost, sessionPath(id, "/items"), item, nil)
}

func (c *Client) SetReputation(ctx context.Context, id model.SessionID, grant model.ReputationGrant) error {
	return c.do(ctx, "reputation.set", http.MethodPost, sessionPath(id, "/reputation"), grant, nil)
}

func (c *Client) SendSystemText(ctx context.Context, id model.SessionID, text string) error {
	in := struct {
		Text string `json:"text"`
	}{Text: text}
	return c.do(ctx, "messages.send", http.MethodPost, sessionPath(id, "/messages"), in, nil)
}

// ItemTemplate looks an item up through the cache. Unknown items wrap
// model.ErrUnknownItem.
func (c *Client) ItemTemplate(ctx context.Context, itemID uint32) (model.ItemTemplate, error) {
	return lookup[model.ItemTemplate](ctx, c, "item", itemID, model.ErrUnknownItem)
}

// Faction looks a faction up through the cache. Unknown factions wrap
// model.ErrUnknownFaction.
func (c *Client) Faction(ctx context.Context, factionID uint32) (model.Faction, error) {
	return lookup[model.Faction](ctx, c, "faction", factionID, model.ErrUnknownFaction)
}

// lookup serves kind/id from the cache, collapsing concurrent misses into one
// request. Negative results are not cached.
func lookup[T any](ctx context.Context, c *Client, kind string, id uint32, notFound error) (T, error) {
	key := kind + ":" + strconv.FormatUint(uint64(id), 10)
	if v, ok := cache.GetJSON[T](ctx, c.cache, key); ok {
		metrics.IncWorldLookup(kind, true)
		return v, nil
	}
	metrics.IncWorldLookup(kind, false)

	v, err, _ := c.lookups.Do(key, func() (any, error) {
		var out T
		path := fmt.Sprintf("/api/%ss/%d", kind, id)
		if err := c.do(ctx, kind+".get", http.MethodGet, path, nil, &out); err != nil {
			var werr *Error
			if errors.As(err, &werr) && errors.Is(err, ErrNotFound) {
				werr.Err = notFound
			}
			return out, err
		}
		cache.SetJSON(ctx, c.cache, key, out, c.ttl)
		return out, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func sessionPath(id model.SessionID, suffix string) string {
	return "/api/sessions/" + strconv.FormatUint(uint64(id), 10) + suffix
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) (err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveWorldRequest(op, resultLabel(err), time.Since(start))
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Sentinel: ErrTimeout, Operation: op, Err: err}
	}
	if !c.breaker.Allow() {
		return &Error{Sentinel: ErrUnavailable, Operation: op, Err: ErrCircuitOpen}
	}
	defer func() {
		c.breaker.Record(err != nil && retryable(err))
	}()

	var body io.Reader
	if in != nil {
		raw, mErr := json.Marshal(in)
		if mErr != nil {
			return fmt.Errorf("world: %s: encode request: %w", op, mErr)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("world: %s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		sentinel := ErrUnavailable
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			sentinel = ErrTimeout
		}
		return &Error{Sentinel: sentinel, Operation: op, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return statusError(op, res)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &Error{Sentinel: ErrBadResponse, Operation: op, Status: res.StatusCode, Err: err}
	}
	return nil
}

func statusError(op string, res *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	e := &Error{Operation: op, Status: res.StatusCode, Body: strings.TrimSpace(string(raw))}
	switch {
	case res.StatusCode == http.StatusNotFound:
		e.Sentinel = ErrNotFound
	case res.StatusCode == http.StatusConflict:
		e.Sentinel = ErrRejected
		e.Err = ports.ErrInventoryFull
	case res.StatusCode >= 500:
		e.Sentinel = ErrUpstream
	default:
		e.Sentinel = ErrRejected
	}
	return e
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ports.ErrInventoryFull):
		return "inventory_full"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrUpstream):
		return "upstream_error"
	case errors.Is(err, ErrRejected):
		return "rejected"
	default:
		return "unavailable"
	}
}
