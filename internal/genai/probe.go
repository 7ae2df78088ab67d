// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package genai

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	// DefaultProbeTTL is how long a probe verdict stays cached before the
	// next access triggers a fresh HTTP probe.
	DefaultProbeTTL = 30 * time.Second

	// DefaultProbeTimeout bounds the probe's HTTP round trip.
	DefaultProbeTimeout = 5 * time.Second
)

// Prober checks whether a remote generation function is reachable. The
// verdict is a deployment check, not a health check: any HTTP response,
// including error statuses, counts as available. Verdicts are cached per
// (endpoint, function) key with a fixed TTL so repeated dispatches don't
// re-probe the network.
type Prober struct {
	token   TokenSource
	client  *http.Client
	cache   *gocache.Cache
	timeout time.Duration
}

// NewProber creates a prober with the given token source. A zero ttl or
// timeout falls back to the defaults.
func NewProber(token TokenSource, ttl, timeout time.Duration) *Prober {
	if ttl == 0 {
		ttl = DefaultProbeTTL
	}
	if timeout == 0 {
		timeout = DefaultProbeTimeout
	}
	return &Prober{
		token:   token,
		client:  &http.Client{Timeout: timeout},
		cache:   gocache.New(ttl, 2*ttl),
		timeout: timeout,
	}
}

// Probe reports whether the named function at endpointBase is reachable.
// It never returns an error: no active session, a malformed URL, a network
// failure, or a timeout all read as "unavailable". Results are cached;
// repeated calls within the TTL issue at most one HTTP request.
func (p *Prober) Probe(ctx context.Context, endpointBase, functionName string) bool {
	key := endpointBase + "|" + functionName
	if v, ok := p.cache.Get(key); ok {
		return v.(bool)
	}

	available := p.probe(ctx, endpointBase, functionName)
	p.cache.SetDefault(key, available)
	return available
}

// ClearCache drops all cached verdicts. Intended for use right after a
// fresh function deployment, when stale "unavailable" verdicts would
// otherwise persist for a full TTL window.
func (p *Prober) ClearCache() {
	p.cache.Flush()
}

// probe performs the uncached reachability check.
func (p *Prober) probe(ctx context.Context, endpointBase, functionName string) bool {
	token, err := p.token.Token(ctx)
	if err != nil || token == "" {
		// No session means the remote function can't be called anyway.
		return false
	}

	probeURL, ok := functionURL(endpointBase, functionName)
	if !ok {
		slog.Debug("probe skipped: malformed endpoint", "endpoint", endpointBase)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, probeURL,
		bytes.NewReader([]byte(`{"test":true}`)))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Debug("probe failed", "function", functionName, "error", err)
		return false
	}
	resp.Body.Close()

	// Any response at all means the function is deployed. Error statuses
	// still count — the probe payload is not a valid generation request,
	// so a 4xx here is expected.
	slog.Debug("probe succeeded", "function", functionName, "status", resp.StatusCode)
	return true
}

// functionURL builds the invocation URL for a hosted function and
// validates that the endpoint base looks like an absolute HTTP(S) URL.
func functionURL(endpointBase, functionName string) (string, bool) {
	u, err := url.Parse(endpointBase)
	if err != nil {
		return "", false
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	if functionName == "" {
		return "", false
	}
	return strings.TrimRight(endpointBase, "/") + "/functions/v1/" + functionName, true
}
