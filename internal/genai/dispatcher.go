// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package genai

import (
	"context"
	"fmt"
	"log/slog"
)

// placeholderURL is the emergency image shown when every provider fails,
// so the UI always has something to render alongside the error message.
const placeholderURL = "https://placehold.co/1024x1024/0f172a/e2e8f0?text=Image+unavailable"

// Dispatcher runs a generation request through an ordered list of provider
// strategies. The primary remote function is tried first when the cached
// availability probe says it is reachable; on any failure the request
// falls through to the fallback chain. Total failure resolves to a
// placeholder result with a classified error — Generate never returns an
// error and never panics.
type Dispatcher struct {
	prober       *Prober
	endpointBase string
	functionName string
	primary      ImageProvider
	fallbacks    []ImageProvider
}

// NewDispatcher assembles the dispatch chain. primary is the probe-gated
// remote function adapter; fallbacks are tried in the given order (the
// request's Provider field can promote one of them to the front).
func NewDispatcher(prober *Prober, endpointBase, functionName string, primary ImageProvider, fallbacks ...ImageProvider) *Dispatcher {
	if functionName == "" {
		functionName = "generate-image"
	}
	return &Dispatcher{
		prober:       prober,
		endpointBase: endpointBase,
		functionName: functionName,
		primary:      primary,
		fallbacks:    fallbacks,
	}
}

// Generate runs the request to a GenerationResult. All failure paths
// resolve to a value; the caller can always render the result.
func (d *Dispatcher) Generate(ctx context.Context, req GenerationRequest) GenerationResult {
	if err := req.Validate(); err != nil {
		return GenerationResult{
			Success:  false,
			Error:    Classify(err, ""),
			Provider: "none",
		}
	}

	var lastErr error
	var lastProvider string

	for _, p := range d.strategies(ctx, req) {
		urls, err := p.GenerateImages(ctx, req)
		if err == nil {
			return GenerationResult{
				Success:   true,
				ImageURLs: urls,
				Provider:  p.Name(),
			}
		}

		slog.Warn("provider failed, falling through",
			"provider", p.Name(),
			"error", err,
		)
		lastErr = err
		lastProvider = p.Name()
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no image providers are configured")
	}

	// Emergency fallback: one placeholder per requested image, so the
	// caller never receives an unhandled empty state.
	placeholders := make([]string, req.ImageCount)
	for i := range placeholders {
		placeholders[i] = placeholderURL
	}

	return GenerationResult{
		Success:   false,
		ImageURLs: placeholders,
		Error:     Classify(lastErr, lastProvider),
		Provider:  "placeholder",
	}
}

// ClearProbeCache drops cached availability verdicts. Exposed for the
// admin endpoint used right after redeploying the remote function.
func (d *Dispatcher) ClearProbeCache() {
	if d.prober != nil {
		d.prober.ClearCache()
	}
}

// strategies builds the ordered provider list for one request: the
// probe-gated primary, then the preferred fallback, then the rest of the
// chain in registration order. Adding or removing a provider only touches
// the chain passed to NewDispatcher.
func (d *Dispatcher) strategies(ctx context.Context, req GenerationRequest) []ImageProvider {
	var order []ImageProvider

	if d.primary != nil && d.prober != nil &&
		d.prober.Probe(ctx, d.endpointBase, d.functionName) {
		order = append(order, d.primary)
	}

	preferred := req.Provider
	if preferred == "" {
		preferred = "openai"
	}

	for _, p := range d.fallbacks {
		if p.Name() == preferred {
			order = append(order, p)
		}
	}
	for _, p := range d.fallbacks {
		if p.Name() != preferred {
			order = append(order, p)
		}
	}

	return order
}
