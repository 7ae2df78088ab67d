// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package genai orchestrates image generation across multiple providers
// (an OpenAI-backed remote function, Nebius async jobs, RenderNet). The
// Dispatcher tries providers in order and always resolves to a
// GenerationResult value — total provider failure yields placeholder
// image URLs plus a classified, user-facing error message.
package genai

import (
	"context"
	"fmt"
	"strings"
)

// MaxImageCount is the upper bound on images per generation request.
const MaxImageCount = 4

// AspectRatios lists the aspect ratio names accepted in generation requests.
var AspectRatios = []string{"1:1", "16:9", "9:16", "4:3", "3:4"}

// GenerationRequest describes one image generation job. It is immutable
// once submitted to the dispatcher.
type GenerationRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio"`
	ImageCount  int    `json:"image_count"`

	// Provider optionally names the preferred fallback provider
	// ("openai", "nebius", "rendernet"). Empty means "openai".
	Provider string `json:"provider,omitempty"`
}

// Validate checks the request invariants. ImageCount outside 1..4 and an
// empty prompt are rejected before any provider is called.
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("genai: prompt must not be empty")
	}
	if r.ImageCount < 1 || r.ImageCount > MaxImageCount {
		return fmt.Errorf("genai: image count must be between 1 and %d", MaxImageCount)
	}
	if r.AspectRatio != "" && ratioValue(r.AspectRatio) == 0 {
		return fmt.Errorf("genai: unknown aspect ratio %q", r.AspectRatio)
	}
	return nil
}

// GenerationResult is the normalized outcome of a generation request.
// ImageURLs is ordered; it may hold fewer images than requested when the
// provider tolerates partial failure, but a successful result always holds
// at least one.
type GenerationResult struct {
	Success   bool     `json:"success"`
	ImageURLs []string `json:"image_urls"`
	Error     string   `json:"error,omitempty"`
	Provider  string   `json:"provider"`
}

// ImageProvider is implemented by each provider adapter. GenerateImages
// returns the generated image URLs (remote URLs or base64 data URLs) or an
// error; it never returns an empty slice with a nil error.
type ImageProvider interface {
	GenerateImages(ctx context.Context, req GenerationRequest) ([]string, error)

	// Name returns the provider identifier (e.g., "openai", "nebius").
	Name() string
}

// TokenSource supplies the bearer token for authenticated provider calls.
// An empty token means no active session.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource backed by a fixed string (e.g., a service
// key loaded from configuration).
type StaticToken string

// Token returns the static token value.
func (t StaticToken) Token(ctx context.Context) (string, error) {
	return string(t), nil
}

// ratioValue converts a named aspect ratio into a numeric width/height
// ratio. Unrecognized names map to 0 in Validate and to 1.0 (square) when
// a provider needs a usable default.
func ratioValue(name string) float64 {
	switch name {
	case "", "1:1":
		return 1.0
	case "16:9":
		return 16.0 / 9.0
	case "9:16":
		return 9.0 / 16.0
	case "4:3":
		return 4.0 / 3.0
	case "3:4":
		return 3.0 / 4.0
	}
	return 0
}

// dimensions maps a named aspect ratio onto concrete pixel dimensions
// used on the wire. Unrecognized ratios fall back to square.
func dimensions(name string) (width, height int) {
	switch name {
	case "16:9":
		return 1792, 1024
	case "9:16":
		return 1024, 1792
	case "4:3":
		return 1280, 960
	case "3:4":
		return 960, 1280
	}
	return 1024, 1024
}
