// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"
)

const (
	// nebiusPollInterval is the delay between operation status checks.
	nebiusPollInterval = time.Second

	// nebiusMaxPollAttempts bounds the polling loop at roughly one minute.
	nebiusMaxPollAttempts = 60

	// NebiusKeySetting is the settings-store key holding the global
	// fallback API key when no environment secret is configured.
	NebiusKeySetting = "nebius_api_key"
)

// KeyStore resolves a named setting, returning the fallback when the key
// is absent. The database-backed settings store satisfies this.
type KeyStore interface {
	Get(key, fallback string) (string, error)
}

// nebiusProvider drives the Nebius asynchronous generation API: each image
// is submitted as a job, then its operation is polled once per second
// until it reports done, fails, or times out.
type nebiusProvider struct {
	apiKey       string // environment-provided secret; may be empty
	keys         KeyStore
	baseURL      string
	opsURL       string
	client       *http.Client
	pollInterval time.Duration
	maxAttempts  int
}

// NewNebiusProvider creates the Nebius adapter. apiKey may be empty, in
// which case the global key stored in keys is used; having neither is a
// fatal configuration error at generation time. opsURL defaults to baseURL.
func NewNebiusProvider(apiKey string, keys KeyStore, baseURL, opsURL string) ImageProvider {
	if baseURL == "" {
		baseURL = "https://api.studio.nebius.ai/v1"
	}
	if opsURL == "" {
		opsURL = baseURL
	}
	return &nebiusProvider{
		apiKey:       apiKey,
		keys:         keys,
		baseURL:      strings.TrimRight(baseURL, "/"),
		opsURL:       strings.TrimRight(opsURL, "/"),
		client:       &http.Client{Timeout: 30 * time.Second},
		pollInterval: nebiusPollInterval,
		maxAttempts:  nebiusMaxPollAttempts,
	}
}

func (p *nebiusProvider) Name() string { return "nebius" }

// GenerateImages submits one async job per requested image and polls each
// to completion. Per-image failures are isolated when more than one image
// was requested; a single-image failure propagates. At least one produced
// image makes the call a success.
func (p *nebiusProvider) GenerateImages(ctx context.Context, req GenerationRequest) ([]string, error) {
	key, err := p.resolveKey()
	if err != nil {
		return nil, err
	}

	count := req.ImageCount
	if count > MaxImageCount {
		count = MaxImageCount
	}

	width, height := nebiusDimensions(req.AspectRatio)

	var urls []string
	for i := 0; i < count; i++ {
		url, err := p.generateOne(ctx, key, req.Prompt, width, height)
		if err != nil {
			if count == 1 {
				return nil, err
			}
			// Partial failure tolerated for multi-image batches.
			slog.Warn("nebius image failed", "index", i, "error", err)
			continue
		}
		urls = append(urls, url)
	}

	if len(urls) == 0 {
		return nil, fmt.Errorf("nebius: failed to generate any images")
	}
	return urls, nil
}

// generateOne submits a single job and polls its operation until done.
func (p *nebiusProvider) generateOne(ctx context.Context, key, prompt string, width, height int) (string, error) {
	opID, err := p.submit(ctx, key, prompt, width, height)
	if err != nil {
		return "", err
	}

	var imageURL string
	err = Poll(ctx, p.pollInterval, p.maxAttempts, func(ctx context.Context) (bool, error) {
		op, err := p.operation(ctx, key, opID)
		if err != nil {
			return false, err
		}
		if !op.Done {
			return false, nil
		}
		if op.Error != "" {
			return false, fmt.Errorf("nebius operation failed: %s", op.Error)
		}
		if op.Response == nil || op.Response.Image == "" {
			return false, fmt.Errorf("nebius: operation finished without image data")
		}
		imageURL = dataURL(op.Response.Image)
		return true, nil
	})
	if err != nil {
		return "", fmt.Errorf("nebius: %w", err)
	}
	return imageURL, nil
}

// submit creates an async generation job and returns the operation id.
func (p *nebiusProvider) submit(ctx context.Context, key, prompt string, width, height int) (string, error) {
	body := nebiusSubmitRequest{
		Prompt: prompt,
		Width:  width,
		Height: height,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("nebius marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/images/generations", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("nebius request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("nebius http: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("nebius read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("nebius API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result nebiusSubmitResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("nebius unmarshal: %w", err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("nebius: submit returned no operation id")
	}
	return result.ID, nil
}

// operation fetches the current status of an async generation job.
func (p *nebiusProvider) operation(ctx context.Context, key, id string) (*nebiusOperation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.opsURL+"/operations/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("nebius operation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nebius operation http: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("nebius operation read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nebius operation error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var op nebiusOperation
	if err := json.Unmarshal(respBody, &op); err != nil {
		return nil, fmt.Errorf("nebius operation unmarshal: %w", err)
	}
	return &op, nil
}

// resolveKey returns the environment-provided secret, falling back to the
// global key in the settings store. Absence of both is a configuration
// error, not a transient failure.
func (p *nebiusProvider) resolveKey() (string, error) {
	if p.apiKey != "" {
		return p.apiKey, nil
	}
	if p.keys != nil {
		key, err := p.keys.Get(NebiusKeySetting, "")
		if err != nil {
			return "", fmt.Errorf("nebius key lookup: %w", err)
		}
		if key != "" {
			return key, nil
		}
	}
	return "", fmt.Errorf("nebius: API key is not configured (set NEBIUS_API_KEY or the %s setting)", NebiusKeySetting)
}

// nebiusDimensions converts the named aspect ratio into job dimensions.
// The ratio is applied to a fixed pixel budget so all ratios cost the
// provider roughly the same; unrecognized names default to square (1.0).
func nebiusDimensions(name string) (width, height int) {
	ratio := ratioValue(name)
	if ratio == 0 {
		ratio = 1.0
	}
	const budget = 1024 * 1024
	w := math.Sqrt(float64(budget) * ratio)
	// Round to multiples of 64, which the API requires.
	width = int(math.Round(w/64)) * 64
	height = int(math.Round(w/ratio/64)) * 64
	return width, height
}

// dataURL wraps base64 image bytes as a data URL unless they already are one.
func dataURL(b64 string) string {
	if strings.HasPrefix(b64, "data:") {
		return b64
	}
	return "data:image/png;base64," + b64
}

// --- Nebius API types ---

type nebiusSubmitRequest struct {
	Prompt string `json:"prompt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type nebiusSubmitResponse struct {
	ID string `json:"id"`
}

type nebiusOperation struct {
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
	Response *struct {
		Image string `json:"image"`
	} `json:"response,omitempty"`
}
