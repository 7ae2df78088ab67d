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
	"net/http"
	"strings"
	"time"
)

// renderNetProvider calls the RenderNet synchronous generation endpoint,
// one POST per requested image.
type renderNetProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewRenderNetProvider creates the RenderNet adapter.
func NewRenderNetProvider(apiKey, baseURL string) ImageProvider {
	if baseURL == "" {
		baseURL = "https://api.rendernet.ai/pub/v1"
	}
	return &renderNetProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

func (p *renderNetProvider) Name() string { return "rendernet" }

// GenerateImages issues one synchronous request per image. Per-image
// failures are logged and skipped; only a fully empty batch is an error.
func (p *renderNetProvider) GenerateImages(ctx context.Context, req GenerationRequest) ([]string, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("rendernet: API key is not configured")
	}

	count := req.ImageCount
	if count > MaxImageCount {
		count = MaxImageCount
	}

	width, height := dimensions(req.AspectRatio)

	var urls []string
	for i := 0; i < count; i++ {
		url, err := p.generateOne(ctx, req.Prompt, width, height)
		if err != nil {
			slog.Warn("rendernet image failed", "index", i, "error", err)
			continue
		}
		urls = append(urls, url)
	}

	if len(urls) == 0 {
		return nil, fmt.Errorf("rendernet: failed to generate any images")
	}
	return urls, nil
}

func (p *renderNetProvider) generateOne(ctx context.Context, prompt string, width, height int) (string, error) {
	body := renderNetRequest{
		Prompt: prompt,
		Width:  width,
		Height: height,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("rendernet marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/generations", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("rendernet request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("rendernet http: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("rendernet read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("rendernet API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result renderNetResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("rendernet unmarshal: %w", err)
	}

	// Older deployments return output_url instead of image_url.
	switch {
	case result.ImageURL != "":
		return result.ImageURL, nil
	case result.OutputURL != "":
		return result.OutputURL, nil
	}
	return "", fmt.Errorf("rendernet: no image url in response")
}

// --- RenderNet API types ---

type renderNetRequest struct {
	Prompt string `json:"prompt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type renderNetResponse struct {
	ImageURL  string `json:"image_url"`
	OutputURL string `json:"output_url"`
}
