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
	"net/http"
	"time"
)

// openAIProvider calls the OpenAI-backed remote generation function. The
// function accepts a prompt plus image dimensions and responds with one of
// several historical payload shapes, all of which are accepted here.
type openAIProvider struct {
	endpointBase string
	functionName string
	token        TokenSource
	client       *http.Client
}

// NewOpenAIProvider creates the adapter for the remote OpenAI generation
// function hosted at endpointBase.
func NewOpenAIProvider(endpointBase, functionName string, token TokenSource) ImageProvider {
	if functionName == "" {
		functionName = "generate-image"
	}
	return &openAIProvider{
		endpointBase: endpointBase,
		functionName: functionName,
		token:        token,
		client:       &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *openAIProvider) Name() string { return "openai" }

// GenerateImages performs a single POST to the remote function and
// normalizes whichever response shape it returns. An empty image list in a
// 2xx response is an error.
func (p *openAIProvider) GenerateImages(ctx context.Context, req GenerationRequest) ([]string, error) {
	token, err := p.token.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("openai token: %w", err)
	}
	if token == "" {
		return nil, fmt.Errorf("openai: no active session")
	}

	fnURL, ok := functionURL(p.endpointBase, p.functionName)
	if !ok {
		return nil, fmt.Errorf("openai: malformed endpoint %q", p.endpointBase)
	}

	width, height := dimensions(req.AspectRatio)
	body := remoteImageRequest{
		Prompt:          req.Prompt,
		ImageDimensions: fmt.Sprintf("%dx%d", width, height),
		NumberOfImages:  req.ImageCount,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("openai marshal: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, fnURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("openai request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai http: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, errResp.Error)
		}
		return nil, fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result remoteImageResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("openai unmarshal: %w", err)
	}

	urls := result.urls()
	if len(urls) == 0 {
		return nil, fmt.Errorf("openai: no images were generated")
	}
	return urls, nil
}

// --- Remote function request/response types ---

type remoteImageRequest struct {
	Prompt          string `json:"prompt"`
	ImageDimensions string `json:"imageDimensions"`
	NumberOfImages  int    `json:"numberOfImages"`
	Style           string `json:"style,omitempty"`
}

// remoteImageResponse accepts the three payload shapes the function has
// used over time: {imageUrls:[...]}, {imageUrl:"..."} (or an array under
// the same key), and {images:[...]}.
type remoteImageResponse struct {
	ImageURLs []string        `json:"imageUrls"`
	ImageURL  json.RawMessage `json:"imageUrl"`
	Images    []string        `json:"images"`
}

// urls returns the first matching shape's image list.
func (r *remoteImageResponse) urls() []string {
	if len(r.ImageURLs) > 0 {
		return r.ImageURLs
	}
	if len(r.ImageURL) > 0 {
		var single string
		if json.Unmarshal(r.ImageURL, &single) == nil && single != "" {
			return []string{single}
		}
		var many []string
		if json.Unmarshal(r.ImageURL, &many) == nil && len(many) > 0 {
			return many
		}
	}
	if len(r.Images) > 0 {
		return r.Images
	}
	return nil
}
