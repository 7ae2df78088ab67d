// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// mapKeyStore is an in-memory KeyStore for tests.
type mapKeyStore map[string]string

func (m mapKeyStore) Get(key, fallback string) (string, error) {
	if v, ok := m[key]; ok {
		return v, nil
	}
	return fallback, nil
}

// ===== OpenAI remote function =====

func TestOpenAI_GeneratesFromImageUrls(t *testing.T) {
	var gotBody remoteImageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/functions/v1/generate-image" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer session" {
			t.Errorf("Authorization: got %q", auth)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"imageUrls": []string{"https://img/1.png", "https://img/2.png"},
		})
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "", StaticToken("session"))
	urls, err := p.GenerateImages(context.Background(), GenerationRequest{
		Prompt:      "a fox in watercolor",
		AspectRatio: "16:9",
		ImageCount:  2,
	})
	if err != nil {
		t.Fatalf("GenerateImages: %v", err)
	}
	if len(urls) != 2 || urls[0] != "https://img/1.png" {
		t.Errorf("urls: got %v", urls)
	}
	if gotBody.Prompt != "a fox in watercolor" {
		t.Errorf("prompt: got %q", gotBody.Prompt)
	}
	if gotBody.ImageDimensions != "1792x1024" {
		t.Errorf("imageDimensions: got %q, want 1792x1024", gotBody.ImageDimensions)
	}
	if gotBody.NumberOfImages != 2 {
		t.Errorf("numberOfImages: got %d", gotBody.NumberOfImages)
	}
}

func TestOpenAI_ResponseShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"imageUrl string", `{"imageUrl":"https://img/a.png"}`, []string{"https://img/a.png"}},
		{"imageUrl array", `{"imageUrl":["https://img/a.png","https://img/b.png"]}`, []string{"https://img/a.png", "https://img/b.png"}},
		{"images", `{"images":["https://img/c.png"]}`, []string{"https://img/c.png"}},
		{"imageUrls wins", `{"imageUrls":["https://img/x.png"],"images":["https://img/y.png"]}`, []string{"https://img/x.png"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			p := NewOpenAIProvider(srv.URL, "", StaticToken("session"))
			urls, err := p.GenerateImages(context.Background(), GenerationRequest{
				Prompt: "p", AspectRatio: "1:1", ImageCount: 1,
			})
			if err != nil {
				t.Fatalf("GenerateImages: %v", err)
			}
			if len(urls) != len(tt.want) {
				t.Fatalf("urls: got %v, want %v", urls, tt.want)
			}
			for i := range urls {
				if urls[i] != tt.want[i] {
					t.Errorf("urls[%d]: got %q, want %q", i, urls[i], tt.want[i])
				}
			}
		})
	}
}

func TestOpenAI_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":"Rate limit exceeded for gpt-image-1"}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "", StaticToken("session"))
	_, err := p.GenerateImages(context.Background(), GenerationRequest{
		Prompt: "p", AspectRatio: "1:1", ImageCount: 1,
	})
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	if !strings.Contains(err.Error(), "status 429") || !strings.Contains(err.Error(), "Rate limit exceeded") {
		t.Errorf("error should carry status and API message: %v", err)
	}
}

func TestOpenAI_EmptyImageListIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"imageUrls":[]}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "", StaticToken("session"))
	_, err := p.GenerateImages(context.Background(), GenerationRequest{
		Prompt: "p", AspectRatio: "1:1", ImageCount: 1,
	})
	if err == nil || !strings.Contains(err.Error(), "no images were generated") {
		t.Errorf("expected no-images error, got %v", err)
	}
}

func TestOpenAI_NoSession(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "", StaticToken(""))
	_, err := p.GenerateImages(context.Background(), GenerationRequest{
		Prompt: "p", AspectRatio: "1:1", ImageCount: 1,
	})
	if err == nil || !strings.Contains(err.Error(), "no active session") {
		t.Errorf("expected no-session error, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Error("request should not reach the network without a session")
	}
}

// ===== Nebius =====

// nebiusTestServer runs submit + operations endpoints. finishAfter is the
// number of status checks before an operation reports done.
func nebiusTestServer(t *testing.T, finishAfter int, opError string, image string) (*httptest.Server, *int32) {
	t.Helper()
	var polls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/images/generations", func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); !strings.HasPrefix(auth, "Bearer ") {
			t.Errorf("submit Authorization: got %q", auth)
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "op-123"})
	})
	mux.HandleFunc("/operations/", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&polls, 1)
		if int(n) < finishAfter {
			json.NewEncoder(w).Encode(map[string]any{"done": false})
			return
		}
		resp := map[string]any{"done": true}
		if opError != "" {
			resp["error"] = opError
		} else {
			resp["response"] = map[string]string{"image": image}
		}
		json.NewEncoder(w).Encode(resp)
	})
	return httptest.NewServer(mux), &polls
}

// fastNebius builds a provider against srv with a millisecond poll loop.
func fastNebius(srv *httptest.Server, apiKey string, keys KeyStore) *nebiusProvider {
	p := NewNebiusProvider(apiKey, keys, srv.URL, srv.URL).(*nebiusProvider)
	p.pollInterval = time.Millisecond
	p.maxAttempts = 5
	return p
}

func TestNebius_SubmitAndPoll(t *testing.T) {
	srv, polls := nebiusTestServer(t, 3, "", "aGVsbG8=")
	defer srv.Close()

	p := fastNebius(srv, "env-key", nil)
	urls, err := p.GenerateImages(context.Background(), GenerationRequest{
		Prompt: "p", AspectRatio: "1:1", ImageCount: 1,
	})
	if err != nil {
		t.Fatalf("GenerateImages: %v", err)
	}
	if len(urls) != 1 {
		t.Fatalf("urls: got %v", urls)
	}
	if urls[0] != "data:image/png;base64,aGVsbG8=" {
		t.Errorf("url: got %q, want data URL", urls[0])
	}
	if got := atomic.LoadInt32(polls); got != 3 {
		t.Errorf("status checks: got %d, want 3", got)
	}
}

func TestNebius_OperationError(t *testing.T) {
	srv, _ := nebiusTestServer(t, 1, "content policy violation", "")
	defer srv.Close()

	p := fastNebius(srv, "env-key", nil)
	_, err := p.GenerateImages(context.Background(), GenerationRequest{
		Prompt: "p", AspectRatio: "1:1", ImageCount: 1,
	})
	if err == nil || !strings.Contains(err.Error(), "content policy violation") {
		t.Errorf("expected operation error, got %v", err)
	}
}

func TestNebius_PollTimesOut(t *testing.T) {
	// Operation never finishes; the loop must give up after maxAttempts.
	srv, polls := nebiusTestServer(t, 1000, "", "")
	defer srv.Close()

	p := fastNebius(srv, "env-key", nil)
	_, err := p.GenerateImages(context.Background(), GenerationRequest{
		Prompt: "p", AspectRatio: "1:1", ImageCount: 1,
	})
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout error, got %v", err)
	}
	if got := atomic.LoadInt32(polls); got != 5 {
		t.Errorf("status checks: got %d, want 5", got)
	}
}

func TestNebius_SingleImageFailurePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "boom")
	}))
	defer srv.Close()

	p := fastNebius(srv, "env-key", nil)
	_, err := p.GenerateImages(context.Background(), GenerationRequest{
		Prompt: "p", AspectRatio: "1:1", ImageCount: 1,
	})
	if err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Errorf("single-image failure should propagate the cause, got %v", err)
	}
}

func TestNebius_MultiImagePartialFailure(t *testing.T) {
	// First submit fails, subsequent ones succeed: the batch still succeeds
	// with the images that worked.
	var submits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/images/generations", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&submits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "op-ok"})
	})
	mux.HandleFunc("/operations/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"done":     true,
			"response": map[string]string{"image": "aGVsbG8="},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := fastNebius(srv, "env-key", nil)
	urls, err := p.GenerateImages(context.Background(), GenerationRequest{
		Prompt: "p", AspectRatio: "1:1", ImageCount: 3,
	})
	if err != nil {
		t.Fatalf("GenerateImages: %v", err)
	}
	if len(urls) != 2 {
		t.Errorf("urls: got %d, want 2 (one submit failed)", len(urls))
	}
}

func TestNebius_AllImagesFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := fastNebius(srv, "env-key", nil)
	_, err := p.GenerateImages(context.Background(), GenerationRequest{
		Prompt: "p", AspectRatio: "1:1", ImageCount: 2,
	})
	if err == nil || !strings.Contains(err.Error(), "failed to generate any images") {
		t.Errorf("expected batch failure error, got %v", err)
	}
}

func TestNebius_KeyFromStore(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/images/generations", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]string{"id": "op-1"})
	})
	mux.HandleFunc("/operations/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"done":     true,
			"response": map[string]string{"image": "aGVsbG8="},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	keys := mapKeyStore{NebiusKeySetting: "stored-key"}
	p := fastNebius(srv, "", keys)
	_, err := p.GenerateImages(context.Background(), GenerationRequest{
		Prompt: "p", AspectRatio: "1:1", ImageCount: 1,
	})
	if err != nil {
		t.Fatalf("GenerateImages: %v", err)
	}
	if gotAuth != "Bearer stored-key" {
		t.Errorf("Authorization: got %q, want stored key", gotAuth)
	}
}

func TestNebius_EnvKeyWinsOverStore(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/images/generations", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]string{"id": "op-1"})
	})
	mux.HandleFunc("/operations/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"done":     true,
			"response": map[string]string{"image": "aGVsbG8="},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	keys := mapKeyStore{NebiusKeySetting: "stored-key"}
	p := fastNebius(srv, "env-key", keys)
	p.GenerateImages(context.Background(), GenerationRequest{
		Prompt: "p", AspectRatio: "1:1", ImageCount: 1,
	})
	if gotAuth != "Bearer env-key" {
		t.Errorf("Authorization: got %q, want env key", gotAuth)
	}
}

func TestNebius_NoKeyConfigured(t *testing.T) {
	p := NewNebiusProvider("", mapKeyStore{}, "https://example.invalid", "")
	_, err := p.GenerateImages(context.Background(), GenerationRequest{
		Prompt: "p", AspectRatio: "1:1", ImageCount: 1,
	})
	if err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestNebius_DataURLPassthrough(t *testing.T) {
	already := "data:image/jpeg;base64,xyz"
	if got := dataURL(already); got != already {
		t.Errorf("dataURL should not re-wrap: got %q", got)
	}
	if got := dataURL("xyz"); got != "data:image/png;base64,xyz" {
		t.Errorf("dataURL: got %q", got)
	}
}

func TestNebius_Dimensions(t *testing.T) {
	tests := []struct {
		ratio  string
		width  int
		height int
	}{
		{"1:1", 1024, 1024},
		{"unknown", 1024, 1024},
	}
	for _, tt := range tests {
		w, h := nebiusDimensions(tt.ratio)
		if w != tt.width || h != tt.height {
			t.Errorf("nebiusDimensions(%q): got %dx%d, want %dx%d", tt.ratio, w, h, tt.width, tt.height)
		}
	}

	// Wide and tall ratios keep multiples of 64 and the right orientation.
	w, h := nebiusDimensions("16:9")
	if w%64 != 0 || h%64 != 0 || w <= h {
		t.Errorf("nebiusDimensions(16:9): got %dx%d", w, h)
	}
	w, h = nebiusDimensions("9:16")
	if w%64 != 0 || h%64 != 0 || w >= h {
		t.Errorf("nebiusDimensions(9:16): got %dx%d", w, h)
	}
}

// ===== RenderNet =====

func TestRenderNet_GeneratesPerImage(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get("X-API-KEY"); key != "rn-key" {
			t.Errorf("X-API-KEY: got %q", key)
		}
		n := atomic.AddInt32(&hits, 1)
		json.NewEncoder(w).Encode(map[string]string{
			"image_url": fmt.Sprintf("https://rn/%d.png", n),
		})
	}))
	defer srv.Close()

	p := NewRenderNetProvider("rn-key", srv.URL)
	urls, err := p.GenerateImages(context.Background(), GenerationRequest{
		Prompt: "p", AspectRatio: "1:1", ImageCount: 3,
	})
	if err != nil {
		t.Fatalf("GenerateImages: %v", err)
	}
	if len(urls) != 3 {
		t.Errorf("urls: got %d, want 3", len(urls))
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Errorf("requests: got %d, want 3 (one per image)", hits)
	}
}

func TestRenderNet_OutputURLFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"output_url": "https://rn/out.png"})
	}))
	defer srv.Close()

	p := NewRenderNetProvider("rn-key", srv.URL)
	urls, err := p.GenerateImages(context.Background(), GenerationRequest{
		Prompt: "p", AspectRatio: "1:1", ImageCount: 1,
	})
	if err != nil {
		t.Fatalf("GenerateImages: %v", err)
	}
	if len(urls) != 1 || urls[0] != "https://rn/out.png" {
		t.Errorf("urls: got %v", urls)
	}
}

func TestRenderNet_PartialFailureSkipped(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"image_url": "https://rn/ok.png"})
	}))
	defer srv.Close()

	p := NewRenderNetProvider("rn-key", srv.URL)
	urls, err := p.GenerateImages(context.Background(), GenerationRequest{
		Prompt: "p", AspectRatio: "1:1", ImageCount: 2,
	})
	if err != nil {
		t.Fatalf("GenerateImages: %v", err)
	}
	if len(urls) != 1 {
		t.Errorf("urls: got %d, want 1", len(urls))
	}
}

func TestRenderNet_NoKey(t *testing.T) {
	p := NewRenderNetProvider("", "https://example.invalid")
	_, err := p.GenerateImages(context.Background(), GenerationRequest{
		Prompt: "p", AspectRatio: "1:1", ImageCount: 1,
	})
	if err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Errorf("expected configuration error, got %v", err)
	}
}
