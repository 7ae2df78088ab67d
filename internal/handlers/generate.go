// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"promptforge/internal/cache"
	"promptforge/internal/genai"
	"promptforge/internal/imaging"
	"promptforge/internal/middleware"
	"promptforge/internal/models"
	"promptforge/internal/storage"
	"promptforge/internal/store"
)

// maxFetchBytes caps how much image data is pulled from a provider URL.
const maxFetchBytes = 20 << 20 // 20 MB

// Generate groups the image generation and image attachment handlers.
type Generate struct {
	dispatcher      *genai.Dispatcher
	generationStore *store.GenerationStore
	promptStore     *store.PromptStore
	gallery         *cache.GalleryCache
	storage         *storage.Client // nil when object storage is not configured
	httpClient      *http.Client
}

// NewGenerate creates a new Generate handler group.
func NewGenerate(dispatcher *genai.Dispatcher, generationStore *store.GenerationStore, promptStore *store.PromptStore, gallery *cache.GalleryCache, storageClient *storage.Client) *Generate {
	return &Generate{
		dispatcher:      dispatcher,
		generationStore: generationStore,
		promptStore:     promptStore,
		gallery:         gallery,
		storage:         storageClient,
		httpClient:      &http.Client{Timeout: 60 * time.Second},
	}
}

// Run executes one image generation request through the provider chain
// and records the outcome. The dispatcher always resolves to a result, so
// total provider failure still produces a generation record the client
// can render — placeholder images plus a user-facing error message.
func (g *Generate) Run(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	var req genai.GenerationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ImageCount == 0 {
		req.ImageCount = 1
	}
	if err := req.Validate(); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := g.dispatcher.Generate(r.Context(), req)

	// Re-host successful output in object storage so gallery images don't
	// depend on provider URL lifetimes. Failures fall back to the original
	// URL per image.
	urls := result.ImageURLs
	if result.Success && g.storage != nil {
		urls = g.storeImages(r.Context(), urls)
	}

	gen := &models.Generation{
		UserID:      sess.UserID,
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		ImageCount:  req.ImageCount,
		Provider:    result.Provider,
		ImageURLs:   urls,
		Status:      models.GenerationStatusSucceeded,
	}
	if !result.Success {
		gen.Status = models.GenerationStatusFailed
		gen.Error = &result.Error
	}

	created, err := g.generationStore.Create(gen)
	if err != nil {
		slog.Error("generation record failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	slog.Info("generation finished",
		"user", sess.Username,
		"provider", result.Provider,
		"success", result.Success,
		"images", len(urls),
	)

	response := map[string]any{
		"success":    result.Success,
		"generation": created,
	}
	if !result.Success {
		response["error"] = result.Error
	}
	writeJSON(w, http.StatusOK, response)
}

// History returns the authenticated user's recent generation runs.
func (g *Generate) History(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	gens, err := g.generationStore.ListByUser(sess.UserID, queryInt(r, "limit", 20))
	if err != nil {
		slog.Error("generation history failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"generations": gens})
}

// AttachImages links a finished generation's images to one of the user's
// prompts. Thumbnails are derived from the stored originals at attach time.
func (g *Generate) AttachImages(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	promptID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid prompt id")
		return
	}

	var req struct {
		GenerationID uuid.UUID `json:"generation_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prompt, err := g.promptStore.FindByID(promptID)
	if err != nil {
		slog.Error("prompt lookup failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if prompt == nil {
		jsonError(w, http.StatusNotFound, "prompt not found")
		return
	}
	if prompt.AuthorID != sess.UserID {
		jsonError(w, http.StatusForbidden, "not your prompt")
		return
	}

	gen, err := g.generationStore.FindByID(req.GenerationID)
	if err != nil {
		slog.Error("generation lookup failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if gen == nil || gen.UserID != sess.UserID {
		jsonError(w, http.StatusNotFound, "generation not found")
		return
	}
	if !gen.Succeeded() {
		jsonError(w, http.StatusBadRequest, "cannot attach images from a failed generation")
		return
	}

	existing, err := g.promptStore.Images(promptID)
	if err != nil {
		slog.Error("prompt images failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	var attached []models.PromptImage
	for i, url := range gen.ImageURLs {
		img, err := g.promptStore.AddImage(&models.PromptImage{
			PromptID:     promptID,
			GenerationID: gen.ID,
			URL:          url,
			ThumbnailURL: g.thumbnailFor(r.Context(), url),
			Position:     len(existing) + i,
		})
		if err != nil {
			slog.Error("attach image failed", "error", err)
			jsonError(w, http.StatusInternalServerError, "internal error")
			return
		}
		attached = append(attached, *img)
	}

	if prompt.IsPublished() && g.gallery != nil {
		g.gallery.InvalidateAll(r.Context())
	}

	writeJSON(w, http.StatusCreated, map[string]any{"images": attached})
}

// storeImages uploads generated images to object storage in parallel and
// returns their public URLs. Per-image failures keep the provider URL so a
// partial batch is never lost.
func (g *Generate) storeImages(ctx context.Context, urls []string) []string {
	batch := uuid.New().String()
	stored := make([]string, len(urls))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(4)

	for i, url := range urls {
		i, url := i, url
		eg.Go(func() error {
			data, contentType, err := g.fetchImage(ctx, url)
			if err != nil {
				slog.Warn("image fetch failed, keeping provider url", "error", err)
				stored[i] = url
				return nil
			}

			key := fmt.Sprintf("generations/%s/%d%s", batch, i+1, extFor(contentType))
			if err := g.storage.Upload(ctx, key, contentType, bytes.NewReader(data), int64(len(data))); err != nil {
				slog.Warn("image upload failed, keeping provider url", "error", err)
				stored[i] = url
				return nil
			}

			stored[i] = g.storage.FileURL(key)
			return nil
		})
	}
	eg.Wait()

	return stored
}

// fetchImage resolves an image URL to raw bytes. Providers return either
// base64 data URLs or plain HTTP URLs.
func (g *Generate) fetchImage(ctx context.Context, url string) ([]byte, string, error) {
	if strings.HasPrefix(url, "data:") {
		return decodeDataURL(url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, "", fmt.Errorf("fetch image body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

// thumbnailFor produces a thumbnail next to the stored original and
// returns its URL. Images outside our storage keep the full-size URL.
func (g *Generate) thumbnailFor(ctx context.Context, url string) string {
	if g.storage == nil {
		return url
	}
	key, ok := g.storage.ExtractS3Key(url)
	if !ok {
		return url
	}

	data, err := g.storage.Download(ctx, key)
	if err != nil {
		slog.Warn("thumbnail download failed", "key", key, "error", err)
		return url
	}

	thumb, err := imaging.Thumbnail(data)
	if err != nil {
		slog.Warn("thumbnail generation failed", "key", key, "error", err)
		return url
	}

	thumbKey := strings.TrimSuffix(key, path.Ext(key)) + "_thumb.jpg"
	if err := g.storage.Upload(ctx, thumbKey, thumb.ContentType, bytes.NewReader(thumb.Data), int64(len(thumb.Data))); err != nil {
		slog.Warn("thumbnail upload failed", "key", thumbKey, "error", err)
		return url
	}

	return g.storage.FileURL(thumbKey)
}

// decodeDataURL splits "data:<type>;base64,<payload>" into bytes and type.
func decodeDataURL(url string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(url, "data:")
	if !ok {
		return nil, "", fmt.Errorf("not a data url")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data url")
	}

	contentType, _, _ := strings.Cut(meta, ";")
	if contentType == "" {
		contentType = "image/png"
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, "", fmt.Errorf("data url is not base64 encoded")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data url: %w", err)
	}
	return data, contentType, nil
}

// extFor maps a content type onto a file extension for storage keys.
func extFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
