// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"promptforge/internal/cache"
	"promptforge/internal/markdown"
	"promptforge/internal/middleware"
	"promptforge/internal/models"
	"promptforge/internal/slug"
	"promptforge/internal/store"
)

// Prompts groups the prompt browsing and CRUD handlers.
type Prompts struct {
	promptStore *store.PromptStore
	userStore   *store.UserStore
	gallery     *cache.GalleryCache
}

// NewPrompts creates a new Prompts handler group.
func NewPrompts(promptStore *store.PromptStore, userStore *store.UserStore, gallery *cache.GalleryCache) *Prompts {
	return &Prompts{
		promptStore: promptStore,
		userStore:   userStore,
		gallery:     gallery,
	}
}

// galleryItem is one prompt card in the public gallery listing.
type galleryItem struct {
	models.Prompt
	Images []models.PromptImage `json:"images"`
}

// Gallery serves the public prompt listing with optional tag filter and
// offset pagination. Responses are cached in Valkey per (tag, page).
func (p *Prompts) Gallery(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	ctx := r.Context()
	key := cache.PageKey(tag, limit, offset)

	if p.gallery != nil {
		if body, ok := p.gallery.Get(ctx, key); ok {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Write(body)
			return
		}
	}

	prompts, err := p.promptStore.ListPublished(tag, limit, offset)
	if err != nil {
		slog.Error("gallery list failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// One image query per card. Pages are small and the serialized result
	// is cached, so this stays cheap.
	items := make([]galleryItem, 0, len(prompts))
	for _, pr := range prompts {
		images, err := p.promptStore.Images(pr.ID)
		if err != nil {
			slog.Error("gallery images failed", "prompt", pr.ID, "error", err)
			jsonError(w, http.StatusInternalServerError, "internal error")
			return
		}
		items = append(items, galleryItem{Prompt: pr, Images: images})
	}

	body, err := json.Marshal(map[string]any{
		"prompts": items,
		"limit":   limit,
		"offset":  offset,
	})
	if err != nil {
		slog.Error("gallery marshal failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if p.gallery != nil {
		p.gallery.Set(ctx, key, body)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write(body)
}

// Show serves one published prompt by slug, with its images, the author's
// public identity, and the description rendered to HTML.
func (p *Prompts) Show(w http.ResponseWriter, r *http.Request) {
	prompt, err := p.promptStore.FindBySlug(chi.URLParam(r, "slug"))
	if err != nil {
		slog.Error("prompt lookup failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if prompt == nil {
		jsonError(w, http.StatusNotFound, "prompt not found")
		return
	}

	images, err := p.promptStore.Images(prompt.ID)
	if err != nil {
		slog.Error("prompt images failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	descriptionHTML, err := markdown.ToHTML(prompt.Description)
	if err != nil {
		slog.Warn("description render failed", "prompt", prompt.ID, "error", err)
		descriptionHTML = ""
	}

	response := map[string]any{
		"prompt":           prompt,
		"images":           images,
		"description_html": descriptionHTML,
	}

	if author, err := p.userStore.FindByID(prompt.AuthorID); err == nil && author != nil {
		response["author"] = map[string]string{
			"username":     author.Username,
			"display_name": author.DisplayName,
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// ListMine returns all of the authenticated user's prompts, drafts included.
func (p *Prompts) ListMine(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	prompts, err := p.promptStore.ListByAuthor(sess.UserID)
	if err != nil {
		slog.Error("list own prompts failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prompts": prompts})
}

// promptForm is the request body for creating or updating a prompt.
type promptForm struct {
	Title       string   `json:"title"`
	PromptText  string   `json:"prompt_text"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Publish     bool     `json:"publish"`
}

// Create stores a new prompt for the authenticated user.
func (p *Prompts) Create(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	var form promptForm
	if err := decodeJSON(w, r, &form); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validatePromptForm(form.Title, form.PromptText, form.Description, form.Tags); msg != "" {
		jsonError(w, http.StatusBadRequest, msg)
		return
	}

	promptSlug, err := p.uniqueSlug(form.Title)
	if err != nil {
		slog.Error("slug generation failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	status := models.PromptStatusDraft
	if form.Publish {
		status = models.PromptStatusPublished
	}

	created, err := p.promptStore.Create(&models.Prompt{
		Title:       form.Title,
		Slug:        promptSlug,
		PromptText:  form.PromptText,
		Description: form.Description,
		Tags:        normalizeTags(form.Tags),
		Status:      status,
		AuthorID:    sess.UserID,
	})
	if err != nil {
		slog.Error("prompt create failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if created.IsPublished() && p.gallery != nil {
		p.gallery.InvalidateAll(r.Context())
	}

	writeJSON(w, http.StatusCreated, map[string]any{"prompt": created})
}

// Update modifies a prompt owned by the authenticated user. Admins may
// edit any prompt.
func (p *Prompts) Update(w http.ResponseWriter, r *http.Request) {
	prompt, ok := p.ownedPrompt(w, r)
	if !ok {
		return
	}

	var form promptForm
	if err := decodeJSON(w, r, &form); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validatePromptForm(form.Title, form.PromptText, form.Description, form.Tags); msg != "" {
		jsonError(w, http.StatusBadRequest, msg)
		return
	}

	prompt.Title = form.Title
	prompt.PromptText = form.PromptText
	prompt.Description = form.Description
	prompt.Tags = normalizeTags(form.Tags)
	if form.Publish {
		prompt.Status = models.PromptStatusPublished
	} else {
		prompt.Status = models.PromptStatusDraft
	}

	if err := p.promptStore.Update(prompt); err != nil {
		slog.Error("prompt update failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if p.gallery != nil {
		p.gallery.InvalidateAll(r.Context())
	}

	writeJSON(w, http.StatusOK, map[string]any{"prompt": prompt})
}

// Delete removes a prompt owned by the authenticated user (or any prompt,
// for admins). Attached images cascade in the database.
func (p *Prompts) Delete(w http.ResponseWriter, r *http.Request) {
	prompt, ok := p.ownedPrompt(w, r)
	if !ok {
		return
	}

	if err := p.promptStore.Delete(prompt.ID); err != nil {
		slog.Error("prompt delete failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if p.gallery != nil {
		p.gallery.InvalidateAll(r.Context())
	}

	w.WriteHeader(http.StatusNoContent)
}

// Like increments a published prompt's like counter. Cached gallery pages
// are left to expire on their own; a slightly stale count is fine.
func (p *Prompts) Like(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid prompt id")
		return
	}

	prompt, err := p.promptStore.FindByID(id)
	if err != nil {
		slog.Error("prompt lookup failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if prompt == nil || !prompt.IsPublished() {
		jsonError(w, http.StatusNotFound, "prompt not found")
		return
	}

	count, err := p.promptStore.Like(id)
	if err != nil {
		slog.Error("like failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"like_count": count})
}

// ownedPrompt loads the prompt from the {id} URL parameter and enforces
// ownership. Writes the error response itself when returning ok=false.
func (p *Prompts) ownedPrompt(w http.ResponseWriter, r *http.Request) (*models.Prompt, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid prompt id")
		return nil, false
	}

	prompt, err := p.promptStore.FindByID(id)
	if err != nil {
		slog.Error("prompt lookup failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if prompt == nil {
		jsonError(w, http.StatusNotFound, "prompt not found")
		return nil, false
	}

	sess := middleware.SessionFromCtx(r.Context())
	if prompt.AuthorID != sess.UserID && sess.Role != string(models.RoleAdmin) {
		jsonError(w, http.StatusForbidden, "not your prompt")
		return nil, false
	}

	return prompt, true
}

// uniqueSlug derives a URL slug from the title, appending a short random
// suffix on collision.
func (p *Prompts) uniqueSlug(title string) (string, error) {
	s := slug.Generate(title)
	if s == "" {
		s = "prompt"
	}

	exists, err := p.promptStore.SlugExists(s)
	if err != nil {
		return "", err
	}
	if !exists {
		return s, nil
	}
	return fmt.Sprintf("%s-%s", s, uuid.New().String()[:8]), nil
}

// queryInt parses an integer query parameter with a fallback.
func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
