// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"promptforge/internal/cache"
	"promptforge/internal/genai"
	"promptforge/internal/middleware"
	"promptforge/internal/store"
)

// allowedSettingKeys lists the settings admins may change through the API.
// Provider API keys live here so they can be rotated without a redeploy.
var allowedSettingKeys = map[string]bool{
	"nebius_api_key":    true,
	"rendernet_api_key": true,
	"site_name":         true,
	"site_description":  true,
}

// Admin groups the admin-only HTTP handlers: runtime settings, user
// management, and cache controls.
type Admin struct {
	userStore    *store.UserStore
	settingStore *store.SettingStore
	dispatcher   *genai.Dispatcher
	gallery      *cache.GalleryCache
}

// NewAdmin creates a new Admin handler group.
func NewAdmin(userStore *store.UserStore, settingStore *store.SettingStore, dispatcher *genai.Dispatcher, gallery *cache.GalleryCache) *Admin {
	return &Admin{
		userStore:    userStore,
		settingStore: settingStore,
		dispatcher:   dispatcher,
		gallery:      gallery,
	}
}

// SettingsList returns all runtime settings.
func (a *Admin) SettingsList(w http.ResponseWriter, r *http.Request) {
	settings, err := a.settingStore.All()
	if err != nil {
		slog.Error("settings list failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
}

// SettingsUpdate upserts runtime settings. Unknown keys are rejected so a
// typo can't silently create a dead setting.
func (a *Admin) SettingsUpdate(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req) == 0 {
		jsonError(w, http.StatusBadRequest, "no settings provided")
		return
	}
	for key := range req {
		if !allowedSettingKeys[key] {
			jsonError(w, http.StatusBadRequest, "unknown setting: "+key)
			return
		}
	}

	if err := a.settingStore.SetMany(req); err != nil {
		slog.Error("settings update failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	sess := middleware.SessionFromCtx(r.Context())
	slog.Info("settings updated", "by", sess.Username, "count", len(req))
	writeJSON(w, http.StatusOK, map[string]int{"updated": len(req)})
}

// ProbeCacheClear drops cached remote function availability verdicts.
// Called right after redeploying the generation function so the next
// request re-probes instead of waiting out the TTL.
func (a *Admin) ProbeCacheClear(w http.ResponseWriter, r *http.Request) {
	a.dispatcher.ClearProbeCache()
	slog.Info("probe cache cleared")
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

// GalleryCacheClear drops all cached gallery pages.
func (a *Admin) GalleryCacheClear(w http.ResponseWriter, r *http.Request) {
	if a.gallery != nil {
		a.gallery.InvalidateAll(r.Context())
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

// UsersList returns all user accounts.
func (a *Admin) UsersList(w http.ResponseWriter, r *http.Request) {
	users, err := a.userStore.List()
	if err != nil {
		slog.Error("users list failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	payload := make([]userPayload, 0, len(users))
	for i := range users {
		payload = append(payload, toUserPayload(&users[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": payload})
}

// UserResetTwoFA clears a user's TOTP enrollment so they can re-enroll
// after losing their authenticator.
func (a *Admin) UserResetTwoFA(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := a.userStore.ResetTOTP(id); err != nil {
		slog.Error("reset totp failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	slog.Info("2fa reset", "user", id)
	writeJSON(w, http.StatusOK, map[string]bool{"reset": true})
}

// UserDelete removes a user account. Admins cannot delete themselves.
func (a *Admin) UserDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	sess := middleware.SessionFromCtx(r.Context())
	if sess.UserID == id {
		jsonError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	if err := a.userStore.Delete(id); err != nil {
		slog.Error("user delete failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
