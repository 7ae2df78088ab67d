// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the PromptForge JSON API: registration and
// login with optional TOTP 2FA, the public prompt gallery, prompt CRUD for
// members, image generation, and the admin surface.
package handlers

import (
	"encoding/json"
	"net/http"

	"promptforge/internal/models"
)

// maxBodyBytes caps JSON request bodies. Prompt descriptions are the
// largest legitimate payload and stay well under this.
const maxBodyBytes = 1 << 20 // 1 MB

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// jsonError writes an error response in the API's standard shape.
func jsonError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON decodes a request body into dst, rejecting unknown fields
// and oversized payloads.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// userPayload is the public representation of a user account. The password
// hash and TOTP secret never leave the server.
type userPayload struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	TOTPEnabled bool   `json:"totp_enabled"`
}

func toUserPayload(u *models.User) userPayload {
	return userPayload{
		ID:          u.ID.String(),
		Email:       u.Email,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
		TOTPEnabled: u.TOTPEnabled,
	}
}
