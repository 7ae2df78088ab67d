// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"promptforge/internal/middleware"
	"promptforge/internal/models"
	"promptforge/internal/session"
	"promptforge/internal/store"
)

// totpIssuer is the issuer label shown in authenticator apps.
const totpIssuer = "PromptForge"

// Auth groups all authentication-related HTTP handlers.
type Auth struct {
	sessions  *session.Store
	userStore *store.UserStore
}

// NewAuth creates a new Auth handler group.
func NewAuth(sessions *session.Store, userStore *store.UserStore) *Auth {
	return &Auth{
		sessions:  sessions,
		userStore: userStore,
	}
}

// Register creates a new member account and signs it in.
func (a *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		Username    string `json:"username"`
		Password    string `json:"password"`
		DisplayName string `json:"display_name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if msg := validateRegistration(req.Email, req.Username, req.Password); msg != "" {
		jsonError(w, http.StatusBadRequest, msg)
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Username
	}

	// Reject duplicates with a clear message instead of a raw constraint error.
	if existing, err := a.userStore.FindByEmail(req.Email); err != nil {
		slog.Error("register email lookup failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	} else if existing != nil {
		jsonError(w, http.StatusConflict, "email is already registered")
		return
	}
	if existing, err := a.userStore.FindByUsername(req.Username); err != nil {
		slog.Error("register username lookup failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	} else if existing != nil {
		jsonError(w, http.StatusConflict, "username is taken")
		return
	}

	user, err := a.userStore.Create(req.Email, req.Username, req.Password, req.DisplayName, models.RoleMember)
	if err != nil {
		slog.Error("register create failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// New accounts have no 2FA yet, so the session is fully authenticated.
	if _, err := a.sessions.Create(r.Context(), w, sessionData(user, true)); err != nil {
		slog.Error("session create failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	slog.Info("user registered", "username", user.Username)
	writeJSON(w, http.StatusCreated, map[string]any{"user": toUserPayload(user)})
}

// Login verifies credentials and creates a session. Accounts with TOTP
// enrolled get a half-open session until the code is verified.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := a.userStore.FindByEmail(req.Email)
	if err != nil {
		slog.Error("login lookup failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil || !a.userStore.CheckPassword(user, req.Password) {
		jsonError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if _, err := a.sessions.Create(r.Context(), w, sessionData(user, !user.TOTPEnabled)); err != nil {
		slog.Error("session create failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":            toUserPayload(user),
		"two_fa_required": user.TOTPEnabled,
	})
}

// Logout destroys the session.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	a.sessions.Destroy(r.Context(), w, r)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user's account.
func (a *Auth) Me(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	user, err := a.userStore.FindByID(sess.UserID)
	if err != nil || user == nil {
		slog.Error("me lookup failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": toUserPayload(user)})
}

// TwoFASetup generates a TOTP secret for the account and returns the
// otpauth URL plus a QR code PNG for authenticator apps. The secret stays
// pending until the first code is verified.
func (a *Auth) TwoFASetup(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: sess.Email,
	})
	if err != nil {
		slog.Error("totp generate failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := a.userStore.SetTOTPSecret(sess.UserID, key.Secret()); err != nil {
		slog.Error("save totp secret failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	qrPNG, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		slog.Error("qr code generation failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"secret":      key.Secret(),
		"otpauth_url": key.URL(),
		"qr_png":      base64.StdEncoding.EncodeToString(qrPNG),
	})
}

// TwoFAVerify validates a TOTP code. The first successful verification
// completes enrollment; later ones complete login.
func (a *Auth) TwoFAVerify(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := a.userStore.FindByID(sess.UserID)
	if err != nil || user == nil {
		slog.Error("user lookup for 2fa failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user.TOTPSecret == nil {
		jsonError(w, http.StatusBadRequest, "two-factor authentication is not set up")
		return
	}

	if !totp.Validate(req.Code, *user.TOTPSecret) {
		jsonError(w, http.StatusUnauthorized, "invalid code")
		return
	}

	if !user.TOTPEnabled {
		if err := a.userStore.EnableTOTP(user.ID); err != nil {
			slog.Error("enable totp failed", "error", err)
			jsonError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	sess.TwoFADone = true
	if err := a.sessions.Update(r.Context(), r, sess); err != nil {
		slog.Error("session update failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

// sessionData builds the session payload for a user.
func sessionData(u *models.User, twoFADone bool) *session.Data {
	return &session.Data{
		UserID:      u.ID,
		Email:       u.Email,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
		TwoFADone:   twoFADone,
	}
}
