// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"promptforge/internal/handlers"
	"promptforge/internal/middleware"
	"promptforge/internal/session"
)

// testRouter wires the full route tree with nil backends. Requests here
// stop at the middleware layer, so the stores are never touched.
func testRouter(t *testing.T) http.Handler {
	t.Helper()

	apiLimiter := middleware.NewRateLimiter(1000, time.Minute)
	t.Cleanup(apiLimiter.Stop)
	generateLimiter := middleware.NewRateLimiter(1000, time.Minute)
	t.Cleanup(generateLimiter.Stop)

	return New(
		session.NewStore(nil, false),
		handlers.NewAuth(nil, nil),
		handlers.NewPrompts(nil, nil, nil),
		handlers.NewGenerate(nil, nil, nil, nil, nil),
		handlers.NewAdmin(nil, nil, nil, nil),
		apiLimiter,
		generateLimiter,
	)
}

func TestHealthEndpoint(t *testing.T) {
	rr := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field: got %q, want %q", body["status"], "ok")
	}
}

func TestMemberRoutesRequireSession(t *testing.T) {
	r := testRouter(t)

	paths := []string{
		"/api/prompts",
		"/api/generations",
		"/api/auth/me",
		"/api/admin/settings",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))

			if rr.Code != http.StatusUnauthorized {
				t.Errorf("status: got %d, want 401", rr.Code)
			}
		})
	}
}

func TestStateChangesRequireCSRFToken(t *testing.T) {
	rr := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))

	if rr.Code != http.StatusForbidden {
		t.Errorf("POST without CSRF token: got %d, want 403", rr.Code)
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	rr := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}
