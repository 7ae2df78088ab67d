// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler
// integration tests. Tests are skipped when PostgreSQL or Valkey are
// unavailable.
package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"promptforge/internal/cache"
	"promptforge/internal/database"
	"promptforge/internal/genai"
	"promptforge/internal/middleware"
	"promptforge/internal/models"
	"promptforge/internal/session"
	"promptforge/internal/store"
)

// mockImageProvider implements genai.ImageProvider for handler tests.
type mockImageProvider struct {
	name string
	urls []string
	err  error
}

func (m *mockImageProvider) Name() string { return m.name }
func (m *mockImageProvider) GenerateImages(_ context.Context, req genai.GenerationRequest) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]string, req.ImageCount)
	for i := range out {
		if i < len(m.urls) {
			out[i] = m.urls[i]
		} else {
			out[i] = "https://images.test/extra.png"
		}
	}
	return out, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "promptforge")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "promptforge")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// testValkeyClient returns a Redis client for handler tests on DB 15.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		// Clean up test session and cache keys.
		for _, pattern := range []string{"session:*", "gallery:*"} {
			keys, _ := client.Keys(ctx, pattern).Result()
			if len(keys) > 0 {
				client.Del(ctx, keys...)
			}
		}
		client.Close()
	})

	return client
}

// testEnv holds all dependencies for handler integration tests.
type testEnv struct {
	DB              *sql.DB
	Valkey          *redis.Client
	Sessions        *session.Store
	UserStore       *store.UserStore
	PromptStore     *store.PromptStore
	GenerationStore *store.GenerationStore
	SettingStore    *store.SettingStore
	Gallery         *cache.GalleryCache
	Provider        *mockImageProvider
	Dispatcher      *genai.Dispatcher
	Auth            *Auth
	Prompts         *Prompts
	Generate        *Generate
	Admin           *Admin
}

// newTestEnv creates a complete test environment with all handler
// dependencies. The dispatcher runs against a mock provider; object
// storage is left unconfigured so generated URLs pass through unchanged.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	vk := testValkeyClient(t)

	sessions := session.NewStore(vk, false)
	userStore := store.NewUserStore(db)
	promptStore := store.NewPromptStore(db)
	generationStore := store.NewGenerationStore(db)
	settingStore := store.NewSettingStore(db)
	gallery := cache.NewGalleryCache(vk, 1*time.Minute)

	provider := &mockImageProvider{
		name: "mock",
		urls: []string{
			"https://images.test/one.png",
			"https://images.test/two.png",
			"https://images.test/three.png",
			"https://images.test/four.png",
		},
	}
	dispatcher := genai.NewDispatcher(nil, "", "", nil, provider)

	return &testEnv{
		DB:              db,
		Valkey:          vk,
		Sessions:        sessions,
		UserStore:       userStore,
		PromptStore:     promptStore,
		GenerationStore: generationStore,
		SettingStore:    settingStore,
		Gallery:         gallery,
		Provider:        provider,
		Dispatcher:      dispatcher,
		Auth:            NewAuth(sessions, userStore),
		Prompts:         NewPrompts(promptStore, userStore, gallery),
		Generate:        NewGenerate(dispatcher, generationStore, promptStore, gallery, nil),
		Admin:           NewAdmin(userStore, settingStore, dispatcher, gallery),
	}
}

// testUser creates a user for the duration of the test.
func (env *testEnv) testUser(t *testing.T, username string, role models.Role) *models.User {
	t.Helper()

	email := username + "@promptforge.test"
	env.DB.Exec("DELETE FROM users WHERE email = $1", email)

	user, err := env.UserStore.Create(email, username, "password123", "Test "+username, role)
	if err != nil {
		t.Fatalf("create test user: %v", err)
	}
	t.Cleanup(func() {
		env.DB.Exec("DELETE FROM users WHERE id = $1", user.ID)
	})
	return user
}

// cleanPrompts removes test prompts by slug prefix.
func (env *testEnv) cleanPrompts(t *testing.T, slugPrefix string) {
	t.Helper()
	env.DB.Exec("DELETE FROM prompts WHERE slug LIKE $1", slugPrefix+"%")
}

// ctxWithSession adds session data to a context using the middleware key.
func ctxWithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, middleware.SessionKey, data)
}

// userSession builds session data for a user with 2FA complete.
func userSession(u *models.User) *session.Data {
	return &session.Data{
		UserID:      u.ID,
		Email:       u.Email,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
		TwoFADone:   true,
	}
}

// withSession attaches session data to a request.
func withSession(r *http.Request, data *session.Data) *http.Request {
	return r.WithContext(ctxWithSession(r.Context(), data))
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// uuidParam is a convenience for URL params holding UUIDs.
func uuidParam(r *http.Request, key string, id uuid.UUID) *http.Request {
	return withChiURLParam(r, key, id.String())
}
