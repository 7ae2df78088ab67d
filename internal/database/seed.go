package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// Seed populates the database with initial development data: a default
// admin account plus a demo member with a couple of published prompts so
// the gallery is not empty on first run. No-op when users already exist.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}
	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	if _, err := seedUser(db, "admin@promptforge.local", "admin", "Admin", "admin"); err != nil {
		return err
	}

	demoID, err := seedUser(db, "demo@promptforge.local", "demo", "Demo Artist", "member")
	if err != nil {
		return err
	}

	prompts := []struct {
		title, slug, text, description, tags string
	}{
		{
			title:       "Neon City at Night",
			slug:        "neon-city-at-night",
			text:        "rain-slicked streets, neon signage reflecting in puddles, cinematic wide shot, volumetric fog",
			description: "Works best with a **16:9** aspect ratio and a high image count.",
			tags:        "cyberpunk\ncity\nnight",
		},
		{
			title:       "Watercolor Fox",
			slug:        "watercolor-fox",
			text:        "a curious red fox in loose watercolor style, soft edges, white background, minimal palette",
			description: "Keep the prompt short; the style tokens do the work.",
			tags:        "watercolor\nanimal",
		},
	}

	for _, p := range prompts {
		_, err := db.Exec(`
			INSERT INTO prompts (title, slug, prompt_text, description, tags, status, author_id, published_at)
			VALUES ($1, $2, $3, $4, string_to_array($5, E'\n'), 'published', $6, NOW())
		`, p.title, p.slug, p.text, p.description, p.tags, demoID)
		if err != nil {
			return fmt.Errorf("seed insert prompt %q: %w", p.slug, err)
		}
	}

	slog.Info("database seeded",
		"admin", "admin@promptforge.local",
		"password", "admin",
		"sample_prompts", len(prompts),
	)

	return nil
}

// seedUser inserts one account with the given role and the password
// "admin". 2FA is left disabled; accounts enroll on first login.
func seedUser(db *sql.DB, email, username, displayName, role string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("seed bcrypt: %w", err)
	}

	var id string
	err = db.QueryRow(`
		INSERT INTO users (email, username, password_hash, display_name, role, totp_enabled)
		VALUES ($1, $2, $3, $4, $5, false)
		RETURNING id
	`, email, username, string(hash), displayName, role).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("seed insert user %q: %w", username, err)
	}
	return id, nil
}
