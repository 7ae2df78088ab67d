// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"promptforge/internal/models"
)

// GenerationStore records image generation runs.
type GenerationStore struct {
	db *sql.DB
}

// NewGenerationStore creates a new GenerationStore with the given database connection.
func NewGenerationStore(db *sql.DB) *GenerationStore {
	return &GenerationStore{db: db}
}

// Create inserts a generation record and returns it with the generated ID.
func (s *GenerationStore) Create(g *models.Generation) (*models.Generation, error) {
	result := &models.Generation{}
	var urls string
	err := s.db.QueryRow(`
		INSERT INTO generations (user_id, prompt, aspect_ratio, image_count, provider, status, image_urls, error)
		VALUES ($1, $2, $3, $4, $5, $6, string_to_array($7, E'\n'), $8)
		RETURNING id, user_id, prompt, aspect_ratio, image_count, provider, status,
		          array_to_string(image_urls, E'\n'), error, created_at`,
		g.UserID, g.Prompt, g.AspectRatio, g.ImageCount, g.Provider,
		g.Status, joinLines(g.ImageURLs), g.Error,
	).Scan(
		&result.ID, &result.UserID, &result.Prompt, &result.AspectRatio,
		&result.ImageCount, &result.Provider, &result.Status,
		&urls, &result.Error, &result.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create generation: %w", err)
	}
	result.ImageURLs = splitLines(urls)
	return result, nil
}

// FindByID retrieves a generation by its UUID. Returns nil if not found.
func (s *GenerationStore) FindByID(id uuid.UUID) (*models.Generation, error) {
	g := &models.Generation{}
	var urls string
	err := s.db.QueryRow(`
		SELECT id, user_id, prompt, aspect_ratio, image_count, provider, status,
		       array_to_string(image_urls, E'\n'), error, created_at
		FROM generations WHERE id = $1`, id,
	).Scan(
		&g.ID, &g.UserID, &g.Prompt, &g.AspectRatio,
		&g.ImageCount, &g.Provider, &g.Status,
		&urls, &g.Error, &g.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find generation by id: %w", err)
	}
	g.ImageURLs = splitLines(urls)
	return g, nil
}

// ListByUser returns a user's recent generation runs, newest first.
func (s *GenerationStore) ListByUser(userID uuid.UUID, limit int) ([]models.Generation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT id, user_id, prompt, aspect_ratio, image_count, provider, status,
		       array_to_string(image_urls, E'\n'), error, created_at
		FROM generations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT %d`, limit), userID)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close()

	var gens []models.Generation
	for rows.Next() {
		var g models.Generation
		var urls string
		if err := rows.Scan(
			&g.ID, &g.UserID, &g.Prompt, &g.AspectRatio,
			&g.ImageCount, &g.Provider, &g.Status,
			&urls, &g.Error, &g.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		g.ImageURLs = splitLines(urls)
		gens = append(gens, g)
	}
	return gens, rows.Err()
}
