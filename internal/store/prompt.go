// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"promptforge/internal/models"
)

// PromptStore handles all prompt-related database operations.
type PromptStore struct {
	db *sql.DB
}

// NewPromptStore creates a new PromptStore with the given database connection.
func NewPromptStore(db *sql.DB) *PromptStore {
	return &PromptStore{db: db}
}

// Text arrays cross the database/sql boundary as newline-joined strings;
// tag and URL values never contain newlines.
func joinLines(vals []string) string { return strings.Join(vals, "\n") }

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

const promptSelect = `
	SELECT id, title, slug, prompt_text, description,
	       array_to_string(tags, E'\n'), status, author_id, like_count,
	       published_at, created_at, updated_at
	FROM prompts`

func scanPrompt(scan func(dest ...any) error) (*models.Prompt, error) {
	p := &models.Prompt{}
	var tags string
	err := scan(
		&p.ID, &p.Title, &p.Slug, &p.PromptText, &p.Description,
		&tags, &p.Status, &p.AuthorID, &p.LikeCount,
		&p.PublishedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Tags = splitLines(tags)
	return p, nil
}

// ListPublished returns published prompts for the public gallery, newest
// first, with offset pagination. An empty tag matches everything.
func (s *PromptStore) ListPublished(tag string, limit, offset int) ([]models.Prompt, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := promptSelect + `
	WHERE status = 'published'`
	args := []any{}
	if tag != "" {
		query += ` AND $1 = ANY(tags)`
		args = append(args, tag)
	}
	query += fmt.Sprintf(`
	ORDER BY published_at DESC
	LIMIT %d OFFSET %d`, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list published prompts: %w", err)
	}
	defer rows.Close()

	return collectPrompts(rows)
}

// ListByAuthor returns all of a user's prompts, drafts included.
func (s *PromptStore) ListByAuthor(authorID uuid.UUID) ([]models.Prompt, error) {
	rows, err := s.db.Query(promptSelect+`
	WHERE author_id = $1
	ORDER BY created_at DESC`, authorID)
	if err != nil {
		return nil, fmt.Errorf("list prompts by author: %w", err)
	}
	defer rows.Close()

	return collectPrompts(rows)
}

func collectPrompts(rows *sql.Rows) ([]models.Prompt, error) {
	var prompts []models.Prompt
	for rows.Next() {
		p, err := scanPrompt(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		prompts = append(prompts, *p)
	}
	return prompts, rows.Err()
}

// FindByID retrieves a prompt by its UUID. Returns nil if not found.
func (s *PromptStore) FindByID(id uuid.UUID) (*models.Prompt, error) {
	p, err := scanPrompt(s.db.QueryRow(promptSelect+` WHERE id = $1`, id).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find prompt by id: %w", err)
	}
	return p, nil
}

// FindBySlug retrieves a published prompt by its slug. Used for the public
// prompt page.
func (s *PromptStore) FindBySlug(slug string) (*models.Prompt, error) {
	p, err := scanPrompt(s.db.QueryRow(
		promptSelect+` WHERE slug = $1 AND status = 'published'`, slug).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find prompt by slug: %w", err)
	}
	return p, nil
}

// Create inserts a new prompt and returns it with the generated ID.
func (s *PromptStore) Create(p *models.Prompt) (*models.Prompt, error) {
	if p.Status == models.PromptStatusPublished && p.PublishedAt == nil {
		now := time.Now()
		p.PublishedAt = &now
	}

	row := s.db.QueryRow(`
		INSERT INTO prompts (title, slug, prompt_text, description, tags, status, author_id, published_at)
		VALUES ($1, $2, $3, $4, string_to_array($5, E'\n'), $6, $7, $8)
		RETURNING id, title, slug, prompt_text, description,
		          array_to_string(tags, E'\n'), status, author_id, like_count,
		          published_at, created_at, updated_at`,
		p.Title, p.Slug, p.PromptText, p.Description, joinLines(p.Tags),
		p.Status, p.AuthorID, p.PublishedAt,
	)
	result, err := scanPrompt(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("create prompt: %w", err)
	}
	return result, nil
}

// Update modifies an existing prompt.
func (s *PromptStore) Update(p *models.Prompt) error {
	if p.Status == models.PromptStatusPublished && p.PublishedAt == nil {
		now := time.Now()
		p.PublishedAt = &now
	}

	_, err := s.db.Exec(`
		UPDATE prompts SET
			title = $1, slug = $2, prompt_text = $3, description = $4,
			tags = string_to_array($5, E'\n'), status = $6,
			published_at = $7, updated_at = NOW()
		WHERE id = $8`,
		p.Title, p.Slug, p.PromptText, p.Description, joinLines(p.Tags),
		p.Status, p.PublishedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update prompt: %w", err)
	}
	return nil
}

// Delete removes a prompt by ID. Its images cascade.
func (s *PromptStore) Delete(id uuid.UUID) error {
	_, err := s.db.Exec(`DELETE FROM prompts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete prompt: %w", err)
	}
	return nil
}

// Like increments a prompt's like counter and returns the new count.
func (s *PromptStore) Like(id uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(`
		UPDATE prompts SET like_count = like_count + 1
		WHERE id = $1
		RETURNING like_count`, id).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("like prompt: %w", err)
	}
	return count, nil
}

// SlugExists reports whether a slug is already taken.
func (s *PromptStore) SlugExists(slug string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM prompts WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return exists, nil
}

// AddImage attaches a generated image to a prompt.
func (s *PromptStore) AddImage(img *models.PromptImage) (*models.PromptImage, error) {
	result := &models.PromptImage{}
	err := s.db.QueryRow(`
		INSERT INTO prompt_images (prompt_id, generation_id, url, thumbnail_url, position)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, prompt_id, generation_id, url, thumbnail_url, position, created_at`,
		img.PromptID, img.GenerationID, img.URL, img.ThumbnailURL, img.Position,
	).Scan(
		&result.ID, &result.PromptID, &result.GenerationID,
		&result.URL, &result.ThumbnailURL, &result.Position, &result.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("add prompt image: %w", err)
	}
	return result, nil
}

// Images returns a prompt's images ordered by position.
func (s *PromptStore) Images(promptID uuid.UUID) ([]models.PromptImage, error) {
	rows, err := s.db.Query(`
		SELECT id, prompt_id, generation_id, url, thumbnail_url, position, created_at
		FROM prompt_images
		WHERE prompt_id = $1
		ORDER BY position ASC`, promptID)
	if err != nil {
		return nil, fmt.Errorf("list prompt images: %w", err)
	}
	defer rows.Close()

	var images []models.PromptImage
	for rows.Next() {
		var img models.PromptImage
		if err := rows.Scan(
			&img.ID, &img.PromptID, &img.GenerationID,
			&img.URL, &img.ThumbnailURL, &img.Position, &img.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan prompt image: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}
