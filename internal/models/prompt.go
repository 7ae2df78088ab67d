// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// PromptStatus represents the publishing state of a shared prompt.
type PromptStatus string

const (
	PromptStatusDraft     PromptStatus = "draft"
	PromptStatusPublished PromptStatus = "published"
)

// Prompt is a community-shared image generation prompt: the prompt text
// itself plus a markdown description of how to use it and the images it
// produced.
type Prompt struct {
	ID          uuid.UUID    `json:"id"`
	Title       string       `json:"title"`
	Slug        string       `json:"slug"`
	PromptText  string       `json:"prompt_text"`
	Description string       `json:"description"`
	Tags        []string     `json:"tags"`
	Status      PromptStatus `json:"status"`
	AuthorID    uuid.UUID    `json:"author_id"`
	LikeCount   int          `json:"like_count"`
	PublishedAt *time.Time   `json:"published_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// IsPublished returns true if the prompt is visible in the public gallery.
func (p *Prompt) IsPublished() bool {
	return p.Status == PromptStatusPublished
}

// PromptImage links a stored generated image to the prompt that produced it.
type PromptImage struct {
	ID           uuid.UUID `json:"id"`
	PromptID     uuid.UUID `json:"prompt_id"`
	GenerationID uuid.UUID `json:"generation_id"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url"`
	Position     int       `json:"position"`
	CreatedAt    time.Time `json:"created_at"`
}
