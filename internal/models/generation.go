// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// GenerationStatus is the terminal state of a generation run.
type GenerationStatus string

const (
	GenerationStatusSucceeded GenerationStatus = "succeeded"
	GenerationStatusFailed    GenerationStatus = "failed"
)

// Generation records one image generation run: who asked for it, what was
// requested, which provider served it, and where the results ended up.
type Generation struct {
	ID          uuid.UUID        `json:"id"`
	UserID      uuid.UUID        `json:"user_id"`
	Prompt      string           `json:"prompt"`
	AspectRatio string           `json:"aspect_ratio"`
	ImageCount  int              `json:"image_count"`
	Provider    string           `json:"provider"`
	Status      GenerationStatus `json:"status"`
	ImageURLs   []string         `json:"image_urls"`
	Error       *string          `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Succeeded returns true if the run produced real images.
func (g *Generation) Succeeded() bool {
	return g.Status == GenerationStatusSucceeded
}
