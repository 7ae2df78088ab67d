// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package imaging produces display variants of generated images. Provider
// output arrives as full-size PNG or JPEG; the gallery serves smaller
// JPEG variants so list pages don't pull megabytes per card. Variants
// wider than the source are skipped to avoid upscaling.
package imaging

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Variant describes a single output size.
type Variant struct {
	Name    string // e.g., "thumb", "card", "full"
	Width   int    // Target width in pixels
	Quality int    // JPEG quality 1-100
}

// DefaultVariants defines the standard sizes for gallery display.
var DefaultVariants = []Variant{
	{Name: "thumb", Width: 320, Quality: 75},
	{Name: "card", Width: 640, Quality: 80},
	{Name: "full", Width: 1280, Quality: 85},
}

// ProcessedImage holds one generated variant ready for upload.
type ProcessedImage struct {
	Name        string // Variant name (e.g., "card")
	Width       int    // Actual output width
	Height      int    // Actual output height
	Data        []byte // JPEG-encoded image bytes
	ContentType string // Always "image/jpeg"
}

// GenerateVariants creates JPEG variants of the source image for each
// configured size. It skips variants wider than the original to avoid
// upscaling. Returns at least one variant (the smallest that fits).
func GenerateVariants(original []byte, variants []Variant) ([]ProcessedImage, error) {
	if len(variants) == 0 {
		variants = DefaultVariants
	}

	// Decode once, honouring EXIF orientation.
	src, err := imaging.Decode(bytes.NewReader(original), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode failed: %w", err)
	}
	origWidth := src.Bounds().Dx()

	var results []ProcessedImage

	for _, v := range variants {
		targetWidth := v.Width

		// Cap at original width to avoid upscaling.
		if origWidth <= targetWidth {
			targetWidth = origWidth
		}

		var resized image.Image = src
		if targetWidth < origWidth {
			resized = imaging.Resize(src, targetWidth, 0, imaging.Lanczos)
		}

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(v.Quality)); err != nil {
			return nil, fmt.Errorf("imaging: encode %s (%dpx): %w", v.Name, targetWidth, err)
		}

		bounds := resized.Bounds()
		results = append(results, ProcessedImage{
			Name:        v.Name,
			Width:       bounds.Dx(),
			Height:      bounds.Dy(),
			Data:        buf.Bytes(),
			ContentType: "image/jpeg",
		})

		// If we already processed the original-width image, no point
		// generating larger variants.
		if origWidth <= v.Width {
			break
		}
	}

	return results, nil
}

// Thumbnail is a convenience wrapper producing only the smallest variant.
func Thumbnail(original []byte) (*ProcessedImage, error) {
	results, err := GenerateVariants(original, []Variant{DefaultVariants[0]})
	if err != nil {
		return nil, err
	}
	return &results[0], nil
}
