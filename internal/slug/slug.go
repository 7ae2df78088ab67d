// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug derives URL-safe identifiers from prompt titles.
package slug

import "strings"

// maxLen caps generated slugs; titles may be far longer than what makes
// a reasonable URL.
const maxLen = 80

// Generate lowercases the title, folds every run of non-alphanumeric
// characters into a single hyphen, and trims the result to maxLen at a
// word boundary. "Neon City at Night!" becomes "neon-city-at-night".
func Generate(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	pendingHyphen := false
	for _, r := range strings.ToLower(title) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !alnum {
			pendingHyphen = b.Len() > 0
			continue
		}
		if pendingHyphen {
			b.WriteByte('-')
			pendingHyphen = false
		}
		b.WriteRune(r)
	}

	s := b.String()
	if len(s) <= maxLen {
		return s
	}
	if cut := strings.LastIndexByte(s[:maxLen], '-'); cut > 0 {
		return s[:cut]
	}
	return s[:maxLen]
}
