package handlers

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Validation limits for account and prompt fields.
const (
	maxTitleLen       = 200
	maxPromptTextLen  = 10_000
	maxDescriptionLen = 20_000
	maxTagCount       = 10
	maxTagLen         = 40
	minPasswordLen    = 8
	maxPasswordLen    = 128
)

var usernameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{2,29}$`)

// validateRegistration checks signup inputs and returns the first error found.
func validateRegistration(email, username, password string) string {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return "A valid email address is required."
	}
	if !usernameRe.MatchString(username) {
		return "Username must be 3-30 characters: lowercase letters, digits, hyphens, underscores."
	}
	if len(password) < minPasswordLen {
		return "Password must be at least 8 characters."
	}
	if len(password) > maxPasswordLen {
		return "Password is too long (max 128 characters)."
	}
	return ""
}

// validatePromptForm checks prompt create/update inputs and returns the
// first error found.
func validatePromptForm(title, promptText, description string, tags []string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "Title is required."
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "Title is too long (max 200 characters)."
	}
	if strings.TrimSpace(promptText) == "" {
		return "Prompt text is required."
	}
	if utf8.RuneCountInString(promptText) > maxPromptTextLen {
		return "Prompt text is too long (max 10,000 characters)."
	}
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return "Description is too long (max 20,000 characters)."
	}
	if len(tags) > maxTagCount {
		return "Too many tags (max 10)."
	}
	for _, tag := range tags {
		if utf8.RuneCountInString(tag) > maxTagLen {
			return "Tag is too long (max 40 characters)."
		}
		if strings.ContainsAny(tag, "\n\r") {
			return "Tags must not contain line breaks."
		}
	}
	return ""
}

// normalizeTags lowercases, trims, and de-duplicates tags while preserving
// order.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
