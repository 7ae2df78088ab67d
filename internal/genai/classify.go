// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package genai

import "strings"

// classifyRule pairs a predicate over the lowercased error text with the
// user-facing message to return when it matches. Rules are evaluated
// top-to-bottom, most specific first, so the taxonomy stays auditable.
type classifyRule struct {
	match   func(msg string) bool
	message string
}

// containsAny reports whether msg contains at least one of the substrings.
func containsAny(msg string, subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// passthroughMessages are provider errors that are already phrased for end
// users and are surfaced verbatim.
var passthroughMessages = []string{
	"no images were generated",
	"failed to generate any images",
	"prompt must not be empty",
}

var classifyRules = []classifyRule{
	{
		match: func(m string) bool {
			return containsAny(m, "failed to fetch", "network error", "connection refused", "no such host", "dial tcp")
		},
		message: "Network error: could not reach the image service. Check your connection and try again.",
	},
	{
		match:   func(m string) bool { return strings.Contains(m, "cors") },
		message: "The image service rejected the request origin. Try again after redeploying the function.",
	},
	{
		match: func(m string) bool {
			return containsAny(m, "invalid api key", "incorrect api key", "invalid_api_key")
		},
		message: "Invalid API key. Check the provider configuration.",
	},
	{
		match: func(m string) bool {
			return containsAny(m, "unauthorized", "authentication", "status 401", "401")
		},
		message: "Authentication failed. Please sign in again.",
	},
	{
		match: func(m string) bool {
			return containsAny(m, "insufficient_quota", "quota")
		},
		message: "API quota exceeded. Check the provider's billing and usage limits.",
	},
	{
		match: func(m string) bool {
			return containsAny(m, "content policy", "content_policy", "safety system", "safety filter", "flagged")
		},
		message: "Your prompt was rejected by the provider's content safety filter. Please rephrase it and try again.",
	},
	{
		match: func(m string) bool {
			return containsAny(m, "rate limit", "rate_limit", "too many requests", "status 429", "429")
		},
		message: "Rate limit exceeded. Please wait a moment and try again.",
	},
	{
		match: func(m string) bool {
			return containsAny(m, "environment variable", "is not configured", "missing configuration")
		},
		message: "The image service is missing configuration. Contact the site administrator.",
	},
	{
		match:   func(m string) bool { return strings.Contains(m, "timed out") },
		message: "The image generation timed out. Please try again.",
	},
	{
		match:   func(m string) bool { return containsAny(m, "status 500", "status 502", "status 503") },
		message: "The image service encountered an internal error. Please try again later.",
	},
	{
		match:   func(m string) bool { return strings.Contains(m, "status 404") },
		message: "The image generation function was not found. It may not be deployed yet.",
	},
}

// Classify maps a raw transport or provider error onto a user-facing
// message. It is total: it always returns a non-empty string and never
// panics, so raw provider errors (tokens, stack traces, internal URLs)
// are never shown to end users.
func Classify(err error, provider string) string {
	if err == nil {
		return "Image generation failed for an unknown reason."
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	for _, p := range passthroughMessages {
		if strings.Contains(lower, p) {
			return capitalize(strings.TrimPrefix(strings.TrimPrefix(lower, provider+": "), "genai: "))
		}
	}

	for _, rule := range classifyRules {
		if rule.match(lower) {
			return rule.message
		}
	}

	return "Image generation failed: " + msg
}

// capitalize upper-cases the first byte of an ASCII message.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
