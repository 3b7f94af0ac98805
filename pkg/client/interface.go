// Package client defines the transport port to a multimodal vision model server.
package client

import (
	"context"
	"regexp"
	"strings"
)

// VisionClient sends one image plus a prompt to a vision model.
// imgB64 is a base64 encoded JPEG.
type VisionClient interface {
	// SimpleQuery returns the model's free-text answer
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	// JSONQuery asks for a JSON answer and returns it sanitized
	JSONQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
}

var (
	reBlockComment  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment   = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInlineComment = regexp.MustCompile(`(?m)\s//.*$`)
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// SanitizeJSON strips code fences, comments and trailing commas that vision
// models like to add, and keeps only the outermost {...}.
func SanitizeJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.Trim(strings.TrimSpace(raw), "`")

	raw = reBlockComment.ReplaceAllString(raw, "")
	raw = reLineComment.ReplaceAllString(raw, "")
	raw = reInlineComment.ReplaceAllString(raw, "")
	raw = reTrailingComma.ReplaceAllString(raw, "$1")

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
