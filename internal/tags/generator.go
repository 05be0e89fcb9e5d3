// Package tags provides the text-to-tags collaborator contract, an HTTP
// client for the external NLP service, and a local keyword fallback used
// when the service is unavailable.
package tags

import "context"

// Generator produces topic tags for a piece of text. Implementations may
// fail; callers must fall back to local keyword extraction.
type Generator interface {
	Generate(ctx context.Context, text string) ([]string, error)
}

// SketchTagger produces tags for sketch data (base64-encoded drawing).
// Failures are non-fatal; callers continue with no tags.
type SketchTagger interface {
	GenerateFromSketch(ctx context.Context, sketchData string) ([]string, error)
}
