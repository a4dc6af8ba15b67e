// Package reply drives a review response from generation through the
// irreversible publish to the provider.
package reply

import "context"

// GenerationRequest is the review context handed to the text generator.
type GenerationRequest struct {
	BusinessName string
	Author       string
	Rating       int
	Comment      string
}

// GenerationResult is the structured generation response: the draft text
// plus the risk/category tags the dashboard surfaces.
type GenerationResult struct {
	Text      string
	RiskLevel string // "low", "medium", "high"
	Tags      []string
}

// Generator produces a reply draft for a review. The AI backend behind it
// is a collaborator; this package only owns quota and persistence around it.
type Generator interface {
	GenerateReply(ctx context.Context, req GenerationRequest) (*GenerationResult, error)
}
