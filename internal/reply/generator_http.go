package reply

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPGenerator calls an external generation service over a small JSON
// contract: the review context in, draft text plus risk/category tags out.
// What model runs behind the endpoint is the service's business.
type HTTPGenerator struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPGenerator creates a generator client for the configured endpoint.
func NewHTTPGenerator(url, apiKey string) *HTTPGenerator {
	return &HTTPGenerator{
		url:        url,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// GenerateReply implements Generator.
func (g *HTTPGenerator) GenerateReply(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"business": req.BusinessName,
		"author":   req.Author,
		"rating":   req.Rating,
		"comment":  req.Comment,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generation service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generation service returned %d", resp.StatusCode)
	}

	var body struct {
		Text      string   `json:"text"`
		RiskLevel string   `json:"risk_level"`
		Tags      []string `json:"tags"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode generation response: %w", err)
	}
	if body.Text == "" {
		return nil, fmt.Errorf("generation service returned empty text")
	}

	return &GenerationResult{Text: body.Text, RiskLevel: body.RiskLevel, Tags: body.Tags}, nil
}
