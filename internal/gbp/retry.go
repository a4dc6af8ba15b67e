package gbp

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// googleError is the structured error Google attaches to 429 responses.
type googleError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Type       string            `json:"@type"`
			Reason     string            `json:"reason"`
			Metadata   map[string]string `json:"metadata"`
			RetryDelay string            `json:"retryDelay"` // e.g. "3.5s"
		} `json:"details"`
	} `json:"error"`
}

// parseRetryHint extracts a retry delay from a 429 response. It checks the
// standard Retry-After header first, then the Google error body.
// Returns 0 if no hint is found.
func parseRetryHint(header http.Header, body string) time.Duration {
	if retryAfter := header.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil {
			return time.Duration(seconds) * time.Second
		}
		if t, err := http.ParseTime(retryAfter); err == nil {
			return time.Until(t)
		}
	}

	var errInfo googleError
	if err := json.Unmarshal([]byte(body), &errInfo); err != nil {
		return 0
	}
	for _, detail := range errInfo.Error.Details {
		if detail.RetryDelay != "" {
			if d, err := time.ParseDuration(detail.RetryDelay); err == nil {
				return d
			}
		}
		if delay, ok := detail.Metadata["retryDelay"]; ok {
			if d, err := time.ParseDuration(delay); err == nil {
				return d
			}
		}
	}
	return 0
}
