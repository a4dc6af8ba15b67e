package gbp

import (
	"net/http"
	"testing"
	"time"
)

func TestParseRetryHint_Header(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "30")
	if got := parseRetryHint(header, ""); got != 30*time.Second {
		t.Fatalf("parseRetryHint = %s, want 30s", got)
	}
}

func TestParseRetryHint_GoogleBody(t *testing.T) {
	body := `{"error":{"code":429,"status":"RESOURCE_EXHAUSTED","details":[{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"3.5s"}]}}`
	if got := parseRetryHint(http.Header{}, body); got != 3500*time.Millisecond {
		t.Fatalf("parseRetryHint = %s, want 3.5s", got)
	}
}

func TestParseRetryHint_MetadataDelay(t *testing.T) {
	body := `{"error":{"details":[{"reason":"rateLimitExceeded","metadata":{"retryDelay":"2s"}}]}}`
	if got := parseRetryHint(http.Header{}, body); got != 2*time.Second {
		t.Fatalf("parseRetryHint = %s, want 2s", got)
	}
}

func TestParseRetryHint_NoHint(t *testing.T) {
	if got := parseRetryHint(http.Header{}, `{"error":{"message":"slow down"}}`); got != 0 {
		t.Fatalf("parseRetryHint = %s, want 0", got)
	}
}
