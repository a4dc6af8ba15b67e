package gbp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func respWith(status int, body string, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestClassifyResponse(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		header    http.Header
		wantKind  Kind
		retryable bool
	}{
		{name: "plain 401", status: 401, wantKind: KindCredentialExpired, retryable: true},
		{name: "401 with revocation marker", status: 401, body: `{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`, wantKind: KindCredentialRevoked},
		{name: "403 scope", status: 403, body: `{"error":{"message":"Request had insufficient authentication scopes."}}`, wantKind: KindInsufficientScope},
		{name: "403 plain", status: 403, body: `{"error":{"message":"The caller does not have permission"}}`, wantKind: KindAccessDenied},
		{name: "404", status: 404, wantKind: KindResourceNotFound},
		{name: "429", status: 429, wantKind: KindRateLimited, retryable: true},
		{name: "500", status: 500, wantKind: KindProviderUnavailable, retryable: true},
		{name: "503", status: 503, wantKind: KindProviderUnavailable, retryable: true},
		{name: "teapot", status: 418, wantKind: KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyResponse(respWith(tt.status, tt.body, tt.header))
			if got.Kind != tt.wantKind {
				t.Fatalf("kind = %s, want %s", got.Kind.Code(), tt.wantKind.Code())
			}
			if got.Retryable() != tt.retryable {
				t.Fatalf("retryable = %v, want %v", got.Retryable(), tt.retryable)
			}
		})
	}
}

func TestClassifyResponse_RateLimitHint(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "7")
	got := ClassifyResponse(respWith(429, "", header))
	if got.Kind != KindRateLimited {
		t.Fatalf("kind = %s, want rate_limited", got.Kind.Code())
	}
	if got.RetryAfter != 7*time.Second {
		t.Fatalf("RetryAfter = %s, want 7s", got.RetryAfter)
	}
}

func TestClassifyTransportError(t *testing.T) {
	if got := ClassifyTransportError(context.DeadlineExceeded); got.Kind != KindNetworkTimeout {
		t.Fatalf("deadline exceeded classified as %s", got.Kind.Code())
	}
	if !ClassifyTransportError(context.DeadlineExceeded).Retryable() {
		t.Fatal("timeout should be retryable")
	}
	if got := ClassifyTransportError(errors.New("connection refused")); got.Kind != KindUnknown {
		t.Fatalf("generic error classified as %s", got.Kind.Code())
	}
}

func TestKindOf(t *testing.T) {
	wrapped := Errorf(KindRateLimited, "quota")
	if KindOf(wrapped) != KindRateLimited {
		t.Fatal("KindOf should unwrap taxonomy errors")
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Fatal("KindOf of a plain error should be unknown")
	}
}

func TestKindMessagesNeverEmpty(t *testing.T) {
	for kind, info := range kinds {
		if info.code == "" || info.message == "" {
			t.Fatalf("kind %d has an empty code or message", kind)
		}
	}
}
