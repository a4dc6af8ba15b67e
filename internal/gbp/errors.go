// Package gbp is the sole egress to the Google Business Profile API.
// It owns the error taxonomy every other component speaks, the resilient
// HTTP client, and the provider wire types.
package gbp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Kind identifies one failure class in the closed provider error taxonomy.
// No component above this package inspects raw transport status codes.
type Kind int

const (
	KindUnknown Kind = iota
	KindUserCancelled
	KindInvalidState
	KindCredentialExpired
	KindCredentialRevoked
	KindInsufficientScope
	KindResourceNotFound
	KindAccessDenied
	KindRateLimited
	KindProviderUnavailable
	KindNetworkTimeout
	KindConfigurationMissing
)

type kindInfo struct {
	code      string
	retryable bool
	message   string
}

var kinds = map[Kind]kindInfo{
	KindUnknown:              {"unknown", false, "Something went wrong. Please try again later."},
	KindUserCancelled:        {"user_cancelled", false, "The Google sign-in was cancelled."},
	KindInvalidState:         {"invalid_state", false, "The sign-in link expired. Please start over."},
	KindCredentialExpired:    {"credential_expired", true, "The Google session expired. Retrying shortly may help."},
	KindCredentialRevoked:    {"credential_revoked", false, "Google access was revoked. Please reconnect your account."},
	KindInsufficientScope:    {"insufficient_scope", false, "The connected account is missing a required permission. Please reconnect."},
	KindResourceNotFound:     {"not_found", false, "The requested Google resource no longer exists."},
	KindAccessDenied:         {"access_denied", false, "Google denied access to this resource."},
	KindRateLimited:          {"rate_limited", true, "Google is rate limiting requests. Please wait a moment."},
	KindProviderUnavailable:  {"provider_unavailable", true, "Google is temporarily unavailable."},
	KindNetworkTimeout:       {"network_timeout", true, "The request to Google timed out."},
	KindConfigurationMissing: {"configuration_missing", false, "The Google integration is not configured."},
}

// Code returns the stable machine code serialized to API consumers.
func (k Kind) Code() string { return kinds[k].code }

// Retryable reports whether a retry of the same operation can succeed.
func (k Kind) Retryable() bool { return kinds[k].retryable }

// Message returns the default user-facing text for the kind.
func (k Kind) Message() string { return kinds[k].message }

// Error is a classified provider failure.
type Error struct {
	Kind       Kind
	RetryAfter time.Duration // provider retry hint, 0 when absent
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind.Code(), e.cause)
	}
	return e.Kind.Code()
}

func (e *Error) Unwrap() error { return e.cause }

// Retryable is a convenience passthrough to the kind's flag.
func (e *Error) Retryable() bool { return e.Kind.Retryable() }

// Message returns the user-facing text, never the raw provider body.
func (e *Error) Message() string { return e.Kind.Message() }

// NewError wraps cause with a taxonomy kind.
func NewError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

// Errorf builds a classified error from a format string.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, cause: fmt.Errorf(format, args...)}
}

// KindOf extracts the taxonomy kind from err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// revocation markers Google uses across its token and data endpoints
var revokedMarkers = []string{
	"invalid_grant",
	"token has been expired or revoked",
	"token has been revoked",
	"account has been deleted",
}

func bodyIndicatesRevocation(body string) bool {
	lower := strings.ToLower(body)
	for _, marker := range revokedMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// ClassifyResponse maps a non-2xx provider response to the taxonomy.
// The response body is consumed; callers must not read it afterwards.
func ClassifyResponse(resp *http.Response) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
	text := string(body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if bodyIndicatesRevocation(text) {
			return Errorf(KindCredentialRevoked, "provider returned 401: %s", text)
		}
		return Errorf(KindCredentialExpired, "provider returned 401")
	case resp.StatusCode == http.StatusForbidden:
		lower := strings.ToLower(text)
		if strings.Contains(lower, "insufficient") || strings.Contains(lower, "scope") {
			return Errorf(KindInsufficientScope, "provider returned 403: %s", text)
		}
		return Errorf(KindAccessDenied, "provider returned 403")
	case resp.StatusCode == http.StatusNotFound:
		return Errorf(KindResourceNotFound, "provider returned 404")
	case resp.StatusCode == http.StatusTooManyRequests:
		e := Errorf(KindRateLimited, "provider returned 429")
		e.RetryAfter = parseRetryHint(resp.Header, text)
		return e
	case resp.StatusCode >= 500:
		return Errorf(KindProviderUnavailable, "provider returned %d", resp.StatusCode)
	default:
		return Errorf(KindUnknown, "provider returned %d: %s", resp.StatusCode, text)
	}
}

// ClassifyTransportError maps a transport-level failure to the taxonomy.
func ClassifyTransportError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(KindNetworkTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewError(KindNetworkTimeout, err)
	}
	return NewError(KindUnknown, err)
}
