package google

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/reviewpilot/reviewpilot/internal/gbp"
)

// stateTTL bounds how long a consent redirect stays valid.
const stateTTL = 10 * time.Minute

// State is the payload carried through the OAuth round trip. It ties the
// callback to the user and business that started the flow.
type State struct {
	UserID     string `json:"u"`
	BusinessID string `json:"b"`
	IssuedAt   int64  `json:"t"` // unix seconds
}

// EncodeState serializes and signs a state blob: base64url(json).base64url(hmac).
func EncodeState(secret []byte, s State) (string, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	body := base64.RawURLEncoding.EncodeToString(payload)
	return body + "." + sign(secret, body), nil
}

// DecodeState verifies the signature and freshness of a state blob.
// Tampered or stale blobs fail with InvalidState.
func DecodeState(secret []byte, blob string) (*State, error) {
	body, sig, ok := strings.Cut(blob, ".")
	if !ok || !hmac.Equal([]byte(sign(secret, body)), []byte(sig)) {
		return nil, gbp.Errorf(gbp.KindInvalidState, "state signature mismatch")
	}

	payload, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, gbp.NewError(gbp.KindInvalidState, err)
	}
	var s State
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, gbp.NewError(gbp.KindInvalidState, err)
	}

	issued := time.Unix(s.IssuedAt, 0)
	if time.Since(issued) > stateTTL || issued.After(time.Now().Add(time.Minute)) {
		return nil, gbp.Errorf(gbp.KindInvalidState, "state issued at %s is outside validity window", issued.Format(time.RFC3339))
	}
	return &s, nil
}

func sign(secret []byte, body string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
