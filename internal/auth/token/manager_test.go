package token

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/reviewpilot/reviewpilot/internal/db/models"
	"github.com/reviewpilot/reviewpilot/internal/gbp"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := db.AutoMigrate(&models.ConnectedAccount{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// newTokenServer fakes the provider token endpoint, counting refresh calls.
func newTokenServer(t *testing.T, hits *int32, status int, body string) *oauth2.Config {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return &oauth2.Config{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		Endpoint:     oauth2.Endpoint{TokenURL: srv.URL + "/token"},
	}
}

func seedAccount(t *testing.T, db *gorm.DB, expiresAt time.Time, refreshToken string) models.ConnectedAccount {
	t.Helper()
	acc := models.ConnectedAccount{
		ID:           "acc-1",
		UserID:       "user-1",
		Email:        "owner@example.com",
		AccessToken:  "stored-token",
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}
	if err := db.Create(&acc).Error; err != nil {
		t.Fatalf("create account: %v", err)
	}
	return acc
}

func TestGetValidToken_ReturnsStoredTokenWithinSkew(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db, time.Now().Add(time.Hour), "rt")

	var hits int32
	mgr := NewManager(db, newTokenServer(t, &hits, 200, `{}`))

	tok, err := mgr.GetValidToken(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("GetValidToken: %v", err)
	}
	if tok != "stored-token" {
		t.Fatalf("token = %q, want stored-token", tok)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatal("no refresh call expected for a fresh token")
	}
}

func TestGetValidToken_UnknownAccount(t *testing.T) {
	db := newTestDB(t)
	var hits int32
	mgr := NewManager(db, newTokenServer(t, &hits, 200, `{}`))

	_, err := mgr.GetValidToken(context.Background(), "missing")
	if gbp.KindOf(err) != gbp.KindResourceNotFound {
		t.Fatalf("err = %v, want not_found", err)
	}
}

func TestGetValidToken_NoRefreshTokenFailsRevoked(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db, time.Now().Add(-time.Hour), "")

	var hits int32
	mgr := NewManager(db, newTokenServer(t, &hits, 200, `{}`))

	_, err := mgr.GetValidToken(context.Background(), "acc-1")
	if gbp.KindOf(err) != gbp.KindCredentialRevoked {
		t.Fatalf("err = %v, want credential_revoked", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatal("a missing refresh token must not reach the provider")
	}
}

func TestGetValidToken_RefreshPersistsNewToken(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db, time.Now().Add(-time.Hour), "rt")

	var hits int32
	cfg := newTokenServer(t, &hits, 200, `{"access_token":"new-token","token_type":"Bearer","expires_in":3600}`)
	mgr := NewManager(db, cfg)

	tok, err := mgr.GetValidToken(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("GetValidToken: %v", err)
	}
	if tok != "new-token" {
		t.Fatalf("token = %q, want new-token", tok)
	}

	var saved models.ConnectedAccount
	if err := db.First(&saved, "id = ?", "acc-1").Error; err != nil {
		t.Fatalf("reload account: %v", err)
	}
	if saved.AccessToken != "new-token" {
		t.Fatalf("persisted token = %q, want new-token", saved.AccessToken)
	}
	if !saved.ExpiresAt.After(time.Now().Add(30 * time.Minute)) {
		t.Fatalf("persisted expiry %s not advanced", saved.ExpiresAt)
	}
}

func TestGetValidToken_SingleFlight(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db, time.Now().Add(-time.Hour), "rt")

	var hits int32
	cfg := newTokenServer(t, &hits, 200, `{"access_token":"new-token","token_type":"Bearer","expires_in":3600}`)
	mgr := NewManager(db, cfg)

	const callers = 10
	tokens := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := mgr.GetValidToken(context.Background(), "acc-1")
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
				return
			}
			tokens[i] = tok
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("provider refresh calls = %d, want exactly 1", got)
	}
	for i, tok := range tokens {
		if tok != "new-token" {
			t.Fatalf("caller %d got %q, want the shared refreshed token", i, tok)
		}
	}
}

func TestGetValidToken_InvalidGrantClearsCredentials(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db, time.Now().Add(-time.Hour), "rt")

	var hits int32
	cfg := newTokenServer(t, &hits, 400, `{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`)
	mgr := NewManager(db, cfg)

	_, err := mgr.GetValidToken(context.Background(), "acc-1")
	if gbp.KindOf(err) != gbp.KindCredentialRevoked {
		t.Fatalf("err = %v, want credential_revoked", err)
	}

	var saved models.ConnectedAccount
	if err := db.First(&saved, "id = ?", "acc-1").Error; err != nil {
		t.Fatalf("reload account: %v", err)
	}
	if saved.AccessToken != "" || saved.RefreshToken != "" {
		t.Fatalf("credentials not cleared: access=%q refresh=%q", saved.AccessToken, saved.RefreshToken)
	}
}

func TestGetValidToken_TransientRefreshFailure(t *testing.T) {
	db := newTestDB(t)
	seedAccount(t, db, time.Now().Add(-time.Hour), "rt")

	var hits int32
	cfg := newTokenServer(t, &hits, 503, `{"error":"temporarily_unavailable"}`)
	mgr := NewManager(db, cfg)

	_, err := mgr.GetValidToken(context.Background(), "acc-1")
	if gbp.KindOf(err) != gbp.KindCredentialExpired {
		t.Fatalf("err = %v, want credential_expired", err)
	}

	// Transient failures must leave the grant intact for a later retry.
	var saved models.ConnectedAccount
	db.First(&saved, "id = ?", "acc-1")
	if saved.RefreshToken != "rt" {
		t.Fatalf("refresh token lost on transient failure: %q", saved.RefreshToken)
	}
}

func TestIsPermanentRefreshError(t *testing.T) {
	tests := []struct {
		name      string
		errText   string
		permanent bool
	}{
		{name: "invalid grant", errText: `oauth2: cannot fetch token: 400 Bad Request {"error":"invalid_grant"}`, permanent: true},
		{name: "revoked", errText: "token has been expired or revoked", permanent: true},
		{name: "timeout", errText: "context deadline exceeded", permanent: false},
		{name: "temporary", errText: "temporarily_unavailable", permanent: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isPermanentRefreshError(assertErr(tt.errText))
			if got != tt.permanent {
				t.Fatalf("expected %v, got %v", tt.permanent, got)
			}
		})
	}
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
