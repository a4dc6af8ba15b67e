package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/reviewpilot/reviewpilot/internal/db/models"
	"github.com/reviewpilot/reviewpilot/internal/gbp"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := db.AutoMigrate(&models.LocationConnection{}, &models.Review{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func seedConnection(t *testing.T, db *gorm.DB, businessID string, syncEnabled bool) {
	t.Helper()
	conn := models.LocationConnection{
		ID:           "conn-" + businessID,
		BusinessID:   businessID,
		AccountID:    "acc-1",
		LocationName: "accounts/1/locations/2",
		Title:        "Test Cafe",
		SyncEnabled:  syncEnabled,
	}
	if err := db.Create(&conn).Error; err != nil {
		t.Fatalf("create connection: %v", err)
	}
}

// fakeLister serves canned review pages.
type fakeLister struct {
	pages []*gbp.ListReviewsResponse
	calls int
	// endless makes every page return a next token, simulating a feed
	// that never terminates.
	endless bool
}

func (f *fakeLister) ListReviews(ctx context.Context, accountID, locationName, pageToken string) (*gbp.ListReviewsResponse, error) {
	f.calls++
	if f.endless {
		return &gbp.ListReviewsResponse{
			Reviews:       makeReviews(5, f.calls*100),
			NextPageToken: fmt.Sprintf("page-%d", f.calls),
		}, nil
	}
	if f.calls > len(f.pages) {
		return &gbp.ListReviewsResponse{}, nil
	}
	return f.pages[f.calls-1], nil
}

func makeReviews(n, offset int) []gbp.Review {
	reviews := make([]gbp.Review, n)
	for i := range reviews {
		reviews[i] = gbp.Review{
			ReviewID:   fmt.Sprintf("rev-%d", offset+i),
			Reviewer:   gbp.Reviewer{DisplayName: "A. Customer"},
			StarRating: gbp.StarRatingFour,
			Comment:    "nice place",
			CreateTime: time.Now().Add(-time.Hour),
		}
	}
	return reviews
}

func TestSyncBusiness_ImportsPaginatedFeed(t *testing.T) {
	db := newTestDB(t)
	seedConnection(t, db, "biz-1", true)

	lister := &fakeLister{pages: []*gbp.ListReviewsResponse{
		{Reviews: makeReviews(50, 0), NextPageToken: "p2"},
		{Reviews: makeReviews(3, 50)},
	}}
	engine := NewEngine(db, lister)

	summary, err := engine.SyncBusiness(context.Background(), "biz-1")
	if err != nil {
		t.Fatalf("SyncBusiness: %v", err)
	}
	if summary.Imported != 53 || summary.Updated != 0 || summary.Skipped != 0 {
		t.Fatalf("summary = %+v, want 53/0/0", summary)
	}
	if lister.calls != 2 {
		t.Fatalf("pages fetched = %d, want 2", lister.calls)
	}

	var conn models.LocationConnection
	db.First(&conn, "business_id = ?", "biz-1")
	if conn.LastSyncedAt == nil {
		t.Fatal("last-synced timestamp not stamped")
	}
}

func TestSyncBusiness_SecondRunUpdatesNotDuplicates(t *testing.T) {
	db := newTestDB(t)
	seedConnection(t, db, "biz-1", true)

	first := &fakeLister{pages: []*gbp.ListReviewsResponse{
		{Reviews: []gbp.Review{{ReviewID: "rev-1", StarRating: gbp.StarRatingTwo, Comment: "meh"}}},
	}}
	engine := NewEngine(db, first)
	if _, err := engine.SyncBusiness(context.Background(), "biz-1"); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	second := &fakeLister{pages: []*gbp.ListReviewsResponse{
		{Reviews: []gbp.Review{{ReviewID: "rev-1", StarRating: gbp.StarRatingFive, Comment: "they fixed it!"}}},
	}}
	engine = NewEngine(db, second)
	summary, err := engine.SyncBusiness(context.Background(), "biz-1")
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if summary.Updated != 1 || summary.Imported != 0 {
		t.Fatalf("summary = %+v, want 0 imported / 1 updated", summary)
	}

	var count int64
	db.Model(&models.Review{}).Where("business_id = ?", "biz-1").Count(&count)
	if count != 1 {
		t.Fatalf("review rows = %d, want 1", count)
	}

	var review models.Review
	db.First(&review, "business_id = ? AND external_id = ?", "biz-1", "rev-1")
	if review.Rating != 5 || review.Comment != "they fixed it!" {
		t.Fatalf("mutable fields not updated: %+v", review)
	}
}

func TestSyncBusiness_PageCap(t *testing.T) {
	db := newTestDB(t)
	seedConnection(t, db, "biz-1", true)

	lister := &fakeLister{endless: true}
	engine := NewEngine(db, lister)

	summary, err := engine.SyncBusiness(context.Background(), "biz-1")
	if err != nil {
		t.Fatalf("SyncBusiness: %v", err)
	}
	if lister.calls != maxPagesPerSync {
		t.Fatalf("provider pages fetched = %d, want %d", lister.calls, maxPagesPerSync)
	}
	if summary.Imported != maxPagesPerSync*5 {
		t.Fatalf("imported = %d, want %d", summary.Imported, maxPagesPerSync*5)
	}
}

func TestSyncBusiness_NoConnection(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db, &fakeLister{})

	if _, err := engine.SyncBusiness(context.Background(), "biz-none"); !errors.Is(err, ErrNoConnection) {
		t.Fatalf("err = %v, want ErrNoConnection", err)
	}
}

func TestSyncBusiness_SyncDisabled(t *testing.T) {
	db := newTestDB(t)
	seedConnection(t, db, "biz-1", false)
	engine := NewEngine(db, &fakeLister{})

	if _, err := engine.SyncBusiness(context.Background(), "biz-1"); !errors.Is(err, ErrNoConnection) {
		t.Fatalf("err = %v, want ErrNoConnection", err)
	}
}

func TestSyncBusiness_SkipsRecordsWithoutIdentifier(t *testing.T) {
	db := newTestDB(t)
	seedConnection(t, db, "biz-1", true)

	lister := &fakeLister{pages: []*gbp.ListReviewsResponse{
		{Reviews: []gbp.Review{
			{ReviewID: "rev-1", StarRating: gbp.StarRatingThree},
			{StarRating: gbp.StarRatingFive}, // no identifier at all
		}},
	}}
	engine := NewEngine(db, lister)

	summary, err := engine.SyncBusiness(context.Background(), "biz-1")
	if err != nil {
		t.Fatalf("SyncBusiness: %v", err)
	}
	if summary.Imported != 1 || summary.Skipped != 1 {
		t.Fatalf("summary = %+v, want 1 imported / 1 skipped", summary)
	}
}

func TestSyncBusiness_EmptyFeedStillStampsSync(t *testing.T) {
	db := newTestDB(t)
	seedConnection(t, db, "biz-1", true)

	engine := NewEngine(db, &fakeLister{pages: []*gbp.ListReviewsResponse{{}}})
	summary, err := engine.SyncBusiness(context.Background(), "biz-1")
	if err != nil {
		t.Fatalf("SyncBusiness: %v", err)
	}
	if summary.Imported != 0 || summary.Updated != 0 || summary.Skipped != 0 {
		t.Fatalf("summary = %+v, want zeros", summary)
	}

	var conn models.LocationConnection
	db.First(&conn, "business_id = ?", "biz-1")
	if conn.LastSyncedAt == nil {
		t.Fatal("empty feed must still advance the last-synced timestamp")
	}
}
