package gbp

import "testing"

func TestStarRatingScore(t *testing.T) {
	tests := []struct {
		rating StarRating
		want   int
	}{
		{StarRatingOne, 1},
		{StarRatingTwo, 2},
		{StarRatingThree, 3},
		{StarRatingFour, 4},
		{StarRatingFive, 5},
		{StarRatingUnspecified, 0},
		{StarRating("SIX"), 0},
		{StarRating(""), 0},
	}
	for _, tt := range tests {
		if got := tt.rating.Score(); got != tt.want {
			t.Errorf("Score(%q) = %d, want %d", tt.rating, got, tt.want)
		}
	}
}
