package gbp

import "time"

// StarRating is the provider's categorical rating vocabulary.
type StarRating string

const (
	StarRatingUnspecified StarRating = "STAR_RATING_UNSPECIFIED"
	StarRatingOne         StarRating = "ONE"
	StarRatingTwo         StarRating = "TWO"
	StarRatingThree       StarRating = "THREE"
	StarRatingFour        StarRating = "FOUR"
	StarRatingFive        StarRating = "FIVE"
)

// Score maps the rating vocabulary to a 1-5 numeric score. Unknown or
// unspecified values fail closed to 0 (unrated) rather than guessing.
func (s StarRating) Score() int {
	switch s {
	case StarRatingOne:
		return 1
	case StarRatingTwo:
		return 2
	case StarRatingThree:
		return 3
	case StarRatingFour:
		return 4
	case StarRatingFive:
		return 5
	default:
		return 0
	}
}

// Reviewer identifies the review author.
type Reviewer struct {
	DisplayName     string `json:"displayName"`
	ProfilePhotoURL string `json:"profilePhotoUrl"`
	IsAnonymous     bool   `json:"isAnonymous"`
}

// ReviewReply is the business's published response attached to a review.
type ReviewReply struct {
	Comment    string    `json:"comment"`
	UpdateTime time.Time `json:"updateTime"`
}

// Review is one review as served by the provider's v4 listing endpoint.
type Review struct {
	Name       string       `json:"name"` // full resource name, unique per review
	ReviewID   string       `json:"reviewId"`
	Reviewer   Reviewer     `json:"reviewer"`
	StarRating StarRating   `json:"starRating"`
	Comment    string       `json:"comment"`
	CreateTime time.Time    `json:"createTime"`
	UpdateTime time.Time    `json:"updateTime"`
	Reply      *ReviewReply `json:"reviewReply,omitempty"`
}

// ListReviewsResponse is one page of the review feed.
type ListReviewsResponse struct {
	Reviews          []Review `json:"reviews"`
	AverageRating    float64  `json:"averageRating"`
	TotalReviewCount int      `json:"totalReviewCount"`
	NextPageToken    string   `json:"nextPageToken"`
}

// Account is one Business Profile account visible to the credential.
type Account struct {
	Name        string `json:"name"` // "accounts/{id}"
	AccountName string `json:"accountName"`
	Type        string `json:"type"`
}

// ListAccountsResponse is the account management listing.
type ListAccountsResponse struct {
	Accounts      []Account `json:"accounts"`
	NextPageToken string    `json:"nextPageToken"`
}

// Location is one physical location under an account.
type Location struct {
	Name      string `json:"name"` // "locations/{id}"
	Title     string `json:"title"`
	StoreCode string `json:"storeCode"`
}

// ListLocationsResponse is the business information listing.
type ListLocationsResponse struct {
	Locations     []Location `json:"locations"`
	NextPageToken string     `json:"nextPageToken"`
}

// UserInfo is the OAuth profile of the connected Google account.
type UserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}
