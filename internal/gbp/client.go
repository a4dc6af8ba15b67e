package gbp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/reviewpilot/reviewpilot/internal/util"
)

const (
	accountMgmtBase  = "https://mybusinessaccountmanagement.googleapis.com/v1"
	businessInfoBase = "https://mybusinessbusinessinformation.googleapis.com/v1"
	reviewsBase      = "https://mybusiness.googleapis.com/v4"

	userAgent = "reviewpilot/1.0"

	requestTimeout = 30 * time.Second
	maxAttempts    = 3
	backoffBase    = 1 * time.Second

	reviewPageSize = 50
)

// TokenSource supplies valid access tokens for a connected account.
// Implemented by the token manager.
type TokenSource interface {
	GetValidToken(ctx context.Context, accountID string) (string, error)
	ForceRefresh(ctx context.Context, accountID string) (string, error)
}

// Client is the resilient Business Profile API client. Every outbound
// provider call in the system goes through it.
type Client struct {
	httpClient *http.Client
	tokens     TokenSource

	// overridable in tests
	accountMgmtURL  string
	businessInfoURL string
	reviewsURL      string
	timeout         time.Duration
	backoff         time.Duration
}

// NewClient creates a provider client backed by the given token source.
func NewClient(tokens TokenSource) *Client {
	return &Client{
		httpClient:      &http.Client{},
		tokens:          tokens,
		accountMgmtURL:  accountMgmtBase,
		businessInfoURL: businessInfoBase,
		reviewsURL:      reviewsBase,
		timeout:         requestTimeout,
		backoff:         backoffBase,
	}
}

// ListAccounts returns the Business Profile accounts visible to the credential.
func (c *Client) ListAccounts(ctx context.Context, accountID string) ([]Account, error) {
	var out ListAccountsResponse
	if err := c.do(ctx, accountID, http.MethodGet, c.accountMgmtURL+"/accounts", nil, &out); err != nil {
		return nil, err
	}
	return out.Accounts, nil
}

// ListLocations returns the locations under one provider account.
// accountName is the provider resource name, e.g. "accounts/123".
func (c *Client) ListLocations(ctx context.Context, accountID, accountName string) ([]Location, error) {
	u := fmt.Sprintf("%s/%s/locations?readMask=name,title,storeCode&pageSize=100", c.businessInfoURL, accountName)
	var out ListLocationsResponse
	if err := c.do(ctx, accountID, http.MethodGet, u, nil, &out); err != nil {
		return nil, err
	}
	return out.Locations, nil
}

// ListReviews fetches one page of the review feed for a location.
// locationName is the full v4 resource name, e.g. "accounts/123/locations/456".
func (c *Client) ListReviews(ctx context.Context, accountID, locationName, pageToken string) (*ListReviewsResponse, error) {
	u := fmt.Sprintf("%s/%s/reviews?pageSize=%d", c.reviewsURL, locationName, reviewPageSize)
	if pageToken != "" {
		u += "&pageToken=" + url.QueryEscape(pageToken)
	}
	var out ListReviewsResponse
	if err := c.do(ctx, accountID, http.MethodGet, u, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateReply publishes (or overwrites) the business reply on a review.
// reviewName is the full v4 resource name of the review.
func (c *Client) UpdateReply(ctx context.Context, accountID, reviewName, comment string) (*ReviewReply, error) {
	body := map[string]string{"comment": comment}
	var out ReviewReply
	if err := c.do(ctx, accountID, http.MethodPut, fmt.Sprintf("%s/%s/reply", c.reviewsURL, reviewName), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do issues one provider request with retry, backoff and the
// refresh-and-retry escalation on a locally-stale credential.
func (c *Client) do(ctx context.Context, accountID, method, rawURL string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return Errorf(KindUnknown, "marshal request: %w", err)
		}
	}

	var lastErr *Error
	escalated := false

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		token, err := c.tokens.GetValidToken(ctx, accountID)
		if err != nil {
			return err
		}

		cerr := c.once(ctx, token, method, rawURL, payload, out)
		if cerr == nil {
			return nil
		}
		lastErr = cerr

		// A 401 on the first attempt usually means the store believes the
		// token is valid but the provider already expired it. Force one
		// refresh and retry outside the normal budget.
		if cerr.Kind == KindCredentialExpired && attempt == 1 && !escalated {
			escalated = true
			log.Printf("🔄 Provider rejected cached token for account %s, forcing refresh", accountID)
			if _, err := c.tokens.ForceRefresh(ctx, accountID); err != nil {
				return err
			}
			attempt--
			continue
		}

		if !cerr.Retryable() || attempt == maxAttempts {
			break
		}

		wait := c.backoff << (attempt - 1)
		if cerr.RetryAfter > 0 {
			wait += cerr.RetryAfter
		}
		log.Printf("⚠️ Provider call failed (%s), attempt %d/%d, backing off %s", cerr.Kind.Code(), attempt, maxAttempts, wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ClassifyTransportError(ctx.Err())
		}
	}

	return lastErr
}

// once performs a single bounded attempt.
func (c *Client) once(ctx context.Context, token, method, rawURL string, payload []byte, out interface{}) *Error {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody *bytes.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, rawURL, reqBody)
	if err != nil {
		return Errorf(KindUnknown, "build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	if util.IsVerbose() && payload != nil {
		log.Printf("🔄 [VERBOSE] %s %s payload: %s", method, rawURL, util.TruncateBytes(payload))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ClassifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ClassifyResponse(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return Errorf(KindUnknown, "decode response: %w", err)
		}
	}
	return nil
}
