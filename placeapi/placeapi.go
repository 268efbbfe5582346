// Package placeapi is the HTTP client for the external place search and
// details service. Calls are rate limited to respect upstream quotas and
// responses are cached in redis so resolver re-runs stay cheap.
package placeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"roamio/models"
	"roamio/rdx"
	"roamio/utils"

	"golang.org/x/time/rate"
)

// Candidate is one place-search hit.
type Candidate struct {
	PlaceID  string              `json:"place_id"`
	Name     string              `json:"name"`
	Address  string              `json:"address,omitempty"`
	Location *models.Coordinates `json:"location,omitempty"`
}

// Period is one weekly opening window. Open and Close are "HHMM" strings as
// the upstream service sends them; parsing belongs to the caller.
type Period struct {
	Weekday int    `json:"weekday"` // 0 = Sunday
	Open    string `json:"open"`
	Close   string `json:"close"`
}

// Details carries the opening-hours fields of one place.
type Details struct {
	PlaceID string   `json:"place_id"`
	Name    string   `json:"name"`
	Periods []Period `json:"periods"`
}

// Service is what the hours resolver consumes; tests substitute fakes.
type Service interface {
	Search(ctx context.Context, query string) ([]Candidate, error)
	Details(ctx context.Context, placeID string, fields []string) (*Details, error)
}

// APIError is a non-2xx upstream response.
type APIError struct {
	Op     string
	Status int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("place api %s: status %d", e.Op, e.Status)
}

// Retryable reports rate limiting and upstream overload as transient.
func (e *APIError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests ||
		e.Status == http.StatusServiceUnavailable ||
		e.Status >= 500
}

type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	limiter  *rate.Limiter
	cacheTTL time.Duration
}

// NewClient reads PLACE_API_URL and PLACE_API_KEY from the environment.
func NewClient() *Client {
	base := os.Getenv("PLACE_API_URL")
	if base == "" {
		base = "http://localhost:9200"
		log.Println("PLACE_API_URL not set; using", base)
	}
	return &Client{
		baseURL:  strings.TrimRight(base, "/"),
		apiKey:   os.Getenv("PLACE_API_KEY"),
		http:     &http.Client{Timeout: 8 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(5), 5), // 5 rps against upstream
		cacheTTL: 6 * time.Hour,
	}
}

func (c *Client) getJSON(ctx context.Context, op, rawURL string, dest any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return &APIError{Op: op, Status: resp.StatusCode}
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// Search returns candidates for a free-text place query, best match first.
func (c *Client) Search(ctx context.Context, query string) ([]Candidate, error) {
	key := "placeapi:search:" + utils.NormalizeQuery(query)

	var cached []Candidate
	if rdx.CacheGetJSON(ctx, key, &cached) {
		return cached, nil
	}

	u := c.baseURL + "/v1/places/search?q=" + url.QueryEscape(query)
	var out struct {
		Results []Candidate `json:"results"`
	}
	if err := c.getJSON(ctx, "search", u, &out); err != nil {
		return nil, err
	}

	rdx.CacheSetJSON(ctx, key, out.Results, c.cacheTTL)
	return out.Results, nil
}

// Details fetches a place scoped to the requested fields.
func (c *Client) Details(ctx context.Context, placeID string, fields []string) (*Details, error) {
	key := "placeapi:details:" + placeID + ":" + strings.Join(fields, ",")

	var cached Details
	if rdx.CacheGetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	u := c.baseURL + "/v1/places/" + url.PathEscape(placeID) + "?fields=" + url.QueryEscape(strings.Join(fields, ","))
	var out Details
	if err := c.getJSON(ctx, "details", u, &out); err != nil {
		return nil, err
	}

	rdx.CacheSetJSON(ctx, key, out, c.cacheTTL)
	return &out, nil
}
