package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"example.com/clubsync/internal/domain"
	"example.com/clubsync/internal/observability"
)

const defaultBaseURL = "https://www.strava.com/api/v3"

// Page is the tagged result of one page fetch. An empty page with a nil error
// means end of history; errors are never folded into an empty list.
type Page struct {
	Activities []ActivityRecord
	Empty      bool
}

// Client fetches activity pages from the provider API. A single rate limiter
// is shared by every request the client issues, across all accounts, because
// the provider enforces one quota per application, not per athlete.
type Client struct {
	http        *http.Client
	baseURL     string
	limiter     *rate.Limiter
	pageTimeout time.Duration
	workers     int
	logger      *log.Logger
}

// Option configures optional behaviour for the Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL, used by tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRequestBudget caps outbound requests per minute across all accounts.
func WithRequestBudget(perMinute int) Option {
	return func(c *Client) {
		if perMinute > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
		}
	}
}

// WithPageTimeout sets a deadline on each page request so one unresponsive
// page cannot stall a whole batch run.
func WithPageTimeout(d time.Duration) Option {
	return func(c *Client) { c.pageTimeout = d }
}

// WithWorkers overrides the parallel fetch worker cap.
func WithWorkers(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger overrides the logger used to report per-page failures.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient constructs a Client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: time.Minute},
		baseURL: defaultBaseURL,
		limiter: rate.NewLimiter(rate.Inf, 0),
		workers: 10,
		logger:  log.New(log.Writer(), "[strava] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchPage retrieves one page of the athlete's activities. page is 1-based;
// perPage is clamped to the provider maximum. No retries happen here, retry
// policy belongs to the caller.
func (c *Client) FetchPage(ctx context.Context, accessToken string, page, perPage int) (Page, error) {
	if page < 1 {
		return Page{}, fmt.Errorf("page must be 1-based, got %d", page)
	}
	if perPage < 1 || perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Page{}, fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}

	if c.pageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.pageTimeout)
		defer cancel()
	}

	url := fmt.Sprintf("%s/athlete/activities?page=%d&per_page=%d", c.baseURL, page, perPage)
	var records []ActivityRecord
	if err := c.getJSON(ctx, accessToken, url, &records); err != nil {
		return Page{}, err
	}
	observability.RecordPageFetched()
	return Page{Activities: records, Empty: len(records) == 0}, nil
}

// FetchStats retrieves the athlete's all-time totals per sport.
func (c *Client) FetchStats(ctx context.Context, accessToken string, athleteID int64) (Stats, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Stats{}, fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}

	url := c.baseURL + "/athletes/" + strconv.FormatInt(athleteID, 10) + "/stats"
	var payload struct {
		AllRideTotals struct {
			Count int `json:"count"`
		} `json:"all_ride_totals"`
		AllRunTotals struct {
			Count int `json:"count"`
		} `json:"all_run_totals"`
		AllSwimTotals struct {
			Count int `json:"count"`
		} `json:"all_swim_totals"`
	}
	if err := c.getJSON(ctx, accessToken, url, &payload); err != nil {
		return Stats{}, err
	}
	return Stats{
		Rides: payload.AllRideTotals.Count,
		Runs:  payload.AllRunTotals.Count,
		Swims: payload.AllSwimTotals.Count,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, accessToken, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, url)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d from %s", domain.ErrAuthRevoked, resp.StatusCode, url)
	default:
		return fmt.Errorf("%w: status %d from %s", domain.ErrTransient, resp.StatusCode, url)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}
