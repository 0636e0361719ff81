// ABOUTME: Rate-limited HTTP client for day-scoped web API endpoints.
// ABOUTME: Maps 401 and token refresh failures to ErrAuthExpired and 429 to ErrRateLimited.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harperreed/fitlog/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the production web API.
	DefaultBaseURL = "https://api.fitbit.com"

	// DefaultRequestsPerHour is the account-wide request ceiling.
	DefaultRequestsPerHour = 150

	limiterBurst = 10
)

var (
	// ErrAuthExpired means the stored credentials were rejected or could not
	// be refreshed. The plan stops; the user must re-authorize.
	ErrAuthExpired = errors.New("authorization expired: re-authorize and save a new token file")

	// ErrRateLimited means the API answered 429.
	ErrRateLimited = errors.New("rate limited by the web API")

	// ErrUnsupportedMetric means the metric has no web API endpoint.
	ErrUnsupportedMetric = errors.New("metric is not available from the web API")
)

// StatusError is returned for any other non-200 response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error: %d - %s", e.Code, e.Body)
}

// NewLimiter creates the shared limiter for perHour requests per hour.
func NewLimiter(perHour int) *rate.Limiter {
	if perHour <= 0 {
		perHour = DefaultRequestsPerHour
	}
	return rate.NewLimiter(rate.Every(time.Hour/time.Duration(perHour)), limiterBurst)
}

// Endpoint returns the API path serving one day of a metric.
func Endpoint(metric models.MetricType, day models.Day) (string, error) {
	d := day.String()
	switch metric {
	case models.MetricHeartRate:
		return fmt.Sprintf("/1/user/-/activities/heart/date/%s/1d/1min.json", d), nil
	case models.MetricSteps, models.MetricCalories, models.MetricDistance:
		return fmt.Sprintf("/1/user/-/activities/%s/date/%s/1d/15min.json", metric, d), nil
	case models.MetricSleep:
		return fmt.Sprintf("/1.2/user/-/sleep/date/%s.json", d), nil
	case models.MetricActivitySummary:
		return fmt.Sprintf("/1/user/-/activities/date/%s.json", d), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedMetric, metric)
}

// Client performs authenticated, rate-limited GETs.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	baseURL     string
}

// NewClient creates a client. httpClient should carry the bearer token,
// usually from oauth2.NewClient.
func NewClient(httpClient *http.Client, limiter *rate.Limiter, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if limiter == nil {
		limiter = NewLimiter(DefaultRequestsPerHour)
	}
	return &Client{
		httpClient:  httpClient,
		rateLimiter: limiter,
		baseURL:     strings.TrimRight(baseURL, "/"),
	}
}

// FetchDay returns the raw page for one (metric, day). Waiting on the limiter
// honors ctx; once the request is issued it runs to completion.
func (c *Client) FetchDay(ctx context.Context, metric models.MetricType, day models.Day) ([]byte, error) {
	endpoint, err := Endpoint(metric, day)
	if err != nil {
		return nil, err
	}
	if err := c.rateLimiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, fmt.Errorf("%w: %v", ErrAuthExpired, err)
		}
		return nil, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", endpoint, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusUnauthorized:
		return nil, ErrAuthExpired
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	}
	return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
}
