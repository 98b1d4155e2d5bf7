// Package strava implements the activity source against the Strava v3
// API: refresh-token auth, paginated activity listing, and lap
// retrieval.
package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/runlens/runlens/internal/activities"
	"github.com/runlens/runlens/internal/httpkit"
	"github.com/runlens/runlens/internal/observability"
)

const (
	// DefaultBaseURL is the Strava v3 API root.
	DefaultBaseURL = "https://www.strava.com/api/v3"

	// tokenURL is where refresh tokens are exchanged for access
	// tokens.
	tokenURL = "https://www.strava.com/oauth/token"

	// pageSize is the maximum Strava allows per activities page.
	pageSize = 200

	// tokenSlack renews the access token this long before its actual
	// expiry.
	tokenSlack = 5 * time.Minute
)

// APIError is a non-2xx response from Strava.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("strava API returned %d: %s", e.Status, e.Body)
}

// Config carries the OAuth application credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	BaseURL      string
}

// Client talks to the Strava API. Safe for concurrent use.
type Client struct {
	cfg      Config
	baseURL  string
	tokenURL string
	http     *http.Client
	logger   *slog.Logger

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time

	// sleep is swapped in tests to avoid real rate-limit waits.
	sleep func(time.Duration)
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		cfg:      cfg,
		baseURL:  strings.TrimRight(baseURL, "/"),
		tokenURL: tokenURL,
		http: httpkit.NewClient(
			httpkit.WithTimeout(30*time.Second),
			httpkit.WithRetry(2, time.Second),
			httpkit.WithLogger(logger),
		),
		logger: logger,
		sleep:  time.Sleep,
	}
}

// FetchAllActivities pages through the full activity history, newest
// first.
func (c *Client) FetchAllActivities(ctx context.Context) ([]activities.Activity, error) {
	return c.fetchActivities(ctx, 0, 0)
}

// FetchActivitiesByDateRange returns activities started inside the
// inclusive epoch-second window. Strava's before parameter is
// exclusive, so the upper bound is pushed out a day and trimmed here.
func (c *Client) FetchActivitiesByDateRange(ctx context.Context, after, before int64) ([]activities.Activity, error) {
	fetchBefore := before
	if fetchBefore > 0 {
		fetchBefore += 86400
	}
	records, err := c.fetchActivities(ctx, after, fetchBefore)
	if err != nil {
		return nil, err
	}
	if before <= 0 {
		return records, nil
	}
	cutoff := time.Unix(before, 0)
	out := records[:0]
	for _, a := range records {
		if !a.StartDateLocal.After(cutoff) {
			out = append(out, a)
		}
	}
	return out, nil
}

// FetchActivityLaps returns the lap splits of one activity.
func (c *Client) FetchActivityLaps(ctx context.Context, activityID int64) ([]activities.Lap, error) {
	var raw []apiLap
	path := fmt.Sprintf("/activities/%d/laps", activityID)
	if err := c.getJSON(ctx, path, nil, &raw); err != nil {
		observability.UpstreamFetches.WithLabelValues("laps", "error").Inc()
		return nil, err
	}
	observability.UpstreamFetches.WithLabelValues("laps", "ok").Inc()

	laps := make([]activities.Lap, len(raw))
	for i, l := range raw {
		laps[i] = l.toLap(activityID)
	}
	return laps, nil
}

func (c *Client) fetchActivities(ctx context.Context, after, before int64) ([]activities.Activity, error) {
	var all []activities.Activity
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("per_page", strconv.Itoa(pageSize))
		params.Set("page", strconv.Itoa(page))
		if after > 0 {
			params.Set("after", strconv.FormatInt(after, 10))
		}
		if before > 0 {
			params.Set("before", strconv.FormatInt(before, 10))
		}

		var raw []apiActivity
		if err := c.getJSON(ctx, "/athlete/activities", params, &raw); err != nil {
			observability.UpstreamFetches.WithLabelValues("activities", "error").Inc()
			return nil, err
		}

		for _, a := range raw {
			all = append(all, a.toActivity())
		}
		if len(raw) < pageSize {
			break
		}
	}
	observability.UpstreamFetches.WithLabelValues("activities", "ok").Inc()
	c.logger.Debug("fetched activities", "count", len(all), "after", after, "before", before)
	return all, nil
}

// getJSON performs an authenticated GET and decodes the body. A 429 is
// retried once after honoring Retry-After.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	retried := false
	for {
		token, err := c.accessTokenFor(ctx)
		if err != nil {
			return err
		}

		u := c.baseURL + path
		if len(params) > 0 {
			u += "?" + params.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("requesting %s: %w", path, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests && !retried {
			wait := retryAfter(resp)
			httpkit.DrainAndClose(resp.Body, 1<<20)
			c.logger.Warn("rate limited by strava", "path", path, "wait", wait)
			retried = true
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			c.sleep(wait)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &APIError{Status: resp.StatusCode, Body: httpkit.ReadErrorBody(resp.Body, 1<<20)}
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		httpkit.DrainAndClose(resp.Body, 1<<20)
		if err != nil {
			return fmt.Errorf("decoding %s response: %w", path, err)
		}
		return nil
	}
}

// accessTokenFor returns a valid access token, exchanging the refresh
// token when the cached one is missing or near expiry.
func (c *Client) accessTokenFor(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Until(c.expiresAt) > tokenSlack {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("refresh_token", c.cfg.RefreshToken)
	form.Set("grant_type", "refresh_token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("refreshing access token: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 1<<20)

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Status: resp.StatusCode, Body: httpkit.ReadErrorBody(resp.Body, 1<<20)}
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresAt   int64  `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token response carried no access token")
	}

	c.accessToken = tok.AccessToken
	c.expiresAt = time.Unix(tok.ExpiresAt, 0)
	c.logger.Debug("refreshed strava access token", "expires_at", c.expiresAt)
	return c.accessToken, nil
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 15 * time.Second
}

// Wire shapes. Strava reports distances in meters and speeds in m/s.

type apiActivity struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	StartDateLocal     string  `json:"start_date_local"`
	Distance           float64 `json:"distance"`
	MovingTime         int     `json:"moving_time"`
	ElapsedTime        int     `json:"elapsed_time"`
	TotalElevationGain float64 `json:"total_elevation_gain"`
	AverageSpeed       float64 `json:"average_speed"`
	MaxSpeed           float64 `json:"max_speed"`
	AverageHeartrate   float64 `json:"average_heartrate"`
	HasHeartrate       bool    `json:"has_heartrate"`
	Type               string  `json:"type"`
	Private            bool    `json:"private"`
	Manual             bool    `json:"manual"`
}

func (a apiActivity) toActivity() activities.Activity {
	// start_date_local is RFC 3339 with a Z suffix but already shifted
	// to the athlete's wall clock.
	start, err := time.Parse(time.RFC3339, a.StartDateLocal)
	if err != nil {
		start = time.Time{}
	}
	return activities.Activity{
		ID:                 a.ID,
		Name:               a.Name,
		StartDateLocal:     start.UTC(),
		Distance:           a.Distance,
		MovingTime:         a.MovingTime,
		ElapsedTime:        a.ElapsedTime,
		TotalElevationGain: a.TotalElevationGain,
		AverageSpeed:       a.AverageSpeed,
		MaxSpeed:           a.MaxSpeed,
		AverageHeartrate:   a.AverageHeartrate,
		HasHeartrate:       a.HasHeartrate,
		Type:               a.Type,
		Private:            a.Private,
		Manual:             a.Manual,
	}
}

type apiLap struct {
	ID               int64   `json:"id"`
	LapIndex         int     `json:"lap_index"`
	Name             string  `json:"name"`
	Distance         float64 `json:"distance"`
	MovingTime       int     `json:"moving_time"`
	ElapsedTime      int     `json:"elapsed_time"`
	AverageSpeed     float64 `json:"average_speed"`
	AverageHeartrate float64 `json:"average_heartrate"`
}

func (l apiLap) toLap(activityID int64) activities.Lap {
	return activities.Lap{
		ID:               l.ID,
		ActivityID:       activityID,
		LapIndex:         l.LapIndex,
		Name:             l.Name,
		Distance:         l.Distance,
		MovingTime:       l.MovingTime,
		ElapsedTime:      l.ElapsedTime,
		AverageSpeed:     l.AverageSpeed,
		AverageHeartrate: l.AverageHeartrate,
	}
}
