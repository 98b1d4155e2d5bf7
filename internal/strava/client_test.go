package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	c := NewClient(Config{
		ClientID:     "123",
		ClientSecret: "secret",
		RefreshToken: "refresh",
		BaseURL:      ts.URL,
	}, nil)
	c.tokenURL = ts.URL + "/oauth/token"
	c.sleep = func(time.Duration) {}
	return c, ts
}

func serveToken(w http.ResponseWriter, r *http.Request) bool {
	if r.URL.Path != "/oauth/token" {
		return false
	}
	if err := r.ParseForm(); err != nil || r.Form.Get("grant_type") != "refresh_token" {
		http.Error(w, "bad grant", http.StatusBadRequest)
		return true
	}
	json.NewEncoder(w).Encode(map[string]any{
		"access_token": "token-abc",
		"expires_at":   time.Now().Add(6 * time.Hour).Unix(),
	})
	return true
}

func stubActivity(id int64, start string) map[string]any {
	return map[string]any{
		"id":               id,
		"name":             fmt.Sprintf("Run %d", id),
		"start_date_local": start,
		"distance":         5000.0,
		"moving_time":      1500,
		"type":             "Run",
	}
}

func TestFetchAllActivitiesPaginates(t *testing.T) {
	var pages []string
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if serveToken(w, r) {
			return
		}
		if r.Header.Get("Authorization") != "Bearer token-abc" {
			t.Errorf("missing bearer token on %s", r.URL)
		}
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		var out []map[string]any
		if page == "1" {
			for i := int64(1); i <= 200; i++ {
				out = append(out, stubActivity(i, "2025-03-01T07:00:00Z"))
			}
		} else {
			out = append(out, stubActivity(201, "2025-03-02T07:00:00Z"))
		}
		json.NewEncoder(w).Encode(out)
	})

	c, _ := newTestClient(t, mux)
	got, err := c.FetchAllActivities(context.Background())
	if err != nil {
		t.Fatalf("FetchAllActivities: %v", err)
	}
	if len(got) != 201 {
		t.Fatalf("got %d activities, want 201", len(got))
	}
	if len(pages) != 2 || pages[0] != "1" || pages[1] != "2" {
		t.Errorf("pages requested: %v", pages)
	}
	if got[0].Name != "Run 1" || got[0].Type != "Run" {
		t.Errorf("first activity wrong: %+v", got[0])
	}
}

func TestFetchByDateRangeTrimsExclusiveBound(t *testing.T) {
	var gotBefore string
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if serveToken(w, r) {
			return
		}
		gotBefore = r.URL.Query().Get("before")
		json.NewEncoder(w).Encode([]map[string]any{
			stubActivity(1, "2025-03-01T07:00:00Z"),
			stubActivity(2, "2025-03-05T07:00:00Z"),
		})
	})

	c, _ := newTestClient(t, mux)
	after := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC).Unix()
	before := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC).Unix()
	got, err := c.FetchActivitiesByDateRange(context.Background(), after, before)
	if err != nil {
		t.Fatalf("FetchActivitiesByDateRange: %v", err)
	}

	// The wire request widens the bound by a day, the result is
	// trimmed back to the inclusive window.
	if want := fmt.Sprint(before + 86400); gotBefore != want {
		t.Errorf("before param = %s, want %s", gotBefore, want)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Errorf("expected only the in-window activity, got %+v", got)
	}
}

func TestRateLimitRetriedOnce(t *testing.T) {
	attempts := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if serveToken(w, r) {
			return
		}
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{stubActivity(1, "2025-03-01T07:00:00Z")})
	})

	c, _ := newTestClient(t, mux)
	got, err := c.FetchAllActivities(context.Background())
	if err != nil {
		t.Fatalf("FetchAllActivities after rate limit: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if len(got) != 1 {
		t.Errorf("got %d activities, want 1", len(got))
	}
}

func TestAPIErrorSurfaced(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if serveToken(w, r) {
			return
		}
		http.Error(w, `{"message":"Internal Error"}`, http.StatusInternalServerError)
	})

	c, _ := newTestClient(t, mux)
	_, err := c.FetchAllActivities(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", apiErr.Status)
	}
}

func TestAccessTokenReused(t *testing.T) {
	tokenCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			tokenCalls++
		}
		if serveToken(w, r) {
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{})
	})

	c, _ := newTestClient(t, mux)
	for i := 0; i < 3; i++ {
		if _, err := c.FetchAllActivities(context.Background()); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if tokenCalls != 1 {
		t.Errorf("token exchanged %d times, want 1", tokenCalls)
	}
}

func TestFetchActivityLaps(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if serveToken(w, r) {
			return
		}
		if r.URL.Path != "/activities/42/laps" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 7, "lap_index": 1, "distance": 1609.344, "moving_time": 360},
		})
	})

	c, _ := newTestClient(t, mux)
	laps, err := c.FetchActivityLaps(context.Background(), 42)
	if err != nil {
		t.Fatalf("FetchActivityLaps: %v", err)
	}
	if len(laps) != 1 || laps[0].ActivityID != 42 || laps[0].LapIndex != 1 {
		t.Errorf("laps wrong: %+v", laps)
	}
}
