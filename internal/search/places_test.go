package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"leadgen_backend/platform/logger"
)

type placesTestConfig struct {
	baseURL string
}

func (c placesTestConfig) GetPlacesBaseURL() string        { return c.baseURL }
func (c placesTestConfig) GetPlacesUserAgent() string      { return "test-agent/1.0" }
func (c placesTestConfig) GetPlacesRatePerSecond() float64 { return 100 }
func (c placesTestConfig) GetGeminiAPIKey() string         { return "" }
func (c placesTestConfig) GetGeminiModel() string          { return "" }
func (c placesTestConfig) IsQueryPlannerEnabled() bool     { return false }

func newTestClient(t *testing.T, handler http.HandlerFunc) (*PlacesClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewPlacesClient(placesTestConfig{baseURL: srv.URL}, logger.New("development")), srv
}

func TestPlacesSearchParsesResults(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "test-agent/1.0" {
			t.Errorf("user agent = %q", got)
		}
		if q := r.URL.Query().Get("q"); q == "" {
			t.Errorf("missing q parameter")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"display_name": "Acme Plumbing, 1 High St, London", "name": "Acme Plumbing",
			 "extratags": {"website": "https://acme.example", "phone": "+442079460000"}},
			{"display_name": "Nameless Road, London", "name": ""},
			{"display_name": "", "name": ""}
		]`))
	})

	candidates, err := client.Search(context.Background(), Query{Sector: "plumber", Location: "London", MaxResults: 10})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("candidates = %d, want 2 (empty row dropped)", len(candidates))
	}
	if candidates[0].CompanyName != "Acme Plumbing" || candidates[0].Website != "https://acme.example" {
		t.Fatalf("unexpected candidate: %+v", candidates[0])
	}
	// No name tag: first display-name segment is used.
	if candidates[1].CompanyName != "Nameless Road" {
		t.Fatalf("fallback name = %q", candidates[1].CompanyName)
	}
}

func TestPlacesSearchClassifiesServerErrors(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusBadGateway, http.StatusTooManyRequests} {
		client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		})
		_, err := client.Search(context.Background(), Query{Sector: "plumber", Location: "London"})
		if err == nil {
			t.Fatalf("status %d: expected error", status)
		}
		if !IsTransient(err) {
			t.Fatalf("status %d: classified permanent, want transient", status)
		}
	}
}

func TestPlacesSearchClassifiesClientErrors(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	_, err := client.Search(context.Background(), Query{Sector: "plumber", Location: "London"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if IsTransient(err) {
		t.Fatalf("4xx classified transient, want permanent")
	}
}

func TestPlacesSearchNetworkErrorIsTransient(t *testing.T) {
	client, srv := newTestClient(t, func(http.ResponseWriter, *http.Request) {})
	srv.Close()

	_, err := client.Search(context.Background(), Query{Sector: "plumber", Location: "London"})
	if err == nil {
		t.Fatalf("expected error against closed server")
	}
	if !IsTransient(err) {
		t.Fatalf("network error classified permanent, want transient")
	}
}

func TestIsTransientUnclassified(t *testing.T) {
	if IsTransient(context.Canceled) {
		t.Fatalf("unclassified error reported transient")
	}
	if IsTransient(nil) {
		t.Fatalf("nil error reported transient")
	}
}
