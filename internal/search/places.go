package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"leadgen_backend/platform/config"
	"leadgen_backend/platform/logger"

	"golang.org/x/time/rate"
)

const providerPlaces = "places"

// PlacesClient searches the OpenStreetMap Nominatim API for businesses
// matching a sector near a location. Requests are rate limited to stay
// within the upstream usage policy.
type PlacesClient struct {
	baseURL   string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	log       *logger.Logger
}

func NewPlacesClient(cfg config.SearchConfig, log *logger.Logger) *PlacesClient {
	perSecond := cfg.GetPlacesRatePerSecond()
	if perSecond <= 0 {
		perSecond = 1
	}
	return &PlacesClient{
		baseURL:   strings.TrimRight(cfg.GetPlacesBaseURL(), "/"),
		userAgent: cfg.GetPlacesUserAgent(),
		client:    &http.Client{Timeout: 10 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(perSecond), 1),
		log:       log,
	}
}

type placeResult struct {
	DisplayName string `json:"display_name"`
	Name        string `json:"name"`
	Extratags   struct {
		Website string `json:"website"`
		Phone   string `json:"phone"`
		Email   string `json:"email"`
	} `json:"extratags"`
}

func (c *PlacesClient) Search(ctx context.Context, query Query) ([]Candidate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Add("q", fmt.Sprintf("%s near %s", query.Sector, query.Location))
	params.Add("format", "json")
	params.Add("extratags", "1")
	params.Add("limit", strconv.Itoa(clampLimit(query.MaxResults)))

	reqURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, NewPermanentError(providerPlaces, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		// Network faults and timeouts are worth a retry.
		c.log.Error("places request failed", "error", err)
		return nil, NewTransientError(providerPlaces, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		c.log.Error("places upstream error", "status", resp.StatusCode)
		err := fmt.Errorf("upstream api error: %d", resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, NewTransientError(providerPlaces, err)
		}
		return nil, NewPermanentError(providerPlaces, err)
	}

	var rawResults []placeResult
	if err := json.NewDecoder(resp.Body).Decode(&rawResults); err != nil {
		c.log.Error("failed to decode places payload", "error", err)
		return nil, NewTransientError(providerPlaces, err)
	}

	candidates := make([]Candidate, 0, len(rawResults))
	for _, raw := range rawResults {
		candidate, ok := buildCandidate(raw)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

func buildCandidate(raw placeResult) (Candidate, bool) {
	name := raw.Name
	if name == "" {
		// Fall back to the first display-name segment.
		name, _, _ = strings.Cut(raw.DisplayName, ",")
		name = strings.TrimSpace(name)
	}
	if name == "" {
		return Candidate{}, false
	}
	return Candidate{
		CompanyName: name,
		Website:     raw.Extratags.Website,
		Phone:       raw.Extratags.Phone,
		Email:       raw.Extratags.Email,
		Address:     raw.DisplayName,
	}, true
}

func clampLimit(max int) int {
	if max <= 0 || max > 50 {
		return 50
	}
	return max
}
