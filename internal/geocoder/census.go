package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"weather-lookup/internal/metrics"
	"weather-lookup/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

const (
	// DefaultBaseURL is the Census geocoder "locations" API.
	DefaultBaseURL = "https://geocoding.geo.census.gov/geocoder/locations"
	// DefaultBenchmark selects the Public_AR_Current address benchmark.
	DefaultBenchmark = "4"

	serviceName  = "geocoder"
	maxBodyBytes = 1 << 20
)

// Client resolves street addresses to coordinates using the US Census geocoder.
type Client struct {
	baseURL    string
	benchmark  string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	metrics    *metrics.Metrics
}

// NewClient creates a Census geocoding client. timeout bounds every request.
func NewClient(baseURL, benchmark string, timeout time.Duration, m *metrics.Metrics) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if benchmark == "" {
		benchmark = DefaultBenchmark
	}
	return &Client{
		baseURL:    baseURL,
		benchmark:  benchmark,
		httpClient: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        serviceName,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			IsSuccessful: func(err error) bool {
				return err == nil || isClientError(err)
			},
		}),
		metrics: m,
	}
}

// ResolveCoordinates looks up the address and returns the first match's coordinates.
// Every failure is returned as a *models.Failure with reason NoMatch, UpstreamError
// or ParseError.
func (c *Client) ResolveCoordinates(ctx context.Context, addr models.Address) (models.Coordinates, error) {
	params := url.Values{
		"street":    {addr.Street},
		"city":      {addr.City},
		"state":     {addr.State},
		"zip":       {addr.Zip},
		"benchmark": {c.benchmark},
		"format":    {"json"},
	}
	fullURL := c.baseURL + "/address?" + params.Encode()

	start := time.Now()
	body, err := c.fetch(ctx, fullURL)
	c.metrics.UpstreamDuration.WithLabelValues(serviceName).Observe(time.Since(start).Seconds())
	if err != nil {
		c.record("upstream_error")
		log.Warn().Err(err).Str("street", addr.Street).Str("zip", addr.Zip).Msg("geocoder request failed")
		return models.Coordinates{}, models.NewFailure(models.ReasonUpstream, "geocoding service unavailable", err)
	}

	var payload response
	if err := json.Unmarshal(body, &payload); err != nil {
		c.record("parse_error")
		return models.Coordinates{}, models.NewFailure(models.ReasonParse, "decode geocoder response", err)
	}
	if payload.Result == nil {
		c.record("parse_error")
		return models.Coordinates{}, models.NewFailure(models.ReasonParse, "geocoder response has no result", nil)
	}
	if len(payload.Result.AddressMatches) == 0 {
		c.record("no_match")
		log.Info().Str("street", addr.Street).Str("zip", addr.Zip).Msg("no matching addresses")
		return models.Coordinates{}, models.NewFailure(models.ReasonNoMatch, "no matching addresses", nil)
	}

	match := payload.Result.AddressMatches[0]
	if match.Coordinates.X == nil || match.Coordinates.Y == nil {
		c.record("parse_error")
		return models.Coordinates{}, models.NewFailure(models.ReasonParse, "address match has no coordinates", nil)
	}

	c.record("success")
	// Census reports x=longitude, y=latitude.
	return models.Coordinates{
		Latitude:  *match.Coordinates.Y,
		Longitude: *match.Coordinates.X,
	}, nil
}

// fetch performs the GET through the circuit breaker and returns the body of a 2xx response.
func (c *Client) fetch(ctx context.Context, fullURL string) ([]byte, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("geocode request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &statusError{code: resp.StatusCode, body: truncate(body)}
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("circuit breaker open: %w", err)
		}
		return nil, err
	}
	return result.([]byte), nil
}

// statusError is a non-2xx answer from the Census API.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("census API error: status %d: %s", e.code, e.body)
}

// isClientError reports whether the API rejected the request itself. Such
// answers come from the input, so they do not count against the breaker.
func isClientError(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code >= 400 && se.code < 500 && se.code != http.StatusTooManyRequests
}

func (c *Client) record(outcome string) {
	c.metrics.UpstreamRequests.WithLabelValues(serviceName, outcome).Inc()
}

func truncate(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}

// Census API response types.

type response struct {
	Result *struct {
		AddressMatches []addressMatch `json:"addressMatches"`
	} `json:"result"`
}

type addressMatch struct {
	MatchedAddress string `json:"matchedAddress"`
	Coordinates    struct {
		X *float64 `json:"x"` // longitude
		Y *float64 `json:"y"` // latitude
	} `json:"coordinates"`
}
