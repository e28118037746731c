// Package weather retrieves and shapes forecasts from the National Weather Service.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"weather-lookup/internal/metrics"
	"weather-lookup/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

const (
	// DefaultBaseURL is the NWS API root.
	DefaultBaseURL = "https://api.weather.gov"
	// DefaultUserAgent identifies the application; NWS rejects requests without one.
	DefaultUserAgent = "weather-lookup/1.0"

	serviceName  = "weather"
	maxBodyBytes = 4 << 20
)

// Client talks to the NWS API: a points lookup followed by the 12-hour and
// hourly forecast endpoints it advertises.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	metrics    *metrics.Metrics
}

// NewClient creates an NWS client. timeout bounds every request.
func NewClient(baseURL, userAgent string, timeout time.Duration, m *metrics.Metrics) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
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

// GetForecast returns the daily forecast and current temperature for a point.
// Any failing step aborts the whole lookup with a *models.Failure; partial
// results are never returned.
func (c *Client) GetForecast(ctx context.Context, latitude, longitude float64) (*models.Forecast, error) {
	var points pointsResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/points/%.4f,%.4f", c.baseURL, latitude, longitude), &points); err != nil {
		return nil, err
	}
	if points.Properties.Forecast == "" || points.Properties.ForecastHourly == "" {
		c.record("upstream_error")
		return nil, models.NewFailure(models.ReasonUpstream, "points response is missing forecast links", nil)
	}

	var daily periodsResponse
	if err := c.getJSON(ctx, points.Properties.Forecast, &daily); err != nil {
		return nil, err
	}

	var hourly periodsResponse
	if err := c.getJSON(ctx, points.Properties.ForecastHourly, &hourly); err != nil {
		return nil, err
	}
	if len(hourly.Properties.Periods) == 0 {
		c.record("upstream_error")
		return nil, models.NewFailure(models.ReasonUpstream, "hourly forecast has no periods", nil)
	}

	c.record("success")
	return &models.Forecast{
		Days:               shapePeriods(daily.Properties.Periods),
		CurrentTemperature: hourly.Properties.Periods[0].Temperature,
	}, nil
}

// getJSON fetches url through the circuit breaker and decodes the body into v.
func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/geo+json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("weather request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &statusError{code: resp.StatusCode}
		}
		return body, nil
	})
	c.metrics.UpstreamDuration.WithLabelValues(serviceName).Observe(time.Since(start).Seconds())

	if err != nil {
		c.record("upstream_error")
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("circuit breaker open: %w", err)
		}
		log.Warn().Err(err).Str("url", url).Msg("weather request failed")
		return models.NewFailure(models.ReasonUpstream, "weather service unavailable", err)
	}

	if err := json.Unmarshal(result.([]byte), v); err != nil {
		c.record("parse_error")
		return models.NewFailure(models.ReasonParse, "decode weather response", err)
	}
	return nil
}

// statusError is a non-2xx answer from the NWS API.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("NWS API error: status %d", e.code)
}

// isClientError reports a 4xx other than 429. NWS answers 404 for points it
// does not cover; that says nothing about its health.
func isClientError(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code >= 400 && se.code < 500 && se.code != http.StatusTooManyRequests
}

func (c *Client) record(outcome string) {
	c.metrics.UpstreamRequests.WithLabelValues(serviceName, outcome).Inc()
}

// NWS API response types.

type pointsResponse struct {
	Properties struct {
		Forecast       string `json:"forecast"`
		ForecastHourly string `json:"forecastHourly"`
	} `json:"properties"`
}

type periodsResponse struct {
	Properties struct {
		Periods []period `json:"periods"`
	} `json:"properties"`
}

type period struct {
	Number      int    `json:"number"`
	Name        string `json:"name"`
	IsDaytime   bool   `json:"isDaytime"`
	Icon        string `json:"icon"`
	Temperature int    `json:"temperature"`
}
