package service

import (
	"context"

	"weather-lookup/internal/models"
	"weather-lookup/internal/weather"
)

// ForecastClient fetches a shaped forecast for a point.
type ForecastClient interface {
	GetForecast(ctx context.Context, latitude, longitude float64) (*models.Forecast, error)
}

// ForecastService serves forecasts for stored locations through the zip-keyed cache.
type ForecastService struct {
	client ForecastClient
	cache  *weather.ForecastCache
}

// NewForecastService creates a new forecast service
func NewForecastService(client ForecastClient, cache *weather.ForecastCache) *ForecastService {
	return &ForecastService{client: client, cache: cache}
}

// Forecast returns the forecast for loc and whether it came from the cache.
func (s *ForecastService) Forecast(ctx context.Context, loc *models.Location) (*models.Forecast, bool, error) {
	coords, ok := loc.Coordinates()
	if !ok {
		return nil, false, models.NewFailure(models.ReasonValidation, "location has no coordinates", nil)
	}

	return s.cache.GetOrFetch(ctx, loc.Zip, func(ctx context.Context) (*models.Forecast, error) {
		return s.client.GetForecast(ctx, coords.Latitude, coords.Longitude)
	})
}
