package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"weather-lookup/internal/models"
	"weather-lookup/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockLocationService is a mock implementation of the LocationService interface
type MockLocationService struct {
	mock.Mock
}

func (m *MockLocationService) Resolve(ctx context.Context, addr models.Address) (*service.Resolution, error) {
	args := m.Called(ctx, addr)
	return args.Get(0).(*service.Resolution), args.Error(1)
}

func (m *MockLocationService) Get(ctx context.Context, id int64) (*models.Location, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*models.Location), args.Error(1)
}

func (m *MockLocationService) Recent(ctx context.Context, limit int) ([]models.Location, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.Location), args.Error(1)
}

// MockForecastService is a mock implementation of the ForecastService interface
type MockForecastService struct {
	mock.Mock
}

func (m *MockForecastService) Forecast(ctx context.Context, loc *models.Location) (*models.Forecast, bool, error) {
	args := m.Called(ctx, loc)
	return args.Get(0).(*models.Forecast), args.Bool(1), args.Error(2)
}

func boweryLocation() *models.Location {
	lat, lon := 40.7265, -73.9925
	return &models.Location{
		ID:        7,
		Street:    "315 Bowery",
		City:      "New York",
		State:     "NY",
		Zip:       "10003",
		Latitude:  &lat,
		Longitude: &lon,
		CreatedAt: time.Date(2025, 4, 13, 22, 56, 2, 0, time.UTC),
		UpdatedAt: time.Date(2025, 4, 13, 22, 56, 2, 0, time.UTC),
	}
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

func setupRouter(locations *MockLocationService, forecasts *MockForecastService) *gin.Engine {
	return setupRouterWithDB(locations, forecasts, stubPinger{})
}

func setupRouterWithDB(locations *MockLocationService, forecasts *MockForecastService, db Pinger) *gin.Engine {
	h := NewLocationHandler(locations, forecasts, 5)
	return NewRouter(h, db, promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{}))
}

func decode(t *testing.T, w *httptest.ResponseRecorder) gin.H {
	t.Helper()
	var body gin.H
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestLocationHandler_Create(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rawAddress := models.Address{Street: "315 bowery", City: "new york", State: "ny", Zip: "10003"}
	validationFailure := models.NewFailure(models.ReasonValidation, "zip is the wrong length (should be 5 characters)", nil)
	validationFailure.Fields = []string{"zip is the wrong length (should be 5 characters)"}

	tests := []struct {
		name           string
		body           string
		mockResolution *service.Resolution
		mockError      error
		expectedStatus int
		expectedBody   gin.H
	}{
		{
			name:           "missing fields",
			body:           `{"street":"315 bowery"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   gin.H{"error": "Please provide location details."},
		},
		{
			name:           "malformed json",
			body:           `{`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   gin.H{"error": "Please provide location details."},
		},
		{
			name:           "no match",
			body:           `{"street":"315 bowery","city":"new york","state":"ny","zip":"10003"}`,
			mockResolution: &service.Resolution{State: service.StateInvalid},
			mockError:      models.NewFailure(models.ReasonNoMatch, "coordinates not found", models.ErrNoMatch),
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody: gin.H{
				"error":  "Could not find coordinates for this address.",
				"reason": "NoMatch",
			},
		},
		{
			name:           "upstream error",
			body:           `{"street":"315 bowery","city":"new york","state":"ny","zip":"10003"}`,
			mockResolution: &service.Resolution{State: service.StateInvalid},
			mockError:      models.NewFailure(models.ReasonUpstream, "coordinates not found", errors.New("status 503")),
			expectedStatus: http.StatusBadGateway,
			expectedBody: gin.H{
				"error":  "Could not find coordinates for this address.",
				"reason": "UpstreamError",
			},
		},
		{
			name:           "parse error",
			body:           `{"street":"315 bowery","city":"new york","state":"ny","zip":"10003"}`,
			mockResolution: &service.Resolution{State: service.StateInvalid},
			mockError:      models.NewFailure(models.ReasonParse, "coordinates not found", errors.New("bad json")),
			expectedStatus: http.StatusBadGateway,
			expectedBody: gin.H{
				"error":  "Could not find coordinates for this address.",
				"reason": "ParseError",
			},
		},
		{
			name:           "validation error",
			body:           `{"street":"315 bowery","city":"new york","state":"ny","zip":"10003"}`,
			mockResolution: &service.Resolution{State: service.StateInvalid},
			mockError:      validationFailure,
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody: gin.H{
				"error":   "Zip is the wrong length (should be 5 characters)",
				"reason":  "ValidationError",
				"details": []interface{}{"zip is the wrong length (should be 5 characters)"},
			},
		},
		{
			name:           "storage error",
			body:           `{"street":"315 bowery","city":"new york","state":"ny","zip":"10003"}`,
			mockResolution: &service.Resolution{State: service.StateInvalid},
			mockError:      models.NewFailure(models.ReasonStorage, "failed to save location", errors.New("connection refused")),
			expectedStatus: http.StatusInternalServerError,
			expectedBody: gin.H{
				"error":  "internal server error",
				"reason": "StorageError",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locations := new(MockLocationService)
			forecasts := new(MockForecastService)
			if tt.mockResolution != nil {
				locations.On("Resolve", mock.Anything, rawAddress).Return(tt.mockResolution, tt.mockError)
			}

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodPost, "/locations", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			setupRouter(locations, forecasts).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedBody, decode(t, w))
			locations.AssertExpectations(t)
		})
	}
}

func TestLocationHandler_Create_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		reused         bool
		expectedStatus int
	}{
		{name: "new location", reused: false, expectedStatus: http.StatusCreated},
		{name: "reused location", reused: true, expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locations := new(MockLocationService)
			locations.On("Resolve", mock.Anything, mock.AnythingOfType("models.Address")).Return(&service.Resolution{
				State:    service.StatePersisted,
				Location: boweryLocation(),
				Reused:   tt.reused,
			}, nil)

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodPost, "/locations",
				strings.NewReader(`{"street":"315 bowery","city":"new york","state":"ny","zip":"10003"}`))
			req.Header.Set("Content-Type", "application/json")
			setupRouter(locations, new(MockForecastService)).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "/locations/7", w.Header().Get("Location"))

			body := decode(t, w)
			assert.Equal(t, float64(7), body["id"])
			assert.Equal(t, "315 Bowery", body["street"])
			assert.Equal(t, "NY", body["state"])
			assert.Equal(t, 40.7265, body["latitude"])
			assert.Equal(t, -73.9925, body["longitude"])
		})
	}
}

func TestLocationHandler_Show(t *testing.T) {
	gin.SetMode(gin.TestMode)

	forecast := &models.Forecast{
		Zip: "10003",
		Days: []models.ForecastEntry{
			{AfternoonName: "Monday", AfternoonTemperature: 62, NightName: "Monday Night", NightTemperature: 48},
		},
		CurrentTemperature: 55,
	}

	t.Run("with forecast", func(t *testing.T) {
		loc := boweryLocation()
		locations := new(MockLocationService)
		forecasts := new(MockForecastService)
		locations.On("Get", mock.Anything, int64(7)).Return(loc, nil)
		forecasts.On("Forecast", mock.Anything, loc).Return(forecast, true, nil)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/locations/7", nil)
		setupRouter(locations, forecasts).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "315 Bowery, New York, NY 10003", body["formatted_address"])
		assert.Equal(t, true, body["cached"])
		assert.NotContains(t, body, "forecast_error")

		fc, ok := body["forecast"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, float64(55), fc["current_temperature"])
		assert.Len(t, fc["days"], 1)
		locations.AssertExpectations(t)
		forecasts.AssertExpectations(t)
	})

	t.Run("forecast unavailable", func(t *testing.T) {
		loc := boweryLocation()
		locations := new(MockLocationService)
		forecasts := new(MockForecastService)
		locations.On("Get", mock.Anything, int64(7)).Return(loc, nil)
		forecasts.On("Forecast", mock.Anything, loc).
			Return((*models.Forecast)(nil), false, models.NewFailure(models.ReasonUpstream, "forecast unavailable", nil))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/locations/7", nil)
		setupRouter(locations, forecasts).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "The weather forecast is unavailable right now.", body["forecast_error"])
		assert.NotContains(t, body, "forecast")
		assert.Equal(t, false, body["cached"])
	})

	notFound := []struct {
		name    string
		path    string
		mockErr error
	}{
		{name: "non-numeric id", path: "/locations/abc"},
		{name: "zero id", path: "/locations/0"},
		{name: "unknown id", path: "/locations/99", mockErr: models.ErrNotFound},
	}
	for _, tt := range notFound {
		t.Run(tt.name, func(t *testing.T) {
			locations := new(MockLocationService)
			if tt.mockErr != nil {
				locations.On("Get", mock.Anything, int64(99)).Return((*models.Location)(nil), tt.mockErr)
			}

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, tt.path, nil)
			setupRouter(locations, new(MockForecastService)).ServeHTTP(w, req)

			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Equal(t, gin.H{"error": "Location not found."}, decode(t, w))
			locations.AssertExpectations(t)
		})
	}

	t.Run("storage error", func(t *testing.T) {
		locations := new(MockLocationService)
		locations.On("Get", mock.Anything, int64(7)).Return((*models.Location)(nil), errors.New("connection refused"))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/locations/7", nil)
		setupRouter(locations, new(MockForecastService)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, gin.H{"error": "internal server error"}, decode(t, w))
	})
}

func TestLocationHandler_Recent(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		mockLocations  []models.Location
		mockError      error
		expectedStatus int
		expectedLen    int
	}{
		{
			name:           "lists locations",
			mockLocations:  []models.Location{*boweryLocation()},
			expectedStatus: http.StatusOK,
			expectedLen:    1,
		},
		{
			name:           "empty",
			mockLocations:  []models.Location{},
			expectedStatus: http.StatusOK,
			expectedLen:    0,
		},
		{
			name:           "service error",
			mockLocations:  nil,
			mockError:      errors.New("connection refused"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locations := new(MockLocationService)
			locations.On("Recent", mock.Anything, 5).Return(tt.mockLocations, tt.mockError)

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/locations/recent", nil)
			setupRouter(locations, new(MockForecastService)).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.mockError == nil {
				var got []models.Location
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
				assert.Len(t, got, tt.expectedLen)
			}
			locations.AssertExpectations(t)
		})
	}
}

func TestRouter_HealthAndRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := setupRouter(new(MockLocationService), new(MockForecastService))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, gin.H{"status": "ok"}, decode(t, w))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestRouter_HealthDatabaseDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := setupRouterWithDB(new(MockLocationService), new(MockForecastService), stubPinger{err: errors.New("connection refused")})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, gin.H{"status": "unavailable"}, decode(t, w))
}

func TestRouter_Metrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := setupRouter(new(MockLocationService), new(MockForecastService))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
