package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"weather-lookup/internal/models"
	"weather-lookup/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	msgMissingDetails   = "Please provide location details."
	msgNoCoordinates    = "Could not find coordinates for this address."
	msgLocationNotFound = "Location not found."
	msgForecastDown     = "The weather forecast is unavailable right now."
	msgInternal         = "internal server error"
)

// LocationService interface for dependency injection
type LocationService interface {
	Resolve(ctx context.Context, addr models.Address) (*service.Resolution, error)
	Get(ctx context.Context, id int64) (*models.Location, error)
	Recent(ctx context.Context, limit int) ([]models.Location, error)
}

// ForecastService interface for dependency injection
type ForecastService interface {
	Forecast(ctx context.Context, loc *models.Location) (*models.Forecast, bool, error)
}

// LocationHandler serves address resolution and forecast display.
type LocationHandler struct {
	locations   LocationService
	forecasts   ForecastService
	recentLimit int
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(locations LocationService, forecasts ForecastService, recentLimit int) *LocationHandler {
	return &LocationHandler{locations: locations, forecasts: forecasts, recentLimit: recentLimit}
}

type createLocationRequest struct {
	Street string `json:"street" binding:"required"`
	City   string `json:"city" binding:"required"`
	State  string `json:"state" binding:"required"`
	Zip    string `json:"zip" binding:"required"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Reason  string   `json:"reason,omitempty"`
	Details []string `json:"details,omitempty"`
}

// LocationResponse is returned by GET /locations/:id.
type LocationResponse struct {
	Location         *models.Location `json:"location"`
	FormattedAddress string           `json:"formatted_address"`
	Forecast         *models.Forecast `json:"forecast,omitempty"`
	Cached           bool             `json:"cached"`
	ForecastError    string           `json:"forecast_error,omitempty"`
}

// Create resolves an address to a stored location
//
//	@Summary	Resolve an address
//	@Tags		locations
//	@Accept		json
//	@Produce	json
//	@Param		address	body		createLocationRequest	true	"Street address"
//	@Success	201		{object}	models.Location
//	@Success	200		{object}	models.Location
//	@Failure	400		{object}	ErrorResponse
//	@Failure	422		{object}	ErrorResponse
//	@Failure	502		{object}	ErrorResponse
//	@Router		/locations [post]
func (h *LocationHandler) Create(c *gin.Context) {
	var req createLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgMissingDetails})
		return
	}

	res, err := h.locations.Resolve(c.Request.Context(), models.Address{
		Street: req.Street,
		City:   req.City,
		State:  req.State,
		Zip:    req.Zip,
	})
	if err != nil {
		status, body := resolutionError(err)
		c.JSON(status, body)
		return
	}

	status := http.StatusCreated
	if res.Reused {
		status = http.StatusOK
	}
	c.Header("Location", "/locations/"+strconv.FormatInt(res.Location.ID, 10))
	c.JSON(status, res.Location)
}

// Show returns a stored location with its forecast
//
//	@Summary	Show a location and its forecast
//	@Tags		locations
//	@Produce	json
//	@Param		id	path		int	true	"Location ID"
//	@Success	200	{object}	LocationResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/locations/{id} [get]
func (h *LocationHandler) Show(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: msgLocationNotFound})
		return
	}

	loc, err := h.locations.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: msgLocationNotFound})
			return
		}
		log.Error().Err(err).Int64("id", id).Msg("failed to load location")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgInternal})
		return
	}

	resp := LocationResponse{
		Location:         loc,
		FormattedAddress: loc.FormattedAddress(),
	}

	forecast, cached, err := h.forecasts.Forecast(c.Request.Context(), loc)
	if err != nil {
		log.Warn().Err(err).Int64("id", id).Str("zip", loc.Zip).Msg("forecast unavailable")
		resp.ForecastError = msgForecastDown
	} else {
		resp.Forecast = forecast
		resp.Cached = cached
	}

	c.JSON(http.StatusOK, resp)
}

// Recent lists the most recently updated locations
//
//	@Summary	Recently looked up locations
//	@Tags		locations
//	@Produce	json
//	@Success	200	{array}		models.Location
//	@Failure	500	{object}	ErrorResponse
//	@Router		/locations/recent [get]
func (h *LocationHandler) Recent(c *gin.Context) {
	locations, err := h.locations.Recent(c.Request.Context(), h.recentLimit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list recent locations")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgInternal})
		return
	}

	c.JSON(http.StatusOK, locations)
}

// resolutionError maps a workflow failure to a status and body, keeping bad
// input apart from an unavailable upstream.
func resolutionError(err error) (int, ErrorResponse) {
	var failure *models.Failure
	if !errors.As(err, &failure) {
		return http.StatusInternalServerError, ErrorResponse{Error: msgInternal}
	}

	reason := string(failure.Reason)
	switch failure.Reason {
	case models.ReasonNoMatch:
		return http.StatusUnprocessableEntity, ErrorResponse{Error: msgNoCoordinates, Reason: reason}
	case models.ReasonUpstream, models.ReasonParse:
		return http.StatusBadGateway, ErrorResponse{Error: msgNoCoordinates, Reason: reason}
	case models.ReasonValidation:
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error:   capitalize(failure.Message),
			Reason:  reason,
			Details: failure.Fields,
		}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: msgInternal, Reason: reason}
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
