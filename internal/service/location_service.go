package service

import (
	"context"
	"fmt"

	"weather-lookup/internal/metrics"
	"weather-lookup/internal/models"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// State is a step of the location resolution workflow.
type State string

const (
	StateBuilt               State = "Built"
	StateCoordinatesPending  State = "CoordinatesPending"
	StateCoordinatesResolved State = "CoordinatesResolved"
	StateInvalid             State = "Invalid"
	StatePersisted           State = "Persisted"
)

// LocationRepository interface for dependency injection
type LocationRepository interface {
	FindByAddress(ctx context.Context, addr models.Address) (*models.Location, error)
	GetByID(ctx context.Context, id int64) (*models.Location, error)
	Create(ctx context.Context, loc *models.Location) error
	Update(ctx context.Context, loc *models.Location) error
	Recent(ctx context.Context, limit int) ([]models.Location, error)
}

// Geocoder resolves an address to coordinates.
type Geocoder interface {
	ResolveCoordinates(ctx context.Context, addr models.Address) (models.Coordinates, error)
}

// Resolution is the outcome of one workflow run.
type Resolution struct {
	State    State
	Location *models.Location
	// Reused is set when an already persisted, resolved record was returned as is.
	Reused bool
}

// LocationService finds, geocodes and persists locations.
type LocationService struct {
	repo     LocationRepository
	geocoder Geocoder
	clock    clockwork.Clock
	metrics  *metrics.Metrics
}

// NewLocationService creates a new location service
func NewLocationService(repo LocationRepository, geocoder Geocoder, clock clockwork.Clock, m *metrics.Metrics) *LocationService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &LocationService{repo: repo, geocoder: geocoder, clock: clock, metrics: m}
}

// FindByNormalizedAddress normalizes addr and returns the first stored location
// with exactly those fields, or nil.
func (s *LocationService) FindByNormalizedAddress(ctx context.Context, addr models.Address) (*models.Location, error) {
	loc, err := s.repo.FindByAddress(ctx, addr.Normalize())
	if err != nil {
		return nil, models.NewFailure(models.ReasonStorage, "failed to look up location", err)
	}
	return loc, nil
}

// FindOrBuild returns the stored location matching addr or a new, unpersisted
// location built from its normalized fields.
func (s *LocationService) FindOrBuild(ctx context.Context, addr models.Address) (*models.Location, error) {
	loc, err := s.FindByNormalizedAddress(ctx, addr)
	if err != nil {
		return nil, err
	}
	if loc != nil {
		return loc, nil
	}
	return models.NewLocation(addr), nil
}

// Resolve runs the resolution workflow for addr. On failure the returned
// Resolution is still non-nil, in state Invalid, alongside a *models.Failure.
// Nothing is retried; callers may run the workflow again with the same input.
func (s *LocationService) Resolve(ctx context.Context, addr models.Address) (*Resolution, error) {
	res := &Resolution{State: StateBuilt}

	if err := addr.Normalize().Validate(); err != nil {
		res.Location = models.NewLocation(addr)
		return s.fail(res, err)
	}

	loc, err := s.FindOrBuild(ctx, addr)
	if err != nil {
		return s.fail(res, err)
	}
	res.Location = loc

	if loc.Persisted() && loc.Resolved() {
		res.State = StatePersisted
		res.Reused = true
		s.done(res)
		return res, nil
	}

	res.State = StateCoordinatesPending
	coords, err := s.geocoder.ResolveCoordinates(ctx, loc.Address())
	if err != nil {
		reason, ok := models.ReasonOf(err)
		if !ok {
			reason = models.ReasonUpstream
		}
		return s.fail(res, models.NewFailure(reason, "coordinates not found", err))
	}
	loc.SetCoordinates(coords)
	res.State = StateCoordinatesResolved

	loc.Normalize()
	if err := loc.Validate(); err != nil {
		return s.fail(res, err)
	}

	now := s.clock.Now().UTC()
	loc.UpdatedAt = now
	if loc.Persisted() {
		err = s.repo.Update(ctx, loc)
	} else {
		loc.CreatedAt = now
		err = s.repo.Create(ctx, loc)
	}
	if err != nil {
		return s.fail(res, models.NewFailure(models.ReasonStorage, "failed to save location", err))
	}

	res.State = StatePersisted
	s.done(res)
	return res, nil
}

// Get loads a stored location by id.
func (s *LocationService) Get(ctx context.Context, id int64) (*models.Location, error) {
	loc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get location: %w", err)
	}
	return loc, nil
}

// Recent returns up to limit of the most recently updated locations.
func (s *LocationService) Recent(ctx context.Context, limit int) ([]models.Location, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("service: invalid limit: %d", limit)
	}
	locations, err := s.repo.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list recent locations: %w", err)
	}
	return locations, nil
}

func (s *LocationService) fail(res *Resolution, err error) (*Resolution, error) {
	from := res.State
	res.State = StateInvalid
	s.metrics.Resolutions.WithLabelValues(string(StateInvalid)).Inc()

	event := log.Warn().Err(err).Str("from", string(from))
	if res.Location != nil {
		event = event.Str("street", res.Location.Street).Str("zip", res.Location.Zip)
	}
	event.Msg("location resolution failed")
	return res, err
}

func (s *LocationService) done(res *Resolution) {
	s.metrics.Resolutions.WithLabelValues(string(StatePersisted)).Inc()
	log.Info().
		Int64("id", res.Location.ID).
		Bool("reused", res.Reused).
		Msg("location resolved")
}
