package repository

import (
	"context"
	"errors"
	"fmt"

	"weather-lookup/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the locations table. Uniqueness of an address is logical only;
// the index speeds up the exact-match lookup.
const Schema = `
CREATE TABLE IF NOT EXISTS locations (
	id BIGSERIAL PRIMARY KEY,
	street VARCHAR(255) NOT NULL,
	city VARCHAR(255) NOT NULL,
	state VARCHAR(2) NOT NULL,
	zip VARCHAR(5) NOT NULL,
	latitude DOUBLE PRECISION,
	longitude DOUBLE PRECISION,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS locations_address_idx ON locations (street, city, state, zip);
CREATE INDEX IF NOT EXISTS locations_updated_at_idx ON locations (updated_at DESC);
`

// DropSchema removes the locations table.
const DropSchema = `DROP TABLE IF EXISTS locations;`

const selectColumns = `id, street, city, state, zip, latitude, longitude, created_at, updated_at`

// Repository persists locations in PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the locations table and its indexes if they are missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("repository: failed to create schema: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// FindByAddress returns the first location whose fields equal addr exactly, or nil.
// Callers are expected to pass a normalized address.
func (r *Repository) FindByAddress(ctx context.Context, addr models.Address) (*models.Location, error) {
	sql := `SELECT ` + selectColumns + `
		FROM locations
		WHERE street = $1 AND city = $2 AND state = $3 AND zip = $4
		ORDER BY id
		LIMIT 1`

	loc, err := scanLocation(r.db.QueryRow(ctx, sql, addr.Street, addr.City, addr.State, addr.Zip))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repository: failed to find location by address: %w", err)
	}
	return loc, nil
}

// GetByID loads a location by primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Location, error) {
	sql := `SELECT ` + selectColumns + ` FROM locations WHERE id = $1`

	loc, err := scanLocation(r.db.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repository: failed to get location %d: %w", id, err)
	}
	return loc, nil
}

// Create inserts loc and sets its ID.
func (r *Repository) Create(ctx context.Context, loc *models.Location) error {
	sql := `
		INSERT INTO locations (street, city, state, zip, latitude, longitude, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := r.db.QueryRow(ctx, sql,
		loc.Street, loc.City, loc.State, loc.Zip,
		loc.Latitude, loc.Longitude,
		loc.CreatedAt, loc.UpdatedAt,
	).Scan(&loc.ID)
	if err != nil {
		return fmt.Errorf("repository: failed to insert location: %w", err)
	}
	return nil
}

// Update writes the coordinates and updated_at of an existing location.
func (r *Repository) Update(ctx context.Context, loc *models.Location) error {
	sql := `
		UPDATE locations
		SET latitude = $2, longitude = $3, updated_at = $4
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, sql, loc.ID, loc.Latitude, loc.Longitude, loc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to update location %d: %w", loc.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Recent returns the most recently updated locations, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]models.Location, error) {
	sql := `SELECT ` + selectColumns + `
		FROM locations
		ORDER BY updated_at DESC, id DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, sql, limit)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to execute recent query: %w", err)
	}
	defer rows.Close()

	locations := []models.Location{}
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan location: %w", err)
		}
		locations = append(locations, *loc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating rows: %w", err)
	}

	return locations, nil
}

func scanLocation(row pgx.Row) (*models.Location, error) {
	var loc models.Location
	err := row.Scan(
		&loc.ID,
		&loc.Street,
		&loc.City,
		&loc.State,
		&loc.Zip,
		&loc.Latitude,
		&loc.Longitude,
		&loc.CreatedAt,
		&loc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &loc, nil
}
