package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/smartcity/vehicle-counter/internal/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresRepository implements domain.EventSink
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Migrate applies pending schema migrations through the pool
func (r *PostgresRepository) Migrate() error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("postgres: failed to load migrations: %w", err)
	}

	// m is left open; closing it would close db. The pool owner closes the pool.
	db := stdlib.OpenDBFromPool(r.pool)
	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		return fmt.Errorf("postgres: failed to create migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("postgres: failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("postgres: migration up failed: %w", err)
	}
	return nil
}

// Record persists a crossing event to PostgreSQL
func (r *PostgresRepository) Record(ctx context.Context, event domain.CrossingEvent) error {
	query := `
		INSERT INTO vehicles (
			event_uuid, timestamp, vehicle_type, vehicle_id, location_id
		) VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		event.UUID, event.Timestamp, string(event.VehicleType), event.VehicleID, event.LocationID,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save crossing event: %w", err)
	}

	return nil
}

// Count returns the number of recorded events at a location
func (r *PostgresRepository) Count(ctx context.Context, locationID string) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM vehicles WHERE location_id = $1`, locationID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to count events: %w", err)
	}
	return n, nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}
