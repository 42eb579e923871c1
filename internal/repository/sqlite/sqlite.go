package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/smartcity/vehicle-counter/internal/domain"
)

// TimestampLayout is the text format of the timestamp column
const TimestampLayout = "2006-01-02 15:04:05"

//go:embed migrations/*.sql
var migrations embed.FS

// Repository is an append-only crossing log in a SQLite file
type Repository struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies
// pending migrations.
func Open(ctx context.Context, path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open %s: %w", path, err)
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to set pragmas: %w", err)
	}

	r := &Repository{db: db}
	if err := r.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// Migrate applies all pending migrations
func (r *Repository) Migrate() error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("sqlite: failed to load migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(r.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("sqlite: failed to create migrate driver: %w", err)
	}

	// Closing m would close the shared *sql.DB
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("sqlite: failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlite: migration up failed: %w", err)
	}
	return nil
}

// Record appends a crossing event
func (r *Repository) Record(ctx context.Context, event domain.CrossingEvent) error {
	query := `
		INSERT INTO vehicles (event_uuid, timestamp, vehicle_type, vehicle_id, location_id)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		event.UUID, event.Timestamp.Format(TimestampLayout), string(event.VehicleType),
		event.VehicleID, event.LocationID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to save crossing event: %w", err)
	}
	return nil
}

// Count returns the number of recorded events at a location
func (r *Repository) Count(ctx context.Context, locationID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vehicles WHERE location_id = ?`, locationID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: failed to count events: %w", err)
	}
	return n, nil
}

// Health checks database connectivity
func (r *Repository) Health(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: health check failed: %w", err)
	}
	return nil
}

// DB returns the underlying handle
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database
func (r *Repository) Close() error {
	return r.db.Close()
}
