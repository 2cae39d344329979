// Package migration applies the embedded SQL schema with golang-migrate.
package migration

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // pgx5:// driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const (
	// DirectionUp applies all pending migrations.
	DirectionUp = "up"
	// DirectionDown reverts all applied migrations.
	DirectionDown = "down"
)

var (
	// ErrDSNRequired is returned when no database URL is configured.
	ErrDSNRequired = errors.New("migration: database url is required")
	// ErrInvalidDirection is returned for a direction other than up or down.
	ErrInvalidDirection = errors.New("migration: direction must be up or down")
)

//go:embed sql/*.sql
var files embed.FS

// Run applies the embedded migrations in direction against dsn, a
// postgres:// or postgresql:// URL. Being already at the target version is
// not an error.
func Run(dsn, direction string) error {
	if strings.TrimSpace(dsn) == "" {
		return ErrDSNRequired
	}
	if direction != DirectionUp && direction != DirectionDown {
		return fmt.Errorf("%w, got %q", ErrInvalidDirection, direction)
	}

	src, err := iofs.New(files, "sql")
	if err != nil {
		return fmt.Errorf("migration: source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, driverURL(dsn))
	if err != nil {
		return fmt.Errorf("migration: %w", err)
	}
	//nolint:errcheck // close errors carry nothing actionable after the run
	defer m.Close()

	if direction == DirectionUp {
		err = m.Up()
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration: %s: %w", direction, err)
	}

	return nil
}

// driverURL rewrites the scheme so golang-migrate picks its pgx v5 driver.
func driverURL(dsn string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if rest, ok := strings.CutPrefix(dsn, prefix); ok {
			return "pgx5://" + rest
		}
	}
	return dsn
}
