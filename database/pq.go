package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"gorm.io/gorm"
)

// Storage defines the interface that all database implementations must satisfy
type Storage interface {
	Init() error
	Close() error
	HealthCheck() error
	GetDB() *gorm.DB
}

var _ Storage = (*GORMStore)(nil)

// CheckPostgresDB opens a short-lived lib/pq connection and pings it. The
// CLI uses it to report database reachability without a full GORM setup.
func CheckPostgresDB(ctx context.Context, dsn string) (time.Duration, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return 0, fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()

	start := time.Now()
	if err := db.PingContext(ctx); err != nil {
		return 0, fmt.Errorf("ping postgres: %w", err)
	}
	return time.Since(start), nil
}
