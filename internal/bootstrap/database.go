package bootstrap

import (
	"fmt"
	"log"

	"github.com/knobo/simple-queue-management/internal/config"
	"github.com/knobo/simple-queue-management/internal/store"
)

// initializeDatabase creates and initializes the database connection
func initializeDatabase(cfg *config.Config) (*store.Store, error) {
	db, err := store.New(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	log.Printf("Database: %s", cfg.DatabaseDriver)
	return db, nil
}
