package bootstrap

import (
	"log"

	"github.com/knobo/simple-queue-management/internal/config"
)

// validateAllConfiguration fails fast on inconsistent configuration.
// A misconfigured token service is worse than a crashed one: it could
// silently issue tokens that never expire or never rotate.
func validateAllConfiguration(cfg *config.Config) {
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
}
