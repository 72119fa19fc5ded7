package main

import (
	"log"

	"github.com/knobo/simple-queue-management/internal/bootstrap"
	"github.com/knobo/simple-queue-management/internal/config"
)

func main() {
	cfg := config.Load()

	if err := bootstrap.Run(cfg); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
}
