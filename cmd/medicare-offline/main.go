package main

import (
	"log"

	"github.com/medicarepro/medicare-offline-go/internal/application/startup"
)

func main() {
	if err := startup.Initialize(); err != nil {
		log.Fatalf("Gateway startup failed: %v", err)
	}

	log.Println("Gateway has shut down gracefully.")
}
