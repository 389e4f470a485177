package main

import (
	"log"

	"github.com/modulant/lattice/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ lattice failed to start: %v", err)
	}
}
