package main

import (
	"context"
	"log"
	"os"

	"github.com/fuzzamoto/ir-engine/internal/corpus"
	"github.com/fuzzamoto/ir-engine/internal/corpusapi"
)

func main() {
	log.Println("Starting Fuzzamoto IR-engine corpus service...")

	dbUrl := requireEnv("DATABASE_URL")

	store, err := corpus.Connect(dbUrl)
	if err != nil {
		log.Printf("Warning: failed to connect to corpus store, continuing without persistence: %v", err)
	} else {
		defer store.Close()
		if err := store.InitSchema(context.Background()); err != nil {
			log.Printf("Warning: corpus schema init failed: %v", err)
		}
	}

	hub := corpusapi.NewHub()
	go hub.Run()

	r := corpusapi.SetupRouter(store, hub)

	port := getEnvOrDefault("PORT", "5340")
	log.Printf("corpus API listening on :%s\n", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// requireEnv reads a required environment variable and exits if it is not set.
func requireEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("FATAL: required environment variable %s is not set", key)
	}
	return val
}

// getEnvOrDefault returns the env var value or a safe default for non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
