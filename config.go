package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config carries the process-level settings. Everything comes from the
// environment, with .env.local honored in development the same way the
// frontend tooling reads it.
type Config struct {
	Port          string
	DatabaseURL   string
	JWTSecret     string
	SlackBotToken string
}

func loadConfig() Config {
	// Missing .env.local is fine; deployed environments set real vars.
	if err := godotenv.Load(".env.local"); err == nil {
		log.Println("Loaded environment from .env.local")
	}

	cfg := Config{
		Port:          os.Getenv("PORT"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		SlackBotToken: os.Getenv("SLACK_BOT_TOKEN"),
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "your_secret_key_please_change_in_production"
		log.Println("Warning: JWT_SECRET not set, using development default")
	}
	return cfg
}
