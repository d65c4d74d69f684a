package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseType     string // postgres or sqlite
	DatabaseDSN      string
	Port             string
	Environment      string
	SimulationConfig string // path to the simulation yaml
	DefaultCapital   float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		DatabaseType:     getEnv("DATABASE_TYPE", "sqlite"),
		DatabaseDSN:      getEnv("DATABASE_DSN", "run/db/papertrader.db"),
		Port:             getEnv("PORT", "8080"),
		Environment:      getEnv("ENVIRONMENT", "development"),
		SimulationConfig: getEnv("SIMULATION_CONFIG", "config/simulation.yaml"),
		DefaultCapital:   getEnvFloat("DEFAULT_CAPITAL", 1000000),
	}

	return config
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Printf("Invalid %s value %q, using default %v", key, value, defaultValue)
	}
	return defaultValue
}
