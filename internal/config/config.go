package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds runtime configuration loaded from the environment.
type Config struct {
	Env                  string
	DatabaseURL          string
	MigrationsDir        string
	DefaultInsuranceRate decimal.Decimal
}

// Load reads configuration from the environment, loading a local .env file
// first when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	insuranceRate, err := decimal.NewFromString(getEnv("DEFAULT_INSURANCE_RATE", "1.2"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_INSURANCE_RATE: %w", err)
	}

	return &Config{
		Env:                  getEnv("ENV", "development"),
		DatabaseURL:          databaseURL,
		MigrationsDir:        getEnv("MIGRATIONS_DIR", "db/migrations"),
		DefaultInsuranceRate: insuranceRate,
	}, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
