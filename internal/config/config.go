// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds every runtime setting the server reads from the environment.
// Load it once at startup after godotenv has populated the process env.
type Config struct {
	Port          string
	JWTSecret     string
	JWTIssuer     string
	AuctionList   string
	CategoryOrder []string
	CountdownSecs int
	LogLevel      string
}

// DefaultCategoryOrder is used when CATEGORY_ORDER is not set.
var DefaultCategoryOrder = []string{
	"Marquee", "Batsman", "Bowler", "All-Rounder", "Wicket-Keeper", "Uncapped",
}

// Load reads the environment into a Config, applying defaults.
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		JWTSecret:     getEnv("JWT_SECRET", "kohligoat"),
		JWTIssuer:     getEnv("JWT_ISSUER", "bidblitz.com"),
		AuctionList:   getEnv("AUCTION_LIST", "Auction_List.csv"),
		CategoryOrder: parseCategoryOrder(os.Getenv("CATEGORY_ORDER")),
		CountdownSecs: getEnvInt("COUNTDOWN_SECONDS", 20),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

// parseCategoryOrder splits a comma-separated category list, falling back to
// DefaultCategoryOrder when the value is empty.
func parseCategoryOrder(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return append([]string(nil), DefaultCategoryOrder...)
	}
	parts := strings.Split(raw, ",")
	order := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			order = append(order, trimmed)
		}
	}
	if len(order) == 0 {
		return append([]string(nil), DefaultCategoryOrder...)
	}
	return order
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
