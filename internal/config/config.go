package config

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	ProjectID      string
	Port           string
	AllowedOrigins []string

	// Timezone is the club-local time zone. The booking horizon and
	// cancellation windows are evaluated against it.
	Timezone string

	// BlockSweepCron schedules the cleanup of expired manual blocks.
	BlockSweepCron string
}

func Load() Config {
	projectID := getenv("FIREBASE_PROJECT_ID", "")
	if projectID == "" {
		projectID = getenv("GOOGLE_CLOUD_PROJECT", "")
	}

	port := getenv("PORT", "8080")
	origins := getenv("ALLOWED_ORIGINS", "http://localhost:3000")
	timezone := getenv("CLUB_TIMEZONE", "Europe/Rome")
	sweepCron := getenv("BLOCK_SWEEP_CRON", "0 4 * * *")

	allowed := []string{}
	for _, o := range strings.Split(origins, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			allowed = append(allowed, o)
		}
	}

	return Config{
		ProjectID:      projectID,
		Port:           port,
		AllowedOrigins: allowed,
		Timezone:       timezone,
		BlockSweepCron: sweepCron,
	}
}

// Location resolves the configured club time zone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
