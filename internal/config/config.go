package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr       string
	TrackerURL string
	CORSOrigin string
	// Redis - required for session token storage
	RedisURL  string
	EngineTTL time.Duration
	// Board behavior
	LinkHost  string
	WeekStart time.Weekday
}

func Load() Config {
	return Config{
		Addr:       getenv("ITERBOARD_ADDR", ":8080"),
		TrackerURL: getenv("TRACKER_API_URL", "https://www.pivotaltracker.com/services/v5"),
		CORSOrigin: getenv("ITERBOARD_CORS_ORIGIN", "*"),
		RedisURL:   getenv("REDIS_URL", "redis://localhost:6379/0"),
		EngineTTL:  time.Duration(getenvInt("ITERBOARD_ENGINE_TTL_HOURS", 12)) * time.Hour,
		LinkHost:   getenv("ITERBOARD_LINK_HOST", "github.com"),
		WeekStart:  getenvWeekday("ITERBOARD_WEEK_START", time.Monday),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvWeekday(key string, fallback time.Weekday) time.Weekday {
	value := strings.ToLower(os.Getenv(key))
	if value == "" {
		return fallback
	}
	for day := time.Sunday; day <= time.Saturday; day++ {
		if strings.ToLower(day.String()) == value {
			return day
		}
	}
	return fallback
}
