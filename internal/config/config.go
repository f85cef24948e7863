package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port        string
	DatabaseURL string
	AdminEmails []string

	// Game constants. Handed to the session constructor as an explicit
	// struct, never read as globals.
	GameDuration     int // seconds
	SpawnIntervalMs  int
	TargetLifetimeMs int
	MaxTargets       int
	UnlockThreshold  int
	StreakBonus      int // bonus points per full streak tier
}

func Load() Config {
	cfg := Config{
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		AdminEmails:      getEnvList("ADMIN_EMAILS"),
		GameDuration:     getEnvInt("GAME_DURATION", 30),
		SpawnIntervalMs:  getEnvInt("SPAWN_INTERVAL_MS", 800),
		TargetLifetimeMs: getEnvInt("TARGET_LIFETIME_MS", 2000),
		MaxTargets:       getEnvInt("MAX_TARGETS", 3),
		UnlockThreshold:  getEnvInt("UNLOCK_THRESHOLD", 100),
		StreakBonus:      getEnvInt("STREAK_BONUS", 5),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
