package config

import (
	"os"
	"strconv"
	"time"
)

// EconomyConfig holds economy and notification tunables.
type EconomyConfig struct {
	SignupBonus       int64
	SystemActorID     int
	NotificationQueue string
	GiftCacheTTL      time.Duration
}

func LoadEconomyConfig() *EconomyConfig {
	return &EconomyConfig{
		SignupBonus:       getEnvAsInt64("ECONOMY_SIGNUP_BONUS", 1000),
		SystemActorID:     getEnvAsInt("ECONOMY_SYSTEM_ACTOR_ID", 0),
		NotificationQueue: getEnv("NOTIFICATION_QUEUE", "notification_queue"),
		GiftCacheTTL:      getEnvAsDuration("GIFT_CACHE_TTL", 10*time.Minute),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.ParseInt(val, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
