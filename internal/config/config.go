package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	CampaignYear          int
	ResumeTTLSeconds      int
	TrackedSuppliers      []string
	AuthSecret            string
	AccessTokenTTLMinutes int
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	year, err := strconv.Atoi(getEnv("CAMPAIGN_YEAR", "2025"))
	if err != nil || year < 2000 {
		year = 2025
	}
	ttl, err := strconv.Atoi(getEnv("RESUME_TTL_SECONDS", "300"))
	if err != nil || ttl < 1 {
		ttl = 300
	}
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		CampaignYear:          year,
		ResumeTTLSeconds:      ttl,
		TrackedSuppliers:      splitSuppliers(getEnv("TRACKED_SUPPLIERS", "Alliance,DCA,Exadis,ACR")),
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func splitSuppliers(raw string) []string {
	parts := strings.Split(raw, ",")
	suppliers := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			suppliers = append(suppliers, trimmed)
		}
	}
	return suppliers
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
