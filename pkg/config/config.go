package config

import (
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	DBPath           string
	ZohoClientID     string
	ZohoClientSecret string
	CronSecret       string
	FollowUpSchedule string
	SelfPhoneNumbers []string
	SyncFetchLimit   int
	SyncEnrichLimit  int
}

func getEnv(key, defaultValue string, printEnv bool) string {
	logger := log.Default()
	value := os.Getenv(key)
	if printEnv {
		logger.Info("Env", "key", key, "value", value)
	}
	if value == "" {
		return defaultValue
	}
	return value
}

func LoadConfig(printEnv bool) (*Config, error) {
	_ = godotenv.Load()

	conf := &Config{
		Port:             getEnv("PORT", "44800", printEnv),
		DBPath:           getEnv("DB_PATH", "./output/sqlite/store.db", printEnv),
		ZohoClientID:     getEnv("ZOHO_CLIENT_ID", "", printEnv),
		ZohoClientSecret: getEnv("ZOHO_CLIENT_SECRET", "", printEnv),
		CronSecret:       getEnv("CRON_SECRET", "", printEnv),
		FollowUpSchedule: getEnv("FOLLOW_UP_SCHEDULE", "0 7 * * *", printEnv),
		SyncFetchLimit:   100,
		SyncEnrichLimit:  20,
	}

	// Comma separated list of the account owner's own numbers, so signature
	// mining never reports the user's signature back as a client phone.
	if raw := getEnv("SELF_PHONE_NUMBERS", "", printEnv); raw != "" {
		for _, n := range strings.Split(raw, ",") {
			if n = strings.TrimSpace(n); n != "" {
				conf.SelfPhoneNumbers = append(conf.SelfPhoneNumbers, n)
			}
		}
	}

	return conf, nil
}
