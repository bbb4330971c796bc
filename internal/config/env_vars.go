package config

import (
	"fmt"
	"os"
)

const (
	appNameVar        = "APP_NAME"
	environmentVar    = "ENV"
	logLevelVar       = "LOG_LEVEL"
	baseURLVar        = "BASE_URL"
	emailVar          = "EMAIL"
	passwordVar       = "PASSWORD"
	firstNameVar      = "FIRST_NAME"
	lastNameVar       = "LAST_NAME"
	formationIndexVar = "FORMATION_INDEX"
	lessonDaysVar     = "LESSON_DAYS_DURATION"
	chatIDVar         = "TELEGRAM_CHAT_ID"
	botTokenVar       = "BOT_TOKEN"
	telegramAPIVar    = "TELEGRAM_API_URL"
	ledgerFileVar     = "LEDGER_FILE"
	signTimesVar      = "SIGN_TIMES"
	pollIntervalVar   = "POLL_INTERVAL"
	httpTimeoutVar    = "HTTP_TIMEOUT"
	authMarkerVar     = "AUTH_MARKER"
)

const (
	defaultAppName      = "Signatory"
	defaultEnv          = "DEV"
	defaultLogLevel     = "info"
	defaultTelegramAPI  = "https://api.telegram.org"
	defaultLedgerFile   = "signed.txt"
	defaultSignTimes    = "11:30,15:00"
	defaultPollInterval = "1s"
	defaultHTTPTimeout  = "30s"
	defaultAuthMarker   = "Mes démarches"
)

// values resolves a setting from the environment first, then from the
// optional config file.
type values map[string]string

func (v values) get(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if value := v[key]; value != "" {
		return value
	}
	return defaultValue
}

func (v values) required(key string, missing *[]string) string {
	value := v.get(key, "")
	if value == "" {
		*missing = append(*missing, key)
	}
	return value
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func invalid(key, value string, err error) string {
	return fmt.Sprintf("%s=%q (%v)", key, value, err)
}
