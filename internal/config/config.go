package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/go-signatory/internal/errors"
	"gopkg.in/yaml.v3"
)

// Config holds every setting the signatory needs. It is built once at startup
// by Load and passed by value to the components that need it.
type Config struct {
	AppName  string
	Env      string
	LogLevel string

	BaseURL        string
	Email          string
	Password       string
	FirstName      string // lowercased
	LastName       string // lowercased
	FormationIndex string
	LessonDays     int

	TelegramChatID string
	BotToken       string
	TelegramAPIURL string

	LedgerFile   string
	SignTimes    []string
	PollInterval time.Duration
	HTTPTimeout  time.Duration
	AuthMarker   string
}

// MaxSignatures is the number of half-day sessions in the formation.
func (c Config) MaxSignatures() int {
	return c.LessonDays * 2
}

// NotificationsEnabled reports whether both Telegram settings are present.
func (c Config) NotificationsEnabled() bool {
	return c.TelegramChatID != "" && c.BotToken != ""
}

// Load builds the Config from the environment. When path is not empty the
// YAML file it names is read first and environment variables override it.
// Every missing or malformed setting is reported in a single ErrConfig.
func Load(path string) (Config, error) {
	file, err := readFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrConfig, "reading %s: %v", path, err)
	}

	var missing, bad []string
	c := Config{
		AppName:  file.get(appNameVar, defaultAppName),
		Env:      file.get(environmentVar, defaultEnv),
		LogLevel: file.get(logLevelVar, defaultLogLevel),

		BaseURL:        strings.TrimRight(file.required(baseURLVar, &missing), "/"),
		Email:          file.required(emailVar, &missing),
		Password:       file.required(passwordVar, &missing),
		FirstName:      strings.ToLower(file.required(firstNameVar, &missing)),
		LastName:       strings.ToLower(file.required(lastNameVar, &missing)),
		FormationIndex: file.required(formationIndexVar, &missing),

		TelegramChatID: file.get(chatIDVar, ""),
		BotToken:       file.get(botTokenVar, ""),
		TelegramAPIURL: strings.TrimRight(file.get(telegramAPIVar, defaultTelegramAPI), "/"),

		LedgerFile: file.get(ledgerFileVar, defaultLedgerFile),
		AuthMarker: file.get(authMarkerVar, defaultAuthMarker),
	}

	if c.BaseURL != "" {
		if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			bad = append(bad, invalid(baseURLVar, c.BaseURL, fmt.Errorf("not an absolute URL")))
		}
	}

	if days := file.required(lessonDaysVar, &missing); days != "" {
		n, err := strconv.Atoi(days)
		if err == nil && n <= 0 {
			err = fmt.Errorf("must be positive")
		}
		if err != nil {
			bad = append(bad, invalid(lessonDaysVar, days, err))
		}
		c.LessonDays = n
	}

	for _, t := range strings.Split(file.get(signTimesVar, defaultSignTimes), ",") {
		if t = strings.TrimSpace(t); t != "" {
			c.SignTimes = append(c.SignTimes, t)
		}
	}
	if len(c.SignTimes) == 0 {
		bad = append(bad, invalid(signTimesVar, "", fmt.Errorf("no times")))
	}

	c.PollInterval = duration(file, pollIntervalVar, defaultPollInterval, &bad)
	c.HTTPTimeout = duration(file, httpTimeoutVar, defaultHTTPTimeout, &bad)

	var problems []string
	if len(missing) > 0 {
		problems = append(problems, "missing "+strings.Join(missing, ", "))
	}
	problems = append(problems, bad...)
	if len(problems) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errors.ErrConfig, strings.Join(problems, "; "))
	}
	return c, nil
}

func duration(v values, key, defaultValue string, bad *[]string) time.Duration {
	raw := v.get(key, defaultValue)
	d, err := time.ParseDuration(raw)
	if err == nil && d <= 0 {
		err = fmt.Errorf("must be positive")
	}
	if err != nil {
		*bad = append(*bad, invalid(key, raw, err))
	}
	return d
}

// readFile loads a flat YAML mapping of setting names to scalar values.
func readFile(path string) (values, error) {
	if path == "" {
		return values{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	// Scalars are kept as written: 0042 is an index, not an octal number.
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	v := values{}
	if len(doc.Content) == 0 {
		return v, nil
	}
	mapping := doc.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping of settings", mapping.Line)
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key, value := mapping.Content[i], mapping.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: %s must be a scalar", value.Line, key.Value)
		}
		if value.Tag == "!!null" {
			continue
		}
		v[strings.ToUpper(key.Value)] = value.Value
	}
	return v, nil
}
