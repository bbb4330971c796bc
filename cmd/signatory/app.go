package main

import (
	"os"
	"strings"
	"time"

	"github.com/jrsteele09/go-signatory/auth"
	"github.com/jrsteele09/go-signatory/internal/config"
	"github.com/jrsteele09/go-signatory/notify"
	"github.com/jrsteele09/go-signatory/sessions/filerepo"
	"github.com/jrsteele09/go-signatory/signer"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// app holds the components wired from one Config.
type app struct {
	cfg    config.Config
	ledger *filerepo.FileRepo
	signer *signer.Signer
	now    func() time.Time
}

func loadApp(opts *rootOptions) (*app, error) {
	env, level := configDefaults()
	configureLogging(env, firstNonEmpty(opts.logLevel, level))

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	configureLogging(cfg.Env, firstNonEmpty(opts.logLevel, cfg.LogLevel))
	return newApp(cfg)
}

func newApp(cfg config.Config) (*app, error) {
	ledger, err := filerepo.New(cfg.LedgerFile)
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] ledger")
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.NotificationsEnabled() {
		notifier = notify.NewTelegram(cfg.BotToken, cfg.TelegramChatID,
			notify.WithAPIURL(cfg.TelegramAPIURL),
			notify.WithTimeout(cfg.HTTPTimeout),
		)
	} else {
		log.Info().Msg("Telegram not configured, notifications disabled")
	}

	sessionFactory := auth.NewFactory(cfg.BaseURL,
		auth.Credentials{Email: cfg.Email, Password: cfg.Password},
		auth.WithTimeout(cfg.HTTPTimeout),
		auth.WithMarker(cfg.AuthMarker),
	)

	identity := signer.Identity{
		FirstName:      cfg.FirstName,
		LastName:       cfg.LastName,
		FormationIndex: cfg.FormationIndex,
	}
	s, err := signer.New(identity, ledger, sessionFactory, notifier, cfg.MaxSignatures())
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] signer")
	}

	return &app{
		cfg:    cfg,
		ledger: ledger,
		signer: s,
		now:    time.Now,
	}, nil
}

func configureLogging(env, level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if strings.EqualFold(env, "DEV") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
