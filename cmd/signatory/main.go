package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-signatory/internal/config"
	"github.com/jrsteele09/go-signatory/internal/errors"
	"github.com/jrsteele09/go-signatory/scheduler"
	"github.com/jrsteele09/go-signatory/sessions"
	"github.com/jrsteele09/go-signatory/signer"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("Signatory stopped")
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "signatory",
		Short:         "Sign training attendance sheets twice a day",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "optional YAML file with settings (environment variables win)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newSignCmd(opts))
	root.AddCommand(newStatusCmd(opts))
	return root
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Sign at the configured times every weekday until the formation is over",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			displayAppname(a.cfg.AppName)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, a)
		},
	}
}

func run(ctx context.Context, a *app) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = fmt.Errorf("panic recovered: %v", r)
		}
	}()

	clocks, err := scheduler.ParseClocks(a.cfg.SignTimes)
	if err != nil {
		return errors.Wrapf(errors.ErrConfig, "SIGN_TIMES: %v", err)
	}
	s, err := scheduler.New(clocks, func(ctx context.Context) bool {
		return a.signer.Run(ctx) == signer.OutcomeFinished
	}, scheduler.WithPollInterval(a.cfg.PollInterval))
	if err != nil {
		return err
	}

	log.Info().
		Strs("times", a.cfg.SignTimes).
		Int("signed", a.signer.Count()).
		Int("remaining", a.signer.Remaining()).
		Str("ledger", a.ledger.Path()).
		Msg("Waiting for the next session")

	if err := s.Loop(ctx); err != nil && !errors.Is(err, errors.ErrQuotaReached) {
		return err
	}
	log.Info().Msg("Signatory stopped")
	return nil
}

func newSignCmd(opts *rootOptions) *cobra.Command {
	var weekdaysOnly bool
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign the current half-day session now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			now := a.now()
			if weekdaysOnly && !sessions.Runnable(now.Weekday()) {
				log.Info().Str("weekday", now.Weekday().String()).Msg("No session today")
				return nil
			}
			outcome := a.signer.Run(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", sessions.At(now), outcome)
			if outcome == signer.OutcomeFailed {
				return errors.ErrSign
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&weekdaysOnly, "weekdays-only", false, "do nothing on Saturday and Sunday")
	return cmd
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the ledger and the remaining quota",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			id := sessions.At(a.now())
			signed, err := a.ledger.Contains(id)
			if err != nil {
				return err
			}
			ids, err := a.ledger.List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ledger:    %s\n", a.ledger.Path())
			fmt.Fprintf(out, "session:   %s (signed: %t)\n", id, signed)
			fmt.Fprintf(out, "signed:    %d of %d\n", a.signer.Count(), a.cfg.MaxSignatures())
			fmt.Fprintf(out, "remaining: %d\n", a.signer.Remaining())
			if len(ids) > 0 {
				fmt.Fprintf(out, "last:      %s\n", ids[len(ids)-1])
			}
			return nil
		},
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

// configDefaults is used before the configuration is loaded.
func configDefaults() (env, level string) {
	return config.GetEnv("ENV", "DEV"), config.GetEnv("LOG_LEVEL", "info")
}
