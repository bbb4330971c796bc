package scheduler

import (
	"context"
	"time"

	signerrors "github.com/jrsteele09/go-signatory/internal/errors"
	"github.com/jrsteele09/go-signatory/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultPollInterval = time.Second

// Job is run when a clock comes due on a weekday. Returning true stops the
// scheduler for good.
type Job func(ctx context.Context) (stop bool)

// Scheduler fires a Job at fixed times of day from a single polling loop.
// Missed times (process down, or a job still running) are skipped, never
// queued.
type Scheduler struct {
	clocks       []Clock
	next         []time.Time
	job          Job
	pollInterval time.Duration
	nowTime      func() time.Time
	logger       zerolog.Logger
}

// Option defines a function type to modify the Scheduler instance.
type Option func(*Scheduler)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Scheduler) {
		s.nowTime = nowFunc
	}
}

// WithPollInterval sets how often the loop looks for due clocks.
func WithPollInterval(interval time.Duration) Option {
	return func(s *Scheduler) {
		s.pollInterval = interval
	}
}

// WithLogger replaces the global zerolog logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func New(clocks []Clock, job Job, options ...Option) (*Scheduler, error) {
	if len(clocks) == 0 {
		return nil, errors.New("[scheduler.New] at least one clock is required")
	}
	if job == nil {
		return nil, errors.New("[scheduler.New] job is required")
	}
	s := &Scheduler{
		clocks:       append([]Clock(nil), clocks...),
		job:          job,
		pollInterval: defaultPollInterval,
		nowTime:      time.Now,
		logger:       log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.pollInterval <= 0 {
		return nil, errors.New("[scheduler.New] poll interval must be positive")
	}
	return s, nil
}

// NextRun returns the earliest planned firing, or the zero time before the
// first Tick.
func (s *Scheduler) NextRun() time.Time {
	var earliest time.Time
	for _, next := range s.next {
		if earliest.IsZero() || next.Before(earliest) {
			earliest = next
		}
	}
	return earliest
}

// Tick runs the job if a clock is due and reports whether the job asked to
// stop. The first Tick only plans the firings.
func (s *Scheduler) Tick(ctx context.Context) (stop bool) {
	now := s.nowTime()
	if s.next == nil {
		s.next = make([]time.Time, len(s.clocks))
		for i, c := range s.clocks {
			s.next[i] = c.Next(now)
		}
		s.logger.Info().Time("next", s.NextRun()).Msg("Scheduler started")
		return false
	}

	due := false
	for _, next := range s.next {
		if !now.Before(next) {
			due = true
		}
	}
	if !due {
		return false
	}

	if sessions.Runnable(now.Weekday()) {
		stop = s.job(ctx)
	} else {
		s.logger.Debug().Str("weekday", now.Weekday().String()).Msg("No session on weekends")
	}

	// Plan from the time the job finished so that slots passed while it ran are skipped
	after := s.nowTime()
	if after.Before(now) {
		after = now
	}
	for i, c := range s.clocks {
		if !after.Before(s.next[i]) {
			s.next[i] = c.Next(after)
		}
	}
	if !stop {
		s.logger.Info().Time("next", s.NextRun()).Msg("Next signing planned")
	}
	return stop
}

// Loop polls until ctx is cancelled, which returns nil, or until the job asks
// to stop, which returns ErrQuotaReached.
func (s *Scheduler) Loop(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if s.Tick(ctx) {
				return signerrors.ErrQuotaReached
			}
		}
	}
}
