package signer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-signatory/auth"
	signerrors "github.com/jrsteele09/go-signatory/internal/errors"
	"github.com/jrsteele09/go-signatory/notify"
	"github.com/jrsteele09/go-signatory/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Outcome is the result of one signing attempt.
type Outcome int

const (
	OutcomeSigned   Outcome = iota // the session was signed and recorded
	OutcomeUpToDate                // the session was already in the ledger
	OutcomeFailed                  // the attempt failed, the next one retries
	OutcomeFinished                // every planned session has been signed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSigned:
		return "signed"
	case OutcomeUpToDate:
		return "up to date"
	case OutcomeFailed:
		return "failed"
	case OutcomeFinished:
		return "finished"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Identity is the trainee as it appears in the portal sign URLs.
type Identity struct {
	FirstName      string
	LastName       string
	FormationIndex string
}

// SignPath builds the portal path that acknowledges the session id.
func (i Identity) SignPath(id sessions.ID) string {
	return fmt.Sprintf("formation/%s-%s---%s/emarger/%s/%s",
		strings.ToLower(i.LastName), strings.ToLower(i.FirstName), i.FormationIndex, id.Day(), id.Half.Code())
}

// Signer performs signing attempts for one trainee. It is not safe for
// concurrent use: the scheduler calls it from a single goroutine.
type Signer struct {
	identity      Identity
	ledger        sessions.Repo
	newSession    auth.Factory
	notifier      notify.Notifier
	maxSignatures int
	count         int
	finished      bool
	nowTime       func() time.Time
	logger        zerolog.Logger
}

// Option defines a function type to modify the Signer instance.
type Option func(*Signer)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Signer) {
		s.nowTime = nowFunc
	}
}

// WithLogger replaces the global zerolog logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Signer) {
		s.logger = logger
	}
}

// New creates a Signer. The signature count starts from the number of
// sessions already in the ledger so the quota survives restarts.
func New(identity Identity, ledger sessions.Repo, newSession auth.Factory, notifier notify.Notifier, maxSignatures int, options ...Option) (*Signer, error) {
	if ledger == nil {
		return nil, errors.New("[signer.New] ledger is required")
	}
	if newSession == nil {
		return nil, errors.New("[signer.New] session factory is required")
	}
	if identity.FirstName == "" || identity.LastName == "" || identity.FormationIndex == "" {
		return nil, errors.New("[signer.New] identity is incomplete")
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}

	count, err := ledger.Count()
	if err != nil {
		return nil, errors.Wrap(err, "[signer.New] ledger.Count")
	}

	s := &Signer{
		identity:      identity,
		ledger:        ledger,
		newSession:    newSession,
		notifier:      notifier,
		maxSignatures: maxSignatures,
		count:         count,
		nowTime:       time.Now,
		logger:        log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Count is the number of signatures recorded, ledger history included.
func (s *Signer) Count() int {
	return s.count
}

// Remaining is the number of signatures still allowed. Signing stops only once
// the count exceeds the maximum, so a count equal to it still leaves one.
func (s *Signer) Remaining() int {
	if s.count > s.maxSignatures {
		return 0
	}
	return s.maxSignatures - s.count + 1
}

// Run performs one attempt and never fails: errors and panics are logged and
// reported to the operator, and the next scheduled attempt tries again.
func (s *Signer) Run(ctx context.Context) (outcome Outcome) {
	logger := s.logger.With().Str("run", uuid.NewString()).Logger()
	id := sessions.At(s.nowTime())

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Str("session", id.String()).Msg("Recovered from panic")
			notify.Send(ctx, s.notifier, logger, fmt.Sprintf("Signing crashed for %s %s: %v", id.Day(), id.Half.Label(), r))
			outcome = OutcomeFailed
		}
	}()

	outcome, err := s.sign(ctx, logger, id)
	if err != nil && !errors.Is(err, signerrors.ErrQuotaReached) {
		logger.Err(err).Str("session", id.String()).Msg("Signing failed")
		notify.Send(ctx, s.notifier, logger, fmt.Sprintf("Signing failed for %s %s: %v", id.Day(), id.Half.Label(), err))
	}
	return outcome
}

// Sign performs one attempt for the current session and returns its error.
func (s *Signer) Sign(ctx context.Context) (Outcome, error) {
	return s.sign(ctx, s.logger, sessions.At(s.nowTime()))
}

func (s *Signer) sign(ctx context.Context, logger zerolog.Logger, id sessions.ID) (Outcome, error) {
	if s.finished {
		return OutcomeFinished, signerrors.ErrQuotaReached
	}
	// Completion triggers once the count goes past the quota, not when it reaches it.
	if s.count > s.maxSignatures {
		s.finished = true
		logger.Info().Int("count", s.count).Int("max", s.maxSignatures).Msg("All sessions signed")
		notify.Send(ctx, s.notifier, logger, fmt.Sprintf("Formation complete: %d sessions signed, stopping", s.count))
		return OutcomeFinished, signerrors.ErrQuotaReached
	}

	signed, err := s.ledger.Contains(id)
	if err != nil {
		return OutcomeFailed, errors.Wrap(err, "[Signer.Sign] ledger.Contains")
	}
	if signed {
		logger.Info().Str("session", id.String()).Msg("Up to date")
		return OutcomeUpToDate, nil
	}

	session, err := s.newSession()
	if err != nil {
		return OutcomeFailed, errors.Wrap(err, "[Signer.Sign] newSession")
	}
	defer session.Close()

	if err := session.Login(ctx); err != nil {
		return OutcomeFailed, errors.Wrap(err, "[Signer.Sign] login")
	}
	logger.Info().Msg("Logged in successfully")

	if err := session.Submit(ctx, s.identity.SignPath(id)); err != nil {
		return OutcomeFailed, fmt.Errorf("[Signer.Sign] %s: %w: %w", id, signerrors.ErrSign, err)
	}
	if err := s.ledger.Append(id); err != nil {
		return OutcomeFailed, errors.Wrapf(err, "[Signer.Sign] signed %s but could not record it", id)
	}
	s.count++

	logger.Info().Str("session", id.String()).Int("count", s.count).Msg("Signed")
	notify.Send(ctx, s.notifier, logger, fmt.Sprintf("Signed for %s %s", id.Day(), id.Half.Label()))
	return OutcomeSigned, nil
}
