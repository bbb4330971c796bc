package signer_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jrsteele09/go-signatory/auth"
	"github.com/jrsteele09/go-signatory/auth/portalfake"
	"github.com/jrsteele09/go-signatory/internal/errors"
	"github.com/jrsteele09/go-signatory/notify/notifyfake"
	"github.com/jrsteele09/go-signatory/sessions"
	fakesessionrepo "github.com/jrsteele09/go-signatory/sessions/repofakes"
	"github.com/jrsteele09/go-signatory/signer"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "jane.doe@example.com"
	testPassword = "password123"
)

var (
	testIdentity = signer.Identity{FirstName: "Jane", LastName: "Doe", FormationIndex: "42"}
	tuesdayAM    = time.Date(2026, time.October, 20, 11, 0, 0, 0, time.Local)
	tuesdayPM    = time.Date(2026, time.October, 20, 15, 0, 0, 0, time.Local)
)

// testFixture holds all test dependencies
type testFixture struct {
	portal   *portalfake.Portal
	ledger   *fakesessionrepo.FakeSessionRepo
	notifier *notifyfake.FakeNotifier
	now      time.Time
	sessions int
	signer   *signer.Signer
}

func setupTestFixture(t *testing.T, maxSignatures int, ledgerLines ...string) *testFixture {
	t.Helper()

	f := &testFixture{
		portal:   portalfake.New(testEmail, testPassword),
		ledger:   fakesessionrepo.NewFakeSessionRepo(ledgerLines...),
		notifier: notifyfake.NewFakeNotifier(),
		now:      tuesdayAM,
	}
	t.Cleanup(f.portal.Close)

	factory := auth.NewFactory(f.portal.URL, auth.Credentials{Email: testEmail, Password: testPassword}, auth.WithTimeout(5*time.Second))
	counting := func() (*auth.Session, error) {
		f.sessions++
		return factory()
	}

	s, err := signer.New(testIdentity, f.ledger, counting, f.notifier, maxSignatures,
		signer.WithNowTime(func() time.Time { return f.now }),
		signer.WithLogger(zerolog.Nop()),
	)
	require.NoError(t, err)
	f.signer = s
	return f
}

func TestNew(t *testing.T) {
	factory := auth.NewFactory("http://localhost", auth.Credentials{Email: "a", Password: "b"})

	_, err := signer.New(testIdentity, nil, factory, nil, 10)
	require.Error(t, err)

	_, err = signer.New(testIdentity, fakesessionrepo.NewFakeSessionRepo(), nil, nil, 10)
	require.Error(t, err)

	_, err = signer.New(signer.Identity{FirstName: "Jane"}, fakesessionrepo.NewFakeSessionRepo(), factory, nil, 10)
	require.Error(t, err)

	s, err := signer.New(testIdentity, fakesessionrepo.NewFakeSessionRepo("2026-10-19 AM", "2026-10-19 PM"), factory, nil, 10)
	require.NoError(t, err)
	require.Equal(t, 2, s.Count())
	require.Equal(t, 9, s.Remaining())
}

func TestIdentity_SignPath(t *testing.T) {
	id := sessions.At(tuesdayPM)
	require.Equal(t, "formation/doe-jane---42/emarger/2026-10-20/pm", testIdentity.SignPath(id))
}

func TestSigner_Run_EndToEnd(t *testing.T) {
	f := setupTestFixture(t, 40)

	outcome := f.signer.Run(context.Background())

	require.Equal(t, signer.OutcomeSigned, outcome)
	require.Equal(t, []string{"2026-10-20 AM"}, f.ledger.Lines())
	require.Equal(t, 1, f.signer.Count())
	require.Equal(t, []string{"Signed for 2026-10-20 morning"}, f.notifier.Messages())
	require.Equal(t, []string{"/formation/doe-jane---42/emarger/2026-10-20/am"}, f.portal.Signed())
	require.Equal(t, 1, f.portal.Logins())
}

func TestSigner_Run_Idempotent(t *testing.T) {
	f := setupTestFixture(t, 40, "2026-10-20 AM")

	outcome := f.signer.Run(context.Background())

	require.Equal(t, signer.OutcomeUpToDate, outcome)
	require.Equal(t, []string{"2026-10-20 AM"}, f.ledger.Lines())
	require.Zero(t, f.portal.Requests())
	require.Zero(t, f.sessions)
	require.Empty(t, f.notifier.Messages())
	require.Equal(t, 1, f.signer.Count())
}

func TestSigner_Run_MorningThenAfternoon(t *testing.T) {
	f := setupTestFixture(t, 40)

	require.Equal(t, signer.OutcomeSigned, f.signer.Run(context.Background()))
	require.Equal(t, signer.OutcomeUpToDate, f.signer.Run(context.Background()))

	f.now = tuesdayPM
	require.Equal(t, signer.OutcomeSigned, f.signer.Run(context.Background()))

	require.Equal(t, []string{"2026-10-20 AM", "2026-10-20 PM"}, f.ledger.Lines())
	require.Equal(t, 2, f.signer.Count())
	require.Equal(t, 2, f.sessions)
	require.Equal(t, []string{
		"Signed for 2026-10-20 morning",
		"Signed for 2026-10-20 afternoon",
	}, f.notifier.Messages())
}

func TestSigner_Run_Failures(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		f := setupTestFixture(t, 40)
		f.portal.OmitToken()

		require.Equal(t, signer.OutcomeFailed, f.signer.Run(context.Background()))
		require.Empty(t, f.ledger.Lines())
		require.Zero(t, f.signer.Count())
		msgs := f.notifier.Messages()
		require.Len(t, msgs, 1)
		require.Contains(t, msgs[0], "Signing failed for 2026-10-20 morning")
		require.Contains(t, msgs[0], "missing token")
	})

	t.Run("sign rejected", func(t *testing.T) {
		f := setupTestFixture(t, 40)
		f.portal.SetSignStatus(http.StatusForbidden)

		require.Equal(t, signer.OutcomeFailed, f.signer.Run(context.Background()))
		require.Empty(t, f.ledger.Lines())

		_, err := f.signer.Sign(context.Background())
		require.ErrorIs(t, err, errors.ErrSign)
		require.ErrorIs(t, err, errors.ErrSubmitRejected)
	})

	t.Run("login rejected is an auth error", func(t *testing.T) {
		f := setupTestFixture(t, 40)
		f.portal.SetPassword("changed")

		outcome, err := f.signer.Sign(context.Background())
		require.Equal(t, signer.OutcomeFailed, outcome)
		require.ErrorIs(t, err, errors.ErrLoginRejected)
		require.Empty(t, f.portal.Signed())
	})

	t.Run("ledger append failure", func(t *testing.T) {
		f := setupTestFixture(t, 40)
		f.ledger.FailAppends(fmt.Errorf("disk full"))

		require.Equal(t, signer.OutcomeFailed, f.signer.Run(context.Background()))
		require.Zero(t, f.signer.Count())
		require.Len(t, f.portal.Signed(), 1)
	})

	t.Run("notification failure does not fail the run", func(t *testing.T) {
		f := setupTestFixture(t, 40)
		f.notifier.Fail(errors.ErrNotification)

		require.Equal(t, signer.OutcomeSigned, f.signer.Run(context.Background()))
		require.Equal(t, []string{"2026-10-20 AM"}, f.ledger.Lines())
	})

	t.Run("failed run is retried next time", func(t *testing.T) {
		f := setupTestFixture(t, 40)
		f.portal.SetSignStatus(http.StatusBadGateway)
		require.Equal(t, signer.OutcomeFailed, f.signer.Run(context.Background()))

		f.portal.SetSignStatus(http.StatusOK)
		require.Equal(t, signer.OutcomeSigned, f.signer.Run(context.Background()))
		require.Equal(t, []string{"2026-10-20 AM"}, f.ledger.Lines())
	})
}

func TestSigner_Run_RecoversFromPanic(t *testing.T) {
	notifier := notifyfake.NewFakeNotifier()
	panicking := func() (*auth.Session, error) { panic("boom") }

	s, err := signer.New(testIdentity, fakesessionrepo.NewFakeSessionRepo(), panicking, notifier, 10,
		signer.WithNowTime(func() time.Time { return tuesdayAM }),
		signer.WithLogger(zerolog.Nop()),
	)
	require.NoError(t, err)

	require.Equal(t, signer.OutcomeFailed, s.Run(context.Background()))
	require.Equal(t, []string{"Signing crashed for 2026-10-20 morning: boom"}, notifier.Messages())
}

func TestSigner_Quota(t *testing.T) {
	t.Run("count equal to max still signs", func(t *testing.T) {
		f := setupTestFixture(t, 2, "2026-10-19 AM", "2026-10-19 PM")
		require.Equal(t, 1, f.signer.Remaining())

		require.Equal(t, signer.OutcomeSigned, f.signer.Run(context.Background()))
		require.Equal(t, 3, f.signer.Count())
		require.Zero(t, f.signer.Remaining())
	})

	t.Run("count past max finishes once", func(t *testing.T) {
		f := setupTestFixture(t, 2, "2026-10-16 PM", "2026-10-19 AM", "2026-10-19 PM")

		require.Equal(t, signer.OutcomeFinished, f.signer.Run(context.Background()))
		require.Equal(t, signer.OutcomeFinished, f.signer.Run(context.Background()))
		f.now = tuesdayPM
		require.Equal(t, signer.OutcomeFinished, f.signer.Run(context.Background()))

		_, err := f.signer.Sign(context.Background())
		require.ErrorIs(t, err, errors.ErrQuotaReached)

		require.Equal(t, []string{"Formation complete: 3 sessions signed, stopping"}, f.notifier.Messages())
		require.Zero(t, f.portal.Requests())
		require.Len(t, f.ledger.Lines(), 3)
	})

	t.Run("counter grows with each signature", func(t *testing.T) {
		f := setupTestFixture(t, 1)
		require.Zero(t, f.signer.Count())
		require.Equal(t, 2, f.signer.Remaining())

		require.Equal(t, signer.OutcomeSigned, f.signer.Run(context.Background()))
		f.now = tuesdayPM
		require.Equal(t, signer.OutcomeSigned, f.signer.Run(context.Background()))
		require.Equal(t, 2, f.signer.Count())
		require.Zero(t, f.signer.Remaining())

		f.now = tuesdayAM.AddDate(0, 0, 1)
		require.Equal(t, signer.OutcomeFinished, f.signer.Run(context.Background()))
		require.Len(t, f.ledger.Lines(), 2)
	})
}
