package sessions_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-signatory/sessions"
	"github.com/stretchr/testify/require"
)

func TestHalfOf(t *testing.T) {
	tests := []struct {
		hour int
		want sessions.Half
	}{
		{0, sessions.AM},
		{9, sessions.AM},
		{11, sessions.AM},
		{12, sessions.PM},
		{13, sessions.PM},
		{23, sessions.PM},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, sessions.HalfOf(tt.hour), "hour %d", tt.hour)
	}
}

func TestHalf_Forms(t *testing.T) {
	require.Equal(t, "AM", sessions.AM.String())
	require.Equal(t, "am", sessions.AM.Code())
	require.Equal(t, "morning", sessions.AM.Label())
	require.Equal(t, "PM", sessions.PM.String())
	require.Equal(t, "pm", sessions.PM.Code())
	require.Equal(t, "afternoon", sessions.PM.Label())
}

func TestAt(t *testing.T) {
	morning := sessions.At(time.Date(2026, time.October, 20, 9, 5, 0, 0, time.Local))
	require.Equal(t, "2026-10-20 AM", morning.String())
	require.Equal(t, "2026-10-20", morning.Day())

	noon := sessions.At(time.Date(2026, time.October, 20, 12, 0, 0, 0, time.Local))
	require.Equal(t, "2026-10-20 PM", noon.String())

	afternoon := sessions.At(time.Date(2026, time.October, 20, 13, 0, 0, 0, time.Local))
	require.True(t, noon.Equal(afternoon))
	require.False(t, noon.Equal(morning))
}

func TestRunnable(t *testing.T) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		want := d != time.Saturday && d != time.Sunday
		require.Equal(t, want, sessions.Runnable(d), d.String())
	}
}

func TestParse(t *testing.T) {
	id, err := sessions.Parse("2026-10-20 PM")
	require.NoError(t, err)
	require.Equal(t, sessions.PM, id.Half)
	require.Equal(t, "2026-10-20 PM", id.String())

	for _, bad := range []string{"", "2026-10-20", "2026-10-20 pm", "20/10/2026 AM", "2026-10-20  AM"} {
		_, err := sessions.Parse(bad)
		require.Error(t, err, bad)
	}
}
