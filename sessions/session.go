package sessions

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used in ledger keys and sign URLs.
const DateLayout = "2006-01-02"

// Half identifies the morning or afternoon slot of a training day.
type Half int

const (
	AM Half = iota
	PM
)

// HalfOf returns AM before noon and PM from noon onwards.
func HalfOf(hour int) Half {
	if hour < 12 {
		return AM
	}
	return PM
}

func (h Half) String() string {
	if h == PM {
		return "PM"
	}
	return "AM"
}

// Code is the lowercase form the portal expects in sign URLs.
func (h Half) Code() string {
	return strings.ToLower(h.String())
}

// Label is the human form used in notifications.
func (h Half) Label() string {
	if h == PM {
		return "afternoon"
	}
	return "morning"
}

// ID identifies one half-day session. Two IDs are equal when their canonical
// strings are equal.
type ID struct {
	Date time.Time // only the calendar date is significant
	Half Half
}

// At returns the session that the wall-clock time t falls into. The location
// of t is used as is.
func At(t time.Time) ID {
	return ID{
		Date: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()),
		Half: HalfOf(t.Hour()),
	}
}

// Runnable reports whether sessions are held on the given weekday.
func Runnable(weekday time.Weekday) bool {
	return weekday != time.Saturday && weekday != time.Sunday
}

// Day is the session date in DateLayout.
func (id ID) Day() string {
	return id.Date.Format(DateLayout)
}

// String is the canonical ledger key, e.g. "2026-10-20 AM".
func (id ID) String() string {
	return id.Day() + " " + id.Half.String()
}

// Equal compares canonical strings.
func (id ID) Equal(other ID) bool {
	return id.String() == other.String()
}

// Parse reads a canonical ledger key back into an ID.
func Parse(s string) (ID, error) {
	day, half, ok := strings.Cut(s, " ")
	if !ok {
		return ID{}, fmt.Errorf("[sessions.Parse] malformed session %q", s)
	}
	date, err := time.ParseInLocation(DateLayout, day, time.Local)
	if err != nil {
		return ID{}, fmt.Errorf("[sessions.Parse] bad date in %q: %w", s, err)
	}
	switch half {
	case "AM":
		return ID{Date: date, Half: AM}, nil
	case "PM":
		return ID{Date: date, Half: PM}, nil
	}
	return ID{}, fmt.Errorf("[sessions.Parse] bad half-day in %q", s)
}
