package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock is a local time of day at which the job fires.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock reads "HH:MM" in 24 hour format.
func ParseClock(s string) (Clock, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Clock{}, fmt.Errorf("[scheduler.ParseClock] %q is not HH:MM", s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return Clock{}, fmt.Errorf("[scheduler.ParseClock] bad hour in %q", s)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("[scheduler.ParseClock] bad minute in %q", s)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

// ParseClocks parses every entry of times.
func ParseClocks(times []string) ([]Clock, error) {
	clocks := make([]Clock, 0, len(times))
	for _, t := range times {
		c, err := ParseClock(t)
		if err != nil {
			return nil, err
		}
		clocks = append(clocks, c)
	}
	return clocks, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Next returns the first occurrence of the clock strictly after t, in the
// location of t.
func (c Clock) Next(t time.Time) time.Time {
	next := time.Date(t.Year(), t.Month(), t.Day(), c.Hour, c.Minute, 0, 0, t.Location())
	if !next.After(t) {
		next = time.Date(t.Year(), t.Month(), t.Day()+1, c.Hour, c.Minute, 0, 0, t.Location())
	}
	return next
}
