package domain

import (
	"fmt"
	"strings"
	"time"
)

// SalonHours anchors calendar-day arithmetic to the salon's time zone and
// describes the daily working window used for availability.
type SalonHours struct {
	Location *time.Location
	// Opens and Closes are offsets from local midnight.
	Opens  time.Duration
	Closes time.Duration
}

func DefaultSalonHours() SalonHours {
	return SalonHours{Location: time.UTC, Opens: 9 * time.Hour, Closes: 18 * time.Hour}
}

// ParseSalonHours builds SalonHours from an IANA zone name and HH:MM clock times.
func ParseSalonHours(timezone, opensAt, closesAt string) (SalonHours, error) {
	tz := strings.TrimSpace(timezone)
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return SalonHours{}, fmt.Errorf("invalid salon timezone %q: %w", timezone, err)
	}
	opens, err := parseClock(opensAt)
	if err != nil {
		return SalonHours{}, fmt.Errorf("invalid opening time: %w", err)
	}
	closes, err := parseClock(closesAt)
	if err != nil {
		return SalonHours{}, fmt.Errorf("invalid closing time: %w", err)
	}
	if closes <= opens {
		return SalonHours{}, fmt.Errorf("closing time %s must be after opening time %s", closesAt, opensAt)
	}
	return SalonHours{Location: loc, Opens: opens, Closes: closes}, nil
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func (h SalonHours) location() *time.Location {
	if h.Location == nil {
		return time.UTC
	}
	return h.Location
}

// Day returns the salon-local calendar day containing t as a UTC interval.
// Days spanning a DST change are 23 or 25 hours long.
func (h SalonHours) Day(t time.Time) Interval {
	loc := h.location()
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return Interval{Start: start.UTC(), End: start.AddDate(0, 0, 1).UTC()}
}

// WorkingWindow returns the opening hours of the salon-local day containing date.
func (h SalonHours) WorkingWindow(date time.Time) Interval {
	loc := h.location()
	local := date.In(loc)
	clock := func(offset time.Duration) time.Time {
		hh := int(offset / time.Hour)
		mm := int((offset % time.Hour) / time.Minute)
		return time.Date(local.Year(), local.Month(), local.Day(), hh, mm, 0, 0, loc).UTC()
	}
	return Interval{Start: clock(h.Opens), End: clock(h.Closes)}
}
