package services

import (
	"strings"
	"time"

	"clinic-backend/models"
)

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04"
	// DateTimeSecondsLayout is how date-times are rendered; it is also
	// accepted on input so clients can echo values back.
	DateTimeSecondsLayout = "2006-01-02T15:04:05"
)

// Stored date-times are clinic wall-clock values carried as UTC.

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, models.Validationf("%s must be a date in YYYY-MM-DD format", field)
	}
	return t, nil
}

func parseDateTime(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{DateTimeLayout, DateTimeSecondsLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, models.Validationf("%s must be a date-time in YYYY-MM-DDTHH:MM format", field)
}

// parseBound parses an optional range bound given as a date or a date-time.
// A date-only upper bound covers the whole day.
func parseBound(field, value string, upper bool) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(DateLayout, value); err == nil {
		if upper {
			t = t.Add(24*time.Hour - time.Microsecond)
		}
		return &t, nil
	}
	t, err := parseDateTime(field, value)
	if err != nil {
		return nil, models.Validationf("%s must be YYYY-MM-DD or YYYY-MM-DDTHH:MM", field)
	}
	return &t, nil
}

func parseRange(start, end string) (*time.Time, *time.Time, error) {
	from, err := parseBound("start", start, false)
	if err != nil {
		return nil, nil, err
	}
	to, err := parseBound("end", end, true)
	if err != nil {
		return nil, nil, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, models.Validationf("end must not be before start")
	}
	return from, to, nil
}

// WallClock returns a clock reading the current wall time in loc, expressed
// in the same UTC-carried form as stored date-times.
func WallClock(loc *time.Location) func() time.Time {
	return func() time.Time {
		now := time.Now().In(loc)
		return time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), time.UTC)
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// supplied reports whether a partial-update slot carries a usable value for
// a required attribute: present, not null, not empty.
func supplied(o models.Optional[string]) bool {
	return o.Set && !o.Null && !blank(o.Value)
}
