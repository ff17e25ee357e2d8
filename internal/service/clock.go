package service

import (
	"time"

	"chromabloom/internal/models"
)

// Clock supplies the current time and the time zone calendar days are
// evaluated in.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// NewClock returns a wall clock for loc
func NewClock(loc *time.Location) Clock {
	return Clock{Now: time.Now, Location: loc}
}

func (c Clock) now() time.Time {
	return c.Now().In(c.location())
}

// day formats t as a calendar day in the clock's zone
func (c Clock) day(t time.Time) string {
	return t.In(c.location()).Format(models.RunDateLayout)
}

func (c Clock) parseDay(s string) (string, error) {
	d, err := time.ParseInLocation(models.RunDateLayout, s, c.location())
	if err != nil {
		return "", err
	}
	return d.Format(models.RunDateLayout), nil
}

func (c Clock) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}
