package receipt

import (
	"fmt"
	"time"
)

const (
	dateLayout        = "2006-01-02"
	clockLayout       = "15:04"
	clockLayoutSecond = "15:04:05"
)

// Date is a calendar date with no time or zone
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD)
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

func (d Date) String() string {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format(dateLayout)
}

// MarshalText encodes the date as YYYY-MM-DD
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a YYYY-MM-DD date
func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Clock is a time of day with second precision
type Clock struct {
	Hour   int
	Minute int
	Second int
}

// ParseClock parses HH:MM or HH:MM:SS in 24-hour form
func ParseClock(s string) (Clock, error) {
	layout := clockLayout
	if len(s) > len(clockLayout) {
		layout = clockLayoutSecond
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return Clock{}, fmt.Errorf("parsing time %q: %w", s, err)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
}

// seconds returns the number of seconds since midnight
func (c Clock) seconds() int {
	return c.Hour*3600 + c.Minute*60 + c.Second
}

// After reports whether c is strictly later in the day than o
func (c Clock) After(o Clock) bool {
	return c.seconds() > o.seconds()
}

// Before reports whether c is strictly earlier in the day than o
func (c Clock) Before(o Clock) bool {
	return c.seconds() < o.seconds()
}

func (c Clock) String() string {
	if c.Second != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
	}
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// MarshalText encodes the clock as HH:MM, or HH:MM:SS when seconds are set
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes HH:MM or HH:MM:SS
func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
