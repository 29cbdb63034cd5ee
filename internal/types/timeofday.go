// README: Time-of-day value type for departure and pickup times ("8:30 AM").
package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// TimeOfDay is a wall-clock time without a date, stored as minutes since midnight.
// Arithmetic wraps around midnight.
type TimeOfDay int

var timeOfDayLayouts = []string{"3:04 PM", "3:04PM", "15:04"}

// ParseTimeOfDay accepts "8:30 AM", "8:30am", "12:05 PM" and 24-hour "08:30".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	if v == "" {
		return 0, fmt.Errorf("empty time of day")
	}
	for _, layout := range timeOfDayLayouts {
		t, err := time.Parse(layout, v)
		if err == nil {
			return NewTimeOfDay(t.Hour(), t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(0).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// Add shifts t by d, truncated to whole minutes, wrapping across midnight.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	m := (int(t) + int(d/time.Minute)) % minutesPerDay
	if m < 0 {
		m += minutesPerDay
	}
	return TimeOfDay(m)
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) Before(u TimeOfDay) bool { return t < u }

func (t TimeOfDay) String() string {
	h, period := t.Hour(), "AM"
	if h >= 12 {
		period = "PM"
	}
	h %= 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, t.Minute(), period)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}
