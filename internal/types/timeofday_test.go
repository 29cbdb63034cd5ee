// README: Time-of-day parsing and arithmetic tests.
package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in   string
		want TimeOfDay
	}{
		{"8:30 AM", NewTimeOfDay(8, 30)},
		{"8:30am", NewTimeOfDay(8, 30)},
		{" 12:05 PM ", NewTimeOfDay(12, 5)},
		{"12:05 AM", NewTimeOfDay(0, 5)},
		{"11:59 PM", NewTimeOfDay(23, 59)},
		{"17:45", NewTimeOfDay(17, 45)},
	}
	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.in)
		if err != nil {
			t.Fatalf("ParseTimeOfDay(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseTimeOfDay(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestParseTimeOfDayRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "soon", "25:00", "8:61 AM", "8.30 AM"} {
		if _, err := ParseTimeOfDay(in); err == nil {
			t.Errorf("ParseTimeOfDay(%q): expected error", in)
		}
	}
}

func TestTimeOfDayAddRollsOverHourAndPeriod(t *testing.T) {
	cases := []struct {
		start string
		delta time.Duration
		want  string
	}{
		{"8:05 AM", -10 * time.Minute, "7:55 AM"},
		{"8:30 AM", -30 * time.Minute, "8:00 AM"},
		{"12:10 PM", -20 * time.Minute, "11:50 AM"},
		{"11:50 AM", 20 * time.Minute, "12:10 PM"},
		{"12:05 AM", -10 * time.Minute, "11:55 PM"},
		{"11:55 PM", 10 * time.Minute, "12:05 AM"},
	}
	for _, tc := range cases {
		start, err := ParseTimeOfDay(tc.start)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.start, err)
		}
		if got := start.Add(tc.delta).String(); got != tc.want {
			t.Errorf("%s %+v = %s, want %s", tc.start, tc.delta, got, tc.want)
		}
	}
}

func TestTimeOfDayJSON(t *testing.T) {
	in := NewTimeOfDay(19, 5)
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"7:05 PM"` {
		t.Fatalf("unexpected json %s", b)
	}
	var out TimeOfDay
	if err := json.Unmarshal([]byte(`"07:05 pm"`), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != in {
		t.Fatalf("got %s, want %s", out, in)
	}
}
