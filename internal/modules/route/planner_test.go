// README: ETA planner tests (fixed interval and directions fallback).
package route

import (
	"context"
	"errors"
	"testing"
	"time"

	"campuspool/internal/types"
)

func mustTime(t *testing.T, s string) types.TimeOfDay {
	t.Helper()
	v, err := types.ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v
}

func TestFixedIntervalPlannerOrdersStopsBeforeDeparture(t *testing.T) {
	p := FixedIntervalPlanner{Interval: 10 * time.Minute}
	etas, err := p.Plan(context.Background(), PlanInput{
		Departure: mustTime(t, "8:30 AM"),
		Stops:     []string{"Main Gate", "Library", "Hostel Block C"},
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	want := []string{"8:00 AM", "8:10 AM", "8:20 AM"}
	for i, w := range want {
		if etas[i].String() != w {
			t.Errorf("stop %d: got %s, want %s", i, etas[i], w)
		}
	}
	for i := 1; i < len(etas); i++ {
		if etas[i] < etas[i-1] {
			t.Fatalf("etas not non-decreasing: %v", etas)
		}
	}
}

func TestFixedIntervalPlannerRollsBackAcrossHour(t *testing.T) {
	etas, err := FixedIntervalPlanner{}.Plan(context.Background(), PlanInput{
		Departure: mustTime(t, "8:05 AM"),
		Stops:     []string{"Canteen"},
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if etas[0].String() != "7:55 AM" {
		t.Fatalf("got %s, want 7:55 AM", etas[0])
	}
}

type fakeLegs struct {
	durations []time.Duration
	err       error
}

func (f fakeLegs) LegDurations(context.Context, []string, string) ([]time.Duration, error) {
	return f.durations, f.err
}

func TestLegPlannerWorksBackwardsFromDeparture(t *testing.T) {
	p := NewLegPlanner(fakeLegs{durations: []time.Duration{7 * time.Minute, 12*time.Minute + 20*time.Second}}, FixedIntervalPlanner{}, nil)
	etas, err := p.Plan(context.Background(), PlanInput{
		Departure:   mustTime(t, "9:00 AM"),
		Destination: "Campus",
		Stops:       []string{"A", "B"},
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if etas[0].String() != "8:41 AM" || etas[1].String() != "8:48 AM" {
		t.Fatalf("got %v", etas)
	}
}

func TestLegPlannerFallsBack(t *testing.T) {
	cases := map[string]fakeLegs{
		"estimator error": {err: errors.New("quota exceeded")},
		"short result":    {durations: []time.Duration{time.Minute}},
	}
	for name, legs := range cases {
		p := NewLegPlanner(legs, FixedIntervalPlanner{Interval: 5 * time.Minute}, nil)
		etas, err := p.Plan(context.Background(), PlanInput{
			Departure: mustTime(t, "9:00 AM"),
			Stops:     []string{"A", "B"},
		})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if etas[0].String() != "8:50 AM" || etas[1].String() != "8:55 AM" {
			t.Errorf("%s: got %v", name, etas)
		}
	}
}

func TestNormalizeAmenities(t *testing.T) {
	got := NormalizeAmenities([]string{" AC ", "Music", "ac", "", "music", "Phone charger"})
	want := []string{"AC", "Music", "Phone charger"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
