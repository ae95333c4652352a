package model

import (
	"testing"
	"time"
)

func TestSlotEndTime(t *testing.T) {
	start := time.Date(2026, 9, 12, 18, 30, 0, 0, time.UTC)
	s := Slot{StartsAt: start, DurationMin: 90}
	if want := start.Add(90 * time.Minute); !s.EndTime().Equal(want) {
		t.Errorf("EndTime = %v, want %v", s.EndTime(), want)
	}

	// Zero duration collapses the end onto the start, so the slot is
	// over the moment it begins.
	z := Slot{StartsAt: start}
	if !z.EndTime().Equal(start) {
		t.Errorf("zero-duration EndTime = %v, want %v", z.EndTime(), start)
	}
	if !z.Ended(start) {
		t.Error("zero-duration slot should be ended at its own start")
	}
}

func TestSlotEnded(t *testing.T) {
	start := time.Date(2026, 9, 12, 18, 30, 0, 0, time.UTC)
	s := Slot{StartsAt: start, DurationMin: 60}

	if s.Ended(start.Add(30 * time.Minute)) {
		t.Error("slot reported ended while running")
	}
	if !s.Ended(start.Add(60 * time.Minute)) {
		t.Error("slot not ended at its end instant")
	}
}

func TestSlotLabel(t *testing.T) {
	s := Slot{StartsAt: time.Date(2026, 9, 12, 18, 30, 0, 0, time.UTC)}
	if got, want := s.Label("Bouldering"), "Bouldering - 2026-09-12 18:30"; got != want {
		t.Errorf("Label = %q, want %q", got, want)
	}
}

func TestInvitationExpired(t *testing.T) {
	exp := time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)
	inv := Invitation{ExpiresAt: exp}

	if inv.Expired(exp.Add(-time.Second)) {
		t.Error("invitation expired before its deadline")
	}
	if !inv.Expired(exp) {
		t.Error("invitation not expired at the deadline instant")
	}
}
