package model

import (
	"fmt"
	"time"
)

// Slot is a concrete date/time instance of an Activity that users can
// join.  A slot has no capacity of its own; it inherits the owning
// activity's MaxParticipants.  Slots are created by the activity
// owner and never mutated by participants.
//
// Fields:
//  ID          – primary key identifier.
//  ActivityID  – owning activity.
//  StartsAt    – when the slot begins (UTC).
//  DurationMin – duration in minutes; 0 means no duration recorded.
//  CreatedAt   – creation timestamp.
type Slot struct {
	ID          uint64    // activity_slots.id
	ActivityID  uint64    // activity_slots.activity_id
	StartsAt    time.Time // activity_slots.starts_at
	DurationMin uint32    // activity_slots.duration_min
	CreatedAt   time.Time // activity_slots.created_at
}

// EndTime is the canonical end-of-slot computation used everywhere a
// "slot is past" decision is made.  A zero duration yields an end
// equal to the start.
func (s Slot) EndTime() time.Time {
	return s.StartsAt.Add(time.Duration(s.DurationMin) * time.Minute)
}

// Ended reports whether the slot is over at the given instant.
func (s Slot) Ended(now time.Time) bool {
	return !s.EndTime().After(now)
}

// Label builds the display label used in group names and system
// messages, e.g. "Bouldering - 2026-09-12 18:30".
func (s Slot) Label(activityName string) string {
	return fmt.Sprintf("%s - %s", activityName, s.StartsAt.UTC().Format("2006-01-02 15:04"))
}
