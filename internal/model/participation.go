package model

import "time"

// Participation records that a user holds a seat in a slot.  It is
// the source of truth for seat counts; capacity checks and the
// group-formation threshold are always computed by recounting these
// rows, never from a cached counter.  Unique on (user_id, slot_id).
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – seat holder.
//  SlotID     – slot the seat belongs to.
//  ActivityID – owning activity, denormalized for the one-per-activity rule.
//  CreatedAt  – when the seat was taken.
type Participation struct {
	ID         uint64    // slot_participants.id
	UserID     uint64    // slot_participants.user_id
	SlotID     uint64    // slot_participants.slot_id
	ActivityID uint64    // slot_participants.activity_id
	CreatedAt  time.Time // slot_participants.created_at
}
