package model

import "time"

// Activity represents a bookable shared activity published by a
// business owner.  Capacity applies across all slots of the
// activity: a user holds at most one live participation per
// activity.  The Participants column is a denormalized projection
// of the participations table, refreshed from a recount inside the
// same transaction as any mutation; it is never incremented or
// decremented in isolation.
//
// Fields:
//  ID              – primary key identifier.
//  OwnerID         – user who created the activity (BUSINESS role).
//  Name            – display name of the activity.
//  Description     – free-form description.
//  ImageURL        – cover image URL (storage is external).
//  Location        – human-readable location string.
//  PriceCents      – price per seat in cents.
//  MaxParticipants – authoritative capacity; never inferred from Participants.
//  Participants    – cached live participation count (best effort).
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Activity struct {
	ID              uint64    // activities.id
	OwnerID         uint64    // activities.owner_id
	Name            string    // activities.name
	Description     string    // activities.description
	ImageURL        string    // activities.image_url
	Location        string    // activities.location
	PriceCents      uint32    // activities.price_cents
	MaxParticipants uint32    // activities.max_participants
	Participants    uint32    // activities.participants (cached projection)
	CreatedAt       time.Time // activities.created_at
	UpdatedAt       time.Time // activities.updated_at
}
