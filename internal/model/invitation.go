package model

import "time"

// Invitation payment modes.  The mode is carried opaquely on the
// token and surfaced in the preview; payment itself is external.
const (
	PaymentModeHostPays  = "host_pays"
	PaymentModeGuestPays = "guest_pays"
)

// Invitation statuses.
const (
	InviteStatusPending   = "pending"
	InviteStatusRedeemed  = "redeemed"
	InviteStatusCancelled = "cancelled"
)

// Invitation is a single-use, time-limited "+1" credential issued by
// a slot member.  Only the unguessable Token leaves the system.  A
// token is live while status is pending and ExpiresAt is in the
// future; redemption flips status to redeemed exactly once
// (first writer wins), and expiry is also enforced passively on
// every validate/redeem regardless of stored status.
//
// Fields:
//  ID          – primary key identifier.
//  Token       – opaque random token (unique).
//  IssuerID    – member who issued the invite.
//  ActivityID  – activity the seat belongs to.
//  SlotID      – slot the seat belongs to.
//  PaymentMode – host_pays or guest_pays.
//  Status      – pending, redeemed or cancelled.
//  RedeemerID  – who redeemed it, when status is redeemed.
//  IssuedAt    – creation timestamp.
//  ExpiresAt   – hard expiry; invalid from this instant on.
//  RedeemedAt  – when redemption happened (nullable).
type Invitation struct {
	ID          uint64     // plus_one_invitations.id
	Token       string     // plus_one_invitations.token
	IssuerID    uint64     // plus_one_invitations.issuer_id
	ActivityID  uint64     // plus_one_invitations.activity_id
	SlotID      uint64     // plus_one_invitations.slot_id
	PaymentMode string     // plus_one_invitations.payment_mode
	Status      string     // plus_one_invitations.status
	RedeemerID  *uint64    // plus_one_invitations.redeemer_id (nullable)
	IssuedAt    time.Time  // plus_one_invitations.created_at
	ExpiresAt   time.Time  // plus_one_invitations.expires_at
	RedeemedAt  *time.Time // plus_one_invitations.redeemed_at (nullable)
}

// Expired reports whether the invitation is past its expiry at the
// given instant.  Expiry wins over any stored status.
func (i Invitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// InvitePreview is the denormalized, read-only view returned by
// Validate for display before the invitee signs up.  Safe to fetch
// repeatedly (e.g. for a live countdown); it never mutates state.
type InvitePreview struct {
	ActivityID   uint64    `json:"activity_id"`
	ActivityName string    `json:"activity_name"`
	ActivityImg  string    `json:"activity_image"`
	Location     string    `json:"location"`
	PriceCents   uint32    `json:"price_cents"`
	SlotID       uint64    `json:"slot_id"`
	SlotStartsAt time.Time `json:"slot_starts_at"`
	InviterName  string    `json:"inviter_name"`
	PaymentMode  string    `json:"payment_mode"`
	ExpiresAt    time.Time `json:"expires_at"`
}
