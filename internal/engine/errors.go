// Package engine implements the slot booking core: the participation
// ledger, the group-conversation lifecycle and the +1 invitation
// service, composed behind a single façade.  Sentinel errors below
// form the outcome taxonomy handlers translate into HTTP responses.
// Duplicate joins and leaves are not errors at all; they surface as
// idempotent success statuses on the result types.
package engine

import "errors"

// ErrSlotNotFound is returned when the slot does not exist.
var ErrSlotNotFound = errors.New("slot not found")

// ErrActivityNotFound is returned when an activity referenced by an
// operation does not exist.
var ErrActivityNotFound = errors.New("activity not found")

// ErrCapacityExceeded is terminal: the activity is full.  Never
// retried automatically.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// ErrSlotEnded rejects joins on a slot whose end time has passed.
var ErrSlotEnded = errors.New("slot already ended")

// ErrAlreadyRegistered is returned when the user holds a live
// participation on a different slot of the same activity.  Unlike a
// same-slot duplicate this is a real conflict, not a retry.
var ErrAlreadyRegistered = errors.New("already registered on another slot of this activity")

// ErrNotParticipant is returned when an invite issuer does not hold
// a seat in the slot.
var ErrNotParticipant = errors.New("issuer is not a participant of this slot")

// ErrInvitePending is returned when the issuer already has a live
// pending invitation for the slot.
var ErrInvitePending = errors.New("a pending invitation already exists for this slot")

// ErrInvalidPaymentMode rejects unknown payment modes at issuance.
var ErrInvalidPaymentMode = errors.New("invalid payment mode")

// Invitation outcomes, surfaced verbatim so clients can render the
// right message (expired vs. already used vs. invalid link).
var (
	ErrInviteNotFound  = errors.New("invitation not found")
	ErrInviteExpired   = errors.New("invitation expired")
	ErrInviteRedeemed  = errors.New("invitation already redeemed")
	ErrInviteCancelled = errors.New("invitation cancelled")
	ErrSelfRedeem      = errors.New("cannot redeem own invitation")
)

// ErrStoreUnavailable wraps transport/storage failures.  Transient:
// the caller may retry with backoff; all engine mutations are
// idempotent so a client-side retry is always safe.
var ErrStoreUnavailable = errors.New("store unavailable")

// wrapStore tags an unexpected storage error as retryable while
// preserving the cause for logs.
func wrapStore(err error) error {
	if err == nil || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return errors.Join(ErrStoreUnavailable, err)
}

// terminal reports whether err is one of the engine's own outcomes,
// as opposed to a storage failure that needs the unavailable tag.
func terminal(err error) bool {
	for _, t := range []error{
		ErrSlotNotFound, ErrActivityNotFound, ErrCapacityExceeded, ErrSlotEnded,
		ErrAlreadyRegistered, ErrNotParticipant, ErrInvitePending, ErrInvalidPaymentMode,
		ErrInviteNotFound, ErrInviteExpired, ErrInviteRedeemed, ErrInviteCancelled,
		ErrSelfRedeem,
	} {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
