package engine

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/realmeet/slot-booking/internal/model"
)

// Invitation TTL bounds.  The product default is ten minutes; a
// caller-supplied TTL is clamped to at most a day.
const (
	DefaultInviteTTL = 10 * time.Minute
	MaxInviteTTL     = 24 * time.Hour
)

// Reasons returned by ValidateInvite when a token is not usable.
const (
	ReasonNotFound        = "not_found"
	ReasonExpired         = "expired"
	ReasonAlreadyRedeemed = "already_redeemed"
	ReasonCancelled       = "cancelled"
)

// IssueResult is the outcome of IssueInvite.
type IssueResult struct {
	InvitationID uint64    `json:"invitation_id"`
	Token        string    `json:"token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ValidateResult is the outcome of ValidateInvite.  Preview is set
// only when Valid is true.
type ValidateResult struct {
	Valid   bool                 `json:"valid"`
	Reason  string               `json:"reason,omitempty"`
	Preview *model.InvitePreview `json:"preview,omitempty"`
}

// newInviteToken returns a 64-character hex token from 32 bytes of
// cryptographically secure randomness.
func newInviteToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// clampTTL applies the default and the cap.
func clampTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultInviteTTL
	}
	if ttl > MaxInviteTTL {
		return MaxInviteTTL
	}
	return ttl
}

// validPaymentMode accepts the two modes the original product knows;
// an empty mode defaults to host_pays.
func normalizePaymentMode(mode string) (string, error) {
	switch mode {
	case "":
		return model.PaymentModeHostPays, nil
	case model.PaymentModeHostPays, model.PaymentModeGuestPays:
		return mode, nil
	default:
		return "", ErrInvalidPaymentMode
	}
}

// inviteUsable maps a loaded invitation to the terminal error a
// redeem attempt must report, or nil when the token is live.  Expiry
// is checked first: past expiresAt a token reports expired no matter
// what its stored status says.
func inviteUsable(inv *model.Invitation, now time.Time) error {
	if inv == nil {
		return ErrInviteNotFound
	}
	if inv.Expired(now) {
		return ErrInviteExpired
	}
	switch inv.Status {
	case model.InviteStatusPending:
		return nil
	case model.InviteStatusRedeemed:
		return ErrInviteRedeemed
	case model.InviteStatusCancelled:
		return ErrInviteCancelled
	default:
		return ErrInviteNotFound
	}
}

// issueInvite runs the issuance preconditions and persists the
// token inside an open unit of work.
func issueInvite(ctx context.Context, tx StoreTx, issuerID, activityID, slotID uint64, paymentMode string, ttl time.Duration, now time.Time) (IssueResult, error) {
	var res IssueResult

	slot, act, err := tx.SlotWithActivity(ctx, slotID)
	if err != nil {
		return res, err
	}
	if act.ID != activityID {
		return res, ErrSlotNotFound
	}
	if slot.Ended(now) {
		return res, ErrSlotEnded
	}

	// Only current members may invite.
	if heldSlot, ok, err := tx.ParticipationSlotForActivity(ctx, issuerID, act.ID); err != nil {
		return res, wrapStore(err)
	} else if !ok || heldSlot != slot.ID {
		return res, ErrNotParticipant
	}

	// One live pending invite per (issuer, slot).
	if pending, err := tx.HasPendingInvite(ctx, issuerID, slot.ID); err != nil {
		return res, wrapStore(err)
	} else if pending {
		return res, ErrInvitePending
	}

	// No capacity check here: the slot may fill before acceptance, so
	// capacity is re-checked at redemption instead.
	token, err := newInviteToken()
	if err != nil {
		return res, wrapStore(err)
	}

	inv := &model.Invitation{
		Token:       token,
		IssuerID:    issuerID,
		ActivityID:  act.ID,
		SlotID:      slot.ID,
		PaymentMode: paymentMode,
		Status:      model.InviteStatusPending,
		IssuedAt:    now,
		ExpiresAt:   now.Add(ttl),
	}
	if err := tx.InsertInvitation(ctx, inv); err != nil {
		return res, wrapStore(err)
	}

	res.InvitationID = inv.ID
	res.Token = token
	res.ExpiresAt = inv.ExpiresAt
	return res, nil
}
