package engine

import (
	"context"
	"log"
	"time"

	"github.com/realmeet/slot-booking/internal/model"
)

// Engine is the booking façade: the single entry point composing the
// participation ledger, the group lifecycle controller and the
// invitation service.  It holds no state of its own beyond its
// collaborators and is safe for concurrent use.
type Engine struct {
	store   Store
	emitter MessageEmitter
	rec     Recorder

	ledger ledger
	groups lifecycle

	now func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the time source, used by tests to exercise
// expiry without sleeping.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New builds an Engine.  emitter may not be nil; pass NopRecorder
// when metrics are disabled.
func New(store Store, emitter MessageEmitter, rec Recorder, opts ...Option) *Engine {
	if store == nil || emitter == nil {
		panic("nil collaborator passed to engine.New")
	}
	if rec == nil {
		rec = NopRecorder{}
	}
	e := &Engine{
		store:   store,
		emitter: emitter,
		rec:     rec,
		groups:  lifecycle{rec: rec},
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Join seats userID in the slot and reconciles the slot's group
// conversation, all in one atomic unit.  Duplicate joins are
// idempotent successes.
func (e *Engine) Join(ctx context.Context, userID, slotID uint64) (JoinResult, error) {
	var (
		out     joinOutcome
		pending []pendingMessage
	)
	err := e.store.WithinTx(ctx, func(tx StoreTx) error {
		slot, act, err := tx.SlotWithActivity(ctx, slotID)
		if err != nil {
			return err
		}
		out, err = e.ledger.join(ctx, tx, userID, slot, act, e.now())
		if err != nil {
			return err
		}
		if out.status == StatusJoined {
			return e.groups.reconcileJoin(ctx, tx, slot, act, userID, out, &pending)
		}
		return nil
	})
	if err != nil {
		e.rec.RecordJoin("error")
		return JoinResult{}, e.classify(err)
	}
	e.flush(ctx, pending)
	e.rec.RecordJoin(out.status)
	return JoinResult{Status: out.status, ParticipantCount: out.newCount}, nil
}

// Leave releases the user's seat and reconciles the group.  A leave
// without a seat is an idempotent success.
func (e *Engine) Leave(ctx context.Context, userID, slotID uint64) (LeaveResult, error) {
	var (
		out     joinOutcome
		pending []pendingMessage
	)
	err := e.store.WithinTx(ctx, func(tx StoreTx) error {
		slot, act, err := tx.SlotWithActivity(ctx, slotID)
		if err != nil {
			return err
		}
		out, err = e.ledger.leave(ctx, tx, userID, slot, act)
		if err != nil {
			return err
		}
		if out.status == StatusLeft {
			return e.groups.reconcileLeave(ctx, tx, slot, userID, out, &pending)
		}
		return nil
	})
	if err != nil {
		e.rec.RecordLeave("error")
		return LeaveResult{}, e.classify(err)
	}
	e.flush(ctx, pending)
	e.rec.RecordLeave(out.status)
	return LeaveResult{Status: out.status, ParticipantCount: out.newCount}, nil
}

// IssueInvite creates a single-use +1 token bound to the issuer's
// seat.  ttl <= 0 selects the ten-minute default.
func (e *Engine) IssueInvite(ctx context.Context, issuerID, activityID, slotID uint64, paymentMode string, ttl time.Duration) (IssueResult, error) {
	mode, err := normalizePaymentMode(paymentMode)
	if err != nil {
		return IssueResult{}, err
	}
	ttl = clampTTL(ttl)

	var res IssueResult
	err = e.store.WithinTx(ctx, func(tx StoreTx) error {
		var err error
		res, err = issueInvite(ctx, tx, issuerID, activityID, slotID, mode, ttl, e.now())
		return err
	})
	if err != nil {
		return IssueResult{}, e.classify(err)
	}
	e.rec.RecordInviteIssued()
	return res, nil
}

// ValidateInvite checks a token without mutating anything.  Safe to
// call repeatedly, e.g. for a countdown display.
func (e *Engine) ValidateInvite(ctx context.Context, token string) (ValidateResult, error) {
	inv, err := e.store.InvitationByToken(ctx, token)
	if err != nil {
		return ValidateResult{}, wrapStore(err)
	}
	switch usable := inviteUsable(inv, e.now()); usable {
	case nil:
		// fall through to the preview
	case ErrInviteExpired:
		return ValidateResult{Valid: false, Reason: ReasonExpired}, nil
	case ErrInviteRedeemed:
		return ValidateResult{Valid: false, Reason: ReasonAlreadyRedeemed}, nil
	case ErrInviteCancelled:
		return ValidateResult{Valid: false, Reason: ReasonCancelled}, nil
	default:
		return ValidateResult{Valid: false, Reason: ReasonNotFound}, nil
	}

	preview, err := e.store.InvitePreview(ctx, token)
	if err != nil {
		return ValidateResult{}, wrapStore(err)
	}
	return ValidateResult{Valid: true, Preview: preview}, nil
}

// RedeemInvite consumes the token and grants the seat as one
// all-or-nothing unit: the token is marked redeemed in the same
// transaction as the Join, so a capacity failure rolls the mark back
// and a second concurrent redeem can never also succeed.
func (e *Engine) RedeemInvite(ctx context.Context, token string, userID uint64) (JoinResult, error) {
	var (
		out     joinOutcome
		pending []pendingMessage
	)
	err := e.store.WithinTx(ctx, func(tx StoreTx) error {
		inv, err := tx.InvitationByToken(ctx, token)
		if err != nil {
			return wrapStore(err)
		}
		if err := inviteUsable(inv, e.now()); err != nil {
			return err
		}
		if inv.IssuerID == userID {
			return ErrSelfRedeem
		}

		// First writer wins; a concurrent redeemer that lost the race
		// observes no updated row and reports already redeemed.
		won, err := tx.MarkInvitationRedeemed(ctx, inv.ID, userID)
		if err != nil {
			return wrapStore(err)
		}
		if !won {
			return ErrInviteRedeemed
		}

		slot, act, err := tx.SlotWithActivity(ctx, inv.SlotID)
		if err != nil {
			return err
		}
		out, err = e.ledger.join(ctx, tx, userID, slot, act, e.now())
		if err != nil {
			return err // rolls back the redeemed mark too
		}
		if out.status == StatusAlreadyJoined {
			// The redeemer already holds this seat; do not burn the
			// token for a no-op.
			return ErrAlreadyRegistered
		}
		return e.groups.reconcileJoin(ctx, tx, slot, act, userID, out, &pending)
	})
	if err != nil {
		e.rec.RecordInviteRedeemed("error")
		return JoinResult{}, e.classify(err)
	}
	e.flush(ctx, pending)
	e.rec.RecordInviteRedeemed(out.status)
	return JoinResult{Status: out.status, ParticipantCount: out.newCount}, nil
}

// CancelInvite voids a pending invitation.  Only the issuer may
// cancel, and only while the invitation is still pending.
func (e *Engine) CancelInvite(ctx context.Context, invitationID, callerID uint64) error {
	err := e.store.WithinTx(ctx, func(tx StoreTx) error {
		cancelled, err := tx.CancelInvitation(ctx, invitationID, callerID)
		if err != nil {
			return wrapStore(err)
		}
		if !cancelled {
			return ErrInviteNotFound
		}
		return nil
	})
	return e.classify(err)
}

// PendingInvites lists the caller's live pending invitations for a
// slot.
func (e *Engine) PendingInvites(ctx context.Context, slotID, callerID uint64) ([]model.Invitation, error) {
	invs, err := e.store.PendingInvitesBySlot(ctx, slotID, callerID)
	if err != nil {
		return nil, wrapStore(err)
	}
	return invs, nil
}

// flush delivers buffered system messages after commit, in commit
// order.  Delivery failures are logged; the seat grant already
// committed and must never be reverted because a message failed.
func (e *Engine) flush(ctx context.Context, pending []pendingMessage) {
	for _, m := range pending {
		if err := e.emitter.Emit(ctx, m.ConversationID, m.Text); err != nil {
			log.Printf("engine: system message emit failed (conversation=%d): %v", m.ConversationID, err)
		}
	}
}

// classify leaves the engine's own outcomes untouched and tags
// anything else as a retryable store failure.
func (e *Engine) classify(err error) error {
	if err == nil || terminal(err) {
		return err
	}
	return wrapStore(err)
}
