package engine

import (
	"context"
	"time"

	"github.com/realmeet/slot-booking/internal/model"
)

// Join/Leave statuses returned to callers.  Duplicate requests map
// to the *_already statuses and are success, so duplicate client
// retries are harmless.
const (
	StatusJoined        = "joined"
	StatusAlreadyJoined = "already_joined"
	StatusLeft          = "left"
	StatusNotJoined     = "not_joined"
)

// JoinResult reports the outcome of a Join (or invite redemption)
// together with the authoritative post-commit slot count.
type JoinResult struct {
	Status           string `json:"status"`
	ParticipantCount uint32 `json:"participant_count"`
}

// LeaveResult mirrors JoinResult for Leave.
type LeaveResult struct {
	Status           string `json:"status"`
	ParticipantCount uint32 `json:"participant_count"`
}

// ledger owns join/leave semantics and capacity enforcement.  All
// methods run inside an open unit of work; counts are always
// recomputed from participation rows, never read from the cached
// activity counter.
type ledger struct{}

// joinOutcome carries everything the lifecycle controller needs to
// reconcile the group after a ledger mutation.
type joinOutcome struct {
	status    string
	prevCount uint32 // slot count before the mutation
	newCount  uint32 // slot count after the mutation
}

// join seats userID in the slot.  Preconditions: the slot has not
// ended and the user holds no live participation elsewhere in the
// activity.  A (user, slot) duplicate is an idempotent success.
func (ledger) join(ctx context.Context, tx StoreTx, userID uint64, slot *model.Slot, act *model.Activity, now time.Time) (joinOutcome, error) {
	var out joinOutcome

	if slot.Ended(now) {
		return out, ErrSlotEnded
	}

	prev, err := tx.CountBySlot(ctx, slot.ID)
	if err != nil {
		return out, wrapStore(err)
	}
	out.prevCount = prev

	// One live participation per activity, across all of its slots.
	if heldSlot, ok, err := tx.ParticipationSlotForActivity(ctx, userID, act.ID); err != nil {
		return out, wrapStore(err)
	} else if ok {
		if heldSlot == slot.ID {
			out.status = StatusAlreadyJoined
			out.newCount = prev
			return out, nil
		}
		return out, ErrAlreadyRegistered
	}

	// Capacity is checked against a recount of the activity's live
	// participations inside this same unit of work, never against
	// the cached counter.
	liveForActivity, err := tx.CountByActivity(ctx, act.ID)
	if err != nil {
		return out, wrapStore(err)
	}
	if act.MaxParticipants > 0 && liveForActivity >= act.MaxParticipants {
		return out, ErrCapacityExceeded
	}

	inserted, err := tx.InsertParticipation(ctx, userID, slot.ID, act.ID)
	if err != nil {
		return out, wrapStore(err)
	}
	if !inserted {
		// Lost a race against ourselves: the uniqueness constraint on
		// (user, slot) fired.  Treat as already joined.
		out.status = StatusAlreadyJoined
		out.newCount = prev
		return out, nil
	}

	if err := refreshCounter(ctx, tx, act.ID); err != nil {
		return out, err
	}

	cur, err := tx.CountBySlot(ctx, slot.ID)
	if err != nil {
		return out, wrapStore(err)
	}
	out.status = StatusJoined
	out.newCount = cur
	return out, nil
}

// leave removes the user's seat.  Absence of the row is an
// idempotent success.
func (ledger) leave(ctx context.Context, tx StoreTx, userID uint64, slot *model.Slot, act *model.Activity) (joinOutcome, error) {
	var out joinOutcome

	prev, err := tx.CountBySlot(ctx, slot.ID)
	if err != nil {
		return out, wrapStore(err)
	}
	out.prevCount = prev

	deleted, err := tx.DeleteParticipation(ctx, userID, slot.ID)
	if err != nil {
		return out, wrapStore(err)
	}
	if !deleted {
		out.status = StatusNotJoined
		out.newCount = prev
		return out, nil
	}

	if err := refreshCounter(ctx, tx, act.ID); err != nil {
		return out, err
	}

	cur, err := tx.CountBySlot(ctx, slot.ID)
	if err != nil {
		return out, wrapStore(err)
	}
	out.status = StatusLeft
	out.newCount = cur
	return out, nil
}

// refreshCounter rewrites the activity's cached participant
// projection from an authoritative recount.
func refreshCounter(ctx context.Context, tx StoreTx, activityID uint64) error {
	count, err := tx.CountByActivity(ctx, activityID)
	if err != nil {
		return wrapStore(err)
	}
	if err := tx.RefreshParticipantCounter(ctx, activityID, count); err != nil {
		return wrapStore(err)
	}
	return nil
}
