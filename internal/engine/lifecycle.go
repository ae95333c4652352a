package engine

import (
	"context"
	"fmt"

	"github.com/realmeet/slot-booking/internal/model"
)

// groupThreshold is the participant count at which a slot's group
// conversation comes into existence, and below which it is torn
// down again.
const groupThreshold = 2

// pendingMessage is a system message decided inside the unit of work
// but delivered only after it commits, so messages follow commit
// order and a delivery failure can never revert a seat grant.
type pendingMessage struct {
	ConversationID uint64
	Text           string
}

// lifecycle derives group-conversation existence from ledger state.
// It is the only writer of conversations and memberships; clients
// never create or delete a group directly.
type lifecycle struct {
	rec Recorder
}

// reconcileJoin brings the slot's conversation in sync after a
// successful join that moved the count from out.prevCount to
// out.newCount.
func (g lifecycle) reconcileJoin(ctx context.Context, tx StoreTx, slot *model.Slot, act *model.Activity, userID uint64, out joinOutcome, pending *[]pendingMessage) error {
	if out.newCount < groupThreshold {
		return nil // NoGroup state, nothing to do
	}

	conv, err := tx.ConversationBySlot(ctx, slot.ID)
	if err != nil {
		return wrapStore(err)
	}

	if conv == nil {
		// NoGroup → GroupActive.  The uniqueness constraint on
		// conversations(slot_id) arbitrates concurrent creators; a
		// losing racer receives the existing row and proceeds to
		// membership sync.
		created := false
		conv, created, err = tx.InsertConversation(ctx, slot.ID, slot.Label(act.Name))
		if err != nil {
			return wrapStore(err)
		}
		if created {
			g.rec.RecordGroupCreated()
			*pending = append(*pending, pendingMessage{
				ConversationID: conv.ID,
				Text:           fmt.Sprintf("Group created for %s", slot.Label(act.Name)),
			})
		}
		// Seed membership with all current participants, not just the
		// new joiner: earlier members joined before the group existed.
		parts, err := tx.ParticipantsBySlot(ctx, slot.ID)
		if err != nil {
			return wrapStore(err)
		}
		for _, p := range parts {
			added, err := tx.AddMember(ctx, conv.ID, p.UserID)
			if err != nil {
				return wrapStore(err)
			}
			if added {
				if err := g.announceJoin(ctx, tx, conv.ID, p.UserID, pending); err != nil {
					return err
				}
			}
		}
		return nil
	}

	// GroupActive, membership delta: add only the new joiner.
	added, err := tx.AddMember(ctx, conv.ID, userID)
	if err != nil {
		return wrapStore(err)
	}
	if added {
		return g.announceJoin(ctx, tx, conv.ID, userID, pending)
	}
	return nil
}

// reconcileLeave handles membership removal and, when the count
// crosses below the threshold, tears the conversation down.  The
// "left" message is queued before the teardown so it is never
// preceded by deletion.
func (g lifecycle) reconcileLeave(ctx context.Context, tx StoreTx, slot *model.Slot, userID uint64, out joinOutcome, pending *[]pendingMessage) error {
	if out.prevCount < groupThreshold {
		return nil // no group existed before this leave
	}

	conv, err := tx.ConversationBySlot(ctx, slot.ID)
	if err != nil {
		return wrapStore(err)
	}
	if conv == nil {
		// A concurrent leave already tore the group down; deletion is
		// idempotent, absence is success.
		return nil
	}

	name, err := tx.UserName(ctx, userID)
	if err != nil {
		return wrapStore(err)
	}
	*pending = append(*pending, pendingMessage{
		ConversationID: conv.ID,
		Text:           fmt.Sprintf("%s left the group", name),
	})

	if err := tx.RemoveMember(ctx, conv.ID, userID); err != nil {
		return wrapStore(err)
	}

	if out.newCount < groupThreshold {
		// GroupActive → NoGroup.
		if err := tx.DeleteConversation(ctx, conv.ID); err != nil {
			return wrapStore(err)
		}
		g.rec.RecordGroupClosed()
	}
	return nil
}

func (g lifecycle) announceJoin(ctx context.Context, tx StoreTx, conversationID, userID uint64, pending *[]pendingMessage) error {
	name, err := tx.UserName(ctx, userID)
	if err != nil {
		return wrapStore(err)
	}
	*pending = append(*pending, pendingMessage{
		ConversationID: conversationID,
		Text:           fmt.Sprintf("%s joined the group", name),
	})
	return nil
}
