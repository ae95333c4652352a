package engine

import (
	"context"

	"github.com/realmeet/slot-booking/internal/model"
)

// Store is the durable-store boundary the engine operates against.
// The SQL implementation lives in internal/repository; tests use an
// in-memory fake.  All mutations happen inside WithinTx so that a
// capacity check and the insert it guards commit as one atomic unit.
type Store interface {
	// WithinTx runs fn as a single atomic unit of work.  When fn
	// returns an error the unit is rolled back and the error is
	// returned unchanged.
	WithinTx(ctx context.Context, fn func(tx StoreTx) error) error

	// InvitationByToken loads an invitation without mutating state.
	// Returns nil when no such token exists.
	InvitationByToken(ctx context.Context, token string) (*model.Invitation, error)

	// InvitePreview builds the denormalized display preview for a
	// live token.  Read-only; safe to call repeatedly.
	InvitePreview(ctx context.Context, token string) (*model.InvitePreview, error)

	// PendingInvitesBySlot lists the issuer's live pending
	// invitations for a slot.
	PendingInvitesBySlot(ctx context.Context, slotID, issuerID uint64) ([]model.Invitation, error)
}

// StoreTx is the set of operations available inside one atomic unit.
// Implementations must guarantee that the uniqueness constraints on
// Participation(user_id, slot_id) and Conversation(slot_id) hold, and
// report constraint hits through the boolean return values rather
// than errors; the engine treats them as idempotent outcomes.
type StoreTx interface {
	// SlotWithActivity loads a slot together with its owning
	// activity, locking the activity row for the duration of the
	// unit so concurrent capacity checks serialize per activity.
	// Returns ErrSlotNotFound / ErrActivityNotFound when absent.
	SlotWithActivity(ctx context.Context, slotID uint64) (*model.Slot, *model.Activity, error)

	CountBySlot(ctx context.Context, slotID uint64) (uint32, error)
	CountByActivity(ctx context.Context, activityID uint64) (uint32, error)

	// ParticipationSlotForActivity returns the slot the user is
	// registered on within the activity, if any.
	ParticipationSlotForActivity(ctx context.Context, userID, activityID uint64) (uint64, bool, error)

	// InsertParticipation reports inserted=false when the
	// (user, slot) row already exists.
	InsertParticipation(ctx context.Context, userID, slotID, activityID uint64) (bool, error)

	// DeleteParticipation reports deleted=false when no row existed.
	DeleteParticipation(ctx context.Context, userID, slotID uint64) (bool, error)

	// ParticipantsBySlot lists the participation rows for a slot in
	// join order, so membership reseeding preserves seating order.
	ParticipantsBySlot(ctx context.Context, slotID uint64) ([]model.Participation, error)

	// RefreshParticipantCounter overwrites the activity's cached
	// participant projection with an authoritative recount.
	RefreshParticipantCounter(ctx context.Context, activityID uint64, count uint32) error

	// ConversationBySlot returns nil when the slot has no group.
	ConversationBySlot(ctx context.Context, slotID uint64) (*model.Conversation, error)

	// InsertConversation creates the group for a slot.  When a
	// concurrent creator won the race, the existing conversation is
	// returned with created=false.
	InsertConversation(ctx context.Context, slotID uint64, name string) (conv *model.Conversation, created bool, err error)

	// AddMember reports added=false when the membership row already
	// existed.
	AddMember(ctx context.Context, conversationID, userID uint64) (bool, error)

	RemoveMember(ctx context.Context, conversationID, userID uint64) error

	// DeleteConversation removes the group and all its memberships.
	// Absence is success.
	DeleteConversation(ctx context.Context, conversationID uint64) error

	InsertInvitation(ctx context.Context, inv *model.Invitation) error

	// InvitationByToken inside a unit of work locks the row where
	// the backend supports it.  Returns nil when absent.
	InvitationByToken(ctx context.Context, token string) (*model.Invitation, error)

	// MarkInvitationRedeemed flips status pending→redeemed.  Reports
	// false when another redeemer already won.
	MarkInvitationRedeemed(ctx context.Context, invitationID, redeemerID uint64) (bool, error)

	// HasPendingInvite reports whether the issuer already holds a
	// live pending invitation for the slot.
	HasPendingInvite(ctx context.Context, issuerID, slotID uint64) (bool, error)

	// CancelInvitation flips status pending→cancelled for an
	// invitation owned by issuerID.  Reports false when no such
	// pending invitation exists.
	CancelInvitation(ctx context.Context, invitationID, issuerID uint64) (bool, error)

	// UserName resolves a display name for system messages.
	UserName(ctx context.Context, userID uint64) (string, error)
}

// MessageEmitter delivers a system message to a group conversation.
// Fire-and-forget from the engine's point of view, but the
// implementation must attempt delivery at least once.
type MessageEmitter interface {
	Emit(ctx context.Context, conversationID uint64, text string) error
}

// Recorder receives operational counters.  The Prometheus
// implementation lives in internal/metrics.
type Recorder interface {
	RecordJoin(status string)
	RecordLeave(status string)
	RecordInviteIssued()
	RecordInviteRedeemed(outcome string)
	RecordGroupCreated()
	RecordGroupClosed()
}

// NopRecorder discards all counters.  Used when metrics are disabled
// and in tests.
type NopRecorder struct{}

func (NopRecorder) RecordJoin(string)           {}
func (NopRecorder) RecordLeave(string)          {}
func (NopRecorder) RecordInviteIssued()         {}
func (NopRecorder) RecordInviteRedeemed(string) {}
func (NopRecorder) RecordGroupCreated()         {}
func (NopRecorder) RecordGroupClosed()          {}
