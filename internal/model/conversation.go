package model

import "time"

// Conversation is the ephemeral group chat derived from a slot's
// participations.  At most one exists per slot (unique on slot_id)
// and it exists iff the slot has at least two live participations.
// Clients never create or delete conversations directly; only the
// lifecycle controller does, reacting to ledger state.
//
// Fields:
//  ID        – primary key identifier.
//  SlotID    – slot the conversation belongs to.
//  Name      – group name, "<activity> - <date time>".
//  CreatedAt – creation timestamp.
type Conversation struct {
	ID        uint64    // conversations.id
	SlotID    uint64    // conversations.slot_id
	Name      string    // conversations.name
	CreatedAt time.Time // conversations.created_at
}

// ConversationMember mirrors one row of the conversation membership
// set.  Membership always equals the set of users with a live
// participation in the conversation's slot.
//
// Fields:
//  ID             – primary key identifier.
//  ConversationID – owning conversation.
//  UserID         – member.
//  JoinedAt       – when the membership row was created.
type ConversationMember struct {
	ID             uint64    // conversation_participants.id
	ConversationID uint64    // conversation_participants.conversation_id
	UserID         uint64    // conversation_participants.user_id
	JoinedAt       time.Time // conversation_participants.created_at
}

// Message types stored in the messages table.  The engine only ever
// writes system messages; user messages are out of scope here.
const (
	MessageTypeUser   = "user"
	MessageTypeSystem = "system"
)

// Message is a single chat message.  System messages record
// membership changes ("<user> joined the group") and are written by
// the queue consumer, at least once.
//
// Fields:
//  ID             – primary key identifier.
//  ConversationID – conversation the message belongs to.
//  SenderID       – author; zero for system messages.
//  Content        – message text.
//  MessageType    – "user" or "system".
//  CreatedAt      – creation timestamp.
type Message struct {
	ID             uint64    // messages.id
	ConversationID uint64    // messages.conversation_id
	SenderID       uint64    // messages.sender_id (0 for system)
	Content        string    // messages.content
	MessageType    string    // messages.message_type
	CreatedAt      time.Time // messages.created_at
}
