// Package queue defines message payloads exchanged over the message broker.
package queue

// SystemMessageEvent is published when the booking engine wants a
// system line written into a group conversation ("X joined the
// group", "X left the group").  The consumer persists it into the
// messages table so chat history survives even when the publisher's
// request has long completed.
type SystemMessageEvent struct {
	ConversationID uint64 `json:"conversation_id"`
	Text           string `json:"text"`
	EmittedAt      string `json:"emitted_at"`
}
