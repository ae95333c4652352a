// Package service provides the message-delivery side of the booking
// engine: system messages produced after a booking commit are
// published to RabbitMQ, with a direct database write as fallback so
// a broker outage never silently loses chat history.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/realmeet/slot-booking/internal/queue"
)

// Emitter publishes SystemMessageEvent payloads to the
// group.system-message queue. Messages are marked persistent so they
// survive broker restarts. When the broker is unreachable the event
// is written straight into the messages table instead.
type Emitter struct {
	db *sql.DB
}

// NewEmitter returns an Emitter with the given database as fallback
// sink. db may be nil, in which case broker failures are only logged.
func NewEmitter(db *sql.DB) *Emitter { return &Emitter{db: db} }

// Emit delivers one system message. The function attempts to be
// robust and never panics; any error is logged and returned so the
// caller can choose to ignore it.
func (e *Emitter) Emit(ctx context.Context, conversationID uint64, text string) error {
	ev := q.SystemMessageEvent{
		ConversationID: conversationID,
		Text:           text,
		EmittedAt:      time.Now().UTC().Format(time.RFC3339),
	}
	if err := publish(ctx, ev); err != nil {
		return e.fallback(ctx, ev, err)
	}
	return nil
}

func publish(ctx context.Context, event q.SystemMessageEvent) error {
	conn, err := amqp.Dial(q.BrokerURL())
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		"group.system-message", // name
		true,                   // durable
		false,                  // autoDelete
		false,                  // exclusive
		false,                  // noWait
		nil,                    // args
	); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",                     // default exchange
		"group.system-message", // routing key = queue name
		false,                  // mandatory
		false,                  // immediate
		pub,
	); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}

	return nil
}

func (e *Emitter) fallback(ctx context.Context, ev q.SystemMessageEvent, cause error) error {
	if e.db == nil {
		return cause
	}
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, sender_id, message_type, content) VALUES (?, NULL, 'system', ?)`,
		ev.ConversationID, ev.Text)
	if err != nil {
		log.Printf("emitter: direct write fallback failed: %v (broker error: %v)", err, cause)
		return err
	}
	log.Printf("emitter: broker unavailable, wrote system message directly (conversation=%d)", ev.ConversationID)
	return nil
}
