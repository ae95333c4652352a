package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/realmeet/slot-booking/internal/engine"
	"github.com/realmeet/slot-booking/internal/model"
)

// Store is the MySQL implementation of the engine's durable-store
// boundary.  Every engine mutation runs through WithinTx; the
// uniqueness constraints on slot_participants(user_id, slot_id) and
// conversations(slot_id) are the concurrency guards, surfaced to the
// engine as idempotent booleans rather than errors.  All timestamps
// are stored and compared in UTC.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store bound to the given database.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// DB exposes the underlying handle for collaborators that manage
// their own statements (auth repositories, the queue consumer).
func (s *Store) DB() *sql.DB { return s.db }

// WithinTx runs fn inside one transaction.  The transaction is
// rolled back when fn errors and committed otherwise.
func (s *Store) WithinTx(ctx context.Context, fn func(tx engine.StoreTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&storeTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// isDuplicate reports whether err is a MySQL duplicate-key
// violation (error 1062).
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// storeTx implements engine.StoreTx over one *sql.Tx.
type storeTx struct {
	tx *sql.Tx
}

func (t *storeTx) SlotWithActivity(ctx context.Context, slotID uint64) (*model.Slot, *model.Activity, error) {
	// FOR UPDATE on the activity row serializes capacity checks for
	// the whole activity within this unit of work.
	const q = `SELECT s.id, s.activity_id, s.starts_at, s.duration_min, s.created_at,
	                  a.id, a.owner_id, a.name, a.description, a.image_url, a.location,
	                  a.price_cents, a.max_participants, a.participants, a.created_at, a.updated_at
	           FROM activity_slots s
	           JOIN activities a ON a.id = s.activity_id
	           WHERE s.id = ?
	           FOR UPDATE`
	var (
		slot model.Slot
		act  model.Activity
	)
	err := t.tx.QueryRowContext(ctx, q, slotID).Scan(
		&slot.ID, &slot.ActivityID, &slot.StartsAt, &slot.DurationMin, &slot.CreatedAt,
		&act.ID, &act.OwnerID, &act.Name, &act.Description, &act.ImageURL, &act.Location,
		&act.PriceCents, &act.MaxParticipants, &act.Participants, &act.CreatedAt, &act.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, engine.ErrSlotNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return &slot, &act, nil
}

func (t *storeTx) CountBySlot(ctx context.Context, slotID uint64) (uint32, error) {
	var n uint32
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM slot_participants WHERE slot_id = ?`, slotID).Scan(&n)
	return n, err
}

func (t *storeTx) CountByActivity(ctx context.Context, activityID uint64) (uint32, error) {
	var n uint32
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM slot_participants WHERE activity_id = ?`, activityID).Scan(&n)
	return n, err
}

func (t *storeTx) ParticipationSlotForActivity(ctx context.Context, userID, activityID uint64) (uint64, bool, error) {
	var slotID uint64
	err := t.tx.QueryRowContext(ctx,
		`SELECT slot_id FROM slot_participants WHERE user_id = ? AND activity_id = ? LIMIT 1`,
		userID, activityID).Scan(&slotID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return slotID, true, nil
}

func (t *storeTx) InsertParticipation(ctx context.Context, userID, slotID, activityID uint64) (bool, error) {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO slot_participants (user_id, slot_id, activity_id) VALUES (?, ?, ?)`,
		userID, slotID, activityID)
	if isDuplicate(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *storeTx) DeleteParticipation(ctx context.Context, userID, slotID uint64) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM slot_participants WHERE user_id = ? AND slot_id = ?`, userID, slotID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *storeTx) ParticipantsBySlot(ctx context.Context, slotID uint64) ([]model.Participation, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id, user_id, slot_id, activity_id, created_at
		 FROM slot_participants WHERE slot_id = ? ORDER BY created_at, id`, slotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var parts []model.Participation
	for rows.Next() {
		var p model.Participation
		if err := rows.Scan(&p.ID, &p.UserID, &p.SlotID, &p.ActivityID, &p.CreatedAt); err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

func (t *storeTx) RefreshParticipantCounter(ctx context.Context, activityID uint64, count uint32) error {
	// Overwrite, never increment: the projection is rebuilt from the
	// recount computed in this same transaction.
	_, err := t.tx.ExecContext(ctx,
		`UPDATE activities SET participants = ? WHERE id = ?`, count, activityID)
	return err
}

func (t *storeTx) ConversationBySlot(ctx context.Context, slotID uint64) (*model.Conversation, error) {
	var c model.Conversation
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, slot_id, name, created_at FROM conversations WHERE slot_id = ? FOR UPDATE`,
		slotID).Scan(&c.ID, &c.SlotID, &c.Name, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (t *storeTx) InsertConversation(ctx context.Context, slotID uint64, name string) (*model.Conversation, bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO conversations (slot_id, name) VALUES (?, ?)`, slotID, name)
	if isDuplicate(err) {
		// Lost the creation race; hand back the winner's row.
		conv, lookupErr := t.ConversationBySlot(ctx, slotID)
		if lookupErr != nil {
			return nil, false, lookupErr
		}
		if conv == nil {
			return nil, false, err // row vanished again; bubble the original error
		}
		return conv, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, err
	}
	return &model.Conversation{ID: uint64(id), SlotID: slotID, Name: name}, true, nil
}

func (t *storeTx) AddMember(ctx context.Context, conversationID, userID uint64) (bool, error) {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO conversation_participants (conversation_id, user_id) VALUES (?, ?)`,
		conversationID, userID)
	if isDuplicate(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *storeTx) RemoveMember(ctx context.Context, conversationID, userID uint64) error {
	_, err := t.tx.ExecContext(ctx,
		`DELETE FROM conversation_participants WHERE conversation_id = ? AND user_id = ?`,
		conversationID, userID)
	return err
}

func (t *storeTx) DeleteConversation(ctx context.Context, conversationID uint64) error {
	// Memberships and messages cascade via foreign keys; deleting an
	// already-deleted conversation affects zero rows and is success.
	_, err := t.tx.ExecContext(ctx,
		`DELETE FROM conversations WHERE id = ?`, conversationID)
	return err
}

func (t *storeTx) InsertInvitation(ctx context.Context, inv *model.Invitation) error {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO plus_one_invitations
		 (token, issuer_id, activity_id, slot_id, payment_mode, status, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inv.Token, inv.IssuerID, inv.ActivityID, inv.SlotID, inv.PaymentMode, inv.Status,
		inv.ExpiresAt.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	inv.ID = uint64(id)
	return nil
}

const inviteColumns = `id, token, issuer_id, activity_id, slot_id, payment_mode, status,
	redeemer_id, created_at, expires_at, redeemed_at`

func scanInvitation(row *sql.Row) (*model.Invitation, error) {
	var (
		inv        model.Invitation
		redeemerID sql.NullInt64
		redeemedAt sql.NullTime
	)
	err := row.Scan(&inv.ID, &inv.Token, &inv.IssuerID, &inv.ActivityID, &inv.SlotID,
		&inv.PaymentMode, &inv.Status, &redeemerID, &inv.IssuedAt, &inv.ExpiresAt, &redeemedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if redeemerID.Valid {
		id := uint64(redeemerID.Int64)
		inv.RedeemerID = &id
	}
	if redeemedAt.Valid {
		at := redeemedAt.Time
		inv.RedeemedAt = &at
	}
	return &inv, nil
}

func (t *storeTx) InvitationByToken(ctx context.Context, token string) (*model.Invitation, error) {
	return scanInvitation(t.tx.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM plus_one_invitations WHERE token = ? FOR UPDATE`, token))
}

func (t *storeTx) MarkInvitationRedeemed(ctx context.Context, invitationID, redeemerID uint64) (bool, error) {
	// Conditional update: only a pending, unexpired row flips, so the
	// first writer wins even without the row lock.
	res, err := t.tx.ExecContext(ctx,
		`UPDATE plus_one_invitations
		 SET status = ?, redeemer_id = ?, redeemed_at = UTC_TIMESTAMP()
		 WHERE id = ? AND status = ? AND expires_at > UTC_TIMESTAMP()`,
		model.InviteStatusRedeemed, redeemerID, invitationID, model.InviteStatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *storeTx) HasPendingInvite(ctx context.Context, issuerID, slotID uint64) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(ctx,
		`SELECT 1 FROM plus_one_invitations
		 WHERE issuer_id = ? AND slot_id = ? AND status = ? AND expires_at > UTC_TIMESTAMP()
		 LIMIT 1`,
		issuerID, slotID, model.InviteStatusPending).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *storeTx) CancelInvitation(ctx context.Context, invitationID, issuerID uint64) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE plus_one_invitations SET status = ?
		 WHERE id = ? AND issuer_id = ? AND status = ?`,
		model.InviteStatusCancelled, invitationID, issuerID, model.InviteStatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *storeTx) UserName(ctx context.Context, userID uint64) (string, error) {
	var name string
	err := t.tx.QueryRowContext(ctx,
		`SELECT full_name FROM users WHERE id = ?`, userID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "A participant", nil
	}
	return name, err
}

// ---- read-only store methods (outside any unit of work) ----

func (s *Store) InvitationByToken(ctx context.Context, token string) (*model.Invitation, error) {
	return scanInvitation(s.db.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM plus_one_invitations WHERE token = ?`, token))
}

// InvitePreview assembles the denormalized view shown to an invitee
// before they accept: activity, slot time, inviter identity and
// payment mode, in one query.
func (s *Store) InvitePreview(ctx context.Context, token string) (*model.InvitePreview, error) {
	const q = `SELECT a.id, a.name, a.image_url, a.location, a.price_cents,
	                  s.id, s.starts_at,
	                  u.full_name, i.payment_mode, i.expires_at
	           FROM plus_one_invitations i
	           JOIN activity_slots s ON s.id = i.slot_id
	           JOIN activities a ON a.id = i.activity_id
	           JOIN users u ON u.id = i.issuer_id
	           WHERE i.token = ?`
	var p model.InvitePreview
	err := s.db.QueryRowContext(ctx, q, token).Scan(
		&p.ActivityID, &p.ActivityName, &p.ActivityImg, &p.Location, &p.PriceCents,
		&p.SlotID, &p.SlotStartsAt, &p.InviterName, &p.PaymentMode, &p.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.ErrInviteNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) PendingInvitesBySlot(ctx context.Context, slotID, issuerID uint64) ([]model.Invitation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+inviteColumns+` FROM plus_one_invitations
		 WHERE slot_id = ? AND issuer_id = ? AND status = ? AND expires_at > UTC_TIMESTAMP()
		 ORDER BY created_at DESC`,
		slotID, issuerID, model.InviteStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	invs := make([]model.Invitation, 0)
	for rows.Next() {
		var (
			inv        model.Invitation
			redeemerID sql.NullInt64
			redeemedAt sql.NullTime
		)
		if err := rows.Scan(&inv.ID, &inv.Token, &inv.IssuerID, &inv.ActivityID, &inv.SlotID,
			&inv.PaymentMode, &inv.Status, &redeemerID, &inv.IssuedAt, &inv.ExpiresAt, &redeemedAt); err != nil {
			return nil, err
		}
		if redeemerID.Valid {
			id := uint64(redeemerID.Int64)
			inv.RedeemerID = &id
		}
		if redeemedAt.Valid {
			at := redeemedAt.Time
			inv.RedeemedAt = &at
		}
		invs = append(invs, inv)
	}
	return invs, rows.Err()
}

// ---- helpers reused by handlers outside the engine ----

// SlotWithActivity is a read-only variant used by browse handlers;
// unlike the transactional version it takes no locks.
func (s *Store) SlotWithActivity(ctx context.Context, slotID uint64) (*model.Slot, *model.Activity, error) {
	const q = `SELECT s.id, s.activity_id, s.starts_at, s.duration_min, s.created_at,
	                  a.id, a.owner_id, a.name, a.description, a.image_url, a.location,
	                  a.price_cents, a.max_participants, a.participants, a.created_at, a.updated_at
	           FROM activity_slots s
	           JOIN activities a ON a.id = s.activity_id
	           WHERE s.id = ?`
	var (
		slot model.Slot
		act  model.Activity
	)
	err := s.db.QueryRowContext(ctx, q, slotID).Scan(
		&slot.ID, &slot.ActivityID, &slot.StartsAt, &slot.DurationMin, &slot.CreatedAt,
		&act.ID, &act.OwnerID, &act.Name, &act.Description, &act.ImageURL, &act.Location,
		&act.PriceCents, &act.MaxParticipants, &act.Participants, &act.CreatedAt, &act.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, engine.ErrSlotNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return &slot, &act, nil
}
