package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SlotRepo provides owner-side creation and browse access to
// activity slots.  Participant-facing mutations live in Store.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo returns a SlotRepo bound to the given database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

// ErrSlotNotFound is returned when a slot does not exist.
var ErrSlotNotFound = errors.New("slot not found")

// SlotRecord mirrors the activity_slots table for insertion.
type SlotRecord struct {
	ID          uint64
	ActivityID  uint64
	StartsAt    time.Time
	DurationMin uint32
}

// Create inserts a slot for an activity and populates the generated
// ID.  Ownership of the activity must be checked by the caller.
func (r *SlotRepo) Create(ctx context.Context, rec *SlotRecord) error {
	const q = `INSERT INTO activity_slots (activity_id, starts_at, duration_min) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		rec.ActivityID, rec.StartsAt.UTC().Format("2006-01-02 15:04:05"), rec.DurationMin)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	return nil
}

// SlotDetail is the browse view of a slot with its live participant
// count and derived group state.
type SlotDetail struct {
	ID               uint64    `json:"id"`
	ActivityID       uint64    `json:"activity_id"`
	StartsAt         time.Time `json:"starts_at"`
	DurationMin      uint32    `json:"duration_min"`
	ParticipantCount uint32    `json:"participant_count"`
	HasGroup         bool      `json:"has_group"`
}

// ListByActivity returns the activity's slots ordered by start time,
// each with a recounted participant total and whether a group
// conversation currently exists.
func (r *SlotRepo) ListByActivity(ctx context.Context, activityID uint64) ([]SlotDetail, error) {
	const q = `SELECT s.id, s.activity_id, s.starts_at, s.duration_min,
	                  (SELECT COUNT(*) FROM slot_participants p WHERE p.slot_id = s.id),
	                  EXISTS(SELECT 1 FROM conversations c WHERE c.slot_id = s.id)
	           FROM activity_slots s
	           WHERE s.activity_id = ?
	           ORDER BY s.starts_at`
	rows, err := r.db.QueryContext(ctx, q, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	slots := make([]SlotDetail, 0)
	for rows.Next() {
		var d SlotDetail
		if err := rows.Scan(&d.ID, &d.ActivityID, &d.StartsAt, &d.DurationMin,
			&d.ParticipantCount, &d.HasGroup); err != nil {
			return nil, err
		}
		slots = append(slots, d)
	}
	return slots, rows.Err()
}

// SlotParticipant is a participant entry shown on the slot screen.
type SlotParticipant struct {
	UserID   uint64    `json:"user_id"`
	FullName string    `json:"full_name"`
	JoinedAt time.Time `json:"joined_at"`
}

// Participants lists the users holding a seat in the slot, in join
// order.  ErrSlotNotFound when the slot does not exist.
func (r *SlotRepo) Participants(ctx context.Context, slotID uint64) ([]SlotParticipant, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM activity_slots WHERE id = ?`, slotID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}

	const q = `SELECT p.user_id, u.full_name, p.created_at
	           FROM slot_participants p
	           JOIN users u ON u.id = p.user_id
	           WHERE p.slot_id = ?
	           ORDER BY p.created_at, p.id`
	rows, err := r.db.QueryContext(ctx, q, slotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]SlotParticipant, 0)
	for rows.Next() {
		var p SlotParticipant
		if err := rows.Scan(&p.UserID, &p.FullName, &p.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
