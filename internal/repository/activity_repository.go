package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ActivityRepo provides CRUD access to activities for the owner and
// browse surfaces.  Booking mutations never go through this repo;
// they run through Store.WithinTx so counts stay authoritative.
type ActivityRepo struct {
	db *sql.DB
}

// NewActivityRepo returns an ActivityRepo bound to the given database.
func NewActivityRepo(db *sql.DB) *ActivityRepo { return &ActivityRepo{db: db} }

// ErrActivityNotFound is returned when an activity does not exist.
var ErrActivityNotFound = errors.New("activity not found")

// ActivityRecord mirrors the activities table for insertion.
type ActivityRecord struct {
	ID              uint64
	OwnerID         uint64
	Name            string
	Description     string
	ImageURL        string
	Location        string
	PriceCents      uint32
	MaxParticipants uint32
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Create inserts a new activity and populates the generated ID.
func (r *ActivityRepo) Create(ctx context.Context, rec *ActivityRecord) error {
	const q = `INSERT INTO activities
	           (owner_id, name, description, image_url, location, price_cents, max_participants)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		rec.OwnerID, rec.Name, rec.Description, rec.ImageURL, rec.Location,
		rec.PriceCents, rec.MaxParticipants)
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

// ActivityDetail is the browse view of an activity.  LiveCount is a
// recount of participations, not the cached column, so remaining
// places shown to users are never stale by more than this query.
type ActivityDetail struct {
	ID              uint64 `json:"id"`
	OwnerID         uint64 `json:"owner_id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	ImageURL        string `json:"image_url"`
	Location        string `json:"location"`
	PriceCents      uint32 `json:"price_cents"`
	MaxParticipants uint32 `json:"max_participants"`
	LiveCount       uint32 `json:"participant_count"`
	RemainingPlaces uint32 `json:"remaining_places"`
}

const activityDetailQuery = `
	SELECT a.id, a.owner_id, a.name, a.description, a.image_url, a.location,
	       a.price_cents, a.max_participants,
	       (SELECT COUNT(*) FROM slot_participants p WHERE p.activity_id = a.id) AS live_count
	FROM activities a`

func scanActivityDetail(scan func(dest ...any) error) (ActivityDetail, error) {
	var d ActivityDetail
	err := scan(&d.ID, &d.OwnerID, &d.Name, &d.Description, &d.ImageURL, &d.Location,
		&d.PriceCents, &d.MaxParticipants, &d.LiveCount)
	if err != nil {
		return d, err
	}
	if d.MaxParticipants > d.LiveCount {
		d.RemainingPlaces = d.MaxParticipants - d.LiveCount
	}
	return d, nil
}

// GetByID loads one activity with its live participant count.
func (r *ActivityRepo) GetByID(ctx context.Context, id uint64) (*ActivityDetail, error) {
	row := r.db.QueryRowContext(ctx, activityDetailQuery+` WHERE a.id = ?`, id)
	d, err := scanActivityDetail(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrActivityNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// List returns all activities ordered by creation time descending.
func (r *ActivityRepo) List(ctx context.Context) ([]ActivityDetail, error) {
	return r.list(ctx, activityDetailQuery+` ORDER BY a.created_at DESC`)
}

// ListByOwner returns the owner's activities, newest first.
func (r *ActivityRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]ActivityDetail, error) {
	return r.list(ctx, activityDetailQuery+` WHERE a.owner_id = ? ORDER BY a.created_at DESC`, ownerID)
}

func (r *ActivityRepo) list(ctx context.Context, q string, args ...any) ([]ActivityDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]ActivityDetail, 0)
	for rows.Next() {
		d, err := scanActivityDetail(rows.Scan)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// OwnerID returns the owner of an activity.  ErrActivityNotFound
// when the activity is missing.
func (r *ActivityRepo) OwnerID(ctx context.Context, activityID uint64) (uint64, error) {
	var ownerID uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT owner_id FROM activities WHERE id = ?`, activityID).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrActivityNotFound
	}
	return ownerID, err
}

// EnsureOwner verifies that callerID owns the activity before a
// mutation such as slot creation.  ErrActivityNotFound when the
// activity is missing, ErrForbidden when it belongs to someone else.
func (r *ActivityRepo) EnsureOwner(ctx context.Context, activityID, callerID uint64) error {
	ownerID, err := r.OwnerID(ctx, activityID)
	if err != nil {
		return err
	}
	if ownerID != callerID {
		return ErrForbidden
	}
	return nil
}
