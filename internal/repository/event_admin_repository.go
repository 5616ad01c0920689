package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/openpass/event-checkin/internal/model"
)

// AdminBinding is the row shape returned when listing an event's
// admins, joined with the users table for display.
type AdminBinding struct {
	UserID    uint64 `json:"user_id"`
	UserEmail string `json:"user_email"`
	UserName  string `json:"user_name"`
	Role      string `json:"role"`
}

// EventAdminRepo manages per-event role bindings and answers the
// management authorization question for every guarded operation.
type EventAdminRepo struct {
	db *sql.DB
}

// NewEventAdminRepo constructs an EventAdminRepo with the given DB handle.
func NewEventAdminRepo(db *sql.DB) *EventAdminRepo {
	return &EventAdminRepo{db: db}
}

// CanManage reports whether the user may manage the event's tickets
// and admins: superadmins always can, otherwise an OWNER binding for
// this event is required. This is the single capability predicate
// consumed by every management handler.
func (r *EventAdminRepo) CanManage(ctx context.Context, eventID, userID uint64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM users WHERE id = ? AND is_superadmin = 1)
	               OR EXISTS(SELECT 1 FROM event_admins WHERE event_id = ? AND user_id = ? AND role = ?)`
	var ok bool
	if err := r.db.QueryRowContext(ctx, q, userID, eventID, userID, model.RoleOwner).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// Add inserts a role binding. The unique (event_id, user_id) index
// rejects a second binding for the same pair; that violation surfaces
// as ErrConflict.
func (r *EventAdminRepo) Add(ctx context.Context, eventID, userID uint64, role string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_admins (event_id, user_id, role) VALUES (?, ?, ?)`,
		eventID, userID, role)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	return nil
}

// ListByEvent returns the event's admin bindings joined with user
// email and name, ordered by user id for deterministic output.
func (r *EventAdminRepo) ListByEvent(ctx context.Context, eventID uint64) ([]AdminBinding, error) {
	const q = `SELECT ea.user_id, u.email, u.name, ea.role
	           FROM event_admins ea
	           JOIN users u ON u.id = ea.user_id
	           WHERE ea.event_id = ?
	           ORDER BY ea.user_id`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]AdminBinding, 0)
	for rows.Next() {
		var b AdminBinding
		if err := rows.Scan(&b.UserID, &b.UserEmail, &b.UserName, &b.Role); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Remove deletes the binding for (event, user). Returns sql.ErrNoRows
// when no such binding exists so handlers can answer 404.
func (r *EventAdminRepo) Remove(ctx context.Context, eventID, userID uint64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM event_admins WHERE event_id = ? AND user_id = ?`,
		eventID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
