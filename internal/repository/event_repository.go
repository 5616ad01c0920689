// Package repository contains data access logic separated from HTTP
// handlers. This file covers events: creation (including the creator's
// initial OWNER binding), lookup, listing and the transactional
// cascade delete that takes an event's tickets and admin bindings
// with it.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/openpass/event-checkin/internal/model"
)

// EventRepo encapsulates all database queries related to events.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo with the provided DB handle.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

// DB exposes the underlying handle so handlers can open transactions
// spanning multiple repositories.
func (r *EventRepo) DB() *sql.DB { return r.db }

// Create inserts a new event and, within the same transaction, an
// OWNER binding for the creator so the event is manageable from the
// moment it exists. On success the event's ID and timestamp fields
// are populated.
func (r *EventRepo) Create(ctx context.Context, e *model.Event, creatorID uint64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO events (name, description, date, location, created_by) VALUES (?, ?, ?, ?, ?)`,
		e.Name, e.Description, e.Date.UTC(), e.Location, creatorID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	e.CreatedBy = &creatorID

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO event_admins (event_id, user_id, role) VALUES (?, ?, ?)`,
		e.ID, creatorID, model.RoleOwner); err != nil {
		return err
	}

	// Query back defaults so the caller gets a fully populated record.
	err = tx.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM events WHERE id = ?`, e.ID).
		Scan(&e.CreatedAt, &e.UpdatedAt)
	return err
}

// GetByID fetches an event by its ID. Returns ErrEventNotFound when
// no row matches.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	const q = `SELECT id, name, description, date, location, created_by, created_at, updated_at
	           FROM events WHERE id = ?`
	var (
		e         model.Event
		createdBy sql.NullInt64
	)
	if err := r.db.QueryRowContext(ctx, q, id).Scan(
		&e.ID, &e.Name, &e.Description, &e.Date, &e.Location, &createdBy, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if createdBy.Valid {
		cb := uint64(createdBy.Int64)
		e.CreatedBy = &cb
	}
	return &e, nil
}

// List returns all events ordered by date ascending.
func (r *EventRepo) List(ctx context.Context) ([]*model.Event, error) {
	const q = `SELECT id, name, description, date, location, created_by, created_at, updated_at
	           FROM events ORDER BY date, id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.Event, 0)
	for rows.Next() {
		e := new(model.Event)
		var createdBy sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.Date, &e.Location, &createdBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		if createdBy.Valid {
			cb := uint64(createdBy.Int64)
			e.CreatedBy = &cb
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByID removes an event and all dependent records (tickets and
// admin bindings) in one transaction, so a concurrent scanner can
// never observe a ticket whose event is half-deleted. Returns
// ErrEventNotFound when the event does not exist. Authorization is
// the caller's responsibility.
func (r *EventRepo) DeleteByID(ctx context.Context, id uint64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var exists uint64
	if err = tx.QueryRowContext(ctx, `SELECT id FROM events WHERE id = ?`, id).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrEventNotFound
		}
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM tickets WHERE event_id = ?`, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM event_admins WHERE event_id = ?`, id); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	return err
}
