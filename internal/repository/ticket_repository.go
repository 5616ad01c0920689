// This file is the ticket ledger: it mints tickets with globally
// unique scan tokens, lists them per event, resolves tokens for the
// scan gateway and owns the single conditional UPDATE that moves a
// ticket from UNUSED to SCANNED.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openpass/event-checkin/internal/model"
	"github.com/openpass/event-checkin/internal/utils"
)

// maxTokenAttempts bounds regeneration when a freshly minted token
// collides with the unique index. With 128 bits of entropy a single
// collision is already astronomically unlikely; hitting the bound
// means the RNG or the schema is broken, not bad luck.
const maxTokenAttempts = 5

// Attendee is the per-ticket input for issuance.
type Attendee struct {
	UserEmail string `json:"user_email"`
	UserName  string `json:"user_name"`
}

// TicketRepo provides CRUD operations for tickets. All timestamps are
// stored in UTC. Mutation of a ticket's status goes exclusively
// through MarkScannedByToken.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a new TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// Issue creates a single ticket for the event. Returns
// ErrEventNotFound when the event does not exist; the existence check
// and the insert share a transaction so a concurrent event deletion
// cannot leave an orphan.
func (r *TicketRepo) Issue(ctx context.Context, eventID uint64, att Attendee) (*model.Ticket, error) {
	tickets, err := r.IssueBulk(ctx, eventID, []Attendee{att})
	if err != nil {
		return nil, err
	}
	return &tickets[0], nil
}

// IssueBulk creates one ticket per attendee inside a single
// transaction: either every ticket is created or none are, and a
// half-inserted batch is never visible to concurrent scanners.
// Returns ErrEventNotFound when the event does not exist.
func (r *TicketRepo) IssueBulk(ctx context.Context, eventID uint64, attendees []Attendee) ([]model.Ticket, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var exists uint64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM events WHERE id = ?`, eventID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	out := make([]model.Ticket, 0, len(attendees))
	for _, att := range attendees {
		t, err := insertTicketTx(ctx, tx, eventID, att)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return out, nil
}

// insertTicketTx inserts one ticket, regenerating the scan token when
// the unique index reports a duplicate. Any other error is final.
func insertTicketTx(ctx context.Context, tx *sql.Tx, eventID uint64, att Attendee) (*model.Ticket, error) {
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := utils.NewScanToken()
		if err != nil {
			return nil, err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO tickets (event_id, user_email, user_name, qr_code_token, status) VALUES (?, ?, ?, ?, ?)`,
			eventID, att.UserEmail, att.UserName, token, model.StatusUnused)
		if err != nil {
			if isDuplicateKey(err) {
				continue // token collision, mint another
			}
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		t := model.Ticket{
			ID:        uint64(id),
			EventID:   eventID,
			UserEmail: att.UserEmail,
			UserName:  att.UserName,
			Token:     token,
			Status:    model.StatusUnused,
		}
		if err := tx.QueryRowContext(ctx,
			`SELECT created_at FROM tickets WHERE id = ?`, t.ID).Scan(&t.CreatedAt); err != nil {
			return nil, err
		}
		return &t, nil
	}
	return nil, fmt.Errorf("ticket token generation: %d consecutive collisions", maxTokenAttempts)
}

// isDuplicateKey reports whether err is a MySQL 1062 duplicate-entry
// violation.
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}

// ListByEvent returns the event's tickets ordered by id. Returns
// ErrEventNotFound when the event is absent and an empty slice when
// it exists without tickets.
func (r *TicketRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Ticket, error) {
	var exists uint64
	if err := r.db.QueryRowContext(ctx, `SELECT id FROM events WHERE id = ?`, eventID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	const q = `SELECT id, event_id, user_email, user_name, qr_code_token, status, scanned_at, created_at
	           FROM tickets WHERE event_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// FindByToken resolves a scan token to its ticket. The match is exact
// and case-sensitive; no normalization is applied. Returns
// ErrTicketNotFound for unknown tokens.
func (r *TicketRepo) FindByToken(ctx context.Context, token string) (*model.Ticket, error) {
	const q = `SELECT id, event_id, user_email, user_name, qr_code_token, status, scanned_at, created_at
	           FROM tickets WHERE qr_code_token = ? LIMIT 1`
	t, err := scanTicket(r.db.QueryRowContext(ctx, q, token).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return t, nil
}

// MarkScannedByToken atomically transitions the ticket identified by
// token from UNUSED to SCANNED, stamping scanned_at with now. The
// status check and the write are one statement, so of N concurrent
// calls for the same token exactly one observes an affected row; the
// rest see zero and must re-read to classify the rejection. No row is
// touched unless the ticket is currently UNUSED.
func (r *TicketRepo) MarkScannedByToken(ctx context.Context, token string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tickets SET status = ?, scanned_at = ? WHERE qr_code_token = ? AND status = ?`,
		model.StatusScanned, now.UTC(), token, model.StatusUnused)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// scanTicket maps a row to a model.Ticket, converting the nullable
// scanned_at column.
func scanTicket(scan func(dest ...any) error) (*model.Ticket, error) {
	var (
		t         model.Ticket
		scannedAt sql.NullTime
	)
	if err := scan(&t.ID, &t.EventID, &t.UserEmail, &t.UserName, &t.Token, &t.Status, &scannedAt, &t.CreatedAt); err != nil {
		return nil, err
	}
	if scannedAt.Valid {
		ts := scannedAt.Time
		t.ScannedAt = &ts
	}
	return &t, nil
}
