// Package scan implements the check-in state machine. It turns a scan
// token into a single authoritative verdict for door hardware:
// admit, already admitted, not a ticket, or wrong state. Business
// rejections are verdicts, never errors; only store failures surface
// as errors.
package scan

import (
	"context"
	"errors"
	"time"

	"github.com/openpass/event-checkin/internal/model"
	"github.com/openpass/event-checkin/internal/repository"
)

// Rejection reasons carried in Verdict.Reason. A valid scan has no
// reason.
const (
	ReasonTicketNotFound = "ticket_not_found"
	ReasonAlreadyScanned = "already_scanned"
	ReasonInvalidStatus  = "invalid_status"
)

// Verdict is the structured result of a scan attempt. Holder fields
// are null for unknown tokens so scanners can render a uniform shape.
type Verdict struct {
	Valid     bool    `json:"valid"`
	Reason    *string `json:"reason"`
	UserEmail *string `json:"user_email"`
	UserName  *string `json:"user_name"`
	EventID   *uint64 `json:"event_id"`
	Status    *string `json:"status"`
}

// Ledger is the slice of the ticket store the scan gateway needs. The
// contract on MarkScannedByToken is the whole concurrency story: the
// status check and the write must be one atomic operation per token,
// so that of N concurrent calls with the same UNUSED token exactly
// one returns true.
type Ledger interface {
	FindByToken(ctx context.Context, token string) (*model.Ticket, error)
	MarkScannedByToken(ctx context.Context, token string, now time.Time) (bool, error)
}

// Service resolves tokens against a Ledger and applies the transition
// rule. It holds no state of its own; every decision is made against
// the store so concurrent gateways stay consistent.
type Service struct {
	ledger Ledger
	now    func() time.Time
}

// NewService builds a scan Service over the given ledger.
func NewService(ledger Ledger) *Service {
	return &Service{ledger: ledger, now: func() time.Time { return time.Now().UTC() }}
}

// Scan applies the per-ticket state machine:
//
//	UNUSED  --scan--> SCANNED  (valid, exactly once)
//	SCANNED --scan--> SCANNED  (rejected: already_scanned, no mutation)
//	other   --scan--> other    (rejected: invalid_status, no mutation)
//	absent                     (rejected: ticket_not_found)
//
// The transition is attempted first; the read happens afterwards to
// classify the outcome. Attempt-then-read closes the window between a
// status check and the write, so two simultaneous scans of one token
// can never both admit.
func (s *Service) Scan(ctx context.Context, token string) (Verdict, error) {
	won, err := s.ledger.MarkScannedByToken(ctx, token, s.now())
	if err != nil {
		return Verdict{}, err
	}

	t, err := s.ledger.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return rejected(ReasonTicketNotFound, nil), nil
		}
		return Verdict{}, err
	}

	if won {
		return Verdict{
			Valid:     true,
			UserEmail: &t.UserEmail,
			UserName:  &t.UserName,
			EventID:   &t.EventID,
			Status:    &t.Status,
		}, nil
	}

	switch t.Status {
	case model.StatusScanned:
		return rejected(ReasonAlreadyScanned, t), nil
	default:
		// CANCELED today; any future non-UNUSED state lands here too.
		return rejected(ReasonInvalidStatus, t), nil
	}
}

// rejected builds an invalid verdict. When the ticket is known its
// holder info rides along so operators can see who attempted entry.
func rejected(reason string, t *model.Ticket) Verdict {
	v := Verdict{Valid: false, Reason: &reason}
	if t != nil {
		v.UserEmail = &t.UserEmail
		v.UserName = &t.UserName
		v.EventID = &t.EventID
		v.Status = &t.Status
	}
	return v
}
