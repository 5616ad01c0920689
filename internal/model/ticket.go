package model

import "time"

// Ticket lifecycle states persisted verbatim in tickets.status.
// CANCELED is reachable by no current operation but the scan state
// machine must still reject it; treat the set as closed.
const (
	StatusUnused   = "UNUSED"
	StatusScanned  = "SCANNED"
	StatusCanceled = "CANCELED"
)

// Ticket mirrors the `tickets` table. A ticket is a single admission
// right to one event, identified by an opaque scan token that is
// unique across all tickets regardless of event. The token is the
// value embedded in the holder's QR code and the sole credential
// presented at the door.
//
// Invariant: ScannedAt is non-nil if and only if Status is SCANNED.
// A ticket is mutated exactly once, by the scan transition
// UNUSED -> SCANNED; there is no way back to UNUSED.
//
// Fields:
//  ID        – primary key identifier.
//  EventID   – owning event.
//  UserEmail – holder email (tickets may be issued to non-users).
//  UserName  – holder display name.
//  Token     – URL-safe random scan token (tickets.qr_code_token).
//  Status    – UNUSED | SCANNED | CANCELED.
//  ScannedAt – when the ticket was admitted (null until scanned).
//  CreatedAt – timestamp of issuance.
type Ticket struct {
	ID        uint64     // tickets.id
	EventID   uint64     // tickets.event_id
	UserEmail string     // tickets.user_email
	UserName  string     // tickets.user_name
	Token     string     // tickets.qr_code_token
	Status    string     // tickets.status
	ScannedAt *time.Time // tickets.scanned_at (nullable)
	CreatedAt time.Time  // tickets.created_at
}
