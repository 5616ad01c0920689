package model

import "time"

// Per-event admin roles as stored in event_admins.role. OWNER may
// manage tickets and the admin list itself; SCANNER_ONLY is reserved
// for finer-grained scanning permission and grants no management
// rights yet.
const (
	RoleOwner       = "OWNER"
	RoleScannerOnly = "SCANNER_ONLY"
)

// Event mirrors the `events` table. An event owns zero or more
// tickets and zero or more admin bindings; deleting an event removes
// both.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – event title.
//  Description – free-form description, may be empty.
//  Date        – when the event takes place (UTC).
//  Location    – venue description.
//  CreatedBy   – user who created the event (null for legacy rows).
//  CreatedAt   – timestamp of creation.
//  UpdatedAt   – timestamp of last update.
type Event struct {
	ID          uint64    // events.id
	Name        string    // events.name
	Description string    // events.description
	Date        time.Time // events.date
	Location    string    // events.location
	CreatedBy   *uint64   // events.created_by (nullable)
	CreatedAt   time.Time // events.created_at
	UpdatedAt   time.Time // events.updated_at
}

// EventAdmin is a role binding between an event and a user, unique
// per (event, user) pair. It drives the management authorization
// guard; it plays no part in the scan decision itself.
type EventAdmin struct {
	ID        uint64    // event_admins.id
	EventID   uint64    // event_admins.event_id
	UserID    uint64    // event_admins.user_id
	Role      string    // event_admins.role (OWNER | SCANNER_ONLY)
	CreatedAt time.Time // event_admins.created_at
}
