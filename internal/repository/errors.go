// Package repository defines error types that are reused across
// multiple repositories. These sentinel values allow higher layers
// such as handlers to distinguish between failure scenarios without
// inspecting driver errors: ErrForbidden indicates the caller lacks
// the required role for a management operation, ErrConflict signals
// an operation blocked by existing state (e.g. a duplicate admin
// binding), and the *NotFound values cover missing referenced rows.
package repository

import "errors"

// ErrForbidden is returned when the caller is neither a superadmin
// nor an OWNER of the event being managed. Handlers translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an insert cannot proceed because an
// equivalent row already exists, such as adding an admin binding for
// a (event, user) pair that already has one. Handlers translate this
// into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrEventNotFound is returned when a referenced event does not exist.
var ErrEventNotFound = errors.New("event not found")

// ErrTicketNotFound is returned when a ticket lookup yields no rows.
var ErrTicketNotFound = errors.New("ticket not found")

// ErrUserNotFound is returned when a referenced user does not exist.
var ErrUserNotFound = errors.New("user not found")
