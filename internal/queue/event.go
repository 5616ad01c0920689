// Package queue carries ticket issuance notifications over RabbitMQ.
// The API publishes one message per issued ticket; a background
// consumer turns each message into a confirmation e-mail. Delivery is
// best effort: issuance never fails because the broker is down.
package queue

import "time"

// TicketIssuedQueue is the durable queue both publisher and consumer
// declare.
const TicketIssuedQueue = "ticket.issued"

// TicketIssuedEvent is the message body published after a ticket is
// issued. It is self-contained so the consumer never has to call back
// into the database to build the e-mail.
type TicketIssuedEvent struct {
	TicketID  uint64    `json:"ticket_id"`
	EventID   uint64    `json:"event_id"`
	EventName string    `json:"event_name"`
	EventDate time.Time `json:"event_date"`
	Location  string    `json:"location"`
	UserEmail string    `json:"user_email"`
	UserName  string    `json:"user_name"`
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
}
