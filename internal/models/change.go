package models

import (
	"fmt"
	"time"
)

// Op is the kind of queued mutation.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// PendingChange is a mutation queued while offline, awaiting replay against
// the remote data API. Changes are totally ordered by CreatedAt; replay must
// process them in that order. A change is never mutated in place: it is
// created on queueing and deleted on successful replay.
type PendingChange struct {
	// ChangeID is composed from the operation kind, the domain, the target
	// record id and the creation timestamp, which makes it both unique and
	// naturally sortable in chronological order.
	ChangeID string

	// Domain is the target collection name, resolved against the registry
	// when the change was queued.
	Domain string

	Op       Op
	RecordID string

	// Payload is the full intended post-write record at the time of queueing
	// (for deletes, just the identifier).
	Payload Record

	CreatedAt time.Time
}

// NewPendingChange builds a change for the given operation with a freshly
// composed identifier.
func NewPendingChange(op Op, domain string, payload Record, createdAt time.Time) PendingChange {
	id := payload.ID()
	return PendingChange{
		ChangeID:  fmt.Sprintf("%s:%s:%s:%d", op, domain, id, createdAt.UnixNano()),
		Domain:    domain,
		Op:        op,
		RecordID:  id,
		Payload:   payload,
		CreatedAt: createdAt,
	}
}
