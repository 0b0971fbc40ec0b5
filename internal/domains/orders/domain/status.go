package domain

import "fmt"

// Status is the order lifecycle state. Values match the wire format used by
// the rest of the platform.
type Status string

const (
	StatusPending        Status = "pending"
	StatusVerified       Status = "verified"
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusOutForDelivery Status = "out-for-delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// transitions lists the allowed next states for non-privileged callers.
var transitions = map[Status][]Status{
	StatusPending:        {StatusVerified, StatusCancelled},
	StatusVerified:       {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusPreparing, StatusCancelled},
	StatusPreparing:      {StatusOutForDelivery, StatusCancelled},
	StatusOutForDelivery: {StatusDelivered, StatusCancelled},
	StatusDelivered:      {},
	StatusCancelled:      {},
}

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no further transitions leave s.
func (s Status) Terminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// CanTransition reports whether a non-privileged caller may move from s to
// next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ValidateTransition checks a transition for the given privilege level.
// Privileged callers may force any target state, except moving an order away
// from a terminal state; re-asserting the same terminal state is a permitted
// no-op.
func ValidateTransition(from, to Status, privileged bool) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, string(to))
	}
	if !from.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, string(from))
	}
	if privileged {
		if from.Terminal() && from != to {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
		}
		return nil
	}
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
