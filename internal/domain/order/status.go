package order

import "fmt"

// Status is the lifecycle state of an order.
type Status string

// Order lifecycle states. PENDING is the initial state; COMPLETED and
// CANCELLED are terminal.
const (
	StatusPending   Status = "PENDING"
	StatusShipped   Status = "SHIPPED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// validNext is the only transition table: PENDING may ship or cancel,
// SHIPPED may complete or cancel. Cancelling from SHIPPED does not restore
// stock — shipped goods have already left inventory.
var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusShipped: true, StatusCancelled: true},
	StatusShipped:   {StatusCompleted: true, StatusCancelled: true},
	StatusCompleted: {},
	StatusCancelled: {},
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s Status) CanTransitionTo(next Status) bool {
	return validNext[s][next]
}

// ParseStatus validates a raw status string against the recognized states.
func ParseStatus(raw string) (Status, error) {
	switch st := Status(raw); st {
	case StatusPending, StatusShipped, StatusCompleted, StatusCancelled:
		return st, nil
	default:
		return "", &InvalidStatusError{Value: raw}
	}
}

// InvalidStatusError indicates an unrecognized target status value.
type InvalidStatusError struct {
	Value string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid status %q: valid statuses are PENDING, SHIPPED, COMPLETED, CANCELLED", e.Value)
}

// InvalidTransitionError indicates a state change the transition table
// forbids, such as cancelling an order that is no longer PENDING.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}
