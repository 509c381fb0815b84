package enums

import "fmt"

// RequestStatus tracks the lifecycle of a purchase request.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusRejected RequestStatus = "rejected"
)

var validRequestStatuses = []RequestStatus{
	RequestStatusPending,
	RequestStatusAccepted,
	RequestStatusRejected,
}

// String implements fmt.Stringer.
func (r RequestStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RequestStatus.
func (r RequestStatus) IsValid() bool {
	for _, candidate := range validRequestStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (r RequestStatus) IsTerminal() bool {
	return r == RequestStatusAccepted || r == RequestStatusRejected
}

// CanTransitionTo reports whether a request in this status may move to next.
// Only pending requests may be decided, and only into a terminal status.
func (r RequestStatus) CanTransitionTo(next RequestStatus) bool {
	return r == RequestStatusPending && next.IsTerminal()
}

// ParseRequestStatus converts raw input into a RequestStatus.
func ParseRequestStatus(value string) (RequestStatus, error) {
	for _, candidate := range validRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid request status %q", value)
}
