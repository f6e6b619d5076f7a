package model

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of an enrollment.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// OccupyingStatuses count against an event's capacity and block re-enrollment.
var OccupyingStatuses = []Status{StatusPending, StatusApproved, StatusCompleted}

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved: {StatusCancelled, StatusCompleted},
}

// ParseStatus parses a status name case-insensitively.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
	}
	return st, nil
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Occupies reports whether an enrollment in this status holds a slot.
func (s Status) Occupies() bool {
	switch s {
	case StatusPending, StatusApproved, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s Status) CanTransitionTo(next Status) bool {
	for _, to := range transitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// SourcesOf returns the statuses from which next can be reached in one step.
// Storage uses it to express a transition as a single conditional update.
func SourcesOf(next Status) []Status {
	var from []Status
	for _, s := range []Status{StatusPending, StatusApproved, StatusRejected, StatusCancelled, StatusCompleted} {
		if s.CanTransitionTo(next) {
			from = append(from, s)
		}
	}
	return from
}

// StatusStrings converts statuses to their string form for query parameters.
func StatusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
