// Package model defines the core domain types for event enrollment and
// capacity admission control.
package model

import (
	"math"
	"strings"
	"time"
)

// DefaultEventDuration is assumed for accounting when an event has no end time.
const DefaultEventDuration = 4 * time.Hour

// Event is a volunteering event. Events are owned by the directory and are
// read-only here.
type Event struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	StartAt          time.Time  `json:"startAt"`
	EndAt            *time.Time `json:"endAt,omitempty"`
	Capacity         int        `json:"capacity"`
	RegistrationOpen bool       `json:"registrationOpen"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// HasLimit reports whether the event caps the number of occupying enrollments.
func (e *Event) HasLimit() bool {
	return e.Capacity > 0
}

// DurationHours returns the whole number of hours the event lasts, at least 1.
func (e *Event) DurationHours() int {
	end := e.StartAt.Add(DefaultEventDuration)
	if e.EndAt != nil {
		end = *e.EndAt
	}
	hours := int(math.Round(end.Sub(e.StartAt).Hours()))
	if hours < 1 {
		return 1
	}
	return hours
}

// Enrollment is one volunteer's registration for one event.
type Enrollment struct {
	ID             string    `json:"id"`
	EventID        string    `json:"eventId"`
	VolunteerName  string    `json:"name"`
	VolunteerEmail string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	Message        string    `json:"message,omitempty"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// NormalizeEmail returns the identity key used to compare volunteer emails.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateEnrollmentRequest is the payload for a single self-service enrollment.
type CreateEnrollmentRequest struct {
	EventID string `json:"eventId" validate:"required"`
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email,max=320"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,max=40"`
	Message string `json:"message,omitempty" validate:"omitempty,max=2000"`
}

// Participant is one person in a group registration.
type Participant struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// GroupEnrollmentRequest is the payload for registering a requester plus
// guests for one event.
type GroupEnrollmentRequest struct {
	EventID      string        `json:"eventId"`
	Participants []Participant `json:"participants"`
}

// Outcome is the result of one participant's enrollment attempt.
type Outcome string

const (
	OutcomeEnrolled Outcome = "Enrolled"
	OutcomeFailed   Outcome = "Failed"
)

// ParticipantResult pairs a participant with the outcome of their attempt.
type ParticipantResult struct {
	Participant Participant
	Outcome     Outcome
	Enrollment  *Enrollment
	Err         error
}

// Kind returns the error kind of a failed attempt, or "" when enrolled.
func (r ParticipantResult) Kind() Kind {
	if r.Err == nil {
		return ""
	}
	return KindOf(r.Err)
}

// SetStatusRequest is the payload for an administrative status change.
type SetStatusRequest struct {
	Status string `json:"status"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorKind Kind   `json:"errorKind"`
}

// GroupResult is the wire form of one participant's outcome.
type GroupResult struct {
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	Outcome    Outcome     `json:"outcome"`
	ErrorKind  Kind        `json:"errorKind,omitempty"`
	Error      string      `json:"error,omitempty"`
	Enrollment *Enrollment `json:"enrollment,omitempty"`
}

// GroupEnrollmentResponse reports every participant's outcome in input order.
type GroupEnrollmentResponse struct {
	EventID  string        `json:"eventId"`
	Enrolled int           `json:"enrolled"`
	Failed   int           `json:"failed"`
	Results  []GroupResult `json:"results"`
}

// NewGroupEnrollmentResponse converts orchestration results to their wire form.
func NewGroupEnrollmentResponse(eventID string, results []ParticipantResult) GroupEnrollmentResponse {
	resp := GroupEnrollmentResponse{EventID: eventID, Results: make([]GroupResult, 0, len(results))}
	for _, r := range results {
		gr := GroupResult{
			Name:       r.Participant.Name,
			Email:      r.Participant.Email,
			Outcome:    r.Outcome,
			Enrollment: r.Enrollment,
		}
		if r.Err != nil {
			gr.ErrorKind = r.Kind()
			gr.Error = r.Err.Error()
			resp.Failed++
		} else {
			resp.Enrolled++
		}
		resp.Results = append(resp.Results, gr)
	}
	return resp
}
