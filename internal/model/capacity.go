package model

// Occupancy is the raw input of a capacity snapshot, read from storage in a
// single consistent step.
type Occupancy struct {
	Capacity int
	Occupied int
}

// CapacitySnapshot is the derived view of an event's slots. Available is nil
// when the event has no limit.
type CapacitySnapshot struct {
	EventID   string `json:"eventId"`
	Total     int    `json:"total"`
	Occupied  int    `json:"occupied"`
	Available *int   `json:"available"`
	HasLimit  bool   `json:"hasLimit"`
}

// NewCapacitySnapshot derives a snapshot from an occupancy reading.
func NewCapacitySnapshot(eventID string, o Occupancy) CapacitySnapshot {
	total := o.Capacity
	if total < 0 {
		total = 0
	}
	snap := CapacitySnapshot{
		EventID:  eventID,
		Total:    total,
		Occupied: o.Occupied,
		HasLimit: total > 0,
	}
	if snap.HasLimit {
		available := max(0, total-o.Occupied)
		snap.Available = &available
	}
	return snap
}

// Admits reports whether one more occupying enrollment fits.
func (o Occupancy) Admits() bool {
	return o.Capacity <= 0 || o.Occupied < o.Capacity
}

// EventImpact is the accounting input for one event: its duration and the
// number of occupying enrollments.
type EventImpact struct {
	EventID         string `json:"eventId"`
	DurationHours   int    `json:"durationHours"`
	EnrollmentCount int    `json:"enrollmentCount"`
	TotalHours      int    `json:"totalHours"`
}

// VolunteerImpact aggregates one volunteer's occupying enrollments.
type VolunteerImpact struct {
	Email          string        `json:"email"`
	Participations int           `json:"participations"`
	TotalHours     int           `json:"totalHours"`
	Events         []EventImpact `json:"events"`
}
