package service

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/model"
)

// ImpactService builds the volunteering-hours inputs consumed by dashboards.
// Occupancy comes from the Ledger so "participating" means exactly what it
// means for capacity.
type ImpactService struct {
	ledger *Ledger
	store  EnrollmentStore
	events EventSource
}

// NewImpactService constructs an ImpactService.
func NewImpactService(ledger *Ledger, store EnrollmentStore, events EventSource) *ImpactService {
	return &ImpactService{ledger: ledger, store: store, events: events}
}

// EventImpact returns the event's duration and occupying enrollment count.
func (s *ImpactService) EventImpact(ctx context.Context, eventID string) (*model.EventImpact, error) {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	snap, err := s.ledger.GetSnapshot(ctx, eventID)
	if err != nil {
		return nil, err
	}

	hours := event.DurationHours()
	return &model.EventImpact{
		EventID:         eventID,
		DurationHours:   hours,
		EnrollmentCount: snap.Occupied,
		TotalHours:      hours * snap.Occupied,
	}, nil
}

// VolunteerImpact sums the hours of every event the volunteer holds an
// occupying enrollment for.
func (s *ImpactService) VolunteerImpact(ctx context.Context, email string) (*model.VolunteerImpact, error) {
	email = model.NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", model.ErrInvalidInput)
	}

	enrollments, err := s.store.ListOccupyingByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	out := &model.VolunteerImpact{Email: email, Events: []model.EventImpact{}}
	durations := make(map[string]int)
	for _, e := range enrollments {
		hours, ok := durations[e.EventID]
		if !ok {
			event, err := s.events.GetEvent(ctx, e.EventID)
			if err != nil {
				return nil, fmt.Errorf("event %s: %w", e.EventID, err)
			}
			hours = event.DurationHours()
			durations[e.EventID] = hours
		}

		out.Participations++
		out.TotalHours += hours
		out.Events = append(out.Events, model.EventImpact{
			EventID:         e.EventID,
			DurationHours:   hours,
			EnrollmentCount: 1,
			TotalHours:      hours,
		})
	}
	return out, nil
}
