package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/model"
)

// MemoryStore keeps events and enrollments in process memory.
//
// Every write for an event first takes that event's gate, a one-slot
// semaphore acquired with a bounded wait. mu guards the maps themselves and
// is held only while reading or mutating them, so snapshot reads never
// observe half of a write.
type MemoryStore struct {
	lockTimeout time.Duration

	gatesMu sync.Mutex
	gates   map[string]chan struct{}

	mu          sync.RWMutex
	events      map[string]model.Event
	enrollments map[string]model.Enrollment
	byEvent     map[string][]string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore(lockTimeout time.Duration) *MemoryStore {
	return &MemoryStore{
		lockTimeout: lockTimeout,
		gates:       make(map[string]chan struct{}),
		events:      make(map[string]model.Event),
		enrollments: make(map[string]model.Enrollment),
		byEvent:     make(map[string][]string),
	}
}

// PutEvent adds or replaces an event.
func (s *MemoryStore) PutEvent(e model.Event) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e
}

// GetEvent returns a copy of the event or model.ErrEventNotFound.
func (s *MemoryStore) GetEvent(_ context.Context, id string) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, model.ErrEventNotFound
	}
	return &e, nil
}

func (s *MemoryStore) gate(eventID string) chan struct{} {
	s.gatesMu.Lock()
	defer s.gatesMu.Unlock()
	g, ok := s.gates[eventID]
	if !ok {
		g = make(chan struct{}, 1)
		s.gates[eventID] = g
	}
	return g
}

// acquire takes the event's gate or fails with model.ErrBusy once the lock
// timeout elapses or ctx is done.
func (s *MemoryStore) acquire(ctx context.Context, eventID string) (func(), error) {
	g := s.gate(eventID)

	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()

	select {
	case g <- struct{}{}:
		return func() { <-g }, nil
	case <-timer.C:
		return nil, fmt.Errorf("acquire event %s: %w", eventID, model.ErrBusy)
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire event %s: %w: %w", eventID, model.ErrBusy, ctx.Err())
	}
}

// Create inserts e if the event accepts it.
func (s *MemoryStore) Create(ctx context.Context, e *model.Enrollment) error {
	if _, err := s.GetEvent(ctx, e.EventID); err != nil {
		return err
	}

	release, err := s.acquire(ctx, e.EventID)
	if err != nil {
		return err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[e.EventID]
	if !ok {
		return model.ErrEventNotFound
	}
	if !event.RegistrationOpen {
		return model.ErrRegistrationClosed
	}

	occ := model.Occupancy{Capacity: event.Capacity}
	for _, id := range s.byEvent[e.EventID] {
		existing := s.enrollments[id]
		if !existing.Status.Occupies() {
			continue
		}
		if existing.VolunteerEmail == e.VolunteerEmail {
			return model.ErrDuplicateEnrollment
		}
		occ.Occupied++
	}
	if !occ.Admits() {
		return model.ErrEventFull
	}

	s.enrollments[e.ID] = *e
	s.byEvent[e.EventID] = append(s.byEvent[e.EventID], e.ID)
	return nil
}

// Get returns one enrollment or model.ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, id string) (*model.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.enrollments[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &e, nil
}

// Delete hard-removes an enrollment.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	e, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	release, err := s.acquire(ctx, e.EventID)
	if err != nil {
		return err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.enrollments[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.enrollments, id)

	ids := s.byEvent[e.EventID]
	for i, eid := range ids {
		if eid == id {
			s.byEvent[e.EventID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// UpdateStatus moves an enrollment to next if the transition is allowed.
func (s *MemoryStore) UpdateStatus(ctx context.Context, id string, next model.Status) (*model.Enrollment, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx, e.EventID)
	if err != nil {
		return nil, err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.enrollments[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	if !current.Status.CanTransitionTo(next) {
		return nil, model.ErrInvalidTransition
	}
	current.Status = next
	current.UpdatedAt = time.Now().UTC()
	s.enrollments[id] = current
	return &current, nil
}

// Occupancy reads an event's capacity and occupied count under one read lock.
func (s *MemoryStore) Occupancy(_ context.Context, eventID string) (model.Occupancy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[eventID]
	if !ok {
		return model.Occupancy{}, model.ErrEventNotFound
	}
	occ := model.Occupancy{Capacity: event.Capacity}
	for _, id := range s.byEvent[eventID] {
		if s.enrollments[id].Status.Occupies() {
			occ.Occupied++
		}
	}
	return occ, nil
}

// ListByEvent returns an event's enrollments in creation order, optionally
// restricted to the given statuses.
func (s *MemoryStore) ListByEvent(_ context.Context, eventID string, statuses []model.Status) ([]model.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Enrollment
	for _, id := range s.byEvent[eventID] {
		e := s.enrollments[id]
		if len(statuses) > 0 && !slices.Contains(statuses, e.Status) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// ListOccupyingByEmail returns every occupying enrollment held by email.
func (s *MemoryStore) ListOccupyingByEmail(_ context.Context, email string) ([]model.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Enrollment
	for _, ids := range s.byEvent {
		for _, id := range ids {
			e := s.enrollments[id]
			if e.VolunteerEmail == email && e.Status.Occupies() {
				out = append(out, e)
			}
		}
	}
	slices.SortFunc(out, func(a, b model.Enrollment) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}
