package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/metrics"
	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/model"
	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type fixture struct {
	store  *repository.MemoryStore
	svc    *EnrollmentService
	ledger *Ledger
	groups *GroupRegistrar
	impact *ImpactService
}

func newFixture(t *testing.T, events ...model.Event) *fixture {
	t.Helper()
	store := repository.NewMemoryStore(time.Second)
	for _, e := range events {
		store.PutEvent(e)
	}
	m := metrics.New(prometheus.NewRegistry())
	svc := NewEnrollmentService(store, store, m, zap.NewNop())
	ledger := NewLedger(store)
	return &fixture{
		store:  store,
		svc:    svc,
		ledger: ledger,
		groups: NewGroupRegistrar(svc, m, zap.NewNop()),
		impact: NewImpactService(ledger, store, store),
	}
}

func event(id string, capacity int) model.Event {
	return model.Event{
		ID:               id,
		Title:            "Food bank shift",
		StartAt:          time.Date(2026, 6, 13, 10, 0, 0, 0, time.UTC),
		Capacity:         capacity,
		RegistrationOpen: true,
	}
}

func request(eventID, email string) model.CreateEnrollmentRequest {
	return model.CreateEnrollmentRequest{EventID: eventID, Name: "Volunteer", Email: email}
}

func TestCreateEnrollment(t *testing.T) {
	f := newFixture(t, event("e1", 5))

	e, err := f.svc.CreateEnrollment(context.Background(), model.CreateEnrollmentRequest{
		EventID: "e1",
		Name:    "  Maria Silva ",
		Email:   "  Maria@Example.COM ",
		Phone:   "+55 11 99999-0000",
		Message: "Can bring gloves",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "Maria Silva", e.VolunteerName)
	assert.Equal(t, "maria@example.com", e.VolunteerEmail)
	assert.Equal(t, model.StatusPending, e.Status)
	assert.False(t, e.CreatedAt.IsZero())

	stored, err := f.svc.GetEnrollment(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, *e, *stored)
}

func TestCreateEnrollment_InvalidInput(t *testing.T) {
	f := newFixture(t, event("e1", 5))

	cases := []model.CreateEnrollmentRequest{
		{EventID: "e1", Name: "A", Email: "not-an-email"},
		{EventID: "e1", Name: "   ", Email: "a@x.com"},
		{EventID: "", Name: "A", Email: "a@x.com"},
	}
	for i, req := range cases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			_, err := f.svc.CreateEnrollment(context.Background(), req)
			assert.ErrorIs(t, err, model.ErrInvalidInput)
		})
	}
}

func TestCreateEnrollment_DuplicateRejection(t *testing.T) {
	f := newFixture(t, event("e1", 5))
	ctx := context.Background()

	_, err := f.svc.CreateEnrollment(ctx, request("e1", "a@x.com"))
	require.NoError(t, err)

	_, err = f.svc.CreateEnrollment(ctx, request("e1", " A@X.com"))
	assert.ErrorIs(t, err, model.ErrDuplicateEnrollment)
}

func TestCreateEnrollment_EventNotFoundAndClosed(t *testing.T) {
	closed := event("closed", 5)
	closed.RegistrationOpen = false
	f := newFixture(t, closed)
	ctx := context.Background()

	_, err := f.svc.CreateEnrollment(ctx, request("missing", "a@x.com"))
	assert.Equal(t, model.KindEventNotFound, model.KindOf(err))

	_, err = f.svc.CreateEnrollment(ctx, request("closed", "a@x.com"))
	assert.Equal(t, model.KindRegistrationClosed, model.KindOf(err))
}

func TestCreateEnrollment_RaceForLastSlot(t *testing.T) {
	for range 25 {
		f := newFixture(t, event("e1", 1))

		var enrolled, full atomic.Int32
		var g errgroup.Group
		for _, email := range []string{"a@x.com", "b@x.com"} {
			g.Go(func() error {
				_, err := f.svc.CreateEnrollment(context.Background(), request("e1", email))
				switch {
				case err == nil:
					enrolled.Add(1)
				case errors.Is(err, model.ErrEventFull):
					full.Add(1)
				default:
					return err
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())
		assert.Equal(t, int32(1), enrolled.Load())
		assert.Equal(t, int32(1), full.Load())
	}
}

func TestCreateEnrollment_CapacityInvariant(t *testing.T) {
	const capacity = 10
	f := newFixture(t, event("e1", capacity))

	var g errgroup.Group
	for i := range 100 {
		g.Go(func() error {
			_, err := f.svc.CreateEnrollment(context.Background(), request("e1", fmt.Sprintf("v%d@x.com", i%60)))
			if err != nil && !errors.Is(err, model.ErrEventFull) && !errors.Is(err, model.ErrDuplicateEnrollment) {
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	snap, err := f.ledger.GetSnapshot(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, capacity, snap.Occupied)

	occupying, err := f.store.ListByEvent(context.Background(), "e1", model.OccupyingStatuses)
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, e := range occupying {
		assert.False(t, seen[e.VolunteerEmail], "duplicate email %s", e.VolunteerEmail)
		seen[e.VolunteerEmail] = true
	}
}

func TestSetStatus_ReEnrollmentAfterCancel(t *testing.T) {
	f := newFixture(t, event("e1", 1))
	ctx := context.Background()

	e, err := f.svc.CreateEnrollment(ctx, request("e1", "a@x.com"))
	require.NoError(t, err)

	cancelled, err := f.svc.SetStatus(ctx, e.ID, model.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)

	again, err := f.svc.CreateEnrollment(ctx, request("e1", "a@x.com"))
	require.NoError(t, err)
	assert.NotEqual(t, e.ID, again.ID)
}

func TestSetStatus_Transitions(t *testing.T) {
	f := newFixture(t, event("e1", 0))
	ctx := context.Background()

	e, err := f.svc.CreateEnrollment(ctx, request("e1", "a@x.com"))
	require.NoError(t, err)

	_, err = f.svc.SetStatus(ctx, e.ID, model.StatusRejected)
	require.NoError(t, err)

	_, err = f.svc.SetStatus(ctx, e.ID, model.StatusApproved)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	_, err = f.svc.SetStatus(ctx, e.ID, model.Status("WAITLISTED"))
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = f.svc.SetStatus(ctx, "missing", model.StatusApproved)
	assert.ErrorIs(t, err, model.ErrNotFound)

	b, err := f.svc.CreateEnrollment(ctx, request("e1", "b@x.com"))
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, b.ID, model.StatusApproved)
	require.NoError(t, err)
	done, err := f.svc.SetStatus(ctx, b.ID, model.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, done.Status)

	_, err = f.svc.SetStatus(ctx, b.ID, model.StatusCancelled)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestDeleteEnrollment_FreesSlot(t *testing.T) {
	f := newFixture(t, event("e1", 1))
	ctx := context.Background()

	e, err := f.svc.CreateEnrollment(ctx, request("e1", "a@x.com"))
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteEnrollment(ctx, e.ID))
	assert.ErrorIs(t, f.svc.DeleteEnrollment(ctx, e.ID), model.ErrNotFound)

	snap, err := f.ledger.GetSnapshot(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Occupied)
}

func TestListEnrollments(t *testing.T) {
	f := newFixture(t, event("e1", 0))
	ctx := context.Background()

	first, err := f.svc.CreateEnrollment(ctx, request("e1", "a@x.com"))
	require.NoError(t, err)
	_, err = f.svc.CreateEnrollment(ctx, request("e1", "b@x.com"))
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, first.ID, model.StatusApproved)
	require.NoError(t, err)

	all, err := f.svc.ListEnrollments(ctx, "e1", nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	approved, err := f.svc.ListEnrollments(ctx, "e1", []model.Status{model.StatusApproved})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, first.ID, approved[0].ID)

	_, err = f.svc.ListEnrollments(ctx, "missing", nil)
	assert.ErrorIs(t, err, model.ErrEventNotFound)
}

// occupancyless fails every occupancy read so callers that only need to know
// whether an event exists must not go through it.
type occupancyless struct {
	EnrollmentStore
}

func (occupancyless) Occupancy(context.Context, string) (model.Occupancy, error) {
	return model.Occupancy{}, errors.New("occupancy read not expected")
}

type countingEvents struct {
	EventSource
	calls atomic.Int32
}

func (c *countingEvents) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	c.calls.Add(1)
	return c.EventSource.GetEvent(ctx, id)
}

func TestListEnrollments_ChecksEventThroughEventSource(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore(time.Second)
	store.PutEvent(event("e1", 0))
	events := &countingEvents{EventSource: store}
	svc := NewEnrollmentService(occupancyless{store}, events, nil, zap.NewNop())

	_, err := svc.CreateEnrollment(ctx, request("e1", "a@x.com"))
	require.NoError(t, err)

	list, err := svc.ListEnrollments(ctx, "e1", nil)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.ListEnrollments(ctx, "missing", nil)
	assert.ErrorIs(t, err, model.ErrEventNotFound)
	assert.Equal(t, int32(2), events.calls.Load())
}
