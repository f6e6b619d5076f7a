package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/database"
	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// testDSNEnv names a disposable Postgres database for the store tests below.
const testDSNEnv = "ENROLLMENT_TEST_DSN"

type pgStores struct {
	pool        *pgxpool.Pool
	events      *EventRepository
	enrollments *EnrollmentRepository
}

func newPGStores(t *testing.T, lockTimeout time.Duration) *pgStores {
	t.Helper()
	dsn := os.Getenv(testDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", testDSNEnv)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pool.Ping(ctx))
	require.NoError(t, database.RunMigrations(ctx, pool, zap.NewNop()))

	return &pgStores{
		pool:        pool,
		events:      NewEventRepository(pool),
		enrollments: NewEnrollmentRepository(pool, lockTimeout),
	}
}

// seedEvent writes a uniquely named event and removes it, with its
// enrollments, when the test ends.
func (s *pgStores) seedEvent(t *testing.T, capacity int, open bool) string {
	t.Helper()
	e := openEvent("pg-"+uuid.NewString(), capacity)
	e.RegistrationOpen = open
	require.NoError(t, s.events.Upsert(context.Background(), e))
	t.Cleanup(func() {
		_, _ = s.pool.Exec(context.Background(), `DELETE FROM events WHERE id = $1`, e.ID)
	})
	return e.ID
}

func TestEnrollmentRepository_CreateAndRejections(t *testing.T) {
	ctx := context.Background()
	s := newPGStores(t, time.Second)
	eventID := s.seedEvent(t, 1, true)
	closedID := s.seedEvent(t, 10, false)

	first := enrollment(eventID, "a@x.com")
	require.NoError(t, s.enrollments.Create(ctx, first))

	got, err := s.enrollments.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.VolunteerEmail)
	assert.Equal(t, model.StatusPending, got.Status)

	assert.ErrorIs(t, s.enrollments.Create(ctx, enrollment(eventID, "a@x.com")), model.ErrDuplicateEnrollment)
	assert.ErrorIs(t, s.enrollments.Create(ctx, enrollment(eventID, "b@x.com")), model.ErrEventFull)
	assert.ErrorIs(t, s.enrollments.Create(ctx, enrollment("pg-missing", "a@x.com")), model.ErrEventNotFound)
	assert.ErrorIs(t, s.enrollments.Create(ctx, enrollment(closedID, "a@x.com")), model.ErrRegistrationClosed)

	occ, err := s.enrollments.Occupancy(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, model.Occupancy{Capacity: 1, Occupied: 1}, occ)
}

func TestEnrollmentRepository_LastSlotRace(t *testing.T) {
	s := newPGStores(t, 5*time.Second)

	for round := range 20 {
		ctx := context.Background()
		eventID := s.seedEvent(t, 1, true)

		var ok, full atomic.Int32
		var g errgroup.Group
		for _, email := range []string{"a@x.com", "b@x.com"} {
			g.Go(func() error {
				err := s.enrollments.Create(ctx, enrollment(eventID, email))
				switch {
				case err == nil:
					ok.Add(1)
				case errors.Is(err, model.ErrEventFull):
					full.Add(1)
				default:
					return err
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())

		assert.Equal(t, int32(1), ok.Load(), "round %d", round)
		assert.Equal(t, int32(1), full.Load(), "round %d", round)
	}
}

func TestEnrollmentRepository_CapacityHoldsUnderContention(t *testing.T) {
	ctx := context.Background()
	s := newPGStores(t, 5*time.Second)
	const capacity = 5
	events := []string{s.seedEvent(t, capacity, true), s.seedEvent(t, capacity, true)}

	var accepted atomic.Int32
	var g errgroup.Group
	for i := range 30 {
		eventID := events[i%2]
		g.Go(func() error {
			err := s.enrollments.Create(ctx, enrollment(eventID, fmt.Sprintf("v%d@x.com", i)))
			if err == nil {
				accepted.Add(1)
				return nil
			}
			if errors.Is(err, model.ErrEventFull) {
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(2*capacity), accepted.Load())
	for _, id := range events {
		occ, err := s.enrollments.Occupancy(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, capacity, occ.Occupied)
	}
}

func TestEnrollmentRepository_SameEmailRace(t *testing.T) {
	ctx := context.Background()
	s := newPGStores(t, 5*time.Second)
	eventID := s.seedEvent(t, 0, true)

	var ok, dup atomic.Int32
	var g errgroup.Group
	for range 4 {
		g.Go(func() error {
			err := s.enrollments.Create(ctx, enrollment(eventID, "same@x.com"))
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, model.ErrDuplicateEnrollment):
				dup.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(3), dup.Load())
}

func TestEnrollmentRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	s := newPGStores(t, time.Second)
	eventID := s.seedEvent(t, 1, true)

	first := enrollment(eventID, "a@x.com")
	require.NoError(t, s.enrollments.Create(ctx, first))

	approved, err := s.enrollments.UpdateStatus(ctx, first.ID, model.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, approved.Status)

	_, err = s.enrollments.UpdateStatus(ctx, first.ID, model.StatusPending)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	_, err = s.enrollments.UpdateStatus(ctx, uuid.NewString(), model.StatusApproved)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = s.enrollments.UpdateStatus(ctx, first.ID, model.StatusCancelled)
	require.NoError(t, err)

	occ, err := s.enrollments.Occupancy(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, 0, occ.Occupied)

	// The cancelled row stays; the partial unique index lets the email back in.
	again := enrollment(eventID, "a@x.com")
	require.NoError(t, s.enrollments.Create(ctx, again))

	all, err := s.enrollments.ListByEvent(ctx, eventID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestEnrollmentRepository_RejectedIsTerminal(t *testing.T) {
	ctx := context.Background()
	s := newPGStores(t, time.Second)
	eventID := s.seedEvent(t, 1, true)

	e := enrollment(eventID, "a@x.com")
	require.NoError(t, s.enrollments.Create(ctx, e))

	_, err := s.enrollments.UpdateStatus(ctx, e.ID, model.StatusRejected)
	require.NoError(t, err)

	_, err = s.enrollments.UpdateStatus(ctx, e.ID, model.StatusApproved)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	got, err := s.enrollments.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, got.Status)
}

func TestEnrollmentRepository_OccupancyCountsOnlyOccupying(t *testing.T) {
	ctx := context.Background()
	s := newPGStores(t, time.Second)
	eventID := s.seedEvent(t, 0, true)

	occ, err := s.enrollments.Occupancy(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, model.Occupancy{Capacity: 0, Occupied: 0}, occ)

	a := enrollment(eventID, "a@x.com")
	b := enrollment(eventID, "b@x.com")
	require.NoError(t, s.enrollments.Create(ctx, a))
	require.NoError(t, s.enrollments.Create(ctx, b))
	_, err = s.enrollments.UpdateStatus(ctx, b.ID, model.StatusRejected)
	require.NoError(t, err)

	occ, err = s.enrollments.Occupancy(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, 1, occ.Occupied)

	_, err = s.enrollments.Occupancy(ctx, "pg-missing")
	assert.ErrorIs(t, err, model.ErrEventNotFound)
}

func TestEnrollmentRepository_LockedEventIsBusy(t *testing.T) {
	ctx := context.Background()
	s := newPGStores(t, 50*time.Millisecond)
	eventID := s.seedEvent(t, 5, true)
	otherID := s.seedEvent(t, 5, true)

	holder, err := s.pool.Begin(ctx)
	require.NoError(t, err)
	defer holder.Rollback(ctx)
	_, err = holder.Exec(ctx, `SELECT 1 FROM events WHERE id = $1 FOR UPDATE`, eventID)
	require.NoError(t, err)

	err = s.enrollments.Create(ctx, enrollment(eventID, "a@x.com"))
	assert.ErrorIs(t, err, model.ErrBusy)
	assert.True(t, model.Retryable(err))

	// Other events are not affected.
	require.NoError(t, s.enrollments.Create(ctx, enrollment(otherID, "a@x.com")))

	require.NoError(t, holder.Rollback(ctx))
	require.NoError(t, s.enrollments.Create(ctx, enrollment(eventID, "a@x.com")))
}

func TestEnrollmentRepository_DeleteFreesSlot(t *testing.T) {
	ctx := context.Background()
	s := newPGStores(t, time.Second)
	eventID := s.seedEvent(t, 1, true)

	e := enrollment(eventID, "a@x.com")
	require.NoError(t, s.enrollments.Create(ctx, e))
	assert.ErrorIs(t, s.enrollments.Create(ctx, enrollment(eventID, "b@x.com")), model.ErrEventFull)

	require.NoError(t, s.enrollments.Delete(ctx, e.ID))
	assert.ErrorIs(t, s.enrollments.Delete(ctx, e.ID), model.ErrNotFound)

	require.NoError(t, s.enrollments.Create(ctx, enrollment(eventID, "b@x.com")))
}

func TestLockTimeoutSetting(t *testing.T) {
	cases := map[time.Duration]string{
		0:                       "1ms",
		500 * time.Microsecond:  "1ms",
		time.Millisecond:        "1ms",
		1500 * time.Microsecond: "2ms",
		2 * time.Second:         "2000ms",
	}
	for d, want := range cases {
		assert.Equal(t, want, lockTimeoutSetting(d), d.String())
	}
}
