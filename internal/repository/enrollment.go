package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const enrollmentColumns = `id, event_id, volunteer_name, volunteer_email, phone, message, status, created_at, updated_at`

// EnrollmentRepository handles persistence for enrollments.
type EnrollmentRepository struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

// NewEnrollmentRepository constructs an EnrollmentRepository. lockTimeout
// bounds how long Create waits for the event's row lock before failing
// with model.ErrBusy.
func NewEnrollmentRepository(db *pgxpool.Pool, lockTimeout time.Duration) *EnrollmentRepository {
	return &EnrollmentRepository{db: db, lockTimeout: lockTimeout}
}

// Create inserts e if the event accepts it, as one atomic unit per event.
//
// The event row is locked with SELECT … FOR UPDATE, so concurrent creators
// for the same event run one at a time: the duplicate check, the occupancy
// count and the insert all see what the previous creator committed. Creators
// for different events lock different rows and never contend. The partial
// unique index on (event_id, volunteer_email) backs the duplicate check.
func (r *EnrollmentRepository) Create(ctx context.Context, e *model.Enrollment) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return classify("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if _, err = tx.Exec(ctx,
		`SELECT set_config('lock_timeout', $1, true)`,
		lockTimeoutSetting(r.lockTimeout),
	); err != nil {
		return classify("set lock timeout", err)
	}

	var capacity int
	var open bool
	err = tx.QueryRow(ctx,
		`SELECT capacity, registration_open
		 FROM events
		 WHERE id = $1
		 FOR UPDATE`,
		e.EventID,
	).Scan(&capacity, &open)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrEventNotFound
		}
		return classify("lock event row", err)
	}
	if !open {
		return model.ErrRegistrationClosed
	}

	occupying := model.StatusStrings(model.OccupyingStatuses)

	var dupCount int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM enrollments
		 WHERE event_id = $1 AND volunteer_email = $2 AND status = ANY($3)`,
		e.EventID, e.VolunteerEmail, occupying,
	).Scan(&dupCount)
	if err != nil {
		return classify("check duplicate", err)
	}
	if dupCount > 0 {
		return model.ErrDuplicateEnrollment
	}

	occ := model.Occupancy{Capacity: capacity}
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM enrollments WHERE event_id = $1 AND status = ANY($2)`,
		e.EventID, occupying,
	).Scan(&occ.Occupied)
	if err != nil {
		return classify("count occupied", err)
	}
	if !occ.Admits() {
		return model.ErrEventFull
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO enrollments (`+enrollmentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.EventID, e.VolunteerName, e.VolunteerEmail,
		nullable(e.Phone), nullable(e.Message), string(e.Status), e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return classify("insert enrollment", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return classify("commit transaction", err)
	}
	return nil
}

// Get returns one enrollment or model.ErrNotFound.
func (r *EnrollmentRepository) Get(ctx context.Context, id string) (*model.Enrollment, error) {
	e, err := scanEnrollment(r.db.QueryRow(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, classify("get enrollment", err)
	}
	return e, nil
}

// Delete hard-removes an enrollment, freeing its slot if it held one.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return classify("delete enrollment", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// UpdateStatus moves an enrollment to next in a single conditional update
// that only matches rows whose current status may reach next.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, next model.Status) (*model.Enrollment, error) {
	e, err := scanEnrollment(r.db.QueryRow(ctx,
		`UPDATE enrollments
		 SET status = $2, updated_at = $3
		 WHERE id = $1 AND status = ANY($4)
		 RETURNING `+enrollmentColumns,
		id, string(next), time.Now().UTC(), model.StatusStrings(model.SourcesOf(next)),
	))
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, classify("update status", err)
	}

	var exists bool
	if err = r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM enrollments WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return nil, classify("check enrollment", err)
	}
	if !exists {
		return nil, model.ErrNotFound
	}
	return nil, model.ErrInvalidTransition
}

// Occupancy reads an event's capacity and occupied count in one statement.
func (r *EnrollmentRepository) Occupancy(ctx context.Context, eventID string) (model.Occupancy, error) {
	var occ model.Occupancy
	err := r.db.QueryRow(ctx,
		`SELECT e.capacity, COUNT(en.id)
		 FROM events e
		 LEFT JOIN enrollments en
		   ON en.event_id = e.id
		   AND en.status = ANY($2)
		 WHERE e.id = $1
		 GROUP BY e.id`,
		eventID, model.StatusStrings(model.OccupyingStatuses),
	).Scan(&occ.Capacity, &occ.Occupied)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return occ, model.ErrEventNotFound
		}
		return occ, classify("read occupancy", err)
	}
	return occ, nil
}

// ListByEvent returns an event's enrollments in creation order, optionally
// restricted to the given statuses.
func (r *EnrollmentRepository) ListByEvent(ctx context.Context, eventID string, statuses []model.Status) ([]model.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE event_id = $1`
	args := []any{eventID}
	if len(statuses) > 0 {
		query += ` AND status = ANY($2)`
		args = append(args, model.StatusStrings(statuses))
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("list enrollments", err)
	}
	return collectEnrollments(rows)
}

// ListOccupyingByEmail returns every occupying enrollment held by email.
func (r *EnrollmentRepository) ListOccupyingByEmail(ctx context.Context, email string) ([]model.Enrollment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+enrollmentColumns+`
		 FROM enrollments
		 WHERE volunteer_email = $1 AND status = ANY($2)
		 ORDER BY created_at ASC, id ASC`,
		email, model.StatusStrings(model.OccupyingStatuses),
	)
	if err != nil {
		return nil, classify("list volunteer enrollments", err)
	}
	return collectEnrollments(rows)
}

func collectEnrollments(rows pgx.Rows) ([]model.Enrollment, error) {
	defer rows.Close()

	var out []model.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, classify("scan enrollment", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate enrollments", err)
	}
	return out, nil
}

func scanEnrollment(row pgx.Row) (*model.Enrollment, error) {
	var e model.Enrollment
	var phone, message *string
	var status string
	if err := row.Scan(
		&e.ID, &e.EventID, &e.VolunteerName, &e.VolunteerEmail,
		&phone, &message, &status, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if phone != nil {
		e.Phone = *phone
	}
	if message != nil {
		e.Message = *message
	}
	e.Status = model.Status(status)
	return &e, nil
}

// lockTimeoutSetting renders d as a Postgres lock_timeout value, rounded up
// to whole milliseconds. Postgres treats 0 as no limit, so it never returns
// "0ms".
func lockTimeoutSetting(d time.Duration) string {
	ms := (d + time.Millisecond - 1) / time.Millisecond
	return fmt.Sprintf("%dms", int64(max(ms, 1)))
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
