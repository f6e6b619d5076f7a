// Package service implements enrollment admission, group registration,
// status lifecycle and the read models built on top of them.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/metrics"
	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/model"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EnrollmentStore is the durable enrollment collection. Create must perform
// the duplicate check, the capacity check and the insert as one atomic unit
// per event.
type EnrollmentStore interface {
	Create(ctx context.Context, e *model.Enrollment) error
	Get(ctx context.Context, id string) (*model.Enrollment, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, next model.Status) (*model.Enrollment, error)
	Occupancy(ctx context.Context, eventID string) (model.Occupancy, error)
	ListByEvent(ctx context.Context, eventID string, statuses []model.Status) ([]model.Enrollment, error)
	ListOccupyingByEmail(ctx context.Context, email string) ([]model.Enrollment, error)
}

// EventSource looks up events owned by the directory.
type EventSource interface {
	GetEvent(ctx context.Context, id string) (*model.Event, error)
}

var validate = validator.New()

// EnrollmentService creates, removes and transitions enrollments.
type EnrollmentService struct {
	store   EnrollmentStore
	events  EventSource
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(store EnrollmentStore, events EventSource, m *metrics.Metrics, log *zap.Logger) *EnrollmentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &EnrollmentService{
		store:   store,
		events:  events,
		metrics: m,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateEnrollment validates the request and asks the store to admit it.
// The email is normalized here, the one place enrollments are created.
func (s *EnrollmentService) CreateEnrollment(ctx context.Context, req model.CreateEnrollmentRequest) (*model.Enrollment, error) {
	req.EventID = strings.TrimSpace(req.EventID)
	req.Name = strings.TrimSpace(req.Name)
	req.Email = model.NormalizeEmail(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Message = strings.TrimSpace(req.Message)

	if err := validate.Struct(req); err != nil {
		err = invalidInput(err)
		s.metrics.ObserveEnrollment(err)
		return nil, err
	}

	now := s.now()
	e := &model.Enrollment{
		ID:             uuid.NewString(),
		EventID:        req.EventID,
		VolunteerName:  req.Name,
		VolunteerEmail: req.Email,
		Phone:          req.Phone,
		Message:        req.Message,
		Status:         model.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.store.Create(ctx, e)
	s.metrics.ObserveEnrollment(err)
	if err != nil {
		s.logRejected("enrollment rejected", err,
			zap.String("event_id", e.EventID),
			zap.String("email", e.VolunteerEmail),
		)
		return nil, err
	}

	s.log.Info("enrollment created",
		zap.String("enrollment_id", e.ID),
		zap.String("event_id", e.EventID),
		zap.String("email", e.VolunteerEmail),
	)
	return e, nil
}

// GetEnrollment returns one enrollment by id.
func (s *EnrollmentService) GetEnrollment(ctx context.Context, id string) (*model.Enrollment, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: enrollment id is required", model.ErrInvalidInput)
	}
	return s.store.Get(ctx, id)
}

// ListEnrollments returns an event's enrollments, optionally filtered by status.
func (s *EnrollmentService) ListEnrollments(ctx context.Context, eventID string, statuses []model.Status) ([]model.Enrollment, error) {
	if _, err := s.events.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.store.ListByEvent(ctx, eventID, statuses)
}

// DeleteEnrollment hard-removes an enrollment, freeing its slot.
func (s *EnrollmentService) DeleteEnrollment(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: enrollment id is required", model.ErrInvalidInput)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		s.logRejected("enrollment delete failed", err, zap.String("enrollment_id", id))
		return err
	}
	s.log.Info("enrollment deleted", zap.String("enrollment_id", id))
	return nil
}

// logRejected logs expected rejections at warn and infrastructure faults at
// error.
func (s *EnrollmentService) logRejected(msg string, err error, fields ...zap.Field) {
	kind := model.KindOf(err)
	fields = append(fields, zap.String("error_kind", string(kind)), zap.Error(err))
	if kind == model.KindStorageUnavailable {
		s.log.Error(msg, fields...)
		return
	}
	s.log.Warn(msg, fields...)
}

func invalidInput(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", model.ErrInvalidInput, strings.Join(msgs, ", "))
}
