package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/model"
	"go.uber.org/zap"
)

// SetStatus applies an administrative status transition. Moving into
// REJECTED or CANCELLED frees the slot for the next snapshot and the next
// CreateEnrollment.
func (s *EnrollmentService) SetStatus(ctx context.Context, id string, next model.Status) (*model.Enrollment, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: enrollment id is required", model.ErrInvalidInput)
	}
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", model.ErrInvalidInput, next)
	}

	e, err := s.store.UpdateStatus(ctx, id, next)
	if err != nil {
		s.logRejected("status change rejected", err,
			zap.String("enrollment_id", id),
			zap.String("to", string(next)),
		)
		return nil, err
	}

	s.metrics.ObserveTransition(next)
	s.log.Info("enrollment status changed",
		zap.String("enrollment_id", id),
		zap.String("event_id", e.EventID),
		zap.String("to", string(next)),
	)
	return e, nil
}
