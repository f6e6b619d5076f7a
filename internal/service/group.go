package service

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/metrics"
	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/model"
	"go.uber.org/zap"
)

// Enroller creates a single enrollment.
type Enroller interface {
	CreateEnrollment(ctx context.Context, req model.CreateEnrollmentRequest) (*model.Enrollment, error)
}

// GroupRegistrar enrolls a requester and their guests for one event.
type GroupRegistrar struct {
	enroller Enroller
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// NewGroupRegistrar constructs a GroupRegistrar.
func NewGroupRegistrar(enroller Enroller, m *metrics.Metrics, log *zap.Logger) *GroupRegistrar {
	if log == nil {
		log = zap.NewNop()
	}
	return &GroupRegistrar{enroller: enroller, metrics: m, log: log}
}

// RegisterGroup attempts one enrollment per participant, in input order, and
// returns one result per participant in the same order. Each attempt commits
// on its own; a failure never stops the attempts after it and nothing already
// committed is rolled back. Once ctx is done the remaining participants fail
// with model.ErrBusy without being attempted.
func (g *GroupRegistrar) RegisterGroup(ctx context.Context, eventID string, participants []model.Participant) []model.ParticipantResult {
	g.metrics.ObserveGroup(len(participants))

	results := make([]model.ParticipantResult, len(participants))
	enrolled := 0
	for i, p := range participants {
		results[i].Participant = p

		if err := ctx.Err(); err != nil {
			results[i].Outcome = model.OutcomeFailed
			results[i].Err = fmt.Errorf("%w: %w", model.ErrBusy, err)
			continue
		}

		e, err := g.enroller.CreateEnrollment(ctx, model.CreateEnrollmentRequest{
			EventID: eventID,
			Name:    p.Name,
			Email:   p.Email,
		})
		if err != nil {
			results[i].Outcome = model.OutcomeFailed
			results[i].Err = err
			continue
		}
		results[i].Outcome = model.OutcomeEnrolled
		results[i].Enrollment = e
		enrolled++
	}

	g.log.Info("group registration finished",
		zap.String("event_id", eventID),
		zap.Int("participants", len(participants)),
		zap.Int("enrolled", enrolled),
		zap.Int("failed", len(participants)-enrolled),
	)
	return results
}
