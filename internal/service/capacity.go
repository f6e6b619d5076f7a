package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/model"
)

// Ledger derives capacity snapshots from the live enrollment set.
type Ledger struct {
	store EnrollmentStore
}

// NewLedger constructs a Ledger.
func NewLedger(store EnrollmentStore) *Ledger {
	return &Ledger{store: store}
}

// GetSnapshot returns the event's current total, occupied and available slots.
func (l *Ledger) GetSnapshot(ctx context.Context, eventID string) (*model.CapacitySnapshot, error) {
	if strings.TrimSpace(eventID) == "" {
		return nil, fmt.Errorf("%w: event id is required", model.ErrInvalidInput)
	}
	occ, err := l.store.Occupancy(ctx, eventID)
	if err != nil {
		return nil, err
	}
	snap := model.NewCapacitySnapshot(eventID, occ)
	return &snap, nil
}
