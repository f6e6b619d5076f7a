// Package repository implements enrollment storage. The Postgres store uses
// pgx directly (no ORM); the memory store offers the same guarantees for
// tests and local runs.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/model"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes the store reacts to.
const (
	codeUniqueViolation  = "23505"
	codeLockNotAvailable = "55P03"
	codeQueryCanceled    = "57014"
)

// classify wraps a driver error in the enrollment error kind it represents.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeLockNotAvailable, codeQueryCanceled:
			return fmt.Errorf("%s: %w", op, model.ErrBusy)
		case codeUniqueViolation:
			return fmt.Errorf("%s: %w", op, model.ErrDuplicateEnrollment)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %w", op, model.ErrBusy, err)
	}

	return fmt.Errorf("%s: %w: %w", op, model.ErrStorageUnavailable, err)
}
