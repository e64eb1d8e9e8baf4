package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/edupay/fincore/internal/apierror"
	"github.com/edupay/fincore/model"
)

// RecordVerificationAttempt upserts attempt metadata for a reference that
// did not settle. Only bookkeeping moves here; ledger state is never touched
// by a failed or pending verification.
func (d Datasource) RecordVerificationAttempt(ctx context.Context, reference, status string) error {
	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO verification_attempts (reference, attempts, last_status, last_checked_at)
		VALUES ($1, 1, $2, NOW())
		ON CONFLICT (reference)
		DO UPDATE SET attempts = verification_attempts.attempts + 1, last_status = $2, last_checked_at = NOW()
	`, reference, status)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record verification attempt", err)
	}
	return nil
}

func (d Datasource) GetVerificationAttempt(ctx context.Context, reference string) (*model.VerificationAttempt, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT id, reference, attempts, last_status, last_checked_at
		FROM verification_attempts
		WHERE reference = $1
	`, reference)

	attempt := &model.VerificationAttempt{}
	err := row.Scan(&attempt.ID, &attempt.Reference, &attempt.Attempts, &attempt.LastStatus, &attempt.LastCheckedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound,
				fmt.Sprintf("No verification attempts for reference '%s'", reference), nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve verification attempt", err)
	}
	return attempt, nil
}
