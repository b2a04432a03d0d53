package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ratingxchange/internal/domain"
	"ratingxchange/pkg/apperror"
	"ratingxchange/pkg/database"
	"ratingxchange/pkg/telemetry"
)

// SubmissionRepository is the narrow persistence contract for Submission
// rows (spec.md §4.5).
type SubmissionRepository interface {
	// GetConflict reports an existing submission in the same exchange whose
	// link equals in.Link and whose submitter differs from in.Submitter, or
	// nil when there is none. A submission by the same submitter, under any
	// link, is not reported.
	GetConflict(ctx context.Context, in domain.NewSubmission) (*domain.Submission, error)
	// Upsert inserts a new submission, or replaces the submitter's existing
	// one in this exchange if they already have one (spec.md §4.5 "/submit
	// replaces a prior submission from the same member").
	Upsert(ctx context.Context, in domain.NewSubmission) (domain.Submission, error)
	// Revoke deletes the submitter's submission in the given exchange while
	// that exchange is AcceptingSubmissions, reporting whether a row was
	// deleted; in any other state it deletes nothing and reports false.
	Revoke(ctx context.Context, exchangeID domain.ExchangeID, submitter uint64) (bool, error)
	ListForExchange(ctx context.Context, exchangeID domain.ExchangeID) ([]domain.Submission, error)
}

// PostgresSubmissionRepository is the Postgres-backed SubmissionRepository.
type PostgresSubmissionRepository struct {
	db database.DB
}

func NewPostgresSubmissionRepository(db database.DB) *PostgresSubmissionRepository {
	return &PostgresSubmissionRepository{db: db}
}

const submissionColumns = `id, exchange_id, link, submitter, submitted_at`

func scanSubmission(row pgx.Row) (domain.Submission, error) {
	var s domain.Submission
	err := row.Scan(&s.ID, &s.ExchangeID, &s.Link, &s.Submitter, &s.SubmittedAt)
	if err != nil {
		return domain.Submission{}, err
	}
	s.SubmittedAt = s.SubmittedAt.UTC()
	return s, nil
}

func scanSubmissions(rows pgx.Rows) ([]domain.Submission, error) {
	defer rows.Close()
	var submissions []domain.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission row: %w", err)
		}
		submissions = append(submissions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submission rows: %w", err)
	}
	return submissions, nil
}

func (r *PostgresSubmissionRepository) GetConflict(ctx context.Context, in domain.NewSubmission) (*domain.Submission, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresSubmissionRepository.GetConflict")
	defer span.End()

	query := `
		SELECT ` + submissionColumns + ` FROM submissions
		WHERE exchange_id = $1 AND link = $2 AND submitter != $3
		LIMIT 1`

	row := r.db.QueryRow(ctx, query, in.ExchangeID, in.Link, in.Submitter)
	s, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query submission conflict: %w", err)
	}
	return &s, nil
}

// Upsert relies on the unique (exchange_id, submitter) constraint: a
// conflict there means "this member already has a submission, replace its
// link" rather than an error (spec.md §4.5).
func (r *PostgresSubmissionRepository) Upsert(ctx context.Context, in domain.NewSubmission) (domain.Submission, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresSubmissionRepository.Upsert")
	defer span.End()

	var s domain.Submission
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO submissions (exchange_id, link, submitter, submitted_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (exchange_id, submitter)
			DO UPDATE SET link = EXCLUDED.link, submitted_at = EXCLUDED.submitted_at
			RETURNING ` + submissionColumns

		row := tx.QueryRow(ctx, query, in.ExchangeID, in.Link, in.Submitter)
		scanned, scanErr := scanSubmission(row)
		if scanErr != nil {
			if isUniqueViolation(scanErr) && pgConstraintName(scanErr) == "submissions_exchange_id_link_key" {
				return apperror.NewUser(apperror.CodeDuplicateSubmission, "that link has already been submitted to this exchange")
			}
			return fmt.Errorf("upsert submission: %w", scanErr)
		}
		s = scanned
		return nil
	})
	if err != nil {
		return domain.Submission{}, err
	}
	return s, nil
}

// Revoke deletes the submitter's submission, but only while the parent
// exchange is still AcceptingSubmissions (spec.md §4.5): once an exchange
// has closed, its submission set is fixed input to the assignment that
// may already be in flight.
func (r *PostgresSubmissionRepository) Revoke(ctx context.Context, exchangeID domain.ExchangeID, submitter uint64) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresSubmissionRepository.Revoke")
	defer span.End()

	var revoked bool
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		query := `
			DELETE FROM submissions
			WHERE exchange_id = $1 AND submitter = $2
			AND EXISTS (
				SELECT 1 FROM exchanges
				WHERE exchanges.id = submissions.exchange_id AND exchanges.state = $3
			)`
		tag, err := tx.Exec(ctx, query, exchangeID, submitter, domain.ExchangeAcceptingSubmissions)
		if err != nil {
			return fmt.Errorf("revoke submission: %w", err)
		}
		revoked = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return revoked, nil
}

func (r *PostgresSubmissionRepository) ListForExchange(ctx context.Context, exchangeID domain.ExchangeID) ([]domain.Submission, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresSubmissionRepository.ListForExchange")
	defer span.End()

	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE exchange_id = $1 ORDER BY id`
	rows, err := r.db.Query(ctx, query, exchangeID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return scanSubmissions(rows)
}
