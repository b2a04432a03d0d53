package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ratingxchange/internal/domain"
	"ratingxchange/internal/store/changefeed"
	"ratingxchange/pkg/apperror"
	"ratingxchange/pkg/database"
	"ratingxchange/pkg/telemetry"
)

// ExchangeRepository is the narrow persistence contract for Exchange rows
// (spec.md §4.4). All datetime inputs are UTC.
type ExchangeRepository interface {
	Create(ctx context.Context, ex domain.NewExchange) (domain.Exchange, error)
	GetOverlapping(ctx context.Context, guild, channel uint64, slug string, start, end time.Time) ([]domain.Exchange, error)
	GetRunning(ctx context.Context, guild, channel uint64, at time.Time) (*domain.Exchange, error)
	GetUpcoming(ctx context.Context, guild uint64, after time.Time) ([]domain.Exchange, error)
	GetStarting(ctx context.Context, at time.Time) ([]domain.Exchange, error)
	GetEnding(ctx context.Context, at time.Time) ([]domain.Exchange, error)
	ClosestEventTime(ctx context.Context) (*time.Time, error)
	UpdateState(ctx context.Context, id domain.ExchangeID, state domain.ExchangeState) error
	Delete(ctx context.Context, guild uint64, slug string) (bool, error)
	// Subscribe returns a change-event channel and an unsubscribe func. The
	// channel delivers an advisory Event after every successful Create or
	// Delete (spec.md §4.4 "subscribe").
	Subscribe() (<-chan changefeed.Event, func())
}

// PostgresExchangeRepository is the Postgres-backed ExchangeRepository.
type PostgresExchangeRepository struct {
	db  database.DB
	hub *changefeed.Hub
}

// NewPostgresExchangeRepository returns a repository backed by db, whose
// change channel is the given hub (shared with no one else — one hub per
// repository instance, per spec.md §4.7's single-writer assumption).
func NewPostgresExchangeRepository(db database.DB, hub *changefeed.Hub) *PostgresExchangeRepository {
	return &PostgresExchangeRepository{db: db, hub: hub}
}

func (r *PostgresExchangeRepository) Subscribe() (<-chan changefeed.Event, func()) {
	return r.hub.Subscribe()
}

const exchangeColumns = `id, guild, channel, jam_type, jam_link, slug, display_name, state, submissions_start, submissions_end, games_per_member`

func scanExchange(row pgx.Row) (domain.Exchange, error) {
	var ex domain.Exchange
	err := row.Scan(
		&ex.ID, &ex.Guild, &ex.Channel, &ex.JamType, &ex.JamLink, &ex.Slug,
		&ex.DisplayName, &ex.State, &ex.SubmissionsStart, &ex.SubmissionsEnd, &ex.GamesPerMember,
	)
	if err != nil {
		return domain.Exchange{}, err
	}
	ex.SubmissionsStart = ex.SubmissionsStart.UTC()
	ex.SubmissionsEnd = ex.SubmissionsEnd.UTC()
	return ex, nil
}

func scanExchanges(rows pgx.Rows) ([]domain.Exchange, error) {
	defer rows.Close()
	var exchanges []domain.Exchange
	for rows.Next() {
		ex, err := scanExchange(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exchange row: %w", err)
		}
		exchanges = append(exchanges, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exchange rows: %w", err)
	}
	return exchanges, nil
}

// Create inserts an exchange with state NotStartedYet. The caller is
// expected to have already called GetOverlapping and surfaced a user error
// on conflict (spec.md §4.4); Create itself only guards the unique
// (guild, slug) constraint as a last line of defense against a race.
func (r *PostgresExchangeRepository) Create(ctx context.Context, in domain.NewExchange) (domain.Exchange, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresExchangeRepository.Create")
	defer span.End()

	var ex domain.Exchange
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO exchanges (guild, channel, jam_type, jam_link, slug, display_name, state, submissions_start, submissions_end, games_per_member)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING ` + exchangeColumns

		row := tx.QueryRow(ctx, query,
			in.Guild, in.Channel, in.JamType, in.JamLink, in.Slug, in.DisplayName,
			domain.ExchangeNotStartedYet, in.SubmissionsStart.UTC(), in.SubmissionsEnd.UTC(), in.GamesPerMember,
		)
		scanned, scanErr := scanExchange(row)
		if scanErr != nil {
			if isUniqueViolation(scanErr) {
				return apperror.NewUser(apperror.CodeExchangeAlreadyExists, "an exchange with that slug already exists in this server")
			}
			return fmt.Errorf("insert exchange: %w", scanErr)
		}
		ex = scanned
		return nil
	})
	if err != nil {
		return domain.Exchange{}, err
	}

	r.hub.Publish(changefeed.Event{})
	return ex, nil
}

func (r *PostgresExchangeRepository) GetOverlapping(ctx context.Context, guild, channel uint64, slug string, start, end time.Time) ([]domain.Exchange, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresExchangeRepository.GetOverlapping")
	defer span.End()

	query := `
		SELECT ` + exchangeColumns + ` FROM exchanges
		WHERE guild = $1 AND (
			(channel = $2 AND submissions_start < $4 AND submissions_end > $3)
			OR slug = $5
		)`

	rows, err := r.db.Query(ctx, query, guild, channel, start.UTC(), end.UTC(), slug)
	if err != nil {
		return nil, fmt.Errorf("query overlapping exchanges: %w", err)
	}
	return scanExchanges(rows)
}

func (r *PostgresExchangeRepository) GetRunning(ctx context.Context, guild, channel uint64, at time.Time) (*domain.Exchange, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresExchangeRepository.GetRunning")
	defer span.End()

	query := `
		SELECT ` + exchangeColumns + ` FROM exchanges
		WHERE guild = $1 AND channel = $2 AND state = $3
		AND submissions_start <= $4 AND submissions_end > $4
		LIMIT 1`

	row := r.db.QueryRow(ctx, query, guild, channel, domain.ExchangeAcceptingSubmissions, at.UTC())
	ex, err := scanExchange(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query running exchange: %w", err)
	}
	return &ex, nil
}

func (r *PostgresExchangeRepository) GetUpcoming(ctx context.Context, guild uint64, after time.Time) ([]domain.Exchange, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresExchangeRepository.GetUpcoming")
	defer span.End()

	query := `
		SELECT ` + exchangeColumns + ` FROM exchanges
		WHERE guild = $1 AND submissions_start > $2
		ORDER BY submissions_start, display_name`

	rows, err := r.db.Query(ctx, query, guild, after.UTC())
	if err != nil {
		return nil, fmt.Errorf("query upcoming exchanges: %w", err)
	}
	return scanExchanges(rows)
}

func (r *PostgresExchangeRepository) GetStarting(ctx context.Context, at time.Time) ([]domain.Exchange, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresExchangeRepository.GetStarting")
	defer span.End()

	query := `
		SELECT ` + exchangeColumns + ` FROM exchanges
		WHERE state = $1 AND submissions_start <= $2`

	rows, err := r.db.Query(ctx, query, domain.ExchangeNotStartedYet, at.UTC())
	if err != nil {
		return nil, fmt.Errorf("query starting exchanges: %w", err)
	}
	return scanExchanges(rows)
}

func (r *PostgresExchangeRepository) GetEnding(ctx context.Context, at time.Time) ([]domain.Exchange, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresExchangeRepository.GetEnding")
	defer span.End()

	query := `
		SELECT ` + exchangeColumns + ` FROM exchanges
		WHERE state = $1 AND submissions_end <= $2`

	rows, err := r.db.Query(ctx, query, domain.ExchangeAcceptingSubmissions, at.UTC())
	if err != nil {
		return nil, fmt.Errorf("query ending exchanges: %w", err)
	}
	return scanExchanges(rows)
}

func (r *PostgresExchangeRepository) ClosestEventTime(ctx context.Context) (*time.Time, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresExchangeRepository.ClosestEventTime")
	defer span.End()

	query := `
		SELECT MIN(t) FROM (
			SELECT submissions_start AS t FROM exchanges WHERE state = $1
			UNION ALL
			SELECT submissions_end AS t FROM exchanges WHERE state = $2
		) events`

	var closest *time.Time
	err := r.db.QueryRow(ctx, query, domain.ExchangeNotStartedYet, domain.ExchangeAcceptingSubmissions).Scan(&closest)
	if err != nil {
		return nil, fmt.Errorf("query closest event time: %w", err)
	}
	if closest != nil {
		utc := closest.UTC()
		closest = &utc
	}
	return closest, nil
}

// UpdateState transitions an exchange's state. Only the scheduler calls
// this (spec.md §4.7 "Concurrency contract for state transitions").
func (r *PostgresExchangeRepository) UpdateState(ctx context.Context, id domain.ExchangeID, state domain.ExchangeState) error {
	ctx, span := telemetry.StartSpan(ctx, "PostgresExchangeRepository.UpdateState")
	defer span.End()

	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `UPDATE exchanges SET state = $2 WHERE id = $1`, id, state)
		if err != nil {
			return fmt.Errorf("update exchange state: %w", err)
		}
		return nil
	})
}

// Delete removes the exchange at (guild, slug), but only while it hasn't
// started accepting submissions yet (spec.md §3) — the state check lives
// in the query itself so a concurrent scheduler transition can't race past
// it.
func (r *PostgresExchangeRepository) Delete(ctx context.Context, guild uint64, slug string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresExchangeRepository.Delete")
	defer span.End()

	var deleted bool
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM exchanges WHERE guild = $1 AND slug = $2 AND state = $3`,
			guild, slug, domain.ExchangeNotStartedYet)
		if err != nil {
			return fmt.Errorf("delete exchange: %w", err)
		}
		if tag.RowsAffected() > 1 {
			telemetry.AddEvent(ctx, "anomaly: more than one exchange deleted by (guild, slug)")
		}
		deleted = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, err
	}

	if deleted {
		r.hub.Publish(changefeed.Event{})
	}
	return deleted, nil
}
