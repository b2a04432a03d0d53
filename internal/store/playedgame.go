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

// PlayedGameRepository is the narrow persistence contract for PlayedGame
// rows (spec.md §4.6): the "do-not-assign-me-this-again" record consulted
// by AssignmentBuilder and written only by the /played command; the
// scheduler reads it but records nothing for the assignments it sends.
type PlayedGameRepository interface {
	// Submit records that member has played/rated link. isManual
	// marks a user-declared record (/played); the scheduler writes no
	// records.
	Submit(ctx context.Context, member uint64, link string, isManual bool) (domain.PlayedGame, error)
	ListForExchange(ctx context.Context, submitters []uint64) ([]domain.PlayedGame, error)
}

// PostgresPlayedGameRepository is the Postgres-backed PlayedGameRepository.
type PostgresPlayedGameRepository struct {
	db database.DB
}

func NewPostgresPlayedGameRepository(db database.DB) *PostgresPlayedGameRepository {
	return &PostgresPlayedGameRepository{db: db}
}

const playedGameColumns = `id, member, link, is_manual`

func scanPlayedGame(row pgx.Row) (domain.PlayedGame, error) {
	var pg domain.PlayedGame
	err := row.Scan(&pg.ID, &pg.Member, &pg.Link, &pg.IsManual)
	if err != nil {
		return domain.PlayedGame{}, err
	}
	return pg, nil
}

// Submit is idempotent on the unique (member, link) pair: a repeat
// declaration (manual or automatic) is a no-op rather than an error, since
// "I already know I played this" carries no new information.
func (r *PostgresPlayedGameRepository) Submit(ctx context.Context, member uint64, link string, isManual bool) (domain.PlayedGame, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresPlayedGameRepository.Submit")
	defer span.End()

	var pg domain.PlayedGame
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO played_games (member, link, is_manual)
			VALUES ($1, $2, $3)
			ON CONFLICT (member, link) DO UPDATE SET is_manual = played_games.is_manual OR EXCLUDED.is_manual
			RETURNING ` + playedGameColumns

		row := tx.QueryRow(ctx, query, member, link, isManual)
		scanned, scanErr := scanPlayedGame(row)
		if scanErr != nil {
			if errors.Is(scanErr, pgx.ErrNoRows) {
				return apperror.New(apperror.CodeNilInput, "played game insert returned no row")
			}
			return fmt.Errorf("insert played game: %w", scanErr)
		}
		pg = scanned
		return nil
	})
	if err != nil {
		return domain.PlayedGame{}, err
	}
	return pg, nil
}

// ListForExchange returns every played-game record for any of the given
// submitters, the raw material AssignmentBuilder.PlayedLinksByMember turns
// into its per-member exclusion set.
func (r *PostgresPlayedGameRepository) ListForExchange(ctx context.Context, submitters []uint64) ([]domain.PlayedGame, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresPlayedGameRepository.ListForExchange")
	defer span.End()

	if len(submitters) == 0 {
		return nil, nil
	}

	query := `SELECT ` + playedGameColumns + ` FROM played_games WHERE member = ANY($1) ORDER BY id`
	rows, err := r.db.Query(ctx, query, submitters)
	if err != nil {
		return nil, fmt.Errorf("list played games: %w", err)
	}
	defer rows.Close()

	var games []domain.PlayedGame
	for rows.Next() {
		pg, err := scanPlayedGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan played game row: %w", err)
		}
		games = append(games, pg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate played game rows: %w", err)
	}
	return games, nil
}
