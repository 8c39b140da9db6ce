package voting

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsevote/backend/internal/models"
)

// pgerrUniqueViolation is the PostgreSQL error code for unique_violation.
const pgerrUniqueViolation = "23505"

// Repository is the vote ledger: one row per (user, poll), enforced by a
// unique constraint, plus the stored per-option tallies it keeps in sync.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a voting repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Cast appends a ledger entry and increments the matching option tally in
// one transaction, so the two can never diverge on a crash. The tally
// update is a storage-side add, immune to lost updates under concurrent
// votes; a unique violation on the insert maps to ErrAlreadyVoted.
func (r *Repository) Cast(ctx context.Context, v *models.Vote) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const insertVote = `INSERT INTO votes (user_id, poll_id, option_idx)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	err = tx.QueryRow(ctx, insertVote, v.UserID, v.PollID, v.OptionIndex).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrUniqueViolation {
			return ErrAlreadyVoted
		}
		return err
	}

	const bumpTally = `UPDATE poll_options SET votes = votes + 1 WHERE poll_id = $1 AND idx = $2`
	if _, err := tx.Exec(ctx, bumpTally, v.PollID, v.OptionIndex); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// VotedPollIDs returns the ids of all polls the user has voted on.
func (r *Repository) VotedPollIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT poll_id FROM votes WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// VotersByPoll returns a poll's ledger entries joined with voter display
// names, newest first.
func (r *Repository) VotersByPoll(ctx context.Context, pollID uuid.UUID) ([]models.VoterRecord, error) {
	const q = `SELECT v.id, COALESCE(NULLIF(u.full_name, ''), u.handle), v.option_idx, v.created_at
		FROM votes v
		JOIN users u ON u.id = v.user_id
		WHERE v.poll_id = $1
		ORDER BY v.created_at DESC`
	rows, err := r.pool.Query(ctx, q, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.VoterRecord
	for rows.Next() {
		var rec models.VoterRecord
		if err := rows.Scan(&rec.ID, &rec.VoterName, &rec.OptionIndex, &rec.VotedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// HistoryByUser returns the user's votes joined with poll question,
// status and the chosen option label, newest first. Votes on deleted
// polls are gone by cascade, so every row resolves.
func (r *Repository) HistoryByUser(ctx context.Context, userID uuid.UUID) ([]models.VoteHistoryEntry, error) {
	const q = `SELECT v.id, p.id, p.question, o.label, p.status, v.created_at
		FROM votes v
		JOIN polls p ON p.id = v.poll_id
		JOIN poll_options o ON o.poll_id = v.poll_id AND o.idx = v.option_idx
		WHERE v.user_id = $1
		ORDER BY v.created_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []models.VoteHistoryEntry
	for rows.Next() {
		var e models.VoteHistoryEntry
		if err := rows.Scan(&e.ID, &e.PollID, &e.Question, &e.OptionLabel, &e.PollStatus, &e.VotedAt); err != nil {
			return nil, err
		}
		history = append(history, e)
	}
	return history, rows.Err()
}
