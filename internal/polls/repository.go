package polls

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsevote/backend/internal/models"
)

// Repository handles poll persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a polls repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a poll and its zero-tally options in one transaction.
func (r *Repository) Create(ctx context.Context, p *models.Poll) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const insertPoll = `INSERT INTO polls (question, created_by, created_by_name, status, closing_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	if err := tx.QueryRow(ctx, insertPoll, p.Question, p.CreatedBy, p.CreatedByName, string(p.Status), p.ClosingAt).
		Scan(&p.ID, &p.CreatedAt); err != nil {
		return err
	}

	const insertOption = `INSERT INTO poll_options (poll_id, idx, label, votes) VALUES ($1, $2, $3, 0)`
	for i, opt := range p.Options {
		if _, err := tx.Exec(ctx, insertOption, p.ID, i, opt.Label); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// GetByID returns a poll with its options ordered by index.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	const q = `SELECT id, question, created_by, created_by_name, status, was_reopened, closing_at, created_at
		FROM polls WHERE id = $1`
	var p models.Poll
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&p.ID, &p.Question, &p.CreatedBy, &p.CreatedByName, &p.Status, &p.WasReopened, &p.ClosingAt, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT label, votes FROM poll_options WHERE poll_id = $1 ORDER BY idx`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var opt models.Option
		if err := rows.Scan(&opt.Label, &opt.Votes); err != nil {
			return nil, err
		}
		p.Options = append(p.Options, opt)
	}
	return &p, rows.Err()
}

// List returns all polls, newest first, with options attached.
func (r *Repository) List(ctx context.Context) ([]models.Poll, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, question, created_by, created_by_name, status, was_reopened, closing_at, created_at
		FROM polls ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Poll
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var p models.Poll
		if err := rows.Scan(&p.ID, &p.Question, &p.CreatedBy, &p.CreatedByName, &p.Status, &p.WasReopened, &p.ClosingAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		index[p.ID] = len(list)
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	optRows, err := r.pool.Query(ctx, `SELECT poll_id, label, votes FROM poll_options ORDER BY poll_id, idx`)
	if err != nil {
		return nil, err
	}
	defer optRows.Close()
	for optRows.Next() {
		var pollID uuid.UUID
		var opt models.Option
		if err := optRows.Scan(&pollID, &opt.Label, &opt.Votes); err != nil {
			return nil, err
		}
		if i, ok := index[pollID]; ok {
			list[i].Options = append(list[i].Options, opt)
		}
	}
	return list, optRows.Err()
}

// SetStatus updates a poll's status. Reopening marks was_reopened
// permanently; closing never clears it.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status models.PollStatus) error {
	const q = `UPDATE polls SET status = $2, was_reopened = was_reopened OR $3 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, string(status), status == models.PollOpen)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CloseExpired closes every open poll whose closing time has passed, in
// one bulk statement, and returns the number of polls changed.
func (r *Repository) CloseExpired(ctx context.Context, now time.Time) (int64, error) {
	const q = `UPDATE polls SET status = 'closed'
		WHERE status = 'open' AND closing_at IS NOT NULL AND closing_at < $1`
	tag, err := r.pool.Exec(ctx, q, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Delete removes a poll. Options and ledger entries go with it via
// cascading foreign keys, so no orphaned votes remain.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM polls WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
