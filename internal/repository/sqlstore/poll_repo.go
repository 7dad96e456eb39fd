package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"where2meet/internal/domain/poll"
)

type pollRow struct {
	ID          int64        `db:"id"`
	GroupID     int64        `db:"group_id"`
	Question    string       `db:"question"`
	Status      string       `db:"status"`
	EndsAt      sql.NullTime `db:"ends_at"`
	CreatorID   int64        `db:"creator_id"`
	CreatorName string       `db:"creator_name"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
}

func (r pollRow) toDomain() *poll.Poll {
	p := &poll.Poll{
		ID:          r.ID,
		GroupID:     r.GroupID,
		Question:    r.Question,
		Status:      r.Status,
		CreatorID:   r.CreatorID,
		CreatorName: r.CreatorName,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.EndsAt.Valid {
		t := r.EndsAt.Time
		p.EndsAt = &t
	}
	return p
}

const pollColumns = `id, group_id, question, status, ends_at, creator_id, creator_name, created_at, updated_at`

type PollRepo struct {
	db *sqlx.DB
}

func NewPollRepo(db *sqlx.DB) *PollRepo {
	return &PollRepo{db: db}
}

func (r *PollRepo) Create(ctx context.Context, p *poll.Poll) (int64, error) {
	now := time.Now().UTC()
	var endsAt sql.NullTime
	if p.EndsAt != nil {
		endsAt = sql.NullTime{Time: p.EndsAt.UTC(), Valid: true}
	}

	query := r.db.Rebind(`
        INSERT INTO polls (group_id, question, status, ends_at, creator_id, creator_name, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        RETURNING id
    `)
	if err := r.db.QueryRowxContext(ctx, query,
		p.GroupID, p.Question, p.Status, endsAt, p.CreatorID, p.CreatorName, now, now,
	).Scan(&p.ID); err != nil {
		return 0, err
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return p.ID, nil
}

func (r *PollRepo) GetByID(ctx context.Context, id int64) (*poll.Poll, error) {
	var row pollRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+pollColumns+` FROM polls WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, poll.ErrPollNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *PollRepo) ListByGroup(ctx context.Context, groupID int64) ([]poll.Poll, error) {
	var rows []pollRow
	query := r.db.Rebind(`SELECT ` + pollColumns + ` FROM polls WHERE group_id = ? ORDER BY id DESC`)
	if err := r.db.SelectContext(ctx, &rows, query, groupID); err != nil {
		return nil, err
	}
	res := make([]poll.Poll, 0, len(rows))
	for _, row := range rows {
		res = append(res, *row.toDomain())
	}
	return res, nil
}

func (r *PollRepo) Update(ctx context.Context, id int64, input poll.UpdateInput) error {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	if input.Question != nil {
		sets = append(sets, "question = ?")
		args = append(args, *input.Question)
	}
	if input.EndsAt != nil {
		sets = append(sets, "ends_at = ?")
		args = append(args, input.EndsAt.UTC())
	}
	args = append(args, id)

	query := r.db.Rebind(`UPDATE polls SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
	return r.execOne(ctx, query, args...)
}

func (r *PollRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := r.db.Rebind(`UPDATE polls SET status = ?, updated_at = ? WHERE id = ?`)
	return r.execOne(ctx, query, status, time.Now().UTC(), id)
}

func (r *PollRepo) Delete(ctx context.Context, id int64) error {
	return r.execOne(ctx, r.db.Rebind(`DELETE FROM polls WHERE id = ?`), id)
}

func (r *PollRepo) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return poll.ErrPollNotFound
	}
	return nil
}
