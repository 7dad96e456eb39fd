package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"where2meet/internal/domain/vote"
	"where2meet/internal/geo"
)

type voteRow struct {
	PollID      int64     `db:"poll_id"`
	VoterID     int64     `db:"voter_id"`
	Lat         float64   `db:"lat"`
	Lon         float64   `db:"lon"`
	Categories  string    `db:"categories"`
	SubmittedAt time.Time `db:"submitted_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type statsRow struct {
	VoteCount int64 `db:"vote_count"`
	Revision  int64 `db:"revision"`
}

// VoteRepo keeps votes in the votes table and a per-poll counter row in
// poll_vote_stats. Writers lock the counter row first, which serializes
// writes per poll.
type VoteRepo struct {
	db *sqlx.DB
}

func NewVoteRepo(db *sqlx.DB) *VoteRepo {
	return &VoteRepo{db: db}
}

func (r *VoteRepo) Upsert(ctx context.Context, v *vote.Vote) (vote.UpsertResult, error) {
	cats, err := json.Marshal(v.Categories)
	if err != nil {
		return vote.UpsertResult{}, fmt.Errorf("encode categories: %w", err)
	}

	var res vote.UpsertResult
	err = withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		stats, err := r.lockStats(ctx, tx, v.PollID)
		if err != nil {
			return err
		}
		res.Revision = stats.Revision

		var prev time.Time
		err = tx.GetContext(ctx, &prev, tx.Rebind(`
            SELECT submitted_at FROM votes WHERE poll_id = ? AND voter_id = ?
        `), v.PollID, v.VoterID)
		exists := err == nil
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if exists && v.SubmittedAt.Before(prev) {
			return nil
		}

		submitted, updated := v.SubmittedAt.UTC(), v.UpdatedAt.UTC()
		if exists {
			_, err = tx.ExecContext(ctx, tx.Rebind(`
                UPDATE votes SET lat = ?, lon = ?, categories = ?, submitted_at = ?, updated_at = ?
                WHERE poll_id = ? AND voter_id = ?
            `), v.Point.Lat, v.Point.Lon, string(cats), submitted, updated, v.PollID, v.VoterID)
		} else {
			_, err = tx.ExecContext(ctx, tx.Rebind(`
                INSERT INTO votes (poll_id, voter_id, seq, lat, lon, categories, submitted_at, updated_at)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?)
            `), v.PollID, v.VoterID, stats.Revision+1, v.Point.Lat, v.Point.Lon, string(cats), submitted, updated)
		}
		if err != nil {
			return err
		}

		added := int64(1)
		if exists {
			added = 0
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
            UPDATE poll_vote_stats SET vote_count = vote_count + ?, revision = revision + 1
            WHERE poll_id = ?
        `), added, v.PollID); err != nil {
			return err
		}

		res = vote.UpsertResult{Inserted: !exists, Applied: true, Revision: stats.Revision + 1}
		return nil
	})
	if err != nil {
		return vote.UpsertResult{}, err
	}
	return res, nil
}

func (r *VoteRepo) lockStats(ctx context.Context, tx *sqlx.Tx, pollID int64) (statsRow, error) {
	if _, err := tx.ExecContext(ctx, tx.Rebind(`
        INSERT INTO poll_vote_stats (poll_id, vote_count, revision) VALUES (?, 0, 0)
        ON CONFLICT (poll_id) DO NOTHING
    `), pollID); err != nil {
		return statsRow{}, err
	}

	query := `SELECT vote_count, revision FROM poll_vote_stats WHERE poll_id = ?`
	if isPostgres(r.db) {
		query += ` FOR UPDATE`
	}
	var s statsRow
	err := tx.GetContext(ctx, &s, tx.Rebind(query), pollID)
	return s, err
}

// Snapshot reads the counter and the votes in one transaction so the
// revision matches the returned rows.
func (r *VoteRepo) Snapshot(ctx context.Context, pollID int64) (vote.Snapshot, error) {
	var opts *sql.TxOptions
	if isPostgres(r.db) {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}

	var snap vote.Snapshot
	err := withTx(ctx, r.db, opts, func(tx *sqlx.Tx) error {
		var s statsRow
		err := tx.GetContext(ctx, &s, tx.Rebind(`SELECT vote_count, revision FROM poll_vote_stats WHERE poll_id = ?`), pollID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		var rows []voteRow
		if err := tx.SelectContext(ctx, &rows, tx.Rebind(`
            SELECT poll_id, voter_id, lat, lon, categories, submitted_at, updated_at
            FROM votes WHERE poll_id = ? ORDER BY seq
        `), pollID); err != nil {
			return err
		}

		votes := make([]vote.Vote, 0, len(rows))
		for _, row := range rows {
			var cats []string
			if err := json.Unmarshal([]byte(row.Categories), &cats); err != nil {
				return fmt.Errorf("decode categories of voter %d: %w", row.VoterID, err)
			}
			votes = append(votes, vote.Vote{
				PollID:      row.PollID,
				VoterID:     row.VoterID,
				Point:       geo.Point{Lat: row.Lat, Lon: row.Lon},
				Categories:  cats,
				SubmittedAt: row.SubmittedAt,
				UpdatedAt:   row.UpdatedAt,
			})
		}
		snap = vote.Snapshot{Votes: votes, Revision: s.Revision}
		return nil
	})
	return snap, err
}

func (r *VoteRepo) Count(ctx context.Context, pollID int64) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT vote_count FROM poll_vote_stats WHERE poll_id = ?`), pollID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

// DeleteByPoll removes the votes and bumps the revision so results cached
// for the old vote set are not reused.
func (r *VoteRepo) DeleteByPoll(ctx context.Context, pollID int64) error {
	return withTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM votes WHERE poll_id = ?`), pollID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, tx.Rebind(`
            UPDATE poll_vote_stats SET vote_count = 0, revision = revision + 1 WHERE poll_id = ?
        `), pollID)
		return err
	})
}
