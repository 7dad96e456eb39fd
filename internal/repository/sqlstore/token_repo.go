package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"where2meet/internal/domain/share"
)

var ErrDuplicateToken = errors.New("token digest already stored")

type tokenRow struct {
	Digest    string    `db:"digest"`
	PollID    int64     `db:"poll_id"`
	IssuerID  int64     `db:"issuer_id"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
	Revoked   bool      `db:"revoked"`
}

type TokenRepo struct {
	db *sqlx.DB
}

func NewTokenRepo(db *sqlx.DB) *TokenRepo {
	return &TokenRepo{db: db}
}

func (r *TokenRepo) Create(ctx context.Context, t *share.Token) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
        INSERT INTO share_tokens (digest, poll_id, issuer_id, created_at, expires_at, revoked)
        VALUES (?, ?, ?, ?, ?, ?)
    `), t.Digest, t.PollID, t.IssuerID, t.CreatedAt.UTC(), t.ExpiresAt.UTC(), t.Revoked)
	if isUniqueViolation(err) {
		return ErrDuplicateToken
	}
	return err
}

func (r *TokenRepo) GetByDigest(ctx context.Context, digest string) (*share.Token, error) {
	var row tokenRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
        SELECT digest, poll_id, issuer_id, created_at, expires_at, revoked
        FROM share_tokens WHERE digest = ?
    `), digest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, share.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &share.Token{
		Digest:    row.Digest,
		PollID:    row.PollID,
		IssuerID:  row.IssuerID,
		CreatedAt: row.CreatedAt,
		ExpiresAt: row.ExpiresAt,
		Revoked:   row.Revoked,
	}, nil
}

func (r *TokenRepo) Revoke(ctx context.Context, digest string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE share_tokens SET revoked = ? WHERE digest = ?`), true, digest)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return share.ErrTokenNotFound
	}
	return nil
}

func (r *TokenRepo) RevokeByPoll(ctx context.Context, pollID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
        UPDATE share_tokens SET revoked = ? WHERE poll_id = ? AND revoked = ?
    `), true, pollID, false)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
