package share

import (
	"context"
	"time"
)

// Token is the stored form of a share link. Only the keyed digest of the
// token value is kept.
type Token struct {
	Digest    string
	PollID    int64
	IssuerID  int64
	CreatedAt time.Time
	ExpiresAt time.Time
	Revoked   bool
}

// IssuedToken is returned once, at issue time; the raw value is not
// recoverable afterwards.
type IssuedToken struct {
	Value     string    `json:"token"`
	PollID    int64     `json:"poll_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Repository interface {
	Create(ctx context.Context, t *Token) error
	GetByDigest(ctx context.Context, digest string) (*Token, error)
	Revoke(ctx context.Context, digest string) error
	RevokeByPoll(ctx context.Context, pollID int64) (int64, error)
}
