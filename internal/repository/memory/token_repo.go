package memory

import (
	"context"
	"errors"
	"sync"

	"where2meet/internal/domain/share"
)

var errDuplicateDigest = errors.New("token digest already stored")

type TokenRepo struct {
	mu     sync.Mutex
	tokens map[string]share.Token
}

func NewTokenRepo() *TokenRepo {
	return &TokenRepo{tokens: make(map[string]share.Token)}
}

func (r *TokenRepo) Create(ctx context.Context, t *share.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[t.Digest]; ok {
		return errDuplicateDigest
	}
	r.tokens[t.Digest] = *t
	return nil
}

func (r *TokenRepo) GetByDigest(ctx context.Context, digest string) (*share.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[digest]
	if !ok {
		return nil, share.ErrTokenNotFound
	}
	return &t, nil
}

func (r *TokenRepo) Revoke(ctx context.Context, digest string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[digest]
	if !ok {
		return share.ErrTokenNotFound
	}
	t.Revoked = true
	r.tokens[digest] = t
	return nil
}

func (r *TokenRepo) RevokeByPoll(ctx context.Context, pollID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for d, t := range r.tokens {
		if t.PollID == pollID && !t.Revoked {
			t.Revoked = true
			r.tokens[d] = t
			n++
		}
	}
	return n, nil
}
