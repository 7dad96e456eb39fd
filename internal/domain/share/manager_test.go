package share

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"where2meet/internal/domain/poll"
)

type memoryTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*Token
}

func newMemoryTokenRepo() *memoryTokenRepo {
	return &memoryTokenRepo{tokens: make(map[string]*Token)}
}

func (r *memoryTokenRepo) Create(ctx context.Context, t *Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copyToken := *t
	r.tokens[t.Digest] = &copyToken
	return nil
}

func (r *memoryTokenRepo) GetByDigest(ctx context.Context, digest string) (*Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[digest]
	if !ok {
		return nil, ErrTokenNotFound
	}
	copyToken := *t
	return &copyToken, nil
}

func (r *memoryTokenRepo) Revoke(ctx context.Context, digest string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[digest]
	if !ok {
		return ErrTokenNotFound
	}
	t.Revoked = true
	return nil
}

func (r *memoryTokenRepo) RevokeByPoll(ctx context.Context, pollID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.tokens {
		if t.PollID == pollID && !t.Revoked {
			t.Revoked = true
			n++
		}
	}
	return n, nil
}

type fakePolls struct {
	mu    sync.Mutex
	polls map[int64]*poll.Poll
}

func (f *fakePolls) Find(ctx context.Context, id int64) (*poll.Poll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.polls[id]
	if !ok {
		return nil, poll.ErrPollNotFound
	}
	copyPoll := *p
	return &copyPoll, nil
}

func (f *fakePolls) remove(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.polls, id)
}

func setupManager(t *testing.T) (*Manager, *memoryTokenRepo, *fakePolls) {
	t.Helper()
	polls := &fakePolls{polls: map[int64]*poll.Poll{
		1: {ID: 1, GroupID: 10, CreatorID: 100, Status: poll.StatusOpen},
		2: {ID: 2, GroupID: 10, CreatorID: 200, Status: poll.StatusOpen},
	}}
	repo := newMemoryTokenRepo()
	mgr := NewManager(repo, polls, Options{Secret: "test", DefaultTTL: time.Hour, MaxTTL: 24 * time.Hour}, nil)
	return mgr, repo, polls
}

func TestIssueRequiresOwner(t *testing.T) {
	mgr, _, _ := setupManager(t)
	ctx := context.Background()

	if _, err := mgr.Issue(ctx, 1, 200, time.Hour); !errors.Is(err, poll.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, err := mgr.Issue(ctx, 42, 100, time.Hour); !errors.Is(err, poll.ErrPollNotFound) {
		t.Fatalf("expected ErrPollNotFound, got %v", err)
	}

	tok, err := mgr.Issue(ctx, 1, 100, 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tok.Value == "" || tok.PollID != 1 {
		t.Fatalf("unexpected token %+v", tok)
	}
	pollID, err := mgr.Validate(ctx, tok.Value)
	if err != nil || pollID != 1 {
		t.Fatalf("validate: poll %d err %v", pollID, err)
	}
}

func TestIssueClampsTTL(t *testing.T) {
	mgr, _, _ := setupManager(t)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time { return now }

	tok, err := mgr.Issue(context.Background(), 1, 100, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !tok.ExpiresAt.Equal(now.Add(24 * time.Hour)) {
		t.Fatalf("expected ttl clamped to max, got %v", tok.ExpiresAt)
	}
}

func TestTokensAreNotStoredInClear(t *testing.T) {
	mgr, repo, _ := setupManager(t)
	tok, err := mgr.Issue(context.Background(), 1, 100, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	for digest := range repo.tokens {
		if digest == tok.Value {
			t.Fatalf("token value stored in clear")
		}
	}
}

func TestValidateExpiredRegardlessOfRevoked(t *testing.T) {
	mgr, _, _ := setupManager(t)
	ctx := context.Background()
	start := time.Now()
	mgr.now = func() time.Time { return start }

	tok, err := mgr.Issue(ctx, 1, 100, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := mgr.Revoke(ctx, tok.Value, 100); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	mgr.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = mgr.Validate(ctx, tok.Value)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected error to wrap ErrAccessDenied")
	}
}

func TestValidateFailureKinds(t *testing.T) {
	mgr, _, polls := setupManager(t)
	ctx := context.Background()

	if _, err := mgr.Validate(ctx, "nope"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}

	tok, err := mgr.Issue(ctx, 1, 100, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := mgr.Revoke(ctx, tok.Value, 200); !errors.Is(err, poll.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner on foreign revoke, got %v", err)
	}
	if err := mgr.Revoke(ctx, tok.Value, 100); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := mgr.Validate(ctx, tok.Value); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}

	other, err := mgr.Issue(ctx, 2, 200, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	polls.remove(2)
	if _, err := mgr.Validate(ctx, other.Value); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected deleted poll to invalidate token, got %v", err)
	}
}

func TestPurgePollRevokesAllTokens(t *testing.T) {
	mgr, _, _ := setupManager(t)
	ctx := context.Background()

	a, _ := mgr.Issue(ctx, 1, 100, time.Hour)
	b, _ := mgr.Issue(ctx, 1, 100, time.Hour)
	c, _ := mgr.Issue(ctx, 2, 200, time.Hour)

	if err := mgr.PurgePoll(ctx, 1); err != nil {
		t.Fatalf("purge: %v", err)
	}
	for _, tok := range []*IssuedToken{a, b} {
		if _, err := mgr.Validate(ctx, tok.Value); !errors.Is(err, ErrTokenRevoked) {
			t.Fatalf("expected revoked token after purge, got %v", err)
		}
	}
	if _, err := mgr.Validate(ctx, c.Value); err != nil {
		t.Fatalf("token of another poll must survive: %v", err)
	}
}
