package share

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"where2meet/internal/domain/poll"
)

// ErrAccessDenied is the only failure callers outside the service should see.
// The specific kinds below wrap it and exist for audit logs and tests.
var ErrAccessDenied = errors.New("access denied")

var (
	ErrTokenNotFound = fmt.Errorf("%w: token not found", ErrAccessDenied)
	ErrTokenExpired  = fmt.Errorf("%w: token expired", ErrAccessDenied)
	ErrTokenRevoked  = fmt.Errorf("%w: token revoked", ErrAccessDenied)
)

type PollFinder interface {
	Find(ctx context.Context, id int64) (*poll.Poll, error)
}

type Options struct {
	Secret     string
	DefaultTTL time.Duration
	MaxTTL     time.Duration
}

type Manager struct {
	repo       Repository
	polls      PollFinder
	key        [32]byte
	defaultTTL time.Duration
	maxTTL     time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

func NewManager(repo Repository, polls PollFinder, opts Options, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = 24 * time.Hour
	}
	if opts.MaxTTL < opts.DefaultTTL {
		opts.MaxTTL = opts.DefaultTTL
	}
	return &Manager{
		repo:       repo,
		polls:      polls,
		key:        blake2b.Sum256([]byte(opts.Secret)),
		defaultTTL: opts.DefaultTTL,
		maxTTL:     opts.MaxTTL,
		now:        time.Now,
		logger:     logger,
	}
}

// Issue creates a read-only results link for pollID. Only the poll creator
// may issue one. ttl <= 0 selects the default, longer values are clamped.
func (m *Manager) Issue(ctx context.Context, pollID, issuerID int64, ttl time.Duration) (*IssuedToken, error) {
	p, err := m.polls.Find(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if p.CreatorID != issuerID {
		return nil, poll.ErrNotOwner
	}

	switch {
	case ttl <= 0:
		ttl = m.defaultTTL
	case ttl > m.maxTTL:
		ttl = m.maxTTL
	}

	value, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	now := m.now().UTC()
	t := &Token{
		Digest:    m.digest(value.String()),
		PollID:    pollID,
		IssuerID:  issuerID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := m.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}

	m.logger.Info("share token issued", "poll_id", pollID, "issuer_id", issuerID, "expires_at", t.ExpiresAt)
	return &IssuedToken{Value: value.String(), PollID: pollID, ExpiresAt: t.ExpiresAt}, nil
}

// Validate resolves a token value to its poll. Expiry is checked before the
// revoked flag, and a token whose poll was deleted counts as revoked.
func (m *Manager) Validate(ctx context.Context, value string) (int64, error) {
	if value == "" {
		return 0, ErrTokenNotFound
	}
	t, err := m.repo.GetByDigest(ctx, m.digest(value))
	if err != nil {
		return 0, err
	}
	if !m.now().Before(t.ExpiresAt) {
		return 0, ErrTokenExpired
	}
	if t.Revoked {
		return 0, ErrTokenRevoked
	}
	if _, err := m.polls.Find(ctx, t.PollID); err != nil {
		if errors.Is(err, poll.ErrPollNotFound) {
			return 0, ErrTokenRevoked
		}
		return 0, err
	}
	return t.PollID, nil
}

func (m *Manager) Revoke(ctx context.Context, value string, issuerID int64) error {
	digest := m.digest(value)
	t, err := m.repo.GetByDigest(ctx, digest)
	if err != nil {
		return err
	}

	owner := t.IssuerID
	p, err := m.polls.Find(ctx, t.PollID)
	switch {
	case err == nil:
		owner = p.CreatorID
	case !errors.Is(err, poll.ErrPollNotFound):
		return err
	}
	if owner != issuerID {
		return poll.ErrNotOwner
	}

	if err := m.repo.Revoke(ctx, digest); err != nil {
		return err
	}
	m.logger.Info("share token revoked", "poll_id", t.PollID, "by", issuerID)
	return nil
}

// PurgePoll revokes every token bound to a deleted poll.
func (m *Manager) PurgePoll(ctx context.Context, pollID int64) error {
	n, err := m.repo.RevokeByPoll(ctx, pollID)
	if err != nil {
		return err
	}
	if n > 0 {
		m.logger.Info("share tokens revoked for deleted poll", "poll_id", pollID, "count", n)
	}
	return nil
}

func (m *Manager) digest(value string) string {
	h, _ := blake2b.New256(m.key[:])
	h.Write([]byte(value))
	return hex.EncodeToString(h.Sum(nil))
}
