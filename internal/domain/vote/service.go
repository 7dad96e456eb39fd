package vote

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"where2meet/internal/domain/poll"
	"where2meet/internal/geo"
	"where2meet/internal/metrics"
)

const (
	maxCategoryLength      = 100
	maxCategoriesPerBallot = 20
	// maxClockSkew bounds how far ahead of the server clock a client
	// submitted_at may be.
	maxClockSkew = time.Minute
)

var (
	ErrPollClosed        = errors.New("poll is closed")
	ErrInvalidPoint      = errors.New("point is outside valid coordinate ranges")
	ErrEmptyCategorySet  = errors.New("at least one category is required")
	ErrCategoryTooLong   = errors.New("category name too long")
	ErrTooManyCategories = errors.New("too many categories")
	ErrFutureSubmission  = errors.New("submitted_at is in the future")
)

// PollFinder is satisfied by poll.Service.
type PollFinder interface {
	Find(ctx context.Context, id int64) (*poll.Poll, error)
}

type Service struct {
	repo   Repository
	polls  PollFinder
	now    func() time.Time
	logger *slog.Logger
}

func NewService(repo Repository, polls PollFinder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, polls: polls, now: time.Now, logger: logger}
}

// Submit records the caller's vote, replacing any earlier one. When a vote
// with a later SubmittedAt is already stored the ballot is ignored and the
// receipt reports Applied=false.
func (s *Service) Submit(ctx context.Context, caller poll.Caller, pollID int64, b Ballot) (Receipt, error) {
	p, err := s.polls.Find(ctx, pollID)
	if err != nil {
		return Receipt{}, err
	}
	if !caller.IsMember(p.GroupID) {
		return Receipt{}, poll.ErrNotMember
	}

	now := s.now()
	if !p.IsOpen(now) {
		return Receipt{}, ErrPollClosed
	}
	if !geo.Validate(b.Point) {
		return Receipt{}, ErrInvalidPoint
	}
	cats, err := normalizeCategories(b.Categories)
	if err != nil {
		return Receipt{}, err
	}

	submittedAt := b.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = now
	}
	if submittedAt.After(now.Add(maxClockSkew)) {
		return Receipt{}, ErrFutureSubmission
	}
	v := &Vote{
		PollID:      pollID,
		VoterID:     caller.UserID,
		Point:       b.Point,
		Categories:  cats,
		SubmittedAt: submittedAt.UTC(),
		UpdatedAt:   now.UTC(),
	}

	res, err := s.repo.Upsert(ctx, v)
	if err != nil {
		return Receipt{}, fmt.Errorf("store vote: %w", err)
	}
	switch {
	case !res.Applied:
		metrics.IncVote("stale")
		s.logger.Info("stale vote ignored", "poll_id", pollID, "voter_id", caller.UserID, "submitted_at", v.SubmittedAt)
	case res.Inserted:
		metrics.IncVote("inserted")
	default:
		metrics.IncVote("replaced")
	}

	return Receipt{
		PollID:      pollID,
		VoterID:     caller.UserID,
		SubmittedAt: v.SubmittedAt,
		Replaced:    !res.Inserted && res.Applied,
		Applied:     res.Applied,
		Revision:    res.Revision,
	}, nil
}

// ListVotes returns a restartable sequence over one snapshot of the poll's
// votes, in insertion order.
func (s *Service) ListVotes(ctx context.Context, pollID int64) (iter.Seq[Vote], error) {
	snap, err := s.repo.Snapshot(ctx, pollID)
	if err != nil {
		return nil, err
	}
	votes := snap.Votes
	return func(yield func(Vote) bool) {
		for _, v := range votes {
			if !yield(v) {
				return
			}
		}
	}, nil
}

func (s *Service) VoteCount(ctx context.Context, pollID int64) (int64, error) {
	return s.repo.Count(ctx, pollID)
}

func (s *Service) Snapshot(ctx context.Context, pollID int64) (Snapshot, error) {
	return s.repo.Snapshot(ctx, pollID)
}

func (s *Service) PurgePoll(ctx context.Context, pollID int64) error {
	return s.repo.DeleteByPoll(ctx, pollID)
}

func normalizeCategories(in []string) ([]string, error) {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if len(c) > maxCategoryLength {
			return nil, ErrCategoryTooLong
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, ErrEmptyCategorySet
	}
	if len(out) > maxCategoriesPerBallot {
		return nil, ErrTooManyCategories
	}
	return out, nil
}
