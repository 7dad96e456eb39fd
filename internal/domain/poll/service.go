package poll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const defaultDuration = 24 * time.Hour

var (
	ErrPollNotFound    = errors.New("poll not found")
	ErrInvalidQuestion = errors.New("question required")
	ErrInvalidDates    = errors.New("ends_at must be in the future")
	ErrPollClosed      = errors.New("poll is closed")
	ErrNotOwner        = errors.New("caller does not own the poll")
	ErrNotMember       = errors.New("caller is not a member of the poll group")
	ErrNotGroupAdmin   = errors.New("only a group admin can create polls")
)

type Service struct {
	repo    Repository
	purgers []Purger
	now     func() time.Time
	logger  *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, now: time.Now, logger: logger}
}

// OnDelete registers state owners that must forget a poll once it is deleted.
func (s *Service) OnDelete(p ...Purger) {
	s.purgers = append(s.purgers, p...)
}

func (s *Service) Create(ctx context.Context, caller Caller, groupID int64, question string, endsAt *time.Time) (*Poll, error) {
	if !caller.IsAdmin(groupID) {
		return nil, ErrNotGroupAdmin
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrInvalidQuestion
	}

	now := s.now()
	if endsAt == nil {
		def := now.Add(defaultDuration)
		endsAt = &def
	} else if !endsAt.After(now) {
		return nil, ErrInvalidDates
	}

	p := &Poll{
		GroupID:     groupID,
		Question:    question,
		Status:      StatusOpen,
		EndsAt:      endsAt,
		CreatorID:   caller.UserID,
		CreatorName: caller.Name,
	}
	if _, err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create poll: %w", err)
	}
	s.logger.Info("poll created", "poll_id", p.ID, "group_id", groupID, "creator_id", caller.UserID)
	return p, nil
}

// Find loads a poll without any access check. Used by collaborators that do
// their own authorization.
func (s *Service) Find(ctx context.Context, id int64) (*Poll, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Get(ctx context.Context, caller Caller, id int64) (*Poll, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsMember(p.GroupID) {
		return nil, ErrNotMember
	}
	p.Status = p.EffectiveStatus(s.now())
	return p, nil
}

func (s *Service) ListByGroup(ctx context.Context, caller Caller, groupID int64) ([]Poll, error) {
	if !caller.IsMember(groupID) {
		return nil, ErrNotMember
	}
	polls, err := s.repo.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range polls {
		polls[i].Status = polls[i].EffectiveStatus(now)
	}
	return polls, nil
}

// Update renames or extends a poll. Only the creator may do it, and only
// while the poll is open.
func (s *Service) Update(ctx context.Context, caller Caller, id int64, input UpdateInput) (*Poll, error) {
	p, err := s.ownedOpen(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if input.Question != nil {
		q := strings.TrimSpace(*input.Question)
		if q == "" {
			return nil, ErrInvalidQuestion
		}
		input.Question = &q
	}
	if input.EndsAt != nil && (!input.EndsAt.After(s.now()) || !input.EndsAt.After(p.CreatedAt)) {
		return nil, ErrInvalidDates
	}

	if err := s.repo.Update(ctx, id, input); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Close(ctx context.Context, caller Caller, id int64) error {
	if _, err := s.ownedOpen(ctx, caller, id); err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusClosed); err != nil {
		return err
	}
	s.logger.Info("poll closed", "poll_id", id, "by", caller.UserID)
	return nil
}

// Delete removes the poll and then asks every registered purger to drop votes
// and share tokens bound to it.
func (s *Service) Delete(ctx context.Context, caller Caller, id int64) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.CreatorID != caller.UserID {
		return ErrNotOwner
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	var errs []error
	for _, pg := range s.purgers {
		if err := pg.PurgePoll(ctx, id); err != nil {
			s.logger.Error("poll purge failed", "poll_id", id, "error", err)
			errs = append(errs, err)
		}
	}
	s.logger.Info("poll deleted", "poll_id", id, "by", caller.UserID)
	return errors.Join(errs...)
}

func (s *Service) ownedOpen(ctx context.Context, caller Caller, id int64) (*Poll, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.CreatorID != caller.UserID {
		return nil, ErrNotOwner
	}
	if !p.IsOpen(s.now()) {
		return nil, ErrPollClosed
	}
	return p, nil
}
