// Package memory holds process-local repositories used when STORAGE=memory
// and in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"where2meet/internal/domain/poll"
)

type PollRepo struct {
	mu     sync.RWMutex
	polls  map[int64]*poll.Poll
	nextID int64
}

func NewPollRepo() *PollRepo {
	return &PollRepo{
		polls:  make(map[int64]*poll.Poll),
		nextID: 1,
	}
}

func (r *PollRepo) Create(ctx context.Context, p *poll.Poll) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	p.ID = r.nextID
	r.nextID++
	p.CreatedAt = now
	p.UpdatedAt = now

	cp := clonePoll(p)
	r.polls[p.ID] = cp
	return p.ID, nil
}

func (r *PollRepo) GetByID(ctx context.Context, id int64) (*poll.Poll, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.polls[id]
	if !ok {
		return nil, poll.ErrPollNotFound
	}
	return clonePoll(p), nil
}

// ListByGroup returns the group's polls, newest first.
func (r *PollRepo) ListByGroup(ctx context.Context, groupID int64) ([]poll.Poll, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := []poll.Poll{}
	for _, p := range r.polls {
		if p.GroupID == groupID {
			res = append(res, *clonePoll(p))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

func (r *PollRepo) Update(ctx context.Context, id int64, input poll.UpdateInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[id]
	if !ok {
		return poll.ErrPollNotFound
	}
	if input.Question != nil {
		p.Question = *input.Question
	}
	if input.EndsAt != nil {
		t := *input.EndsAt
		p.EndsAt = &t
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *PollRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[id]
	if !ok {
		return poll.ErrPollNotFound
	}
	p.Status = status
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *PollRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.polls[id]; !ok {
		return poll.ErrPollNotFound
	}
	delete(r.polls, id)
	return nil
}

func clonePoll(p *poll.Poll) *poll.Poll {
	cp := *p
	if p.EndsAt != nil {
		t := *p.EndsAt
		cp.EndsAt = &t
	}
	return &cp
}
