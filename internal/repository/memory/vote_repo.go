package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"where2meet/internal/domain/vote"
)

// pollVotes is the state of one poll. Writers serialize on mu and publish a
// fresh immutable snapshot; readers only load the pointer.
type pollVotes struct {
	mu    sync.Mutex
	index map[int64]int
	snap  atomic.Pointer[vote.Snapshot]
}

func newPollVotes() *pollVotes {
	pv := &pollVotes{index: make(map[int64]int)}
	pv.snap.Store(&vote.Snapshot{})
	return pv
}

type VoteRepo struct {
	mu    sync.RWMutex
	polls map[int64]*pollVotes
}

func NewVoteRepo() *VoteRepo {
	return &VoteRepo{polls: make(map[int64]*pollVotes)}
}

func (r *VoteRepo) entry(pollID int64, create bool) *pollVotes {
	r.mu.RLock()
	pv, ok := r.polls[pollID]
	r.mu.RUnlock()
	if ok || !create {
		return pv
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if pv, ok = r.polls[pollID]; !ok {
		pv = newPollVotes()
		r.polls[pollID] = pv
	}
	return pv
}

// Upsert stores v unless the voter already has a vote with a later
// SubmittedAt. A replacement keeps the voter's original position.
func (r *VoteRepo) Upsert(ctx context.Context, v *vote.Vote) (vote.UpsertResult, error) {
	if err := ctx.Err(); err != nil {
		return vote.UpsertResult{}, err
	}
	pv := r.entry(v.PollID, true)

	pv.mu.Lock()
	defer pv.mu.Unlock()

	cur := pv.snap.Load()
	pos, exists := pv.index[v.VoterID]
	if exists && v.SubmittedAt.Before(cur.Votes[pos].SubmittedAt) {
		return vote.UpsertResult{Revision: cur.Revision}, nil
	}

	votes := make([]vote.Vote, len(cur.Votes), len(cur.Votes)+1)
	copy(votes, cur.Votes)
	stored := cloneVote(v)
	if exists {
		votes[pos] = stored
	} else {
		pv.index[v.VoterID] = len(votes)
		votes = append(votes, stored)
	}

	next := &vote.Snapshot{Votes: votes, Revision: cur.Revision + 1}
	pv.snap.Store(next)
	return vote.UpsertResult{Inserted: !exists, Applied: true, Revision: next.Revision}, nil
}

// Snapshot never blocks on writers. The returned slice must not be modified.
func (r *VoteRepo) Snapshot(ctx context.Context, pollID int64) (vote.Snapshot, error) {
	pv := r.entry(pollID, false)
	if pv == nil {
		return vote.Snapshot{}, nil
	}
	return *pv.snap.Load(), nil
}

func (r *VoteRepo) Count(ctx context.Context, pollID int64) (int64, error) {
	pv := r.entry(pollID, false)
	if pv == nil {
		return 0, nil
	}
	return int64(len(pv.snap.Load().Votes)), nil
}

// DeleteByPoll empties the poll but keeps advancing its revision so cached
// results keyed on the old revision are never served again.
func (r *VoteRepo) DeleteByPoll(ctx context.Context, pollID int64) error {
	pv := r.entry(pollID, false)
	if pv == nil {
		return nil
	}
	pv.mu.Lock()
	defer pv.mu.Unlock()
	cur := pv.snap.Load()
	pv.index = make(map[int64]int)
	pv.snap.Store(&vote.Snapshot{Revision: cur.Revision + 1})
	return nil
}

func cloneVote(v *vote.Vote) vote.Vote {
	cp := *v
	cp.Categories = append([]string(nil), v.Categories...)
	return cp
}
