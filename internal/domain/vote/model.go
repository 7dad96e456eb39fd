package vote

import (
	"context"
	"time"

	"where2meet/internal/geo"
)

type Vote struct {
	PollID      int64     `json:"poll_id"`
	VoterID     int64     `json:"voter_id"`
	Point       geo.Point `json:"point"`
	Categories  []string  `json:"categories"`
	SubmittedAt time.Time `json:"submitted_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Ballot is what a voter sends. A zero SubmittedAt is stamped by the service.
type Ballot struct {
	Point       geo.Point
	Categories  []string
	SubmittedAt time.Time
}

type Receipt struct {
	PollID      int64     `json:"poll_id"`
	VoterID     int64     `json:"voter_id"`
	SubmittedAt time.Time `json:"submitted_at"`
	Replaced    bool      `json:"replaced"`
	// Applied is false when a vote with a later timestamp was already stored.
	Applied     bool      `json:"applied"`
	Revision    int64     `json:"-"`
}

// Snapshot is a fixed view of a poll's votes in insertion order. Revision
// changes on every applied write.
type Snapshot struct {
	Votes    []Vote
	Revision int64
}

type UpsertResult struct {
	Inserted bool
	Applied  bool
	Revision int64
}

// Repository stores at most one vote per (poll, voter). Upsert must keep the
// vote with the later SubmittedAt and leave the insertion position unchanged
// on replacement.
type Repository interface {
	Upsert(ctx context.Context, v *Vote) (UpsertResult, error)
	Snapshot(ctx context.Context, pollID int64) (Snapshot, error)
	Count(ctx context.Context, pollID int64) (int64, error)
	DeleteByPoll(ctx context.Context, pollID int64) error
}
