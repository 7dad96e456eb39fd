package poll

import (
	"context"
	"slices"
	"time"
)

const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

type Poll struct {
	ID          int64      `json:"id"`
	GroupID     int64      `json:"group_id"`
	Question    string     `json:"question"`
	Status      string     `json:"status"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	CreatorID   int64      `json:"creator_id"`
	CreatorName string     `json:"creator_name"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsOpen reports whether votes are still accepted at now. A poll whose end
// time has passed counts as closed even if nobody closed it explicitly.
func (p *Poll) IsOpen(now time.Time) bool {
	if p.Status != StatusOpen {
		return false
	}
	return p.EndsAt == nil || now.Before(*p.EndsAt)
}

// EffectiveStatus is the status reported to clients.
func (p *Poll) EffectiveStatus(now time.Time) string {
	if p.IsOpen(now) {
		return StatusOpen
	}
	return StatusClosed
}

// Caller is the identity resolved by the auth layer for one request.
type Caller struct {
	UserID      int64
	Name        string
	Groups      []int64
	AdminGroups []int64
}

func (c Caller) IsMember(groupID int64) bool {
	return slices.Contains(c.Groups, groupID) || c.IsAdmin(groupID)
}

func (c Caller) IsAdmin(groupID int64) bool {
	return slices.Contains(c.AdminGroups, groupID)
}

type UpdateInput struct {
	Question *string
	EndsAt   *time.Time
}

type Repository interface {
	Create(ctx context.Context, p *Poll) (int64, error)
	GetByID(ctx context.Context, id int64) (*Poll, error)
	ListByGroup(ctx context.Context, groupID int64) ([]Poll, error)
	Update(ctx context.Context, id int64, input UpdateInput) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	Delete(ctx context.Context, id int64) error
}

// Purger drops state bound to a poll when the poll is deleted.
type Purger interface {
	PurgePoll(ctx context.Context, pollID int64) error
}
