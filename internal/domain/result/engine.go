package result

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"where2meet/internal/domain/poll"
	"where2meet/internal/domain/share"
	"where2meet/internal/domain/vote"
	"where2meet/internal/geo"
	"where2meet/internal/metrics"
	"where2meet/internal/places"
)

const (
	defaultPlacesTimeout = 5 * time.Second
	defaultCacheTTL      = 10 * time.Minute
	maxParallelLookups   = 8
)

type VoteSource interface {
	VoteCount(ctx context.Context, pollID int64) (int64, error)
	Snapshot(ctx context.Context, pollID int64) (vote.Snapshot, error)
}

type PollFinder interface {
	Find(ctx context.Context, id int64) (*poll.Poll, error)
}

// TokenValidator is satisfied by share.Manager.
type TokenValidator interface {
	Validate(ctx context.Context, value string) (int64, error)
}

type Options struct {
	// PlacesTimeout bounds each category lookup.
	PlacesTimeout time.Duration
	// CacheTTL is how long a successful lookup is reused. Negative disables
	// the cache.
	CacheTTL time.Duration
}

// Engine turns a poll's votes into a PollResult.
type Engine struct {
	votes   VoteSource
	polls   PollFinder
	tokens  TokenValidator
	client  places.Client
	cache   *cache.Cache
	timeout time.Duration
	logger  *slog.Logger
}

func NewEngine(votes VoteSource, polls PollFinder, tokens TokenValidator, client places.Client, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PlacesTimeout <= 0 {
		opts.PlacesTimeout = defaultPlacesTimeout
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = defaultCacheTTL
	}

	e := &Engine{
		votes:   votes,
		polls:   polls,
		tokens:  tokens,
		client:  client,
		timeout: opts.PlacesTimeout,
		logger:  logger,
	}
	if opts.CacheTTL > 0 {
		e.cache = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return e
}

// ForMember computes the result for a member of the poll's group.
func (e *Engine) ForMember(ctx context.Context, caller poll.Caller, pollID int64, params Params) (*PollResult, error) {
	p, err := e.polls.Find(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if !caller.IsMember(p.GroupID) {
		return nil, poll.ErrNotMember
	}
	return e.ComputeResult(ctx, pollID, params)
}

// ForToken computes the result for the holder of a share token. Token
// failures are returned as is; callers must not expose their kind.
func (e *Engine) ForToken(ctx context.Context, token string, params Params) (*SharedResult, error) {
	pollID, err := e.tokens.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	p, err := e.polls.Find(ctx, pollID)
	if errors.Is(err, poll.ErrPollNotFound) {
		return nil, share.ErrTokenRevoked
	}
	if err != nil {
		return nil, err
	}
	res, err := e.ComputeResult(ctx, pollID, params)
	if err != nil {
		return nil, err
	}
	return &SharedResult{PollResult: *res, OwnerDisplayName: p.CreatorName}, nil
}

// ComputeResult reads one snapshot of the poll's votes and assembles the
// consensus point, the top categories and places for each of them. A failed
// category lookup degrades to an empty list and never fails the call.
func (e *Engine) ComputeResult(ctx context.Context, pollID int64, params Params) (*PollResult, error) {
	radius, minRating, err := params.resolve()
	if err != nil {
		return nil, err
	}

	run := &computation{engine: e, pollID: pollID, started: time.Now()}

	run.enter(StageLoadingVotes)
	n, err := e.votes.VoteCount(ctx, pollID)
	if err != nil {
		return nil, run.fail(fmt.Errorf("count votes: %w", err))
	}
	if n == 0 {
		return nil, run.fail(ErrNoVotes)
	}
	snap, err := e.votes.Snapshot(ctx, pollID)
	if err != nil {
		return nil, run.fail(fmt.Errorf("load votes: %w", err))
	}
	if len(snap.Votes) == 0 {
		return nil, run.fail(ErrNoVotes)
	}

	run.enter(StageComputingGeometry)
	points := make([]geo.Point, len(snap.Votes))
	for i, v := range snap.Votes {
		points[i] = v.Point
	}
	center, err := geo.Average(points)
	if err != nil {
		return nil, run.fail(err)
	}
	top := vote.TopCategories(vote.Tally(snap.Votes))

	run.enter(StageQueryingRecommendations)
	recs, degraded := e.recommend(ctx, pollID, snap.Revision, center, radius, minRating, top)
	if err := ctx.Err(); err != nil {
		return nil, run.fail(err)
	}

	res := &PollResult{
		PollID:                      pollID,
		TotalVotes:                  len(snap.Votes),
		MostPopularCategories:       top,
		AveragePoint:                center,
		Radius:                      radius,
		MinRating:                   minRating,
		RecommendedPlacesByCategory: recs,
		DegradedCategories:          degraded,
	}
	run.enter(StageAssembled)
	metrics.IncResult(string(StageAssembled))
	return res, nil
}

// Invalidate drops cached lookups of a poll.
func (e *Engine) Invalidate(pollID int64) int {
	if e.cache == nil {
		return 0
	}
	prefix := strconv.FormatInt(pollID, 10) + ":"
	n := 0
	for key := range e.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			e.cache.Delete(key)
			n++
		}
	}
	return n
}

// recommend queries every category concurrently, each under its own
// deadline, and returns the lists plus the sorted names of degraded
// categories.
func (e *Engine) recommend(ctx context.Context, pollID, revision int64, center geo.Point, radius int, minRating float64, categories []string) (map[string][]places.Place, []string) {
	lists := make([][]places.Place, len(categories))
	failed := make([]bool, len(categories))

	var g errgroup.Group
	g.SetLimit(maxParallelLookups)
	for i, category := range categories {
		g.Go(func() error {
			key := cacheKey(pollID, revision, radius, minRating, category)
			if e.cache != nil {
				if cached, ok := e.cache.Get(key); ok {
					lists[i] = cached.([]places.Place)
					return nil
				}
			}

			list, err := e.lookup(ctx, places.Query{
				Center:    center,
				Radius:    radius,
				MinRating: minRating,
				Category:  category,
			})
			if err != nil {
				reason := failureReason(err)
				metrics.IncRecommendationFailure(reason)
				e.logger.Warn("recommendation lookup degraded",
					"poll_id", pollID, "category", category, "reason", reason, "error", err)
				lists[i] = []places.Place{}
				failed[i] = true
				return nil
			}
			if list == nil {
				list = []places.Place{}
			}
			if e.cache != nil {
				e.cache.SetDefault(key, list)
			}
			lists[i] = list
			return nil
		})
	}
	_ = g.Wait()

	recs := make(map[string][]places.Place, len(categories))
	degraded := []string{}
	for i, category := range categories {
		recs[category] = lists[i]
		if failed[i] {
			degraded = append(degraded, category)
		}
	}
	return recs, degraded
}

func (e *Engine) lookup(ctx context.Context, q places.Query) ([]places.Place, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	defer func() { metrics.ObserveRecommendation(time.Since(start).Seconds()) }()
	return e.client.Search(ctx, q)
}

func cacheKey(pollID, revision int64, radius int, minRating float64, category string) string {
	return fmt.Sprintf("%d:%d:%d:%s:%s", pollID, revision, radius,
		strconv.FormatFloat(minRating, 'f', -1, 64), category)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, places.ErrUpstream):
		return "upstream"
	default:
		return "error"
	}
}

type computation struct {
	engine  *Engine
	pollID  int64
	stage   Stage
	started time.Time
}

func (c *computation) enter(s Stage) {
	c.stage = s
	c.engine.logger.Debug("result stage", "poll_id", c.pollID, "stage", s)
}

// fail records the terminal failed stage and returns err unchanged.
func (c *computation) fail(err error) error {
	metrics.IncResult(string(StageFailed))
	level := slog.LevelError
	if errors.Is(err, ErrNoVotes) || errors.Is(err, context.Canceled) {
		level = slog.LevelInfo
	}
	c.engine.logger.Log(context.Background(), level, "result computation failed",
		"poll_id", c.pollID, "stage", c.stage, "elapsed", time.Since(c.started), "error", err)
	c.stage = StageFailed
	return err
}
