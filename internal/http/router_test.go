package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"where2meet/internal/domain/poll"
	"where2meet/internal/domain/result"
	"where2meet/internal/domain/share"
	"where2meet/internal/domain/vote"
	"where2meet/internal/places"
	jwtpkg "where2meet/internal/platform/jwt"
	"where2meet/internal/repository/memory"
	"where2meet/internal/worker"
)

type stubPlaces struct{}

func (stubPlaces) Search(ctx context.Context, q places.Query) ([]places.Place, error) {
	return []places.Place{{Name: q.Category + " #1", Rating: 4.7, Point: q.Center}}, nil
}

var (
	admin = jwtpkg.Claims{UserID: 1, Name: "Admin", Groups: []int64{10}, AdminGroups: []int64{10}}
	alice = jwtpkg.Claims{UserID: 2, Name: "Alice", Groups: []int64{10}}
	bob   = jwtpkg.Claims{UserID: 3, Name: "Bob", Groups: []int64{10}}
	eve   = jwtpkg.Claims{UserID: 4, Name: "Eve", Groups: []int64{20}}
)

type testEnv struct {
	t      *testing.T
	srv    *httptest.Server
	jwtMgr *jwtpkg.Manager
	ips    atomic.Int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	pollSvc := poll.NewService(memory.NewPollRepo(), nil)
	voteSvc := vote.NewService(memory.NewVoteRepo(), pollSvc, nil)
	shareMgr := share.NewManager(memory.NewTokenRepo(), pollSvc, share.Options{
		Secret:     "test-secret",
		DefaultTTL: time.Hour,
		MaxTTL:     24 * time.Hour,
	}, nil)
	pollSvc.OnDelete(voteSvc, shareMgr)
	engine := result.NewEngine(voteSvc, pollSvc, shareMgr, stubPlaces{}, result.Options{}, nil)
	jwtMgr := jwtpkg.NewManager("jwt-secret", "where2meet")

	router := NewRouter(Deps{
		PollSvc:  pollSvc,
		VoteSvc:  voteSvc,
		Engine:   engine,
		ShareMgr: shareMgr,
		JWTMgr:   jwtMgr,
		VoteCh:   make(chan worker.VoteEvent, 100),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testEnv{t: t, srv: srv, jwtMgr: jwtMgr}
}

// do sends a request from a fresh client IP so per-IP rate limits stay out
// of the way.
func (e *testEnv) do(method, path string, who *jwtpkg.Claims, body any) *http.Response {
	e.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			e.t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	if err != nil {
		e.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", e.ips.Add(1)%250+1))
	if who != nil {
		tok, err := e.jwtMgr.Generate(*who, time.Hour)
		if err != nil {
			e.t.Fatalf("generate token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		e.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func (e *testEnv) expect(resp *http.Response, status int, out any) {
	e.t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != status {
		var body map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&body)
		e.t.Fatalf("expected status %d, got %d: %v", status, resp.StatusCode, body)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			e.t.Fatalf("decode response: %v", err)
		}
	}
}

func (e *testEnv) expectError(resp *http.Response, status int, code string) {
	e.t.Helper()
	var body map[string]string
	e.expect(resp, status, &body)
	if body["error"] != code {
		e.t.Fatalf("expected error code %q, got %v", code, body)
	}
}

func (e *testEnv) createPoll() int64 {
	e.t.Helper()
	var p poll.Poll
	e.expect(e.do(http.MethodPost, "/api/v1/polls", &admin, map[string]any{
		"group_id": 10,
		"question": "Where do we meet on Friday?",
	}), http.StatusCreated, &p)
	return p.ID
}

func ballot(lat, lon float64, cats ...string) map[string]any {
	return map[string]any{
		"point":      map[string]float64{"lat": lat, "lon": lon},
		"categories": cats,
	}
}

func TestVoteThenResults(t *testing.T) {
	env := newTestEnv(t)
	id := env.createPoll()
	resultsPath := fmt.Sprintf("/api/v1/polls/%d/results", id)
	votePath := fmt.Sprintf("/api/v1/polls/%d/vote", id)

	env.expectError(env.do(http.MethodGet, resultsPath, &alice, nil), http.StatusConflict, "no_votes")

	env.expect(env.do(http.MethodPost, votePath, &alice, ballot(59.93, 30.33, "cafe")), http.StatusOK, nil)
	env.expect(env.do(http.MethodPost, votePath, &bob, ballot(59.95, 30.35, "cafe", "park")), http.StatusOK, nil)

	var res result.PollResult
	env.expect(env.do(http.MethodGet, resultsPath+"?radius=800&minRating=4.5", &alice, nil), http.StatusOK, &res)

	if res.TotalVotes != 2 {
		t.Fatalf("expected 2 votes, got %d", res.TotalVotes)
	}
	if math.Abs(res.AveragePoint.Lat-59.94) > 1e-9 || math.Abs(res.AveragePoint.Lon-30.34) > 1e-9 {
		t.Fatalf("unexpected average %+v", res.AveragePoint)
	}
	if len(res.MostPopularCategories) != 1 || res.MostPopularCategories[0] != "cafe" {
		t.Fatalf("expected [cafe], got %v", res.MostPopularCategories)
	}
	if res.Radius != 800 || res.MinRating != 4.5 {
		t.Fatalf("params not echoed: radius %d rating %v", res.Radius, res.MinRating)
	}
	if len(res.RecommendedPlacesByCategory["cafe"]) != 1 {
		t.Fatalf("expected cafe recommendations, got %v", res.RecommendedPlacesByCategory)
	}

	env.expectError(env.do(http.MethodGet, resultsPath, &eve, nil), http.StatusForbidden, "access_denied")
}

func TestRevoteReplacesPreviousVote(t *testing.T) {
	env := newTestEnv(t)
	id := env.createPoll()
	votePath := fmt.Sprintf("/api/v1/polls/%d/vote", id)

	env.expect(env.do(http.MethodPost, votePath, &alice, ballot(10, 10, "bar")), http.StatusOK, nil)
	var receipt vote.Receipt
	env.expect(env.do(http.MethodPost, votePath, &alice, ballot(59.95, 30.35, "park")), http.StatusOK, &receipt)
	if !receipt.Replaced {
		t.Fatalf("expected replaced receipt, got %+v", receipt)
	}

	var p struct {
		VoteCount int64 `json:"vote_count"`
	}
	env.expect(env.do(http.MethodGet, fmt.Sprintf("/api/v1/polls/%d", id), &alice, nil), http.StatusOK, &p)
	if p.VoteCount != 1 {
		t.Fatalf("expected vote_count 1, got %d", p.VoteCount)
	}

	var res result.PollResult
	env.expect(env.do(http.MethodGet, fmt.Sprintf("/api/v1/polls/%d/results", id), &alice, nil), http.StatusOK, &res)
	if res.AveragePoint.Lat != 59.95 || res.MostPopularCategories[0] != "park" {
		t.Fatalf("expected only the second vote to count, got %+v", res)
	}
}

func TestVoteErrors(t *testing.T) {
	env := newTestEnv(t)
	id := env.createPoll()
	votePath := fmt.Sprintf("/api/v1/polls/%d/vote", id)

	env.expectError(env.do(http.MethodPost, votePath, &alice, ballot(95, 30, "cafe")), http.StatusBadRequest, "invalid_point")
	env.expectError(env.do(http.MethodPost, votePath, &alice, ballot(59, 30)), http.StatusBadRequest, "empty_categories")
	env.expectError(env.do(http.MethodPost, votePath, &eve, ballot(59, 30, "cafe")), http.StatusForbidden, "access_denied")
	env.expectError(env.do(http.MethodPost, "/api/v1/polls/999/vote", &alice, ballot(59, 30, "cafe")), http.StatusNotFound, "poll_not_found")
	env.expectError(env.do(http.MethodPost, votePath, nil, ballot(59, 30, "cafe")), http.StatusUnauthorized, "missing_token")

	env.expectError(env.do(http.MethodPost, fmt.Sprintf("/api/v1/polls/%d/close", id), &alice, nil), http.StatusForbidden, "access_denied")
	env.expect(env.do(http.MethodPost, fmt.Sprintf("/api/v1/polls/%d/close", id), &admin, nil), http.StatusNoContent, nil)
	env.expectError(env.do(http.MethodPost, votePath, &alice, ballot(59, 30, "cafe")), http.StatusBadRequest, "poll_closed")
}

func TestVoteRejectsMissingPointAndFutureDate(t *testing.T) {
	env := newTestEnv(t)
	id := env.createPoll()
	votePath := fmt.Sprintf("/api/v1/polls/%d/vote", id)

	env.expect(env.do(http.MethodPost, votePath, &alice, ballot(59.93, 30.33, "cafe")), http.StatusOK, nil)
	env.expectError(env.do(http.MethodPost, votePath, &bob, map[string]any{"categories": []string{"cafe"}}), http.StatusBadRequest, "invalid_point")

	future := ballot(59.95, 30.35, "park")
	future["submitted_at"] = "2999-01-01T00:00:00Z"
	env.expectError(env.do(http.MethodPost, votePath, &alice, future), http.StatusBadRequest, "invalid_submitted_at")

	var res result.PollResult
	env.expect(env.do(http.MethodGet, fmt.Sprintf("/api/v1/polls/%d/results", id), &alice, nil), http.StatusOK, &res)
	if res.TotalVotes != 1 || res.AveragePoint.Lat != 59.93 || res.AveragePoint.Lon != 30.33 {
		t.Fatalf("rejected ballots must not move the result, got %+v", res)
	}
}

func TestResultsRejectBadParams(t *testing.T) {
	env := newTestEnv(t)
	id := env.createPoll()
	env.expect(env.do(http.MethodPost, fmt.Sprintf("/api/v1/polls/%d/vote", id), &alice, ballot(59, 30, "cafe")), http.StatusOK, nil)

	base := fmt.Sprintf("/api/v1/polls/%d/results", id)
	env.expectError(env.do(http.MethodGet, base+"?radius=10", &alice, nil), http.StatusBadRequest, "invalid_radius")
	env.expectError(env.do(http.MethodGet, base+"?radius=abc", &alice, nil), http.StatusBadRequest, "invalid_radius")
	env.expectError(env.do(http.MethodGet, base+"?minRating=9", &alice, nil), http.StatusBadRequest, "invalid_rating")
	env.expectError(env.do(http.MethodGet, base+"?min_rating=-1", &alice, nil), http.StatusBadRequest, "invalid_rating")
}

func TestShareTokenAccess(t *testing.T) {
	env := newTestEnv(t)
	id := env.createPoll()
	sharePath := fmt.Sprintf("/api/v1/polls/%d/share-token", id)

	env.expectError(env.do(http.MethodPost, sharePath, &alice, nil), http.StatusForbidden, "access_denied")

	var tok share.IssuedToken
	env.expect(env.do(http.MethodPost, sharePath, &admin, map[string]int{"ttl_minutes": 30}), http.StatusCreated, &tok)
	if tok.Value == "" || tok.ExpiresAt.Before(time.Now()) {
		t.Fatalf("unexpected token %+v", tok)
	}

	env.expectError(env.do(http.MethodGet, "/access/"+tok.Value, nil, nil), http.StatusConflict, "no_votes")

	env.expect(env.do(http.MethodPost, fmt.Sprintf("/api/v1/polls/%d/vote", id), &bob, ballot(59.94, 30.34, "park")), http.StatusOK, nil)

	var shared result.SharedResult
	env.expect(env.do(http.MethodGet, "/access/"+tok.Value+"?radius=1500", nil, nil), http.StatusOK, &shared)
	if shared.OwnerDisplayName != "Admin" || shared.PollID != id || shared.Radius != 1500 {
		t.Fatalf("unexpected shared result %+v", shared)
	}

	env.expectError(env.do(http.MethodGet, "/access/not-a-token", nil, nil), http.StatusForbidden, "access_denied")

	env.expectError(env.do(http.MethodDelete, "/api/v1/share-tokens/"+tok.Value, &bob, nil), http.StatusForbidden, "access_denied")
	env.expect(env.do(http.MethodDelete, "/api/v1/share-tokens/"+tok.Value, &admin, nil), http.StatusNoContent, nil)
	env.expectError(env.do(http.MethodGet, "/access/"+tok.Value, nil, nil), http.StatusForbidden, "access_denied")
}

func TestDeletePollRevokesTokens(t *testing.T) {
	env := newTestEnv(t)
	id := env.createPoll()

	var tok share.IssuedToken
	env.expect(env.do(http.MethodPost, fmt.Sprintf("/api/v1/polls/%d/share-token", id), &admin, nil), http.StatusCreated, &tok)
	env.expect(env.do(http.MethodPost, fmt.Sprintf("/api/v1/polls/%d/vote", id), &alice, ballot(59, 30, "cafe")), http.StatusOK, nil)
	env.expect(env.do(http.MethodGet, "/access/"+tok.Value, nil, nil), http.StatusOK, nil)

	env.expectError(env.do(http.MethodDelete, fmt.Sprintf("/api/v1/polls/%d", id), &alice, nil), http.StatusForbidden, "access_denied")
	env.expect(env.do(http.MethodDelete, fmt.Sprintf("/api/v1/polls/%d", id), &admin, nil), http.StatusNoContent, nil)

	env.expectError(env.do(http.MethodGet, "/access/"+tok.Value, nil, nil), http.StatusForbidden, "access_denied")
	env.expectError(env.do(http.MethodGet, fmt.Sprintf("/api/v1/polls/%d", id), &alice, nil), http.StatusNotFound, "poll_not_found")
}

func TestPollLifecycle(t *testing.T) {
	env := newTestEnv(t)

	env.expectError(env.do(http.MethodPost, "/api/v1/polls", &alice, map[string]any{"group_id": 10, "question": "?"}), http.StatusForbidden, "access_denied")
	env.expectError(env.do(http.MethodPost, "/api/v1/polls", &admin, map[string]any{"group_id": 10, "question": "  "}), http.StatusBadRequest, "invalid_question")

	id := env.createPoll()

	var updated poll.Poll
	env.expect(env.do(http.MethodPatch, fmt.Sprintf("/api/v1/polls/%d", id), &admin, map[string]any{
		"question": "Saturday instead?",
		"ends_at":  time.Now().Add(48 * time.Hour),
	}), http.StatusOK, &updated)
	if updated.Question != "Saturday instead?" {
		t.Fatalf("rename not applied: %+v", updated)
	}

	var list []poll.Poll
	env.expect(env.do(http.MethodGet, "/api/v1/polls?group_id=10", &bob, nil), http.StatusOK, &list)
	if len(list) != 1 || list[0].ID != id {
		t.Fatalf("unexpected list %+v", list)
	}
	env.expectError(env.do(http.MethodGet, "/api/v1/polls?group_id=10", &eve, nil), http.StatusForbidden, "access_denied")

	var cats []string
	env.expect(env.do(http.MethodGet, "/api/v1/categories", &bob, nil), http.StatusOK, &cats)
	if len(cats) == 0 {
		t.Fatalf("expected categories")
	}
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)
	env.expect(env.do(http.MethodGet, "/health", nil, nil), http.StatusOK, nil)
	env.expect(env.do(http.MethodGet, "/ready", nil, nil), http.StatusOK, nil)
}
