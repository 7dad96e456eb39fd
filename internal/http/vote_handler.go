package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"where2meet/internal/domain/result"
	"where2meet/internal/domain/vote"
	"where2meet/internal/geo"
	"where2meet/internal/places"
	"where2meet/internal/platform/apperr"
	"where2meet/internal/worker"
)

type voteRequest struct {
	Point      *geo.Point `json:"point"`
	Categories []string   `json:"categories"`
	// SubmittedAt orders resubmissions that arrive out of order. Defaults to
	// the server time.
	SubmittedAt *time.Time `json:"submitted_at"`
}

// @Summary     Vote for a meeting point
// @Description Inserts the caller's vote or replaces the previous one.
// @Tags        votes
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       id       path      int64        true  "Poll ID"
// @Param       request  body      voteRequest  true  "Vote payload"
// @Success     200      {object}  vote.Receipt
// @Failure     400      {object}  map[string]string  "missing or invalid point, empty categories, future submitted_at or closed poll"
// @Failure     401      {object}  map[string]string  "unauthorized"
// @Failure     403      {object}  map[string]string  "not a member"
// @Failure     404      {object}  map[string]string  "not found"
// @Failure     429      {object}  map[string]string  "rate limited"
// @Router      /api/v1/polls/{id}/vote [post]
func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	if req.Point == nil {
		errorResponse(w, apperr.BadRequest("invalid_point", "point is required", vote.ErrInvalidPoint))
		return
	}

	b := vote.Ballot{Point: *req.Point, Categories: req.Categories}
	if req.SubmittedAt != nil {
		b.SubmittedAt = *req.SubmittedAt
	}

	receipt, err := h.voteSvc.Submit(r.Context(), callerFromCtx(r), pollID, b)
	if err != nil {
		errorResponse(w, err)
		return
	}

	if receipt.Applied {
		select {
		case h.voteCh <- worker.VoteEvent{PollID: pollID, VoterID: receipt.VoterID, Revision: receipt.Revision}:
		default:
		}
	}

	writeJSON(w, http.StatusOK, receipt)
}

// @Summary     Poll results
// @Description Consensus point, most popular categories and recommended places.
// @Tags        polls
// @Security    BearerAuth
// @Produce     json
// @Param       id         path      int64    true   "Poll ID"
// @Param       radius     query     int      false  "Search radius in meters (50-2500)"
// @Param       minRating  query     number   false  "Minimum place rating (0-5)"
// @Success     200        {object}  result.PollResult
// @Failure     400        {object}  map[string]string  "invalid parameters"
// @Failure     403        {object}  map[string]string  "not a member"
// @Failure     404        {object}  map[string]string  "not found"
// @Failure     409        {object}  map[string]string  "no votes yet"
// @Router      /api/v1/polls/{id}/results [get]
func (h *Handler) handlePollResults(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}
	params, err := parseResultParams(r)
	if err != nil {
		errorResponse(w, err)
		return
	}

	res, err := h.engine.ForMember(r.Context(), callerFromCtx(r), pollID, params)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// @Summary     Suggested categories
// @Tags        votes
// @Security    BearerAuth
// @Produce     json
// @Success     200  {array}  string
// @Router      /api/v1/categories [get]
func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, places.Categories())
}

// parseResultParams reads radius and minRating. min_rating is accepted as an
// alias.
func parseResultParams(r *http.Request) (result.Params, error) {
	q := r.URL.Query()
	var p result.Params

	if s := q.Get("radius"); s != "" {
		radius, err := strconv.Atoi(s)
		if err != nil {
			return p, apperr.BadRequest("invalid_radius", "radius must be an integer", err)
		}
		if radius == 0 {
			return p, result.ErrInvalidRadius
		}
		p.Radius = radius
	}

	s := q.Get("minRating")
	if s == "" {
		s = q.Get("min_rating")
	}
	if s != "" {
		rating, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return p, apperr.BadRequest("invalid_rating", "minRating must be a number", err)
		}
		p.MinRating = result.Rating(rating)
	}
	return p, nil
}
