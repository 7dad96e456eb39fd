package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"where2meet/internal/domain/poll"
	"where2meet/internal/platform/apperr"
)

type createPollRequest struct {
	GroupID  int64      `json:"group_id"`
	Question string     `json:"question"`
	EndsAt   *time.Time `json:"ends_at"`
}

type updatePollRequest struct {
	Question *string    `json:"question"`
	EndsAt   *time.Time `json:"ends_at"`
}

// @Summary     Create poll
// @Tags        polls
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       request  body      createPollRequest  true  "Poll payload"
// @Success     201      {object}  poll.Poll
// @Failure     400      {object}  map[string]string  "invalid body"
// @Failure     401      {object}  map[string]string  "unauthorized"
// @Failure     403      {object}  map[string]string  "caller is not a group admin"
// @Router      /api/v1/polls [post]
func (h *Handler) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}
	if req.GroupID == 0 {
		errorResponse(w, apperr.BadRequest("invalid_input", "group_id is required", nil))
		return
	}

	p, err := h.pollSvc.Create(r.Context(), callerFromCtx(r), req.GroupID, req.Question, req.EndsAt)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// @Summary     List polls of a group
// @Tags        polls
// @Security    BearerAuth
// @Produce     json
// @Param       group_id  query     int64  true  "Group ID"
// @Success     200       {array}   poll.Poll
// @Failure     400       {object}  map[string]string  "invalid group id"
// @Failure     403       {object}  map[string]string  "not a member"
// @Router      /api/v1/polls [get]
func (h *Handler) handleListPolls(w http.ResponseWriter, r *http.Request) {
	groupID, err := strconv.ParseInt(r.URL.Query().Get("group_id"), 10, 64)
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "group_id query parameter is required", err))
		return
	}

	polls, err := h.pollSvc.ListByGroup(r.Context(), callerFromCtx(r), groupID)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, polls)
}

// @Summary     Get poll
// @Tags        polls
// @Security    BearerAuth
// @Produce     json
// @Param       id   path      int64  true  "Poll ID"
// @Success     200  {object}  pollResponse
// @Failure     403  {object}  map[string]string  "not a member"
// @Failure     404  {object}  map[string]string  "not found"
// @Router      /api/v1/polls/{id} [get]
func (h *Handler) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	p, err := h.pollSvc.Get(r.Context(), callerFromCtx(r), id)
	if err != nil {
		errorResponse(w, err)
		return
	}
	count, err := h.voteSvc.VoteCount(r.Context(), id)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pollResponse{Poll: *p, VoteCount: count})
}

type pollResponse struct {
	poll.Poll
	VoteCount int64 `json:"vote_count"`
}

// @Summary     Rename or extend poll
// @Tags        polls
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       id       path      int64              true  "Poll ID"
// @Param       request  body      updatePollRequest  true  "Fields to change"
// @Success     200      {object}  poll.Poll
// @Failure     400      {object}  map[string]string  "invalid body or closed poll"
// @Failure     403      {object}  map[string]string  "not the creator"
// @Failure     404      {object}  map[string]string  "not found"
// @Router      /api/v1/polls/{id} [patch]
func (h *Handler) handleUpdatePoll(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	var req updatePollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}
	if req.Question == nil && req.EndsAt == nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "nothing to update", nil))
		return
	}

	p, err := h.pollSvc.Update(r.Context(), callerFromCtx(r), id, poll.UpdateInput{
		Question: req.Question,
		EndsAt:   req.EndsAt,
	})
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// @Summary     Close poll
// @Tags        polls
// @Security    BearerAuth
// @Param       id  path  int64  true  "Poll ID"
// @Success     204
// @Failure     400  {object}  map[string]string  "already closed"
// @Failure     403  {object}  map[string]string  "not the creator"
// @Failure     404  {object}  map[string]string  "not found"
// @Router      /api/v1/polls/{id}/close [post]
func (h *Handler) handleClosePoll(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}
	if err := h.pollSvc.Close(r.Context(), callerFromCtx(r), id); err != nil {
		errorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary     Delete poll
// @Description Deletes the poll with its votes and revokes its share tokens.
// @Tags        polls
// @Security    BearerAuth
// @Param       id  path  int64  true  "Poll ID"
// @Success     204
// @Failure     403  {object}  map[string]string  "not the creator"
// @Failure     404  {object}  map[string]string  "not found"
// @Router      /api/v1/polls/{id} [delete]
func (h *Handler) handleDeletePoll(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}
	if err := h.pollSvc.Delete(r.Context(), callerFromCtx(r), id); err != nil {
		errorResponse(w, err)
		return
	}
	if h.engine != nil {
		h.engine.Invalidate(id)
	}
	w.WriteHeader(http.StatusNoContent)
}
