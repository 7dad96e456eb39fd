package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"where2meet/internal/platform/apperr"
)

type issueTokenRequest struct {
	TTLMinutes int `json:"ttl_minutes"`
}

// @Summary     Create share link
// @Description Issues a read-only results token. Only the poll creator may call it.
// @Tags        share
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       id       path      int64              true   "Poll ID"
// @Param       request  body      issueTokenRequest  false  "Token lifetime"
// @Success     201      {object}  share.IssuedToken
// @Failure     403      {object}  map[string]string  "access denied"
// @Failure     404      {object}  map[string]string  "not found"
// @Router      /api/v1/polls/{id}/share-token [post]
func (h *Handler) handleIssueShareToken(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	var req issueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}
	if req.TTLMinutes < 0 {
		errorResponse(w, apperr.BadRequest("invalid_input", "ttl_minutes must not be negative", nil))
		return
	}

	tok, err := h.shareMgr.Issue(r.Context(), pollID, callerFromCtx(r).UserID, time.Duration(req.TTLMinutes)*time.Minute)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tok)
}

// @Summary     Revoke share link
// @Tags        share
// @Security    BearerAuth
// @Param       token  path  string  true  "Share token"
// @Success     204
// @Failure     403  {object}  map[string]string  "access denied"
// @Router      /api/v1/share-tokens/{token} [delete]
func (h *Handler) handleRevokeShareToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if err := h.shareMgr.Revoke(r.Context(), token, callerFromCtx(r).UserID); err != nil {
		errorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary     Results by share link
// @Description Same shape as poll results plus the owner's display name. Any token problem yields 403 access_denied.
// @Tags        share
// @Produce     json
// @Param       token      path      string  true   "Share token"
// @Param       radius     query     int     false  "Search radius in meters (50-2500)"
// @Param       minRating  query     number  false  "Minimum place rating (0-5)"
// @Success     200        {object}  result.SharedResult
// @Failure     403        {object}  map[string]string  "access denied"
// @Failure     409        {object}  map[string]string  "no votes yet"
// @Failure     429        {object}  map[string]string  "rate limited"
// @Router      /access/{token} [get]
func (h *Handler) handleAccess(w http.ResponseWriter, r *http.Request) {
	params, err := parseResultParams(r)
	if err != nil {
		errorResponse(w, err)
		return
	}

	res, err := h.engine.ForToken(r.Context(), chi.URLParam(r, "token"), params)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
