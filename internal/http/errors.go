package api

import (
	"errors"
	"net/http"

	"where2meet/internal/domain/poll"
	"where2meet/internal/domain/result"
	"where2meet/internal/domain/share"
	"where2meet/internal/domain/vote"
	"where2meet/internal/platform/apperr"
)

// errorResponse writes the mapped error. Authorization failures are
// reported as a bare access_denied and their internal kind is logged.
func errorResponse(w http.ResponseWriter, err error) {
	appErr := mapError(err)
	switch status := appErr.StatusCode(); {
	case status == http.StatusForbidden:
		slogLogger.Warn("access denied", "code", appErr.Code, "kind", appErr.Detail())
	case status >= http.StatusInternalServerError:
		slogLogger.Error("request failed", "code", appErr.Code, "error", appErr.Detail())
	}
	writeJSON(w, appErr.StatusCode(), appErr.Body())
}

func mapError(err error) *apperr.AppError {
	if err == nil {
		return apperr.Internal("internal_error", "internal server error", nil)
	}

	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, vote.ErrInvalidPoint):
		return apperr.BadRequest("invalid_point", "point must have latitude in [-90, 90] and longitude in [-180, 180]", err)
	case errors.Is(err, vote.ErrEmptyCategorySet):
		return apperr.BadRequest("empty_categories", "choose at least one category", err)
	case errors.Is(err, vote.ErrCategoryTooLong), errors.Is(err, vote.ErrTooManyCategories):
		return apperr.BadRequest("invalid_categories", err.Error(), err)
	case errors.Is(err, vote.ErrFutureSubmission):
		return apperr.BadRequest("invalid_submitted_at", "submitted_at must not be in the future", err)
	case errors.Is(err, vote.ErrPollClosed), errors.Is(err, poll.ErrPollClosed):
		return apperr.BadRequest("poll_closed", "poll is closed", err)
	case errors.Is(err, poll.ErrInvalidQuestion):
		return apperr.BadRequest("invalid_question", "question is required", err)
	case errors.Is(err, poll.ErrInvalidDates):
		return apperr.BadRequest("invalid_dates", "ends_at must be in the future", err)
	case errors.Is(err, result.ErrInvalidRadius):
		return apperr.BadRequest("invalid_radius", "radius must be between 50 and 2500 meters", err)
	case errors.Is(err, result.ErrInvalidRating):
		return apperr.BadRequest("invalid_rating", "minRating must be between 0 and 5", err)
	case errors.Is(err, result.ErrNoVotes):
		return apperr.Conflict("no_votes", "nobody has voted yet", err)
	case errors.Is(err, share.ErrAccessDenied),
		errors.Is(err, poll.ErrNotOwner),
		errors.Is(err, poll.ErrNotMember),
		errors.Is(err, poll.ErrNotGroupAdmin):
		return apperr.Forbidden("access_denied", "access denied", err)
	case errors.Is(err, poll.ErrPollNotFound):
		return apperr.NotFound("poll_not_found", "poll not found", err)
	default:
		return apperr.Internal("internal_error", http.StatusText(http.StatusInternalServerError), err)
	}
}
