package api

import (
	"errors"
	"net/http"

	"polls-service/internal/domain/poll"
	"polls-service/internal/domain/user"
	"polls-service/internal/domain/vote"
	"polls-service/internal/platform/apperr"
	"polls-service/internal/platform/database"
)

func errorResponse(w http.ResponseWriter, err error) {
	appErr := mapError(err)
	if appErr.StatusCode() >= http.StatusInternalServerError {
		slogLogger.Error("request failed", "code", appErr.Code, "error", err)
	}
	writeJSON(w, appErr.StatusCode(), map[string]string{
		"error":   appErr.Code,
		"message": appErr.Message,
	})
}

func mapError(err error) *apperr.AppError {
	if err == nil {
		return apperr.Internal("internal_error", "internal server error", nil)
	}

	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var storageErr *database.StorageError
	switch {
	case poll.IsValidation(err):
		return apperr.BadRequest("validation_error", err.Error(), err)
	case errors.Is(err, poll.ErrPollNotFound):
		return apperr.NotFound("poll_not_found", "poll not found", err)
	case errors.Is(err, poll.ErrNotOwner):
		return apperr.Forbidden("forbidden", "only the poll author can delete it", err)
	case errors.Is(err, vote.ErrAlreadyVoted):
		return apperr.Conflict("already_voted", "user already voted in this poll", err)
	case errors.Is(err, vote.ErrOptionNotInPoll):
		return apperr.BadRequest("invalid_option", "option does not belong to poll", err)
	case errors.Is(err, vote.ErrInvalidVote):
		return apperr.BadRequest("invalid_input", err.Error(), err)
	case errors.Is(err, user.ErrInvalidCredentials):
		return apperr.Unauthorized("invalid_credentials", "invalid credentials", err)
	case errors.Is(err, user.ErrCredentialsRequired):
		return apperr.BadRequest("validation_error", err.Error(), err)
	case errors.Is(err, user.ErrInvalidRole):
		return apperr.BadRequest("validation_error", err.Error(), err)
	case errors.Is(err, user.ErrEmailTaken):
		return apperr.Conflict("email_taken", "email already taken", err)
	case errors.Is(err, user.ErrUserNotFound):
		return apperr.NotFound("user_not_found", "user not found", err)
	case errors.As(err, &storageErr):
		return apperr.Internal("storage_error", "storage unavailable", err)
	default:
		return apperr.Internal("internal_error", http.StatusText(http.StatusInternalServerError), err)
	}
}
