package api

import (
	"errors"
	"net/http"

	"polls-service/internal/domain/poll"
	"polls-service/internal/domain/vote"
	"polls-service/internal/metrics"
	"polls-service/internal/platform/apperr"
	"polls-service/internal/worker"
)

type voteRequest struct {
	OptionID int64 `json:"option_id"`
}

type pollResultsResponse struct {
	PollID     int64         `json:"poll_id"`
	TotalVotes int64         `json:"total_votes"`
	Options    []vote.Result `json:"options"`
}

type voteStatusResponse struct {
	PollID   int64 `json:"poll_id"`
	HasVoted bool  `json:"has_voted"`
}

// @Summary     Vote for an option
// @Tags        votes
// @Security    BearerAuth
// @Accept      json
// @Param       id       path      int64        true  "Poll ID"
// @Param       request  body      voteRequest  true  "Vote payload"
// @Success     204
// @Failure     400      {object}  map[string]string  "invalid body or option not in poll"
// @Failure     401      {object}  map[string]string  "unauthorized"
// @Failure     404      {object}  map[string]string  "not found"
// @Failure     409      {object}  map[string]string  "already voted"
// @Failure     429      {object}  map[string]string  "rate limited"
// @Failure     500      {object}  map[string]string  "server error"
// @Router      /api/v1/polls/{id}/vote [post]
func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	var req voteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}
	if req.OptionID <= 0 {
		errorResponse(w, apperr.BadRequest("invalid_input", "option_id is required", nil))
		return
	}

	userID := userIDFromCtx(r)

	v, err := h.voteSvc.Vote(r.Context(), pollID, req.OptionID, userID)
	if err != nil {
		metrics.IncVote(voteOutcome(err))
		errorResponse(w, err)
		return
	}
	metrics.IncVote("accepted")

	select {
	case h.voteCh <- worker.VoteEvent{PollID: v.PollID, OptionID: v.OptionID, UserID: v.UserID}:
	default:
	}

	w.WriteHeader(http.StatusNoContent)
}

func voteOutcome(err error) string {
	switch {
	case errors.Is(err, vote.ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, vote.ErrOptionNotInPoll), errors.Is(err, vote.ErrInvalidVote):
		return "invalid_option"
	case errors.Is(err, poll.ErrPollNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// @Summary     Whether the caller has voted in a poll
// @Tags        votes
// @Security    BearerAuth
// @Produce     json
// @Param       id   path      int64  true  "Poll ID"
// @Success     200  {object}  voteStatusResponse
// @Failure     400  {object}  map[string]string  "invalid poll id"
// @Failure     401  {object}  map[string]string  "unauthorized"
// @Failure     500  {object}  map[string]string  "server error"
// @Router      /api/v1/polls/{id}/vote [get]
func (h *Handler) handleVoteStatus(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	voted, err := h.voteSvc.HasVoted(r.Context(), pollID, userIDFromCtx(r))
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, voteStatusResponse{PollID: pollID, HasVoted: voted})
}

// @Summary     Poll results
// @Tags        polls
// @Produce     json
// @Param       id   path      int64  true  "Poll ID"
// @Success     200  {object}  pollResultsResponse
// @Failure     400  {object}  map[string]string  "invalid poll id"
// @Failure     404  {object}  map[string]string  "not found"
// @Failure     500  {object}  map[string]string  "server error"
// @Router      /api/v1/polls/{id}/results [get]
func (h *Handler) handlePollResults(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	res, total, err := h.voteSvc.Results(r.Context(), pollID)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pollResultsResponse{
		PollID:     pollID,
		TotalVotes: total,
		Options:    res,
	})
}
