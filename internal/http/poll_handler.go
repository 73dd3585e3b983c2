package api

import (
	"net/http"

	"polls-service/internal/domain/poll"
	"polls-service/internal/metrics"
	"polls-service/internal/platform/apperr"
)

type createPollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type pollResponse struct {
	Poll    *poll.Poll    `json:"poll"`
	Options []poll.Option `json:"options"`
}

type pollListResponse struct {
	Polls []poll.Poll `json:"polls"`
}

// @Summary     Create a poll
// @Tags        polls
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       request  body      createPollRequest  true  "Question and at least two options"
// @Success     201      {object}  pollResponse
// @Failure     400      {object}  map[string]string  "validation error"
// @Failure     401      {object}  map[string]string  "unauthorized"
// @Failure     429      {object}  map[string]string  "rate limited"
// @Failure     500      {object}  map[string]string  "server error"
// @Router      /api/v1/polls [post]
func (h *Handler) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	p, opts, err := h.pollSvc.Create(r.Context(), req.Question, req.Options, userIDFromCtx(r))
	if err != nil {
		errorResponse(w, err)
		return
	}
	metrics.IncPollCreated()

	writeJSON(w, http.StatusCreated, pollResponse{Poll: p, Options: opts})
}

// @Summary     List polls, newest first
// @Tags        polls
// @Produce     json
// @Success     200  {object}  pollListResponse
// @Failure     500  {object}  map[string]string  "server error"
// @Router      /api/v1/polls [get]
func (h *Handler) handleListPolls(w http.ResponseWriter, r *http.Request) {
	polls, err := h.pollSvc.List(r.Context())
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pollListResponse{Polls: polls})
}

// @Summary     Get a poll with its options
// @Tags        polls
// @Produce     json
// @Param       id   path      int64  true  "Poll ID"
// @Success     200  {object}  pollResponse
// @Failure     400  {object}  map[string]string  "invalid poll id"
// @Failure     404  {object}  map[string]string  "not found"
// @Router      /api/v1/polls/{id} [get]
func (h *Handler) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	p, opts, err := h.pollSvc.Get(r.Context(), id)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pollResponse{Poll: p, Options: opts})
}

// @Summary     Delete a poll and its votes
// @Tags        polls
// @Security    BearerAuth
// @Param       id   path  int64  true  "Poll ID"
// @Success     204
// @Failure     400  {object}  map[string]string  "invalid poll id"
// @Failure     401  {object}  map[string]string  "unauthorized"
// @Failure     403  {object}  map[string]string  "not the author"
// @Failure     404  {object}  map[string]string  "not found"
// @Failure     500  {object}  map[string]string  "server error"
// @Router      /api/v1/polls/{id} [delete]
func (h *Handler) handleDeletePoll(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	if err := h.pollSvc.Delete(r.Context(), id, userIDFromCtx(r)); err != nil {
		errorResponse(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
