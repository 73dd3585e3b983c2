package api

import (
	"net/http"

	"polls-service/internal/domain/user"
	"polls-service/internal/platform/apperr"
)

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User  *user.User `json:"user"`
	Token string     `json:"token"`
}

// @Summary     Register a user
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request  body      authRequest  true  "Credentials"
// @Success     201      {object}  authResponse
// @Failure     400      {object}  map[string]string  "invalid body"
// @Failure     409      {object}  map[string]string  "email taken"
// @Failure     429      {object}  map[string]string  "rate limited"
// @Router      /api/v1/auth/register [post]
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	u, err := h.userSvc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		errorResponse(w, err)
		return
	}

	h.writeToken(w, http.StatusCreated, u)
}

// @Summary     Log in
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request  body      authRequest  true  "Credentials"
// @Success     200      {object}  authResponse
// @Failure     400      {object}  map[string]string  "invalid body"
// @Failure     401      {object}  map[string]string  "invalid credentials"
// @Failure     429      {object}  map[string]string  "rate limited"
// @Router      /api/v1/auth/login [post]
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	u, err := h.userSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		errorResponse(w, err)
		return
	}

	h.writeToken(w, http.StatusOK, u)
}

func (h *Handler) writeToken(w http.ResponseWriter, status int, u *user.User) {
	token, err := h.jwtMgr.Generate(u.ID, u.Role, h.tokenTTL)
	if err != nil {
		errorResponse(w, apperr.Internal("token_error", "could not issue token", err))
		return
	}
	writeJSON(w, status, authResponse{User: u, Token: token})
}
