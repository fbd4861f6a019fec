package http_handlers

import (
	"errors"
	"net/http"

	"github.com/baechuer/tokenauth/internal/application/auth"
	"github.com/baechuer/tokenauth/internal/domain"
	"github.com/baechuer/tokenauth/internal/logger"
	"github.com/baechuer/tokenauth/internal/transport/http/dto"
	"github.com/baechuer/tokenauth/internal/transport/http/middleware"
	"github.com/baechuer/tokenauth/internal/transport/http/response"
)

type UsersHandler struct {
	svc *auth.Service
}

func NewUsersHandler(svc *auth.Service) *UsersHandler {
	return &UsersHandler{svc: svc}
}

// Register handles POST /users
func (h *UsersHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", res.Account.ID).
		Msg("user_registered")

	w.Header().Set(middleware.HeaderXAuth, res.Token)
	response.Created(w, dto.RegisterResponse{
		User:  dto.NewUserResponse(h.svc.Me(res.Account)),
		Token: res.Token,
	})
}

// Login handles POST /users/login
func (h *UsersHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		middleware.LoginAttemptsTotal.WithLabelValues(errCode(err)).Inc()
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		middleware.LoginAttemptsTotal.WithLabelValues(errCode(err)).Inc()
		response.WriteError(w, r, err)
		return
	}
	middleware.LoginAttemptsTotal.WithLabelValues("success").Inc()

	w.Header().Set(middleware.HeaderXAuth, res.Token)
	response.OK(w, dto.LoginResponse{
		User:  dto.NewUserResponse(h.svc.Me(res.Account)),
		Token: res.Token,
	})
}

// Me handles GET /users/me
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	acct, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenMissing())
		return
	}
	response.OK(w, dto.NewUserResponse(h.svc.Me(acct)))
}

// Logout handles DELETE /users/me/token and revokes only the presented token.
func (h *UsersHandler) Logout(w http.ResponseWriter, r *http.Request) {
	acct, tok, ok := sessionFromRequest(r)
	if !ok {
		response.WriteError(w, r, domain.ErrTokenMissing())
		return
	}

	if err := h.svc.Logout(r.Context(), acct, tok); err != nil {
		response.WriteError(w, r, err)
		return
	}
	middleware.TokenRevocationsTotal.Inc()

	response.NoContent(w)
}

// ChangePassword handles POST /users/me/password. The session making the
// request survives; every other token of the account is revoked.
func (h *UsersHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	acct, tok, ok := sessionFromRequest(r)
	if !ok {
		response.WriteError(w, r, domain.ErrTokenMissing())
		return
	}

	var req dto.ChangePasswordRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.ChangePassword(r.Context(), acct, tok, req.OldPassword, req.NewPassword); err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.NoContent(w)
}

// DeleteAccount handles DELETE /users/me
func (h *UsersHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	acct, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenMissing())
		return
	}

	if err := h.svc.DeleteAccount(r.Context(), acct); err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", acct.ID).
		Msg("user_deleted")

	response.NoContent(w)
}

func sessionFromRequest(r *http.Request) (*domain.UserAccount, string, bool) {
	acct, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		return nil, "", false
	}
	tok, ok := middleware.TokenFromContext(r.Context())
	if !ok {
		return nil, "", false
	}
	return acct, tok, true
}

func errCode(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "internal_error"
}
