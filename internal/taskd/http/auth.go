package http

import (
	"net/http"

	"github.com/aussiebroadwan/taskd/internal/taskd/domain"
	"github.com/aussiebroadwan/taskd/internal/taskd/service"
	"github.com/aussiebroadwan/taskd/pkg/httpx"
	"github.com/aussiebroadwan/taskd/pkg/taskdsdk"
)

// AuthHandler serves the session lifecycle routes under /auth.
type AuthHandler struct {
	Sessions *service.SessionService
	Cookies  httpx.CookiePolicy
}

// HandleSignUp godoc
//
//	@Summary		Sign up
//	@Description	Create a USER account and start a session. The refresh token is set as an HttpOnly cookie.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		taskdsdk.SignUpRequest	true	"username, email, password"
//	@Success		201		{object}	taskdsdk.AuthResponse
//	@Failure		400		{object}	httpx.ErrorBody	"validation failed"
//	@Failure		409		{object}	httpx.ErrorBody	"account already exists"
//	@Router			/auth/sign-up [post]
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var in service.SignUpInput
	if !decodeBody(w, r, &in) {
		return
	}

	res, err := h.Sessions.SignUp(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeAuth(w, http.StatusCreated, res)
}

// HandleSignIn godoc
//
//	@Summary		Sign in
//	@Description	Exchange email and password for an access token and a refresh cookie.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		taskdsdk.SignInRequest	true	"email, password"
//	@Success		200		{object}	taskdsdk.AuthResponse
//	@Failure		400		{object}	httpx.ErrorBody	"validation failed"
//	@Failure		401		{object}	httpx.ErrorBody	"invalid credentials"
//	@Router			/auth/sign-in [post]
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var in service.SignInInput
	if !decodeBody(w, r, &in) {
		return
	}

	res, err := h.Sessions.SignIn(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeAuth(w, http.StatusOK, res)
}

// HandleRefresh godoc
//
//	@Summary		Refresh tokens
//	@Description	Rotate the refresh cookie and issue a new access token. Presenting a superseded refresh token revokes the session.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	taskdsdk.AuthResponse
//	@Failure		401	{object}	httpx.ErrorBody	"REFRESH_INVALID or REFRESH_EXPIRED"
//	@Router			/auth/refresh [post]
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := h.Sessions.Refresh(r.Context(), httpx.RefreshCookie(r))
	if err != nil {
		h.Cookies.ClearRefreshCookie(w)
		writeServiceError(w, r, err)
		return
	}
	h.writeAuth(w, http.StatusOK, res)
}

// HandleSignOut godoc
//
//	@Summary		Sign out
//	@Description	End the session behind the refresh cookie. A bearer access token for the same account is blacklisted until it expires.
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	taskdsdk.SignOutResponse
//	@Failure		401	{object}	httpx.ErrorBody	"REFRESH_INVALID"
//	@Router			/auth/sign-out [delete]
func (h *AuthHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	err := h.Sessions.SignOut(r.Context(), httpx.RefreshCookie(r), httpx.BearerToken(r))
	h.Cookies.ClearRefreshCookie(w)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, taskdsdk.SignOutResponse{
		Message: taskdsdk.SignOutMessage,
		Action:  taskdsdk.SignOutAction,
	})
}

func (h *AuthHandler) writeAuth(w http.ResponseWriter, code int, res domain.AuthResult) {
	h.Cookies.SetRefreshCookie(w, res.RefreshToken, res.RefreshExpiresAt)
	httpx.NoCache(w)
	httpx.WriteJSON(w, code, taskdsdk.AuthResponse{
		AccessToken: res.AccessToken,
		User:        userView(res.Account),
	})
}

func userView(a domain.Account) taskdsdk.User {
	return taskdsdk.User{ID: a.ID, Username: a.Username, Email: a.Email, Role: string(a.Role)}
}
