package http

import (
	"net/http"

	"github.com/aussiebroadwan/taskd/internal/taskd/service"
	"github.com/aussiebroadwan/taskd/pkg/httpx"
	"github.com/aussiebroadwan/taskd/pkg/taskdsdk"
)

type AccountsHandler struct {
	Accounts *service.AccountService
}

// HandleMe godoc
//
//	@Summary	Current account
//	@Tags		Accounts
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	taskdsdk.User
//	@Failure	401	{object}	httpx.ErrorBody
//	@Router		/accounts/me [get]
func (h *AccountsHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, _ := httpx.AccountIDFromContext(r.Context())

	account, err := h.Accounts.Me(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userView(account))
}

// HandleUpdateMe godoc
//
//	@Summary		Update current account
//	@Description	Change username and/or password. A password change ends the refresh session.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		taskdsdk.UpdateAccountRequest	true	"fields to change"
//	@Success		200		{object}	taskdsdk.User
//	@Failure		400		{object}	httpx.ErrorBody
//	@Router			/accounts/me [patch]
func (h *AccountsHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	id, _ := httpx.AccountIDFromContext(r.Context())

	var in service.UpdateAccountInput
	if !decodeBody(w, r, &in) {
		return
	}

	account, err := h.Accounts.UpdateProfile(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userView(account))
}

// HandleList godoc
//
//	@Summary	List accounts
//	@Tags		Accounts
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{array}		taskdsdk.User
//	@Failure	403	{object}	httpx.ErrorBody	"FORBIDDEN"
//	@Router		/accounts [get]
func (h *AccountsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Accounts.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]taskdsdk.User, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, userView(a))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleDelete godoc
//
//	@Summary	Delete account
//	@Tags		Accounts
//	@Security	BearerAuth
//	@Param		id	path	int	true	"account id"
//	@Success	204
//	@Failure	403	{object}	httpx.ErrorBody	"FORBIDDEN"
//	@Failure	404	{object}	httpx.ErrorBody
//	@Router		/accounts/{id} [delete]
func (h *AccountsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, _ := httpx.AccountIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.Accounts.Delete(r.Context(), actor, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
