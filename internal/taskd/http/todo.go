package http

import (
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/taskd/internal/taskd/service"
	"github.com/aussiebroadwan/taskd/pkg/httpx"
)

// TodoHandler serves /todo. Every route runs behind the guard, so the
// account id is always in the context.
type TodoHandler struct {
	Tasks *service.TaskService
}

// HandleList godoc
//
//	@Summary		List tasks
//	@Description	One page of the caller's tasks, newest first by default. A task matches tags only when it carries all of them.
//	@Tags			Todo
//	@Produce		json
//	@Security		BearerAuth
//	@Param			tags	query		string	false	"comma-separated tags"
//	@Param			status	query		string	false	"TODO, IN_PROGRESS or DONE"
//	@Param			sort	query		string	false	"asc or desc"
//	@Param			page	query		int		false	"1-based page"
//	@Success		200		{object}	taskdsdk.TaskPage
//	@Failure		400		{object}	httpx.ErrorBody
//	@Failure		401		{object}	httpx.ErrorBody
//	@Router			/todo [get]
func (h *TodoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	accountID, _ := httpx.AccountIDFromContext(r.Context())
	q := r.URL.Query()

	in := service.ListTasksInput{
		AccountID: accountID,
		Tags:      httpx.ParseCommaFields(q.Get("tags")),
		Status:    q.Get("status"),
		Sort:      q.Get("sort"),
	}
	if p := q.Get("page"); p != "" {
		page, err := strconv.Atoi(p)
		if err != nil || page < 1 {
			httpx.WriteValidationError(w, r, map[string]string{"page": "page must be a positive integer"})
			return
		}
		in.Page = page
	}

	page, err := h.Tasks.List(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

// HandleCreate godoc
//
//	@Summary		Create task
//	@Tags			Todo
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		taskdsdk.CreateTaskRequest	true	"task"
//	@Success		201		{object}	taskdsdk.Task
//	@Failure		400		{object}	httpx.ErrorBody
//	@Failure		401		{object}	httpx.ErrorBody
//	@Router			/todo [post]
func (h *TodoHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	accountID, _ := httpx.AccountIDFromContext(r.Context())

	var in service.CreateTaskInput
	if !decodeBody(w, r, &in) {
		return
	}

	task, err := h.Tasks.Create(r.Context(), accountID, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, task)
}

// HandleGet godoc
//
//	@Summary	Get task
//	@Tags		Todo
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		int	true	"task id"
//	@Success	200	{object}	taskdsdk.Task
//	@Failure	404	{object}	httpx.ErrorBody
//	@Router		/todo/{id} [get]
func (h *TodoHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	accountID, _ := httpx.AccountIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	task, err := h.Tasks.Get(r.Context(), accountID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, task)
}

// HandleUpdate godoc
//
//	@Summary		Update task
//	@Description	Partial update. Tags in the body are added to the task; existing tags are kept.
//	@Tags			Todo
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		int							true	"task id"
//	@Param			body	body		taskdsdk.UpdateTaskRequest	true	"fields to change"
//	@Success		200		{object}	taskdsdk.Task
//	@Failure		400		{object}	httpx.ErrorBody
//	@Failure		404		{object}	httpx.ErrorBody
//	@Router			/todo/{id} [patch]
func (h *TodoHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	accountID, _ := httpx.AccountIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var in service.UpdateTaskInput
	if !decodeBody(w, r, &in) {
		return
	}

	task, err := h.Tasks.Update(r.Context(), accountID, id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, task)
}

// HandleDelete godoc
//
//	@Summary	Delete task
//	@Tags		Todo
//	@Security	BearerAuth
//	@Param		id	path	int	true	"task id"
//	@Success	204
//	@Failure	404	{object}	httpx.ErrorBody
//	@Router		/todo/{id} [delete]
func (h *TodoHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	accountID, _ := httpx.AccountIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.Tasks.Delete(r.Context(), accountID, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
