package taskdsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

func (s *Session) CreateTask(ctx context.Context, req CreateTaskRequest) (*Task, error) {
	var out Task
	if err := s.do(ctx, http.MethodPost, "/todo", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) ListTasks(ctx context.Context, opts ListTasksOptions) (*TaskPage, error) {
	q := url.Values{}
	if len(opts.Tags) > 0 {
		q.Set("tags", strings.Join(opts.Tags, ","))
	}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}

	path := "/todo"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out TaskPage
	if err := s.do(ctx, http.MethodGet, path, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) GetTask(ctx context.Context, id int64) (*Task, error) {
	var out Task
	if err := s.do(ctx, http.MethodGet, taskPath(id), nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) UpdateTask(ctx context.Context, id int64, req UpdateTaskRequest) (*Task, error) {
	var out Task
	if err := s.do(ctx, http.MethodPatch, taskPath(id), req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) DeleteTask(ctx context.Context, id int64) error {
	return s.do(ctx, http.MethodDelete, taskPath(id), nil, nil, http.StatusNoContent)
}

func taskPath(id int64) string {
	return "/todo/" + strconv.FormatInt(id, 10)
}
