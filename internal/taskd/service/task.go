package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskd/internal/taskd/cache"
	"github.com/aussiebroadwan/taskd/internal/taskd/domain"
	"github.com/aussiebroadwan/taskd/internal/taskd/store"
	"github.com/aussiebroadwan/taskd/pkg/slogx"
)

type CreateTaskInput struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	Status      string     `json:"status" validate:"omitempty,task_status"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Tags        []string   `json:"tags" validate:"max=20,dive,required,max=32,excludesall=0x2C"`
}

// UpdateTaskInput is a partial update; nil fields are left alone. Tags are
// only ever added.
type UpdateTaskInput struct {
	Title       *string    `json:"title,omitempty" validate:"omitnil,min=1,max=200"`
	Description *string    `json:"description,omitempty" validate:"omitnil,max=2000"`
	Status      *string    `json:"status,omitempty" validate:"omitnil,task_status"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Tags        []string   `json:"tags,omitempty" validate:"max=20,dive,required,max=32,excludesall=0x2C"`
}

type ListTasksInput struct {
	AccountID int64
	Tags      []string `json:"tags" validate:"max=20,dive,max=32"`
	Status    string   `json:"status" validate:"omitempty,task_status"`
	Sort      string   `json:"sort" validate:"omitempty,oneof=asc desc"`
	Page      int      `json:"page" validate:"min=0,max=100000"`
}

type TaskService struct {
	Store store.Store
	Cache *cache.QueryCache
}

// Create stores a task and its tags in one transaction.
func (s *TaskService) Create(ctx context.Context, accountID int64, in CreateTaskInput) (domain.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Tags = cache.NormalizeTags(in.Tags)
	if err := Validate(in); err != nil {
		return domain.Task{}, err
	}

	status := domain.StatusTodo
	if in.Status != "" {
		status = domain.TaskStatus(in.Status)
	}

	var task domain.Task
	err := s.Store.WithTx(ctx, func(tx store.Repos) error {
		var err error
		task, err = tx.Tasks().CreateTask(ctx, domain.Task{
			AccountID:   accountID,
			Title:       in.Title,
			Description: in.Description,
			Status:      status,
			Deadline:    in.Deadline,
		})
		if err != nil {
			return err
		}
		if err := attachTags(ctx, tx, task.ID, in.Tags); err != nil {
			return err
		}
		task.Tags = in.Tags
		return nil
	})
	if err != nil {
		return domain.Task{}, storageErr("create task", err)
	}

	s.invalidate(ctx, accountID)
	return task, nil
}

// List returns one page, read through the query cache.
func (s *TaskService) List(ctx context.Context, in ListTasksInput) (domain.TaskPage, error) {
	in.Tags = cache.NormalizeTags(in.Tags)
	in.Status = strings.ToUpper(strings.TrimSpace(in.Status))
	in.Sort = strings.ToLower(strings.TrimSpace(in.Sort))
	if err := Validate(in); err != nil {
		return domain.TaskPage{}, err
	}

	filter := domain.TaskFilter{
		AccountID: in.AccountID,
		Tags:      in.Tags,
		Status:    domain.TaskStatus(in.Status),
		Sort:      domain.SortDesc,
		Page:      max(in.Page, 1),
	}
	if in.Sort == string(domain.SortAsc) {
		filter.Sort = domain.SortAsc
	}

	load := func(ctx context.Context) (domain.TaskPage, error) {
		items, total, err := s.Store.Tasks().ListTasks(ctx, filter)
		if err != nil {
			return domain.TaskPage{}, storageErr("list tasks", err)
		}
		return domain.TaskPage{Items: items, Page: filter.Page, PageSize: domain.PageSize, Total: total}, nil
	}

	if s.Cache == nil {
		return load(ctx)
	}
	return cache.Load(ctx, s.Cache, cache.ListQuery{
		Subject: filter.AccountID,
		Tags:    filter.Tags,
		Status:  string(filter.Status),
		Sort:    string(filter.Sort),
		Page:    filter.Page,
	}, load)
}

func (s *TaskService) Get(ctx context.Context, accountID, id int64) (domain.Task, error) {
	task, err := s.Store.Tasks().GetTask(ctx, accountID, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Task{}, notFound("task not found")
	}
	if err != nil {
		return domain.Task{}, storageErr("get task", err)
	}
	return task, nil
}

// Update applies the non-nil fields of in and attaches any new tags.
func (s *TaskService) Update(ctx context.Context, accountID, id int64, in UpdateTaskInput) (domain.Task, error) {
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		in.Title = &t
	}
	in.Tags = cache.NormalizeTags(in.Tags)
	if err := Validate(in); err != nil {
		return domain.Task{}, err
	}

	var task domain.Task
	err := s.Store.WithTx(ctx, func(tx store.Repos) error {
		current, err := tx.Tasks().GetTask(ctx, accountID, id)
		if err != nil {
			return err
		}

		if in.Title != nil {
			current.Title = *in.Title
		}
		if in.Description != nil {
			current.Description = *in.Description
		}
		if in.Status != nil {
			current.Status = domain.TaskStatus(*in.Status)
		}
		if in.Deadline != nil {
			current.Deadline = in.Deadline
		}

		if err := attachTags(ctx, tx, current.ID, in.Tags); err != nil {
			return err
		}
		task, err = tx.Tasks().UpdateTask(ctx, current)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return domain.Task{}, notFound("task not found")
	}
	if err != nil {
		return domain.Task{}, storageErr("update task", err)
	}

	s.invalidate(ctx, accountID)
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, accountID, id int64) error {
	err := s.Store.Tasks().DeleteTask(ctx, accountID, id)
	if errors.Is(err, store.ErrNotFound) {
		return notFound("task not found")
	}
	if err != nil {
		return storageErr("delete task", err)
	}

	s.invalidate(ctx, accountID)
	return nil
}

// invalidate drops the account's cached pages. The write already
// succeeded, so a cache failure is only logged.
func (s *TaskService) invalidate(ctx context.Context, accountID int64) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, accountID); err != nil {
		slogx.FromContext(ctx).Error("query cache invalidation failed", "account_id", accountID, "err", err)
	}
}

func attachTags(ctx context.Context, tx store.Repos, taskID int64, names []string) error {
	for _, name := range names {
		tag, err := tx.Tags().UpsertTag(ctx, name)
		if err != nil {
			return err
		}
		if err := tx.Tags().AttachTag(ctx, taskID, tag.ID); err != nil {
			return err
		}
	}
	return nil
}
