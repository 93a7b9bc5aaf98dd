package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aussiebroadwan/taskd/internal/taskd/cache"
	"github.com/aussiebroadwan/taskd/internal/taskd/domain"
	"github.com/aussiebroadwan/taskd/internal/taskd/service"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestTasks_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.signUp(t, "owner@example.com").Account.ID

	deadline := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	task, err := f.tasks.Create(ctx, owner, service.CreateTaskInput{
		Title:    "  write report ",
		Deadline: &deadline,
		Tags:     []string{"work", " urgent", "work"},
	})
	require.NoError(t, err)
	require.Equal(t, "write report", task.Title)
	require.Equal(t, domain.StatusTodo, task.Status)
	require.Equal(t, []string{"urgent", "work"}, task.Tags)

	got, err := f.tasks.Get(ctx, owner, task.ID)
	require.NoError(t, err)
	require.Equal(t, task.Title, got.Title)
	require.Equal(t, []string{"urgent", "work"}, got.Tags)
	require.NotNil(t, got.Deadline)
	require.True(t, deadline.Equal(*got.Deadline))
}

func TestTasks_Validation(t *testing.T) {
	f := newFixture(t)
	owner := f.signUp(t, "owner@example.com").Account.ID

	_, err := f.tasks.Create(context.Background(), owner, service.CreateTaskInput{
		Title:  " ",
		Status: "LATER",
	})
	var se *service.Error
	require.True(t, errors.As(err, &se))
	require.Equal(t, service.KindInvalid, se.Kind)
	require.Equal(t, "title is required", se.Fields["title"])
	require.Equal(t, "status must be one of TODO, IN_PROGRESS, DONE", se.Fields["status"])

	_, err = f.tasks.List(context.Background(), service.ListTasksInput{AccountID: owner, Sort: "sideways"})
	require.ErrorIs(t, err, service.ErrInvalid)
}

func TestTasks_TagsCannotContainCommas(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.signUp(t, "owner@example.com").Account.ID

	_, err := f.tasks.Create(ctx, owner, service.CreateTaskInput{Title: "t", Tags: []string{"a,b"}})
	var se *service.Error
	require.True(t, errors.As(err, &se))
	require.Equal(t, `tags[0] must not contain ","`, se.Fields["tags[0]"])

	task, err := f.tasks.Create(ctx, owner, service.CreateTaskInput{Title: "t"})
	require.NoError(t, err)
	_, err = f.tasks.Update(ctx, owner, task.ID, service.UpdateTaskInput{Tags: []string{"x", "y,z"}})
	require.ErrorIs(t, err, service.ErrInvalid)
}

func TestTasks_TildeTagDoesNotShareUnfilteredPage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.signUp(t, "owner@example.com").Account.ID

	_, err := f.tasks.Create(ctx, owner, service.CreateTaskInput{Title: "tilde", Tags: []string{"~"}})
	require.NoError(t, err)
	_, err = f.tasks.Create(ctx, owner, service.CreateTaskInput{Title: "plain"})
	require.NoError(t, err)

	all, err := f.tasks.List(ctx, service.ListTasksInput{AccountID: owner})
	require.NoError(t, err)
	require.Equal(t, 2, all.Total)

	tilde, err := f.tasks.List(ctx, service.ListTasksInput{AccountID: owner, Tags: []string{"~"}})
	require.NoError(t, err)
	require.Equal(t, 1, tilde.Total)
	require.Equal(t, "tilde", tilde.Items[0].Title)
}

func TestTasks_OtherAccountsAreNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.signUp(t, "owner@example.com").Account.ID
	other := f.signUp(t, "other@example.com").Account.ID

	task, err := f.tasks.Create(ctx, owner, service.CreateTaskInput{Title: "mine"})
	require.NoError(t, err)

	_, err = f.tasks.Get(ctx, other, task.ID)
	require.ErrorIs(t, err, service.ErrNotFound)
	_, err = f.tasks.Update(ctx, other, task.ID, service.UpdateTaskInput{Title: ptr("stolen")})
	require.ErrorIs(t, err, service.ErrNotFound)
	require.ErrorIs(t, f.tasks.Delete(ctx, other, task.ID), service.ErrNotFound)

	page, err := f.tasks.List(ctx, service.ListTasksInput{AccountID: other})
	require.NoError(t, err)
	require.Empty(t, page.Items)
	require.Zero(t, page.Total)
}

func TestTasks_UpdateIsPartialAndTagsAccumulate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.signUp(t, "owner@example.com").Account.ID

	task, err := f.tasks.Create(ctx, owner, service.CreateTaskInput{
		Title: "plan", Description: "keep me", Tags: []string{"home"},
	})
	require.NoError(t, err)

	updated, err := f.tasks.Update(ctx, owner, task.ID, service.UpdateTaskInput{
		Status: ptr("DONE"),
		Tags:   []string{"garden"},
	})
	require.NoError(t, err)
	require.Equal(t, "plan", updated.Title)
	require.Equal(t, "keep me", updated.Description)
	require.Equal(t, domain.StatusDone, updated.Status)
	require.Equal(t, []string{"garden", "home"}, updated.Tags)
}

func TestTasks_ListFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.signUp(t, "owner@example.com").Account.ID

	for i := range 12 {
		in := service.CreateTaskInput{Title: fmt.Sprintf("task %02d", i), Tags: []string{"all"}}
		if i%3 == 0 {
			in.Tags = append(in.Tags, "third")
			in.Status = "DONE"
		}
		_, err := f.tasks.Create(ctx, owner, in)
		require.NoError(t, err)
	}

	first, err := f.tasks.List(ctx, service.ListTasksInput{AccountID: owner})
	require.NoError(t, err)
	require.Len(t, first.Items, domain.PageSize)
	require.Equal(t, 12, first.Total)
	require.Equal(t, 1, first.Page)
	require.Equal(t, "task 11", first.Items[0].Title)

	second, err := f.tasks.List(ctx, service.ListTasksInput{AccountID: owner, Page: 2, Sort: "ASC"})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	require.Equal(t, "task 10", second.Items[0].Title)

	tagged, err := f.tasks.List(ctx, service.ListTasksInput{AccountID: owner, Tags: []string{"third", "all"}})
	require.NoError(t, err)
	require.Equal(t, 4, tagged.Total)

	done, err := f.tasks.List(ctx, service.ListTasksInput{AccountID: owner, Status: "done"})
	require.NoError(t, err)
	require.Equal(t, 4, done.Total)
	for _, task := range done.Items {
		require.Equal(t, domain.StatusDone, task.Status)
	}
}

func TestTasks_ListIsCachedAndInvalidatedOnWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.signUp(t, "owner@example.com").Account.ID

	_, err := f.tasks.Create(ctx, owner, service.CreateTaskInput{Title: "one"})
	require.NoError(t, err)

	page, err := f.tasks.List(ctx, service.ListTasksInput{AccountID: owner})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)

	key := f.queries.Key(cache.ListQuery{Subject: owner})
	require.True(t, f.mr.Exists(key))

	second, err := f.tasks.Create(ctx, owner, service.CreateTaskInput{Title: "two"})
	require.NoError(t, err)
	require.False(t, f.mr.Exists(key))

	page, err = f.tasks.List(ctx, service.ListTasksInput{AccountID: owner})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)

	require.NoError(t, f.tasks.Delete(ctx, owner, second.ID))
	page, err = f.tasks.List(ctx, service.ListTasksInput{AccountID: owner})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
}

func TestTasks_CacheOutageFailsOpen(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.signUp(t, "owner@example.com").Account.ID

	f.mr.Close()

	_, err := f.tasks.Create(ctx, owner, service.CreateTaskInput{Title: "still works"})
	require.NoError(t, err)

	page, err := f.tasks.List(ctx, service.ListTasksInput{AccountID: owner})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
}
