package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskd/internal/taskd/domain"
)

type tasksRepo repos

const taskColumns = `t.id, t.account_id, t.title, t.description, t.status, t.deadline, t.created_at, t.updated_at`

func scanTask(row rowScanner) (domain.Task, error) {
	var t domain.Task
	var status string
	var deadline sql.NullTime
	err := row.Scan(&t.ID, &t.AccountID, &t.Title, &t.Description, &status, &deadline, &t.CreatedAt, &t.UpdatedAt)
	t.Status = domain.TaskStatus(status)
	if deadline.Valid {
		d := deadline.Time
		t.Deadline = &d
	}
	t.Tags = []string{}
	return t, err
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func (r tasksRepo) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now

	err := r.q.queryRow(ctx,
		`INSERT INTO tasks (account_id, title, description, status, deadline, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		t.AccountID, t.Title, t.Description, string(t.Status), nullTime(t.Deadline), now, now,
	).Scan(&t.ID)
	if err != nil {
		return domain.Task{}, r.q.mapErr(err)
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return t, nil
}

// filterClause renders the WHERE shared by the page and count queries.
func filterClause(f domain.TaskFilter) (string, []any) {
	var b strings.Builder
	args := []any{f.AccountID}
	b.WriteString(` WHERE t.account_id = ?`)

	if f.Status != "" {
		b.WriteString(` AND t.status = ?`)
		args = append(args, string(f.Status))
	}

	if len(f.Tags) > 0 {
		b.WriteString(` AND t.id IN (
			SELECT tt.task_id FROM task_tags tt JOIN tags g ON g.id = tt.tag_id
			WHERE g.name IN (` + placeholders(len(f.Tags)) + `)
			GROUP BY tt.task_id
			HAVING COUNT(DISTINCT g.name) = ?)`)
		for _, tag := range f.Tags {
			args = append(args, tag)
		}
		args = append(args, len(f.Tags))
	}
	return b.String(), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func (r tasksRepo) ListTasks(ctx context.Context, f domain.TaskFilter) ([]domain.Task, int, error) {
	where, args := filterClause(f)

	var total int
	if err := r.q.queryRow(ctx, `SELECT COUNT(*) FROM tasks t`+where, args...).Scan(&total); err != nil {
		return nil, 0, r.q.mapErr(err)
	}

	order := "DESC"
	if f.Sort == domain.SortAsc {
		order = "ASC"
	}
	page := max(f.Page, 1)

	rows, err := r.q.query(ctx,
		`SELECT `+taskColumns+` FROM tasks t`+where+
			` ORDER BY t.created_at `+order+`, t.id `+order+` LIMIT ? OFFSET ?`,
		append(args, domain.PageSize, (page-1)*domain.PageSize)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.loadTags(ctx, tasks); err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

func (r tasksRepo) loadTags(ctx context.Context, tasks []domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	ids := make([]any, len(tasks))
	index := make(map[int64]int, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
		index[t.ID] = i
	}

	rows, err := r.q.query(ctx,
		`SELECT tt.task_id, g.name FROM task_tags tt JOIN tags g ON g.id = tt.tag_id
		 WHERE tt.task_id IN (`+placeholders(len(ids))+`) ORDER BY g.name`, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return err
		}
		i := index[id]
		tasks[i].Tags = append(tasks[i].Tags, name)
	}
	return rows.Err()
}

func (r tasksRepo) GetTask(ctx context.Context, accountID, id int64) (domain.Task, error) {
	t, err := scanTask(r.q.queryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks t WHERE t.id = ? AND t.account_id = ?`, id, accountID))
	if err != nil {
		return domain.Task{}, r.q.mapErr(err)
	}

	one := []domain.Task{t}
	if err := r.loadTags(ctx, one); err != nil {
		return domain.Task{}, err
	}
	return one[0], nil
}

func (r tasksRepo) UpdateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	err := affected(r.q.exec(ctx,
		`UPDATE tasks SET title = ?, description = ?, status = ?, deadline = ?, updated_at = ?
		 WHERE id = ? AND account_id = ?`,
		t.Title, t.Description, string(t.Status), nullTime(t.Deadline), time.Now().UTC(), t.ID, t.AccountID,
	))
	if err != nil {
		return domain.Task{}, err
	}
	return r.GetTask(ctx, t.AccountID, t.ID)
}

func (r tasksRepo) DeleteTask(ctx context.Context, accountID, id int64) error {
	return affected(r.q.exec(ctx, `DELETE FROM tasks WHERE id = ? AND account_id = ?`, id, accountID))
}
