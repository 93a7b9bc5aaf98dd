package domain

import "time"

type TaskStatus string

const (
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusDone       TaskStatus = "DONE"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// PageSize is the fixed number of tasks per list page.
const PageSize = 10

type Task struct {
	ID          int64      `json:"id"`
	AccountID   int64      `json:"account_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Tags        []string   `json:"tags"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TaskFilter selects one page of an account's tasks. A task must carry
// every tag listed to match.
type TaskFilter struct {
	AccountID int64
	Tags      []string
	Status    TaskStatus // empty means any
	Sort      SortOrder
	Page      int // 1-based
}

// TaskPage is the cached unit for list queries.
type TaskPage struct {
	Items    []Task `json:"items"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Total    int    `json:"total"`
}

type Tag struct {
	ID   int64
	Name string
}
