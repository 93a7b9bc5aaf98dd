package sqlstore

import (
	"context"

	"github.com/aussiebroadwan/taskd/internal/taskd/domain"
)

type tagsRepo repos

// UpsertTag uses a no-op DO UPDATE so RETURNING yields the row on both
// insert and conflict.
func (r tagsRepo) UpsertTag(ctx context.Context, name string) (domain.Tag, error) {
	var tag domain.Tag
	err := r.q.queryRow(ctx,
		`INSERT INTO tags (name) VALUES (?)
		 ON CONFLICT (name) DO UPDATE SET name = excluded.name
		 RETURNING id, name`, name,
	).Scan(&tag.ID, &tag.Name)
	return tag, r.q.mapErr(err)
}

func (r tagsRepo) AttachTag(ctx context.Context, taskID, tagID int64) error {
	_, err := r.q.exec(ctx,
		`INSERT INTO task_tags (task_id, tag_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		taskID, tagID,
	)
	return err
}
