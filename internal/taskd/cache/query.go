package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskd/pkg/slogx"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultQueryTTL = 5 * time.Minute

	noTags    = "~"
	anyStatus = "all"
)

// ListQuery is every dimension a cached task list depends on.
type ListQuery struct {
	Subject int64
	Tags    []string
	Status  string
	Sort    string
	Page    int
}

// QueryCache stores serialized list pages per subject. Each subject has an
// index set of its keys and a generation counter; Invalidate bumps the
// generation, and Set refuses to write under a generation other than the
// one the caller read before querying the store.
type QueryCache struct {
	c   *Client
	ttl time.Duration
}

func NewQueryCache(c *Client, ttl time.Duration) *QueryCache {
	return &QueryCache{c: c, ttl: durationOr(ttl, DefaultQueryTTL)}
}

func (q *QueryCache) subjectKey(subject int64, parts ...string) string {
	return q.c.key(append([]string{"todo", strconv.FormatInt(subject, 10)}, parts...)...)
}

// Key derives the cache key for lq. Tags are trimmed, de-duplicated and
// sorted so equivalent filters share an entry.
func (q *QueryCache) Key(lq ListQuery) string {
	tags := noTags
	if norm := NormalizeTags(lq.Tags); len(norm) > 0 {
		escaped := make([]string, len(norm))
		for i, t := range norm {
			escaped[i] = escapeTag(t)
		}
		tags = strings.Join(escaped, ",")
	}

	status := anyStatus
	if lq.Status != "" {
		status = lq.Status
	}

	sort := "desc"
	if strings.EqualFold(lq.Sort, "asc") {
		sort = "asc"
	}

	page := max(lq.Page, 1)

	return q.subjectKey(lq.Subject,
		"tags="+tags,
		"status="+status,
		"sort="+sort,
		"page="+strconv.Itoa(page),
	)
}

// escapeTag query-escapes t and also encodes "~", which QueryEscape leaves
// alone, so no tag can render as the noTags marker.
func escapeTag(t string) string {
	return strings.ReplaceAll(url.QueryEscape(t), "~", "%7E")
}

// NormalizeTags trims, drops empties, de-duplicates and sorts.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Get decodes the entry at key into dest.
func (q *QueryCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	var data []byte
	err := q.c.do(func() error {
		var err error
		data, err = q.c.rdb.Get(ctx, key).Bytes()
		return err
	})
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Generation returns the subject's current generation, 0 if never bumped.
func (q *QueryCache) Generation(ctx context.Context, subject int64) (int64, error) {
	var gen int64
	err := q.c.do(func() error {
		var err error
		gen, err = q.c.rdb.Get(ctx, q.subjectKey(subject, "gen")).Int64()
		return err
	})
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Set stores value under key if the subject's generation still equals gen.
// It reports whether the value was written; losing the race to an
// invalidation is not an error.
func (q *QueryCache) Set(ctx context.Context, subject int64, key string, gen int64, value any) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, err
	}

	genKey := q.subjectKey(subject, "gen")
	indexKey := q.subjectKey(subject, "keys")
	stored := false

	err = q.c.do(func() error {
		return q.c.rdb.Watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.Get(ctx, genKey).Int64()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if current != gen {
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, q.ttl)
				pipe.SAdd(ctx, indexKey, key)
				pipe.Expire(ctx, indexKey, q.ttl)
				return nil
			})
			stored = err == nil
			return err
		}, genKey)
	})
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return stored, err
}

// Bump first so a fill that read the old generation can no longer land,
// then drop every indexed entry. Runs as one script so no Set can slip a key
// into the index between the read and the delete.
var invalidateLua = redis.NewScript(`
redis.call("INCR", KEYS[1])
local keys = redis.call("SMEMBERS", KEYS[2])
for _, k in ipairs(keys) do
  redis.call("DEL", k)
end
redis.call("DEL", KEYS[2])
return #keys
`)

// Invalidate discards every cached page of subject.
func (q *QueryCache) Invalidate(ctx context.Context, subject int64) error {
	return q.c.do(func() error {
		return invalidateLua.Run(ctx, q.c.rdb,
			[]string{q.subjectKey(subject, "gen"), q.subjectKey(subject, "keys")},
		).Err()
	})
}

// Clear deletes all cached pages and indexes for every subject. Generation
// counters are kept so in-flight fills stay fenced.
func (q *QueryCache) Clear(ctx context.Context) (int64, error) {
	var deleted int64
	pattern := q.c.key("todo", "*")

	err := q.c.do(func() error {
		iter := q.c.rdb.Scan(ctx, 0, pattern, 200).Iterator()
		batch := make([]string, 0, 200)

		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			n, err := q.c.rdb.Del(ctx, batch...).Result()
			deleted += n
			batch = batch[:0]
			return err
		}

		for iter.Next(ctx) {
			if strings.HasSuffix(iter.Val(), ":gen") {
				continue
			}
			batch = append(batch, iter.Val())
			if len(batch) == cap(batch) {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		if err := iter.Err(); err != nil {
			return err
		}
		return flush()
	})
	return deleted, err
}

// Load is the read-through path: on a hit the cached page is returned,
// otherwise loader runs and its result is cached for the generation read
// beforehand. Cache failures are logged and never fail the request.
func Load[T any](ctx context.Context, q *QueryCache, lq ListQuery, loader func(context.Context) (T, error)) (T, error) {
	log := slogx.FromContext(ctx)
	key := q.Key(lq)

	gen, genErr := q.Generation(ctx, lq.Subject)
	if genErr != nil {
		log.Warn("query cache generation read failed", "err", genErr, "key", key)
	} else {
		var cached T
		hit, err := q.Get(ctx, key, &cached)
		switch {
		case err != nil:
			log.Warn("query cache read failed", "err", err, "key", key)
		case hit:
			return cached, nil
		}
	}

	v, err := loader(ctx)
	if err != nil {
		return v, err
	}

	// Without a generation there is nothing to fence the write with.
	if genErr == nil {
		if _, err := q.Set(ctx, lq.Subject, key, gen, v); err != nil {
			log.Warn("query cache write failed", "err", err, "key", key)
		}
	}
	return v, nil
}
