package cache

import (
	"context"
	"time"

	"github.com/aussiebroadwan/taskd/pkg/cryptox"
	"github.com/redis/go-redis/v9"
)

// Only ever extends: a second revocation with a shorter TTL keeps the
// longer one, and a key without expiry stays that way.
var revokeLua = redis.NewScript(`
local current = redis.call("PTTL", KEYS[1])
if current == -1 then
  return 0
end
local want = tonumber(ARGV[1])
if current >= want then
  return 0
end
redis.call("SET", KEYS[1], "1", "PX", want)
return 1
`)

// Revocations is the access-token blacklist. Keys hold a digest of the
// token, never the bearer credential itself.
type Revocations struct {
	c *Client
}

func NewRevocations(c *Client) *Revocations {
	return &Revocations{c: c}
}

func (r *Revocations) key(token string) string {
	return r.c.key("revoked", cryptox.FingerprintToken(token))
}

// Revoke blacklists token for ttl, normally the token's remaining lifetime.
// A non-positive ttl means the token has already expired and is a no-op.
func (r *Revocations) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	ms := max(ttl.Milliseconds(), 1)
	return r.c.do(func() error {
		return revokeLua.Run(ctx, r.c.rdb, []string{r.key(token)}, ms).Err()
	})
}

// IsRevoked reports whether token is on the blacklist.
func (r *Revocations) IsRevoked(ctx context.Context, token string) (bool, error) {
	var n int64
	err := r.c.do(func() error {
		var err error
		n, err = r.c.rdb.Exists(ctx, r.key(token)).Result()
		return err
	})
	return n > 0, err
}
