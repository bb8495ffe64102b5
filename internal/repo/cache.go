package repo

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

func balanceKey(orgID uint64) string { return fmt.Sprintf("balance:%d", orgID) }

// setBalanceScript stores "<version>:<balance>" unless the cached entry already
// carries the same or a newer wallet version.
var setBalanceScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
  local v = tonumber(string.match(cur, '^(%d+):'))
  if v and v >= tonumber(ARGV[1]) then
    return 0
  end
end
redis.call('SET', KEYS[1], ARGV[1] .. ':' .. ARGV[2], 'PX', ARGV[3])
return 1
`)

// CacheBalance writes Redis, keyed by organization. version is the wallet
// version the balance belongs to; an older version never replaces a newer one,
// so post-commit writes may land in any order.
func (r *Repository) CacheBalance(ctx context.Context, orgID, version uint64, bal decimal.Decimal) error {
	if r.rdb == nil {
		return nil
	}
	return setBalanceScript.Run(ctx, r.rdb, []string{balanceKey(orgID)},
		strconv.FormatUint(version, 10),
		bal.String(),
		strconv.FormatInt(r.balanceTTL.Milliseconds(), 10),
	).Err()
}

// GetCachedBalance reads Redis. A miss (or no cache) returns redis.Nil.
func (r *Repository) GetCachedBalance(ctx context.Context, orgID uint64) (decimal.Decimal, error) {
	if r.rdb == nil {
		return decimal.Zero, redis.Nil
	}
	str, err := r.rdb.Get(ctx, balanceKey(orgID)).Result()
	if err != nil {
		return decimal.Zero, err
	}
	_, bal, ok := strings.Cut(str, ":")
	if !ok {
		return decimal.Zero, fmt.Errorf("malformed cached balance %q", str)
	}
	return decimal.NewFromString(bal)
}
