package data

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"reelsim/internal/biz"
	"reelsim/internal/force"

	"github.com/redis/go-redis/v9"
	"github.com/yola1107/kratos/v2/log"
)

// key 格式
const (
	forceKeysPattern = "%sforce:%s:keys"  // 模式下所有归一化 key 的集合
	forceIdsPattern  = "%sforce:%s:ids:%s" // 单个 key 命中的 round id 集合
)

type forceRepo struct {
	data *Data
	log  *log.Helper
}

// NewForceRepo .
func NewForceRepo(data *Data, logger log.Logger) biz.ForceRepo {
	return &forceRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *forceRepo) keysKey(mode string) string {
	return fmt.Sprintf(forceKeysPattern, r.data.prefix, mode)
}

func (r *forceRepo) idsKey(mode, norm string) string {
	return fmt.Sprintf(forceIdsPattern, r.data.prefix, mode, norm)
}

// Mirror replaces the stored index of mode with ix.
func (r *forceRepo) Mirror(ctx context.Context, mode string, ix *force.Index) error {
	rdb := r.data.rdb
	if rdb == nil {
		return nil
	}
	old, err := rdb.SMembers(ctx, r.keysKey(mode)).Result()
	if err != nil {
		return err
	}

	_, err = rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		// 先清掉旧的
		for _, norm := range old {
			pipe.Del(ctx, r.idsKey(mode, norm))
		}
		pipe.Del(ctx, r.keysKey(mode))

		for _, e := range ix.Entries() {
			norm := force.Normalize(e.Key)
			ids := make([]any, len(e.IDs))
			for i, id := range e.IDs {
				ids[i] = id
			}
			pipe.SAdd(ctx, r.keysKey(mode), norm)
			if len(ids) > 0 {
				pipe.SAdd(ctx, r.idsKey(mode, norm), ids...)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.log.WithContext(ctx).Infof("mode %s: mirrored %d force keys", mode, ix.Len())
	return nil
}

// Search unions the id sets of every stored key containing a query and intersects the
// results of all queries.
func (r *forceRepo) Search(ctx context.Context, mode string, queries []map[string]string) ([]uint64, error) {
	rdb := r.data.rdb
	if rdb == nil {
		return nil, biz.ErrForceStoreDisabled
	}
	stored, err := rdb.SMembers(ctx, r.keysKey(mode)).Result()
	if err != nil {
		return nil, err
	}
	keys := make([]map[string]string, 0, len(stored))
	for _, norm := range stored {
		k, err := force.ParseKey(norm)
		if err != nil {
			r.log.WithContext(ctx).Warnf("mode %s: skip stored force key %q: %v", mode, norm, err)
			continue
		}
		keys = append(keys, k)
	}

	var acc []uint64
	for i, q := range queries {
		var sets []string
		for _, k := range keys {
			if matches(k, q) {
				sets = append(sets, r.idsKey(mode, force.Normalize(k)))
			}
		}
		ids := []uint64{}
		if len(sets) > 0 {
			members, err := rdb.SUnion(ctx, sets...).Result()
			if err != nil {
				return nil, err
			}
			ids = make([]uint64, 0, len(members))
			for _, m := range members {
				id, err := strconv.ParseUint(m, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("force set member %q: %w", m, err)
				}
				ids = append(ids, id)
			}
			slices.Sort(ids)
		}
		if i == 0 {
			acc = ids
		} else {
			acc = force.Intersect(acc, ids)
		}
	}
	return acc, nil
}

func matches(key, query map[string]string) bool {
	for k, v := range query {
		if got, ok := key[k]; !ok || got != v {
			return false
		}
	}
	return true
}
