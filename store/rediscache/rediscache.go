// Package rediscache 给 core.Store 套一层画像读缓存。
//
// 只缓存 TasteProfile：它每次推荐都要读、只在训练时写，是读写比
// 最悬殊的一张表。其余方法全部透传。
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/snacktrack/tastekit/core"
)

// sentinel 值：该用户确认无画像，避免缓存穿透。
const missMarker = "__miss__"

// Store 装饰一个 core.Store，画像读走 Redis 缓存。
type Store struct {
	core.Store
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New 包装 next；ttl <= 0 时默认 5 分钟。
func New(next core.Store, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Store {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Store{Store: next, rdb: rdb, ttl: ttl, logger: logger}
}

func profileKey(userID string) string {
	return "tastekit:profile:" + userID
}

// TasteProfile 先查缓存；未命中回源并回填。Redis 故障降级为直接回源，
// 缓存永远不是正确性的依赖。
func (s *Store) TasteProfile(ctx context.Context, userID string) (*core.TasteProfile, error) {
	key := profileKey(userID)

	raw, err := s.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		if raw == missMarker {
			return nil, nil
		}
		var p core.TasteProfile
		if jsonErr := json.Unmarshal([]byte(raw), &p); jsonErr == nil {
			return &p, nil
		}
		// 脏数据当未命中处理，回源覆盖
	case !errors.Is(err, redis.Nil):
		if s.logger != nil {
			s.logger.Warn("profile cache read failed, falling through",
				zap.String("user_id", userID), zap.Error(err))
		}
	}

	p, err := s.Store.TasteProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, key, p)
	return p, nil
}

// UpsertTasteProfile 写穿：先落库，成功后删缓存。删除失败只记日志，
// 过期兜底保证最终一致。
func (s *Store) UpsertTasteProfile(ctx context.Context, profile *core.TasteProfile) error {
	if err := s.Store.UpsertTasteProfile(ctx, profile); err != nil {
		return err
	}
	if err := s.rdb.Del(ctx, profileKey(profile.UserID)).Err(); err != nil {
		if s.logger != nil {
			s.logger.Warn("profile cache invalidation failed",
				zap.String("user_id", profile.UserID), zap.Error(err))
		}
	}
	return nil
}

func (s *Store) fill(ctx context.Context, key string, p *core.TasteProfile) {
	var payload string
	if p == nil {
		payload = missMarker
	} else {
		raw, err := json.Marshal(p)
		if err != nil {
			return
		}
		payload = string(raw)
	}
	if err := s.rdb.Set(ctx, key, payload, s.ttl).Err(); err != nil && s.logger != nil {
		s.logger.Warn("profile cache fill failed", zap.Error(err))
	}
}

var _ core.Store = (*Store)(nil)

// Ping 探测 Redis 连通性，启动自检用。
func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("rediscache: ping: %w", err)
	}
	return nil
}
