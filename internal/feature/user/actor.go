package user

import (
	"context"
	"time"

	"user-management-api/internal/core/cache"
	"user-management-api/internal/domain"
)

// IDLookup 按 id 取用户
type IDLookup interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// Actors 鉴权中间件用的 actor 解析，Redis 缓存 actor:<uid>
type Actors struct {
	repo  IDLookup
	cache *cache.Cache
	ttl   time.Duration
}

func NewActors(repo IDLookup, c *cache.Cache, ttl time.Duration) *Actors {
	return &Actors{repo: repo, cache: c, ttl: ttl}
}

func ActorCacheKey(uid string) string { return "actor:" + uid }

// Resolve 用户不存在返回 (nil, nil)
func (a *Actors) Resolve(ctx context.Context, uid string) (*domain.User, error) {
	return cache.GetOrLoadJSON(a.cache, ctx, ActorCacheKey(uid), a.ttl, func(ctx context.Context) (*domain.User, error) {
		return a.repo.FindByID(ctx, uid)
	})
}
