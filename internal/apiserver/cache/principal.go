// Package cache keeps resolved access principals close to the request path.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/syncwave/crm/internal/access"
	"go.uber.org/zap"
)

// CacheLayer identifies where a lookup was answered
type CacheLayer string

const (
	L1Memory CacheLayer = "L1_MEMORY"
	L2Redis  CacheLayer = "L2_REDIS"
)

// Loader resolves a principal from the source of truth
type Loader interface {
	Principal(ctx context.Context, userID string) (*access.Principal, error)
}

// Config holds configuration for the principal cache
type Config struct {
	// RedisClient enables the shared L2 layer when set
	RedisClient redis.Cmdable
	KeyPrefix   string
	TTL         time.Duration
	// MaxEntries bounds the L1 layer
	MaxEntries int
}

// Stats represents cache statistics
type Stats struct {
	Entries   int64   `json:"entries"`
	L1Hits    int64   `json:"l1Hits"`
	L2Hits    int64   `json:"l2Hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hitRate"`
}

type entry struct {
	Principal *access.Principal `json:"principal"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// PrincipalCache answers principal lookups from memory, then Redis, then the
// loader. Failed lookups are never cached.
type PrincipalCache struct {
	loader    Loader
	l2        redis.Cmdable
	keyPrefix string
	ttl       time.Duration
	max       int
	logger    *zap.Logger
	now       func() time.Time

	mu    sync.RWMutex
	items map[string]*entry

	l1Hits    atomic.Int64
	l2Hits    atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewPrincipalCache creates a principal cache in front of loader
func NewPrincipalCache(loader Loader, cfg Config, logger *zap.Logger) *PrincipalCache {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 10000
	}
	return &PrincipalCache{
		loader:    loader,
		l2:        cfg.RedisClient,
		keyPrefix: cfg.KeyPrefix,
		ttl:       cfg.TTL,
		max:       cfg.MaxEntries,
		logger:    logger.Named("cache.principal"),
		now:       time.Now,
		items:     make(map[string]*entry),
	}
}

// Principal returns the cached principal of userID, loading it on a miss
func (pc *PrincipalCache) Principal(ctx context.Context, userID string) (*access.Principal, error) {
	if p, ok := pc.getFromL1(userID); ok {
		pc.l1Hits.Add(1)
		return p, nil
	}
	if e, ok := pc.getFromL2(ctx, userID); ok {
		pc.l2Hits.Add(1)
		pc.setToL1(userID, e)
		return clone(e.Principal), nil
	}

	pc.misses.Add(1)
	p, err := pc.loader.Principal(ctx, userID)
	if err != nil {
		return nil, err
	}
	e := &entry{Principal: clone(p), ExpiresAt: pc.now().Add(pc.ttl)}
	pc.setToL1(userID, e)
	pc.setToL2(ctx, userID, e)
	return p, nil
}

// Invalidate drops the principal of userID from both layers
func (pc *PrincipalCache) Invalidate(ctx context.Context, userID string) error {
	pc.mu.Lock()
	delete(pc.items, userID)
	pc.mu.Unlock()

	if pc.l2 == nil {
		return nil
	}
	return pc.l2.Del(ctx, pc.redisKey(userID)).Err()
}

// Clear removes every cached principal, used when a company changes
func (pc *PrincipalCache) Clear(ctx context.Context) error {
	pc.mu.Lock()
	pc.items = make(map[string]*entry)
	pc.mu.Unlock()

	if pc.l2 == nil {
		return nil
	}
	keys, err := pc.l2.Keys(ctx, pc.keyPrefix+"*").Result()
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		return pc.l2.Del(ctx, keys...).Err()
	}
	return nil
}

// GetStats returns current cache statistics
func (pc *PrincipalCache) GetStats() Stats {
	pc.mu.RLock()
	entries := int64(len(pc.items))
	pc.mu.RUnlock()

	stats := Stats{
		Entries:   entries,
		L1Hits:    pc.l1Hits.Load(),
		L2Hits:    pc.l2Hits.Load(),
		Misses:    pc.misses.Load(),
		Evictions: pc.evictions.Load(),
	}
	if total := stats.L1Hits + stats.L2Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.L1Hits+stats.L2Hits) / float64(total)
	}
	return stats
}

func (pc *PrincipalCache) getFromL1(userID string) (*access.Principal, bool) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	e, ok := pc.items[userID]
	if !ok || !e.ExpiresAt.After(pc.now()) {
		return nil, false
	}
	return clone(e.Principal), true
}

func (pc *PrincipalCache) setToL1(userID string, e *entry) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if _, exists := pc.items[userID]; !exists && len(pc.items) >= pc.max {
		pc.evictLocked()
	}
	pc.items[userID] = e
}

// evictLocked drops expired entries, or the entry closest to expiry when
// none has expired
func (pc *PrincipalCache) evictLocked() {
	now := pc.now()
	var (
		oldestKey string
		oldest    time.Time
	)
	removed := 0
	for key, e := range pc.items {
		if !e.ExpiresAt.After(now) {
			delete(pc.items, key)
			removed++
			continue
		}
		if oldestKey == "" || e.ExpiresAt.Before(oldest) {
			oldestKey, oldest = key, e.ExpiresAt
		}
	}
	if removed == 0 && oldestKey != "" {
		delete(pc.items, oldestKey)
		removed++
	}
	pc.evictions.Add(int64(removed))
}

func (pc *PrincipalCache) getFromL2(ctx context.Context, userID string) (*entry, bool) {
	if pc.l2 == nil {
		return nil, false
	}
	data, err := pc.l2.Get(ctx, pc.redisKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		pc.logger.Warn("failed to get principal from redis", zap.String("user_id", userID), zap.Error(err))
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil || e.Principal == nil {
		pc.logger.Warn("discarding malformed cached principal", zap.String("user_id", userID))
		return nil, false
	}
	if !e.ExpiresAt.After(pc.now()) {
		return nil, false
	}
	return &e, true
}

func (pc *PrincipalCache) setToL2(ctx context.Context, userID string, e *entry) {
	if pc.l2 == nil {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := pc.l2.Set(ctx, pc.redisKey(userID), data, pc.ttl).Err(); err != nil {
		pc.logger.Warn("failed to store principal in redis", zap.String("user_id", userID), zap.Error(err))
	}
}

func (pc *PrincipalCache) redisKey(userID string) string {
	return pc.keyPrefix + userID
}

func clone(p *access.Principal) *access.Principal {
	cp := *p
	return &cp
}
