package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yeremiapane/branch-ordering/models"
	"github.com/yeremiapane/branch-ordering/utils"
)

// PromotionSource returns a branch's switched-on promotions. Date windows are
// left to the matcher so cached entries stay valid across midnight.
type PromotionSource interface {
	ActivePromotions(ctx context.Context, branchID uint) ([]models.Promotion, error)
}

// PromotionInvalidator is told whenever a branch's promotions change.
type PromotionInvalidator interface {
	Invalidate(ctx context.Context, branchID uint) error
}

type DBPromotionSource struct {
	db *gorm.DB
}

func NewDBPromotionSource(db *gorm.DB) *DBPromotionSource {
	return &DBPromotionSource{db: db}
}

func (s *DBPromotionSource) ActivePromotions(ctx context.Context, branchID uint) ([]models.Promotion, error) {
	var promos []models.Promotion
	err := s.db.WithContext(ctx).
		Where("branch_id = ? AND is_active = ?", branchID, true).
		Order("id ASC").
		Find(&promos).Error
	if err != nil {
		return nil, fmt.Errorf("load promotions: %w", err)
	}
	return promos, nil
}

// PromotionCache stores promotion lists under a per-branch version. Writers
// bump the version; entries stored under an older version are never read again.
type PromotionCache interface {
	Version(ctx context.Context, branchID uint) (uint64, error)
	Get(ctx context.Context, branchID uint, version uint64) ([]models.Promotion, bool, error)
	Set(ctx context.Context, branchID uint, version uint64, promos []models.Promotion) error
	Bump(ctx context.Context, branchID uint) error
}

// CachedPromotionSource serves promotions from a PromotionCache and falls
// back to the underlying source when the cache misses or fails. A branch
// whose invalidation failed is read from the source until a bump succeeds.
type CachedPromotionSource struct {
	source PromotionSource
	cache  PromotionCache

	mu    sync.Mutex
	stale map[uint]struct{}
}

func NewCachedPromotionSource(source PromotionSource, cache PromotionCache) *CachedPromotionSource {
	return &CachedPromotionSource{source: source, cache: cache, stale: make(map[uint]struct{})}
}

func (c *CachedPromotionSource) ActivePromotions(ctx context.Context, branchID uint) ([]models.Promotion, error) {
	log := utils.ErrorLogger.WithField("branch_id", branchID)

	if c.isStale(branchID) {
		if err := c.cache.Bump(ctx, branchID); err != nil {
			log.Warnf("promotion cache still unavailable: %v", err)
			return c.source.ActivePromotions(ctx, branchID)
		}
		c.setStale(branchID, false)
	}

	version, err := c.cache.Version(ctx, branchID)
	if err != nil {
		log.Warnf("promotion cache version lookup failed: %v", err)
		return c.source.ActivePromotions(ctx, branchID)
	}
	promos, ok, err := c.cache.Get(ctx, branchID, version)
	if err != nil {
		log.Warnf("promotion cache read failed: %v", err)
	}
	if ok {
		return promos, nil
	}

	promos, err = c.source.ActivePromotions(ctx, branchID)
	if err != nil {
		return nil, err
	}
	// If a writer bumped the version meanwhile, this entry is simply never read.
	if err := c.cache.Set(ctx, branchID, version, promos); err != nil {
		log.WithField("version", version).Warnf("promotion cache write failed: %v", err)
	}
	return promos, nil
}

func (c *CachedPromotionSource) Invalidate(ctx context.Context, branchID uint) error {
	if err := c.cache.Bump(ctx, branchID); err != nil {
		c.setStale(branchID, true)
		return fmt.Errorf("invalidate promotions of branch %d: %w", branchID, err)
	}
	c.setStale(branchID, false)
	utils.InfoLogger.WithFields(logrus.Fields{"branch_id": branchID}).Debug("promotion cache invalidated")
	return nil
}

func (c *CachedPromotionSource) isStale(branchID uint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.stale[branchID]
	return ok
}

func (c *CachedPromotionSource) setStale(branchID uint, stale bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if stale {
		c.stale[branchID] = struct{}{}
	} else {
		delete(c.stale, branchID)
	}
}

type memoryEntry struct {
	version uint64
	promos  []models.Promotion
}

// MemoryPromotionCache is an in-process PromotionCache for single-instance deployments.
type MemoryPromotionCache struct {
	mutex    sync.RWMutex
	versions map[uint]uint64
	entries  map[uint]memoryEntry
}

func NewMemoryPromotionCache() *MemoryPromotionCache {
	return &MemoryPromotionCache{
		versions: make(map[uint]uint64),
		entries:  make(map[uint]memoryEntry),
	}
}

func (m *MemoryPromotionCache) Version(_ context.Context, branchID uint) (uint64, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.versions[branchID], nil
}

func (m *MemoryPromotionCache) Get(_ context.Context, branchID uint, version uint64) ([]models.Promotion, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	e, ok := m.entries[branchID]
	if !ok || e.version != version {
		return nil, false, nil
	}
	return clonePromotions(e.promos), true, nil
}

func (m *MemoryPromotionCache) Set(_ context.Context, branchID uint, version uint64, promos []models.Promotion) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if version != m.versions[branchID] {
		return nil
	}
	m.entries[branchID] = memoryEntry{version: version, promos: clonePromotions(promos)}
	return nil
}

func (m *MemoryPromotionCache) Bump(_ context.Context, branchID uint) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.versions[branchID]++
	delete(m.entries, branchID)
	return nil
}

func clonePromotions(promos []models.Promotion) []models.Promotion {
	out := make([]models.Promotion, len(promos))
	copy(out, promos)
	return out
}
