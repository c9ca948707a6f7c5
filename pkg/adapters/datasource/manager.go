package datasource

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-connect/pkg/logging"
)

const (
	DefaultIdleTTLMinutes  = 5
	DefaultCleanupInterval = 1 * time.Minute
	DefaultPoolMaxSize     = 5
)

// ErrPoolNotDefined is returned for a pool name that was never defined.
var ErrPoolNotDefined = errors.New("pool is not defined")

// ManagerConfig holds configuration for the pool manager
type ManagerConfig struct {
	IdleTTL         time.Duration
	CleanupInterval time.Duration
	DefaultMaxSize  int
}

// PoolDefinition describes a named pool.
type PoolDefinition struct {
	Kind    string
	Mode    Mode
	MaxSize int
	Params  Params
}

// Manager owns named pools, creates them on first use and closes the
// connections of pools left idle longer than the TTL.
type Manager struct {
	factory         ConnectorFactory
	idleTTL         time.Duration
	cleanupInterval time.Duration
	defaultMaxSize  int
	logger          *zap.Logger

	mu          sync.RWMutex
	definitions map[string]PoolDefinition
	pools       map[string]*Pool
	stopped     bool
	stopChan    chan struct{}
}

// NewManager creates a pool manager.
// Starts a background cleanup goroutine that runs until Close() is called.
func NewManager(factory ConnectorFactory, cfg ManagerConfig, logger *zap.Logger) *Manager {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTLMinutes * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.DefaultMaxSize <= 0 {
		cfg.DefaultMaxSize = DefaultPoolMaxSize
	}

	m := &Manager{
		factory:         factory,
		idleTTL:         cfg.IdleTTL,
		cleanupInterval: cfg.CleanupInterval,
		defaultMaxSize:  cfg.DefaultMaxSize,
		logger:          logging.OrNop(logger).Named("manager"),
		definitions:     make(map[string]PoolDefinition),
		pools:           make(map[string]*Pool),
		stopChan:        make(chan struct{}),
	}

	go m.cleanupIdlePools()
	return m
}

// Define registers a named pool. The kind is validated immediately; connections
// are only opened on checkout. Redefining a name that already has a pool fails.
func (m *Manager) Define(name string, def PoolDefinition) error {
	if name == "" {
		return apperrors.InvalidParameter(def.Kind, "pool name is required")
	}
	if _, err := ParseKind(def.Kind); err != nil {
		return err
	}
	if def.MaxSize <= 0 {
		def.MaxSize = m.defaultMaxSize
	}
	def.Params = def.Params.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return fmt.Errorf("pool manager is closed")
	}
	if _, exists := m.pools[name]; exists {
		return fmt.Errorf("pool %q is already in use", name)
	}
	m.definitions[name] = def
	return nil
}

// Names returns defined pool names in sorted order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.definitions))
	for name := range m.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pool returns the named pool, creating it on first use.
func (m *Manager) Pool(name string) (*Pool, error) {
	// Fast path with read lock
	m.mu.RLock()
	pool, exists := m.pools[name]
	stopped := m.stopped
	m.mu.RUnlock()

	if stopped {
		return nil, fmt.Errorf("pool manager is closed")
	}
	if exists {
		return pool, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return nil, fmt.Errorf("pool manager is closed")
	}

	// Double-check after acquiring write lock (another goroutine may have created it)
	if pool, exists := m.pools[name]; exists {
		return pool, nil
	}

	def, ok := m.definitions[name]
	if !ok {
		return nil, fmt.Errorf("pool %q: %w", name, ErrPoolNotDefined)
	}

	pool, err := m.factory.NewPool(def.Kind, def.Mode, def.MaxSize, def.Params)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool %q: %w", name, err)
	}

	m.pools[name] = pool
	m.logger.Info("created pool",
		zap.String("name", name),
		zap.String("kind", string(pool.Kind())),
		zap.String("mode", pool.Mode().String()),
		zap.Int("max_size", pool.MaxSize()),
	)
	return pool, nil
}

// Do checks out a connector from the named pool, runs fn and releases it.
func (m *Manager) Do(ctx context.Context, name string, fn func(Connector) error) error {
	pool, err := m.Pool(name)
	if err != nil {
		return err
	}
	return pool.Do(ctx, fn)
}

// cleanupIdlePools runs periodically to close idle pools.
// Runs in a background goroutine until stopChan is closed.
func (m *Manager) cleanupIdlePools() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.performCleanup()
		case <-m.stopChan:
			return
		}
	}
}

// performCleanup closes the connections of pools that have nothing checked
// out and haven't been used within the TTL. The pools stay defined and
// reopen connections on the next checkout.
func (m *Manager) performCleanup() {
	pools := m.snapshot()
	if pools == nil {
		return
	}

	now := time.Now()
	closed := 0
	for name, pool := range pools {
		if !pool.closeIfIdle(m.idleTTL, now) {
			continue
		}
		closed++
		m.logger.Debug("closed idle pool",
			zap.String("name", name),
			zap.Duration("ttl", m.idleTTL),
		)
	}

	if closed > 0 {
		m.logger.Info("cleaned up idle pools", zap.Int("count", closed))
	}
}

// snapshot copies the pool map so pool locks are never taken while m.mu is
// held. Returns nil once the manager is closed.
func (m *Manager) snapshot() map[string]*Pool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.stopped {
		return nil
	}
	pools := make(map[string]*Pool, len(m.pools))
	for name, pool := range m.pools {
		pools[name] = pool
	}
	return pools
}

func closePool(p *Pool) error {
	if p.Mode() == NonBlocking {
		return p.CloseAllAsync(context.Background())
	}
	return p.CloseAll()
}

// Close closes all pools and stops the cleanup goroutine.
// This method is idempotent and safe to call multiple times.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	close(m.stopChan)
	pools := m.pools
	m.pools = make(map[string]*Pool)
	m.mu.Unlock()

	for name, pool := range pools {
		if err := closePool(pool); err != nil {
			m.logger.Warn("failed to close pool",
				zap.String("name", name),
				zap.String("error", logging.SanitizeError(err)),
			)
		}
	}

	m.logger.Info("pool manager closed")
	return nil
}

// ManagerStats contains statistics about the manager state.
type ManagerStats struct {
	DefinedPools      int                  `json:"defined_pools"`
	ActivePools       int                  `json:"active_pools"`
	IdleTTLMinutes    int                  `json:"idle_ttl_minutes"`
	OldestIdleSeconds int                  `json:"oldest_idle_seconds"`
	Pools             map[string]PoolStats `json:"pools"`
}

// GetStats returns statistics about the manager.
// Safe to call concurrently. A pool in the middle of opening a connection
// delays only its own entry; the manager lock is not held meanwhile.
func (m *Manager) GetStats() ManagerStats {
	m.mu.RLock()
	defined := len(m.definitions)
	pools := make(map[string]*Pool, len(m.pools))
	for name, pool := range m.pools {
		pools[name] = pool
	}
	m.mu.RUnlock()

	now := time.Now()
	stats := ManagerStats{
		DefinedPools:   defined,
		ActivePools:    len(pools),
		IdleTTLMinutes: int(m.idleTTL.Minutes()),
		Pools:          make(map[string]PoolStats, len(pools)),
	}

	for name, pool := range pools {
		ps := pool.Stats()
		stats.Pools[name] = ps
		if idle := int(now.Sub(ps.LastUsed).Seconds()); idle > stats.OldestIdleSeconds {
			stats.OldestIdleSeconds = idle
		}
	}
	return stats
}
