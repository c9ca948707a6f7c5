package datasource

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-connect/pkg/logging"
)

// OpenFunc creates a new connected Connector for a pool slot.
type OpenFunc func(ctx context.Context) (Connector, error)

// PoolConfig holds configuration for a pool.
type PoolConfig struct {
	Kind    Kind
	Mode    Mode
	MaxSize int
}

// PoolStats is a snapshot of pool state.
type PoolStats struct {
	Kind       Kind   `json:"kind"`
	Mode       string `json:"mode"`
	MaxSize    int    `json:"max_size"`
	Slots      int    `json:"slots"`
	CheckedOut int    `json:"checked_out"`
	Created    int64  `json:"created"`
	Recycled   int64  `json:"recycled"`
	Exhausted  int64  `json:"exhausted"`
	// LastUsed is the time of the last checkout or release.
	LastUsed time.Time `json:"last_used"`
}

// Pool is a bounded, index-addressed set of connectors of one kind.
//
// Slots grow lazily up to MaxSize. A checkout first recycles any checked-out
// connector that fails its liveness probe, replacing it in place. Otherwise it
// reuses the lowest idle slot or appends a new one. A full pool fails
// immediately with ErrPoolExhausted; it never waits for capacity.
//
// A pool commits to one mode: Checkout/Release/CloseAll for Blocking pools,
// CheckoutAsync/ReleaseAsync/CloseAllAsync for NonBlocking pools.
type Pool struct {
	kind    Kind
	mode    Mode
	maxSize int
	open    OpenFunc
	lock    locker
	logger  *zap.Logger

	// guarded by lock
	slots      []Connector
	checkedOut map[int]Connector
	created    int64
	recycled   int64
	exhausted  int64
	lastUsed   time.Time
}

// NewPool returns an empty pool.
func NewPool(cfg PoolConfig, open OpenFunc, logger *zap.Logger) (*Pool, error) {
	if cfg.MaxSize < 1 {
		return nil, apperrors.InvalidParameter(string(cfg.Kind), "max_size must be at least 1")
	}
	if open == nil {
		return nil, apperrors.InvalidParameter(string(cfg.Kind), "pool requires an open function")
	}

	var lock locker = &mutexLocker{}
	if cfg.Mode == NonBlocking {
		lock = &semaphoreLocker{sem: semaphore.NewWeighted(1)}
	}

	return &Pool{
		kind:       cfg.Kind,
		mode:       cfg.Mode,
		maxSize:    cfg.MaxSize,
		open:       open,
		lock:       lock,
		logger:     logging.OrNop(logger),
		checkedOut: make(map[int]Connector),
		lastUsed:   time.Now(),
	}, nil
}

// Kind returns the pool's connector kind.
func (p *Pool) Kind() Kind { return p.kind }

// Mode returns the pool's scheduling mode.
func (p *Pool) Mode() Mode { return p.mode }

// MaxSize returns the pool capacity.
func (p *Pool) MaxSize() int { return p.maxSize }

// Checkout lends a connector from a blocking pool.
func (p *Pool) Checkout(ctx context.Context) (Connector, error) {
	if err := p.requireMode(Blocking, "Checkout"); err != nil {
		return nil, err
	}
	return p.checkout(ctx)
}

// CheckoutAsync lends a connector from a non-blocking pool. The calling
// goroutine parks while another holds the pool lock and gives up when ctx ends;
// the returned error then wraps ctx.Err() (context.Canceled or
// context.DeadlineExceeded).
func (p *Pool) CheckoutAsync(ctx context.Context) (Connector, error) {
	if err := p.requireMode(NonBlocking, "CheckoutAsync"); err != nil {
		return nil, err
	}
	return p.checkout(ctx)
}

// Release returns a connector to a blocking pool. Releasing a connector that
// is not checked out is a no-op.
func (p *Pool) Release(c Connector) error {
	if err := p.requireMode(Blocking, "Release"); err != nil {
		return err
	}
	return p.release(context.Background(), c)
}

// ReleaseAsync returns a connector to a non-blocking pool.
func (p *Pool) ReleaseAsync(ctx context.Context, c Connector) error {
	if err := p.requireMode(NonBlocking, "ReleaseAsync"); err != nil {
		return err
	}
	return p.release(ctx, c)
}

// CloseAll closes every connector in a blocking pool, checked out or not,
// and empties it. The pool can be used again afterwards.
func (p *Pool) CloseAll() error {
	if err := p.requireMode(Blocking, "CloseAll"); err != nil {
		return err
	}
	return p.closeAll(context.Background())
}

// CloseAllAsync is CloseAll for a non-blocking pool.
func (p *Pool) CloseAllAsync(ctx context.Context) error {
	if err := p.requireMode(NonBlocking, "CloseAllAsync"); err != nil {
		return err
	}
	return p.closeAll(ctx)
}

// Do checks out a connector, runs fn with it and always releases it.
// Works in either mode.
func (p *Pool) Do(ctx context.Context, fn func(Connector) error) error {
	c, err := p.checkout(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = p.release(context.WithoutCancel(ctx), c)
	}()
	return fn(c)
}

// Stats returns a snapshot of the pool.
func (p *Pool) Stats() PoolStats {
	if err := p.lock.lock(context.Background()); err != nil {
		return PoolStats{Kind: p.kind, Mode: p.mode.String(), MaxSize: p.maxSize}
	}
	defer p.lock.unlock()

	return PoolStats{
		Kind:       p.kind,
		Mode:       p.mode.String(),
		MaxSize:    p.maxSize,
		Slots:      len(p.slots),
		CheckedOut: len(p.checkedOut),
		Created:    p.created,
		Recycled:   p.recycled,
		Exhausted:  p.exhausted,
		LastUsed:   p.lastUsed,
	}
}

// closeIfIdle closes every connector when nothing is checked out and the pool
// has not been used for longer than ttl. The check and the close happen under
// one lock, so a connector handed out concurrently is never closed. A pool
// whose lock is held is busy and is skipped. Reports whether it closed.
func (p *Pool) closeIfIdle(ttl time.Duration, now time.Time) bool {
	if !p.lock.tryLock() {
		return false
	}
	defer p.lock.unlock()

	if len(p.slots) == 0 || len(p.checkedOut) > 0 || now.Sub(p.lastUsed) <= ttl {
		return false
	}
	p.closeSlots()
	return true
}

func (p *Pool) requireMode(want Mode, op string) error {
	if p.mode != want {
		return apperrors.ModeMismatch(op, p.mode.String())
	}
	return nil
}

func (p *Pool) checkout(ctx context.Context) (Connector, error) {
	if err := p.lock.lock(ctx); err != nil {
		return nil, fmt.Errorf("acquire pool lock: %w", err)
	}
	defer p.lock.unlock()
	p.lastUsed = time.Now()

	for _, idx := range p.checkedOutIndices() {
		c := p.checkedOut[idx]
		if !c.IsAlive(ctx) {
			p.logger.Info("recycling dead connector",
				zap.String("kind", string(p.kind)),
				zap.Int("slot", idx),
				zap.String("connector_id", c.ID().String()),
			)
			delete(p.checkedOut, idx)
			p.recycled++
			return p.replace(ctx, idx)
		}
	}

	if len(p.checkedOut) < p.maxSize {
		if idx := p.lowestIdleIndex(); idx >= 0 {
			c := p.slots[idx]
			if c.IsAlive(ctx) {
				p.checkedOut[idx] = c
				return c, nil
			}
			p.logger.Info("recycling dead idle connector",
				zap.String("kind", string(p.kind)),
				zap.Int("slot", idx),
			)
			p.recycled++
			return p.replace(ctx, idx)
		}

		c, err := p.open(ctx)
		if err != nil {
			return nil, err
		}
		p.slots = append(p.slots, c)
		p.checkedOut[len(p.slots)-1] = c
		p.created++
		p.logger.Debug("opened connector",
			zap.String("kind", string(p.kind)),
			zap.Int("slot", len(p.slots)-1),
		)
		return c, nil
	}

	p.exhausted++
	p.logger.Warn("pool exhausted",
		zap.String("kind", string(p.kind)),
		zap.Int("max_size", p.maxSize),
	)
	return nil, apperrors.PoolExhausted(string(p.kind), p.maxSize)
}

// replace closes the connector at idx and opens a new one in its place.
// On failure the closed connector stays in the slot and the slot is idle.
// Caller must hold the lock.
func (p *Pool) replace(ctx context.Context, idx int) (Connector, error) {
	_ = p.slots[idx].Close()

	c, err := p.open(ctx)
	if err != nil {
		return nil, err
	}
	p.slots[idx] = c
	p.checkedOut[idx] = c
	p.created++
	return c, nil
}

// checkedOutIndices returns ledger indices in ascending order.
// Caller must hold the lock.
func (p *Pool) checkedOutIndices() []int {
	indices := make([]int, 0, len(p.checkedOut))
	for idx := range p.checkedOut {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices
}

// lowestIdleIndex returns the first slot not checked out, or -1.
// Caller must hold the lock.
func (p *Pool) lowestIdleIndex() int {
	for idx := range p.slots {
		if _, busy := p.checkedOut[idx]; !busy {
			return idx
		}
	}
	return -1
}

func (p *Pool) release(ctx context.Context, c Connector) error {
	if c == nil {
		return nil
	}
	if err := p.lock.lock(ctx); err != nil {
		return fmt.Errorf("acquire pool lock: %w", err)
	}
	defer p.lock.unlock()
	p.lastUsed = time.Now()

	for idx, held := range p.checkedOut {
		if held == c {
			delete(p.checkedOut, idx)
			return nil
		}
	}
	return nil
}

func (p *Pool) closeAll(ctx context.Context) error {
	if err := p.lock.lock(ctx); err != nil {
		return fmt.Errorf("acquire pool lock: %w", err)
	}
	defer p.lock.unlock()

	p.closeSlots()
	return nil
}

// closeSlots closes and forgets every connector. Caller must hold the lock.
func (p *Pool) closeSlots() {
	for _, c := range p.slots {
		_ = c.Close()
	}

	if len(p.slots) > 0 {
		p.logger.Debug("closed pool",
			zap.String("kind", string(p.kind)),
			zap.Int("slots", len(p.slots)),
		)
	}
	p.slots = nil
	p.checkedOut = make(map[int]Connector)
}

// locker serializes pool state mutations.
type locker interface {
	lock(ctx context.Context) error
	tryLock() bool
	unlock()
}

// mutexLocker blocks the calling goroutine and ignores ctx.
type mutexLocker struct {
	mu sync.Mutex
}

func (l *mutexLocker) lock(context.Context) error {
	l.mu.Lock()
	return nil
}

func (l *mutexLocker) tryLock() bool { return l.mu.TryLock() }

func (l *mutexLocker) unlock() { l.mu.Unlock() }

// semaphoreLocker parks the calling goroutine and honours ctx cancellation.
type semaphoreLocker struct {
	sem *semaphore.Weighted
}

func (l *semaphoreLocker) lock(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

func (l *semaphoreLocker) tryLock() bool { return l.sem.TryAcquire(1) }

func (l *semaphoreLocker) unlock() { l.sem.Release(1) }
