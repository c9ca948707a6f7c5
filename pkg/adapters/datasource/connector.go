package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-connect/pkg/logging"
)

const (
	// DefaultConnectTimeout bounds a blocking open.
	DefaultConnectTimeout = 10 * time.Second
	// DefaultProbeTimeout bounds a liveness probe.
	DefaultProbeTimeout = 5 * time.Second
)

// State is a Connector's lifecycle position.
type State int

const (
	StateUnconnected State = iota
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Connector owns exactly one live driver handle.
// Callers release it with Close, typically via defer.
type Connector interface {
	ID() uuid.UUID
	Kind() Kind
	Mode() Mode
	State() State

	// Handle returns the driver handle. It remains owned by the Connector.
	Handle() Handle

	// IsAlive probes the handle. Closed connectors are never alive; handles
	// without a Pinger are assumed alive.
	IsAlive(ctx context.Context) bool

	// Close releases the handle. It is idempotent and never returns an error.
	Close() error
}

// ConnectorOptions tune NewConnectorWithOptions.
type ConnectorOptions struct {
	ConnectTimeout time.Duration
	ProbeTimeout   time.Duration
	Logger         *zap.Logger
}

type connector struct {
	id           uuid.UUID
	kind         Kind
	mode         Mode
	probeTimeout time.Duration
	logger       *zap.Logger

	mu     sync.Mutex
	state  State
	handle Handle
}

// NewConnector validates params against the binding's required fields and
// opens a connection. The returned Connector is always connected.
func NewConnector(ctx context.Context, binding Binding, mode Mode, params Params, logger *zap.Logger) (Connector, error) {
	return NewConnectorWithOptions(ctx, binding, mode, params, ConnectorOptions{Logger: logger})
}

// NewConnectorWithOptions is NewConnector with explicit timeouts.
func NewConnectorWithOptions(ctx context.Context, binding Binding, mode Mode, params Params, opts ConnectorOptions) (Connector, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	logger := logging.OrNop(opts.Logger)
	kind := binding.Kind()

	if missing := params.Missing(binding.RequiredFields()); len(missing) > 0 {
		return nil, apperrors.MissingParameters(string(kind), missing)
	}

	c := &connector{
		id:           uuid.New(),
		kind:         kind,
		mode:         mode,
		probeTimeout: opts.ProbeTimeout,
		logger:       logger,
		state:        StateUnconnected,
	}

	openCtx, cancel := c.callContext(ctx, opts.ConnectTimeout)
	defer cancel()

	handle, err := binding.Open(openCtx, params)
	if err != nil {
		logger.Debug("open failed",
			zap.String("kind", string(kind)),
			zap.String("mode", mode.String()),
			zap.String("error", logging.SanitizeError(err)),
		)
		return nil, apperrors.Normalize(string(kind), err)
	}
	if handle == nil {
		return nil, apperrors.ConnectionError(string(kind), fmt.Errorf("driver returned no handle"))
	}

	c.handle = handle
	c.state = StateConnected
	return c, nil
}

// callContext derives the context for a driver call. Blocking connectors
// ignore caller cancellation and rely on the timeout alone.
func (c *connector) callContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if c.mode == Blocking {
		ctx = context.WithoutCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func (c *connector) ID() uuid.UUID { return c.id }

func (c *connector) Kind() Kind { return c.kind }

func (c *connector) Mode() Mode { return c.mode }

func (c *connector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *connector) Handle() Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle
}

func (c *connector) IsAlive(ctx context.Context) bool {
	c.mu.Lock()
	state, handle := c.state, c.handle
	c.mu.Unlock()

	if state != StateConnected {
		return false
	}

	pinger, ok := handle.(Pinger)
	if !ok {
		return true
	}

	probeCtx, cancel := c.callContext(ctx, c.probeTimeout)
	defer cancel()

	if err := pinger.Ping(probeCtx); err != nil {
		c.logger.Debug("liveness probe failed",
			zap.String("kind", string(c.kind)),
			zap.String("connector_id", c.id.String()),
			zap.String("error", logging.SanitizeError(err)),
		)
		return false
	}
	return true
}

func (c *connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateConnected {
		c.state = StateClosed
		return nil
	}
	c.state = StateClosed

	handle := c.handle
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("driver panicked during close",
				zap.String("kind", string(c.kind)),
				zap.Any("panic", r),
			)
		}
	}()

	if err := handle.Close(); err != nil {
		c.logger.Debug("close failed",
			zap.String("kind", string(c.kind)),
			zap.String("connector_id", c.id.String()),
			zap.String("error", logging.SanitizeError(err)),
		)
	}
	return nil
}

var _ Connector = (*connector)(nil)
