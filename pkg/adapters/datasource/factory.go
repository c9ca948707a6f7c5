package datasource

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-connect/pkg/logging"
	"github.com/ekaya-inc/ekaya-connect/pkg/middleware"
	"github.com/ekaya-inc/ekaya-connect/pkg/retry"
)

// ConnectorFactory creates connectors and pools for any supported kind.
type ConnectorFactory interface {
	// Connect opens a Connector for kind (case-insensitive) in the requested mode.
	Connect(ctx context.Context, kind string, mode Mode, params Params) (Connector, error)

	// NewPool returns an empty pool whose connectors come from Connect.
	NewPool(kind string, mode Mode, maxSize int, params Params) (*Pool, error)

	// Kinds returns discovery info for every supported kind.
	Kinds() []KindInfo
}

// FactoryConfig holds configuration for the factory.
type FactoryConfig struct {
	// Registry defaults to the process-wide registry.
	Registry *Registry
	// ConnectTimeout bounds each open; defaults to DefaultConnectTimeout.
	ConnectTimeout time.Duration
	// ProbeTimeout bounds each liveness probe; defaults to DefaultProbeTimeout.
	ProbeTimeout time.Duration
	// MaxRetries retries transient open failures. 0 fails fast.
	MaxRetries int
	// RetryConfig overrides backoff timing when MaxRetries > 0.
	RetryConfig *retry.Config
}

type registryFactory struct {
	registry *Registry
	cfg      FactoryConfig
	logger   *zap.Logger
}

// NewFactory returns a factory over the configured registry.
func NewFactory(cfg FactoryConfig, logger *zap.Logger) ConnectorFactory {
	if cfg.Registry == nil {
		cfg.Registry = defaultRegistry
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	return &registryFactory{
		registry: cfg.Registry,
		cfg:      cfg,
		logger:   logging.OrNop(logger).Named("factory"),
	}
}

// resolve picks the binding for kind and mode, falling back to the blocking
// binding when the kind has no non-blocking driver.
func (f *registryFactory) resolve(kindName string, mode Mode) (Binding, Mode, error) {
	kind, err := ParseKind(kindName)
	if err != nil {
		return nil, mode, err
	}

	reg, ok := f.registry.Lookup(kind)
	if !ok {
		return nil, mode, apperrors.DependencyMissing(string(kind),
			"no driver binding compiled in (import the adapter package or build with the matching tag)")
	}

	if mode == NonBlocking {
		if reg.NonBlocking != nil {
			return reg.NonBlocking, NonBlocking, nil
		}
		f.logger.Info("no non-blocking driver, falling back to blocking",
			zap.String("kind", string(kind)),
		)
		return reg.Blocking, Blocking, nil
	}
	return reg.Blocking, Blocking, nil
}

func (f *registryFactory) Connect(ctx context.Context, kind string, mode Mode, params Params) (Connector, error) {
	binding, mode, err := f.resolve(kind, mode)
	if err != nil {
		return nil, err
	}

	opts := ConnectorOptions{
		ConnectTimeout: f.cfg.ConnectTimeout,
		ProbeTimeout:   f.cfg.ProbeTimeout,
		Logger:         f.logger.Named(string(binding.Kind())),
	}

	open := func() (Connector, error) {
		return NewConnectorWithOptions(ctx, binding, mode, params, opts)
	}

	c, err := middleware.TimedResult(f.logger, "connect", func() (Connector, error) {
		if f.cfg.MaxRetries <= 0 {
			return open()
		}
		rc := *retry.DefaultConfig()
		if f.cfg.RetryConfig != nil {
			rc = *f.cfg.RetryConfig
		}
		rc.MaxRetries = f.cfg.MaxRetries
		return retry.DoIfRetryableWithResult(ctx, &rc, open)
	}, zap.String("kind", string(binding.Kind())), zap.String("mode", mode.String()))
	if err != nil {
		f.logger.Warn("connect failed",
			zap.String("kind", string(binding.Kind())),
			zap.String("error", logging.SanitizeError(err)),
		)
		return nil, apperrors.Normalize(string(binding.Kind()), err)
	}

	f.logger.Debug("connected",
		zap.String("kind", string(c.Kind())),
		zap.String("mode", c.Mode().String()),
		zap.String("connector_id", c.ID().String()),
	)
	return c, nil
}

func (f *registryFactory) NewPool(kindName string, mode Mode, maxSize int, params Params) (*Pool, error) {
	kind, err := ParseKind(kindName)
	if err != nil {
		return nil, err
	}
	if !f.registry.IsRegistered(kind) {
		return nil, apperrors.DependencyMissing(string(kind), "no driver binding compiled in")
	}

	frozen := params.Clone()
	open := func(ctx context.Context) (Connector, error) {
		return f.Connect(ctx, string(kind), mode, frozen)
	}

	return NewPool(PoolConfig{Kind: kind, Mode: mode, MaxSize: maxSize}, open, f.logger.Named("pool"))
}

func (f *registryFactory) Kinds() []KindInfo {
	return f.registry.Infos()
}

// Ensure registryFactory implements ConnectorFactory at compile time.
var _ ConnectorFactory = (*registryFactory)(nil)
