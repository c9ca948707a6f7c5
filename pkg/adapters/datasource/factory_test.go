package datasource

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-connect/pkg/retry"
)

type testRegistry struct {
	*Registry
	redisBlocking    *fakeBinding
	redisNonBlocking *fakeBinding
	sqlite           *fakeBinding
}

func newTestRegistry() *testRegistry {
	tr := &testRegistry{
		Registry:         NewRegistry(),
		redisBlocking:    newFakeBinding(KindRedis),
		redisNonBlocking: newFakeBinding(KindRedis),
		sqlite:           newFakeBinding(KindSQLite, "database"),
	}
	tr.Register(Registration{
		Info:        KindInfo{Kind: KindRedis, DisplayName: "Redis"},
		Blocking:    tr.redisBlocking,
		NonBlocking: tr.redisNonBlocking,
	})
	tr.Register(Registration{
		Info:     KindInfo{Kind: KindSQLite, DisplayName: "SQLite"},
		Blocking: tr.sqlite,
	})
	return tr
}

func TestFactory_UnsupportedKind(t *testing.T) {
	f := NewFactory(FactoryConfig{Registry: newTestRegistry().Registry}, zaptest.NewLogger(t))

	_, err := f.Connect(context.Background(), "unsupported_kind", Blocking, Params{})
	require.Error(t, err)

	assert.ErrorIs(t, err, apperrors.ErrUnsupportedKind)
	assert.Contains(t, err.Error(), "mysql, postgresql, sqlite, oracle, mssql, mongodb, redis, cassandra, elasticsearch")
}

func TestFactory_KnownKindWithoutBinding(t *testing.T) {
	f := NewFactory(FactoryConfig{Registry: newTestRegistry().Registry}, zaptest.NewLogger(t))

	_, err := f.Connect(context.Background(), "oracle", Blocking, Params{})
	assert.ErrorIs(t, err, apperrors.ErrDependencyMissing)
	assert.NotErrorIs(t, err, apperrors.ErrUnsupportedKind)
}

func TestFactory_SelectsVariantByMode(t *testing.T) {
	tr := newTestRegistry()
	f := NewFactory(FactoryConfig{Registry: tr.Registry}, zaptest.NewLogger(t))
	ctx := context.Background()

	c, err := f.Connect(ctx, "REDIS", Blocking, Params{})
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, Blocking, c.Mode())

	nc, err := f.Connect(ctx, "redis", NonBlocking, Params{})
	require.NoError(t, err)
	defer nc.Close()
	assert.Equal(t, NonBlocking, nc.Mode())

	assert.Equal(t, 1, tr.redisBlocking.openCount())
	assert.Equal(t, 1, tr.redisNonBlocking.openCount())
}

func TestFactory_NonBlockingFallsBackToBlocking(t *testing.T) {
	tr := newTestRegistry()
	core, logs := observer.New(zap.InfoLevel)
	f := NewFactory(FactoryConfig{Registry: tr.Registry}, zap.New(core))

	c, err := f.Connect(context.Background(), "sqlite", NonBlocking, Params{"database": ":memory:"})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, Blocking, c.Mode(), "sqlite has no non-blocking driver")
	assert.Equal(t, 1, tr.sqlite.openCount())

	fallback := logs.FilterMessage("no non-blocking driver, falling back to blocking")
	require.Equal(t, 1, fallback.Len())
	assert.Equal(t, "sqlite", fallback.All()[0].ContextMap()["kind"])
}

func TestFactory_ValidatesBeforeOpen(t *testing.T) {
	tr := newTestRegistry()
	f := NewFactory(FactoryConfig{Registry: tr.Registry}, zaptest.NewLogger(t))

	_, err := f.Connect(context.Background(), "sqlite", Blocking, Params{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidParameter)
	assert.Equal(t, 0, tr.sqlite.openCount())
}

func TestFactory_FailsFastByDefault(t *testing.T) {
	tr := newTestRegistry()
	tr.redisBlocking.setOpenErr(errors.New("dial tcp 127.0.0.1:6379: connect: connection refused"))
	f := NewFactory(FactoryConfig{Registry: tr.Registry}, zaptest.NewLogger(t))

	_, err := f.Connect(context.Background(), "redis", Blocking, Params{})
	assert.ErrorIs(t, err, apperrors.ErrConnection)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1, tr.redisBlocking.openCount())
}

func TestFactory_RetriesTransientOpenFailures(t *testing.T) {
	tr := newTestRegistry()
	var attempts atomic.Int32
	tr.redisBlocking.onOpen = func(context.Context) error {
		if attempts.Add(1) < 3 {
			return errors.New("connection refused")
		}
		return nil
	}

	f := NewFactory(FactoryConfig{
		Registry:   tr.Registry,
		MaxRetries: 3,
		RetryConfig: &retry.Config{
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond,
			Multiplier:   1,
		},
	}, zaptest.NewLogger(t))

	c, err := f.Connect(context.Background(), "redis", Blocking, Params{})
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, int32(3), attempts.Load())
}

func TestFactory_DoesNotRetryInvalidParameters(t *testing.T) {
	tr := newTestRegistry()
	f := NewFactory(FactoryConfig{Registry: tr.Registry, MaxRetries: 5}, zaptest.NewLogger(t))

	_, err := f.Connect(context.Background(), "sqlite", Blocking, Params{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidParameter)
	assert.Equal(t, 0, tr.sqlite.openCount())
}

func TestFactory_LogsConnectDuration(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	f := NewFactory(FactoryConfig{Registry: newTestRegistry().Registry}, zap.New(core))

	c, err := f.Connect(context.Background(), "redis", Blocking, Params{})
	require.NoError(t, err)
	defer c.Close()

	timed := logs.FilterMessage("Operation completed").All()
	require.Len(t, timed, 1)
	assert.Equal(t, "connect", timed[0].ContextMap()["operation"])
	assert.Equal(t, "redis", timed[0].ContextMap()["kind"])
}

func TestFactory_NewPool(t *testing.T) {
	tr := newTestRegistry()
	f := NewFactory(FactoryConfig{Registry: tr.Registry}, zaptest.NewLogger(t))

	_, err := f.NewPool("dbase", Blocking, 2, Params{})
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedKind)

	_, err = f.NewPool("mssql", Blocking, 2, Params{})
	assert.ErrorIs(t, err, apperrors.ErrDependencyMissing)

	_, err = f.NewPool("sqlite", Blocking, 0, Params{"database": ":memory:"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidParameter)

	params := Params{"database": ":memory:"}
	pool, err := f.NewPool("sqlite", Blocking, 2, params)
	require.NoError(t, err)
	defer pool.CloseAll()

	params["database"] = "" // later mutation must not leak into the pool

	c, err := pool.Checkout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, KindSQLite, c.Kind())
	assert.Equal(t, 1, tr.sqlite.openCount())
}

func TestFactory_Kinds(t *testing.T) {
	f := NewFactory(FactoryConfig{Registry: newTestRegistry().Registry}, nil)

	infos := f.Kinds()
	require.Len(t, infos, 9)
	assert.Equal(t, KindMySQL, infos[0].Kind)
	assert.False(t, infos[0].Available)
	assert.Equal(t, KindRedis, infos[6].Kind)
	assert.True(t, infos[6].Available)
}
