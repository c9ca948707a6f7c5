package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
)

func TestFromMap_Defaults(t *testing.T) {
	cfg, err := FromMap(datasource.Params{})
	require.NoError(t, err)

	assert.Equal(t, []string{"localhost:27017"}, cfg.Hosts)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.False(t, cfg.Direct)
}

func TestFromMap_Hosts(t *testing.T) {
	tests := []struct {
		name   string
		params datasource.Params
		want   []string
	}{
		{"host and port", datasource.Params{"host": "mongo.internal", "port": float64(27018)}, []string{"mongo.internal:27018"}},
		{"hosts list", datasource.Params{"hosts": []any{"a:27017", "b:27017"}}, []string{"a:27017", "b:27017"}},
		{"comma separated", datasource.Params{"hosts": "a:1, b:2"}, []string{"a:1", "b:2"}},
		{"ipv6", datasource.Params{"host": "fe80::1"}, []string{"[fe80::1]:27017"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromMap(tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Hosts)
		})
	}
}

func TestFromMap_Errors(t *testing.T) {
	tests := []struct {
		name   string
		params datasource.Params
	}{
		{"password without user", datasource.Params{"password": "secret"}},
		{"host without port", datasource.Params{"hosts": []string{"mongo.internal"}}},
		{"hosts wrong type", datasource.Params{"hosts": 42}},
		{"timeout wrong type", datasource.Params{"timeout": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromMap(tt.params)
			assert.ErrorIs(t, err, apperrors.ErrInvalidParameter)
		})
	}
}

func TestTimeoutFor(t *testing.T) {
	assert.Equal(t, 3*time.Second, timeoutFor(context.Background(), 3*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	got := timeoutFor(ctx, 3*time.Second)
	assert.LessOrEqual(t, got, 500*time.Millisecond)
	assert.Greater(t, got, time.Duration(0))
}

func TestConnect_Unreachable(t *testing.T) {
	f := datasource.NewFactory(datasource.FactoryConfig{ConnectTimeout: 2 * time.Second}, zaptest.NewLogger(t))

	// Port 1 is reserved and closed on test hosts.
	_, err := f.Connect(context.Background(), "mongo", datasource.Blocking,
		datasource.Params{"host": "127.0.0.1", "port": 1, "timeout": "500ms"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConnection)
}

func TestKindInfo_BlockingOnly(t *testing.T) {
	f := datasource.NewFactory(datasource.FactoryConfig{}, zaptest.NewLogger(t))
	info := f.Kinds()

	for _, k := range info {
		if k.Kind == datasource.KindMongoDB {
			assert.True(t, k.Available)
			assert.False(t, k.NonBlocking)
			return
		}
	}
	t.Fatal("mongodb missing from Kinds()")
}
