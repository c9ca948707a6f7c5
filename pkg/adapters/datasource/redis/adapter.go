package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
)

type binding struct {
	mode datasource.Mode
}

// NewBinding returns the Redis binding for mode.
func NewBinding(mode datasource.Mode) datasource.Binding {
	return binding{mode: mode}
}

func (binding) Kind() datasource.Kind { return datasource.KindRedis }

func (binding) RequiredFields() []string { return RequiredFields }

func (b binding) Open(ctx context.Context, params datasource.Params) (datasource.Handle, error) {
	cfg, err := FromMap(params)
	if err != nil {
		return nil, err
	}
	opts, err := cfg.Options(b.mode)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &ClientHandle{client: client}, nil
}

// ClientHandle wraps *redis.Client to implement datasource.Handle.
type ClientHandle struct {
	client *redis.Client
}

// Ping sends PING.
func (h *ClientHandle) Ping(ctx context.Context) error {
	return h.client.Ping(ctx).Err()
}

// Close closes the client and its connections
func (h *ClientHandle) Close() error {
	return h.client.Close()
}

// Client returns the underlying *redis.Client
func (h *ClientHandle) Client() *redis.Client {
	return h.client
}

// Client extracts the go-redis client from a Redis connector.
func Client(c datasource.Connector) (*redis.Client, error) {
	h, ok := c.Handle().(*ClientHandle)
	if !ok {
		return nil, apperrors.InvalidParameter(string(c.Kind()),
			fmt.Sprintf("expected a redis connector, got %T", c.Handle()))
	}
	return h.Client(), nil
}

var (
	_ datasource.Handle = (*ClientHandle)(nil)
	_ datasource.Pinger = (*ClientHandle)(nil)
)
