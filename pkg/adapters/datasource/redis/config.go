package redis

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-connect/pkg/config"
)

// RequiredFields is empty: Redis defaults to localhost:6379, database 0.
var RequiredFields []string

// Config contains Redis connection options.
type Config struct {
	// URL, when set, takes precedence over the individual fields.
	URL         string
	Host        string
	Port        int
	User        string
	Password    string
	DB          int
	DialTimeout time.Duration
	ReadTimeout time.Duration
}

// DefaultPort returns the default Redis port.
func DefaultPort() int {
	return 6379
}

// FromMap creates a Config from connection params.
// "database" is accepted as an alias for "db".
func FromMap(params datasource.Params) (*Config, error) {
	kind := string(datasource.KindRedis)
	cfg := &Config{}
	var err error

	if cfg.URL, err = params.String("url", ""); err != nil {
		return nil, err
	}
	if cfg.Host, err = params.String("host", "localhost"); err != nil {
		return nil, err
	}
	if cfg.Port, err = params.Int("port", DefaultPort()); err != nil {
		return nil, err
	}
	if cfg.User, err = params.String("user", ""); err != nil {
		return nil, err
	}
	if cfg.Password, err = params.String("password", ""); err != nil {
		return nil, err
	}
	dbKey := "db"
	if _, ok := params["db"]; !ok {
		dbKey = "database"
	}
	if cfg.DB, err = params.Int(dbKey, 0); err != nil {
		return nil, err
	}
	if cfg.DialTimeout, err = params.Duration("dial_timeout", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.ReadTimeout, err = params.Duration("read_timeout", 3*time.Second); err != nil {
		return nil, err
	}

	if cfg.DB < 0 {
		return nil, apperrors.InvalidParameter(kind, fmt.Sprintf("db must not be negative, got %d", cfg.DB))
	}
	return cfg, nil
}

// Options builds go-redis client options. Non-blocking clients honour the
// caller's context deadline on every command.
func (c *Config) Options(mode datasource.Mode) (*redis.Options, error) {
	var opts *redis.Options
	if c.URL != "" {
		parsed, err := redis.ParseURL(c.URL)
		if err != nil {
			return nil, apperrors.InvalidParameter(string(datasource.KindRedis), fmt.Sprintf("invalid url: %v", err))
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     fmt.Sprintf("%s:%d", config.ResolveHostForDocker(c.Host), c.Port),
			Username: c.User,
			Password: c.Password,
			DB:       c.DB,
		}
	}

	opts.DialTimeout = c.DialTimeout
	opts.ReadTimeout = c.ReadTimeout
	opts.WriteTimeout = c.ReadTimeout
	opts.PoolSize = 2
	opts.MinIdleConns = 1
	opts.MaxRetries = 0
	opts.ContextTimeoutEnabled = mode == datasource.NonBlocking
	return opts, nil
}
