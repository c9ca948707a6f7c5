package mongodb

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-connect/pkg/config"
)

// RequiredFields is empty: every MongoDB option has a default.
var RequiredFields []string

// Config contains MongoDB connection options.
type Config struct {
	// Hosts are "host:port" seed addresses. Built from host/port when
	// "hosts" is not given.
	Hosts          []string
	Database       string
	User           string
	Password       string
	AuthSource     string
	ReplicaSetName string
	Direct         bool
	Timeout        time.Duration
}

// DefaultPort returns the default MongoDB port.
func DefaultPort() int {
	return 27017
}

// FromMap creates a Config from connection params.
func FromMap(params datasource.Params) (*Config, error) {
	kind := string(datasource.KindMongoDB)
	cfg := &Config{}
	var err error

	if cfg.Hosts, err = params.Strings("hosts"); err != nil {
		return nil, err
	}
	if len(cfg.Hosts) == 0 {
		host, err := params.String("host", "localhost")
		if err != nil {
			return nil, err
		}
		port, err := params.Int("port", DefaultPort())
		if err != nil {
			return nil, err
		}
		cfg.Hosts = []string{net.JoinHostPort(host, strconv.Itoa(port))}
	}

	if cfg.Database, err = params.String("database", ""); err != nil {
		return nil, err
	}
	if cfg.User, err = params.String("user", ""); err != nil {
		return nil, err
	}
	if cfg.Password, err = params.String("password", ""); err != nil {
		return nil, err
	}
	if cfg.AuthSource, err = params.String("auth_source", ""); err != nil {
		return nil, err
	}
	if cfg.ReplicaSetName, err = params.String("replica_set", ""); err != nil {
		return nil, err
	}
	if cfg.Direct, err = params.Bool("direct", false); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = params.Duration("timeout", 10*time.Second); err != nil {
		return nil, err
	}

	if cfg.Password != "" && cfg.User == "" {
		return nil, apperrors.InvalidParameter(kind, "password given without user")
	}
	for _, h := range cfg.Hosts {
		if _, _, err := net.SplitHostPort(h); err != nil {
			return nil, apperrors.InvalidParameter(kind, fmt.Sprintf("host %q must be host:port", h))
		}
	}
	return cfg, nil
}

// Addrs returns the seed list with loopback hosts resolved for Docker.
func (c *Config) Addrs() []string {
	addrs := make([]string, len(c.Hosts))
	for i, h := range c.Hosts {
		host, port, _ := net.SplitHostPort(h)
		addrs[i] = net.JoinHostPort(config.ResolveHostForDocker(host), port)
	}
	return addrs
}
