package cassandra

import (
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-connect/pkg/config"
)

// RequiredFields is empty: contact points default to localhost.
var RequiredFields []string

// Config contains Cassandra cluster options.
type Config struct {
	Hosts       []string
	Port        int
	Keyspace    string
	User        string
	Password    string
	Consistency gocql.Consistency
	Timeout     time.Duration
}

// DefaultPort returns the default CQL native transport port.
func DefaultPort() int {
	return 9042
}

// FromMap creates a Config from connection params.
// "host" is used when "hosts" is absent; "database" aliases "keyspace".
func FromMap(params datasource.Params) (*Config, error) {
	kind := string(datasource.KindCassandra)
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
		cfg.Hosts = []string{host}
	}
	if cfg.Port, err = params.Int("port", DefaultPort()); err != nil {
		return nil, err
	}

	keyspaceKey := "keyspace"
	if _, ok := params["keyspace"]; !ok {
		keyspaceKey = "database"
	}
	if cfg.Keyspace, err = params.String(keyspaceKey, ""); err != nil {
		return nil, err
	}
	if cfg.User, err = params.String("user", ""); err != nil {
		return nil, err
	}
	if cfg.Password, err = params.String("password", ""); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = params.Duration("timeout", 10*time.Second); err != nil {
		return nil, err
	}

	consistency, err := params.String("consistency", "QUORUM")
	if err != nil {
		return nil, err
	}
	if cfg.Consistency, err = parseConsistency(consistency); err != nil {
		return nil, apperrors.InvalidParameter(kind, err.Error())
	}
	return cfg, nil
}

func parseConsistency(s string) (gocql.Consistency, error) {
	var c gocql.Consistency
	if err := c.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(s)))); err != nil {
		return 0, fmt.Errorf("unknown consistency %q", s)
	}
	return c, nil
}

// ClusterConfig builds the gocql cluster configuration.
func (c *Config) ClusterConfig() *gocql.ClusterConfig {
	hosts := make([]string, len(c.Hosts))
	for i, h := range c.Hosts {
		hosts[i] = config.ResolveHostForDocker(h)
	}

	cluster := gocql.NewCluster(hosts...)
	cluster.Port = c.Port
	cluster.Keyspace = c.Keyspace
	cluster.Consistency = c.Consistency
	cluster.Timeout = c.Timeout
	cluster.ConnectTimeout = c.Timeout
	// One connection per host; probes share it, CQL multiplexes streams
	cluster.NumConns = 1
	if c.User != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: c.User,
			Password: c.Password,
		}
	}
	return cluster
}
