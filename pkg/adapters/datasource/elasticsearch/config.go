package elasticsearch

import (
	"fmt"
	"net/url"
	"time"

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-connect/pkg/config"
)

// RequiredFields is empty: the node defaults to http://localhost:9200.
var RequiredFields []string

// Config contains Elasticsearch client options.
type Config struct {
	// Addresses are node URLs. Built from scheme/host/port when "addresses"
	// is not given.
	Addresses          []string
	User               string
	Password           string
	APIKey             string
	CloudID            string
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// DefaultPort returns the default Elasticsearch HTTP port.
func DefaultPort() int {
	return 9200
}

// FromMap creates a Config from connection params.
// "hosts" is accepted as an alias for "addresses".
func FromMap(params datasource.Params) (*Config, error) {
	kind := string(datasource.KindElasticsearch)
	cfg := &Config{}
	var err error

	addrKey := "addresses"
	if _, ok := params["addresses"]; !ok {
		addrKey = "hosts"
	}
	if cfg.Addresses, err = params.Strings(addrKey); err != nil {
		return nil, err
	}
	if cfg.CloudID, err = params.String("cloud_id", ""); err != nil {
		return nil, err
	}

	if len(cfg.Addresses) == 0 && cfg.CloudID == "" {
		scheme, err := params.String("scheme", "http")
		if err != nil {
			return nil, err
		}
		host, err := params.String("host", "localhost")
		if err != nil {
			return nil, err
		}
		port, err := params.Int("port", DefaultPort())
		if err != nil {
			return nil, err
		}
		cfg.Addresses = []string{fmt.Sprintf("%s://%s:%d", scheme, host, port)}
	}

	if cfg.User, err = params.String("user", ""); err != nil {
		return nil, err
	}
	if cfg.Password, err = params.String("password", ""); err != nil {
		return nil, err
	}
	if cfg.APIKey, err = params.String("api_key", ""); err != nil {
		return nil, err
	}
	if cfg.InsecureSkipVerify, err = params.Bool("insecure_skip_verify", false); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = params.Duration("timeout", 10*time.Second); err != nil {
		return nil, err
	}

	for _, addr := range cfg.Addresses {
		u, err := url.Parse(addr)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, apperrors.InvalidParameter(kind, fmt.Sprintf("address %q must be an http(s) URL", addr))
		}
	}
	if cfg.APIKey != "" && cfg.User != "" {
		return nil, apperrors.InvalidParameter(kind, "use either api_key or user/password, not both")
	}
	return cfg, nil
}

// ResolvedAddresses returns the node URLs with loopback hosts resolved for Docker.
func (c *Config) ResolvedAddresses() []string {
	out := make([]string, len(c.Addresses))
	for i, addr := range c.Addresses {
		u, err := url.Parse(addr)
		if err != nil {
			out[i] = addr
			continue
		}
		host := config.ResolveHostForDocker(u.Hostname())
		if port := u.Port(); port != "" {
			u.Host = host + ":" + port
		} else {
			u.Host = host
		}
		out[i] = u.String()
	}
	return out
}
