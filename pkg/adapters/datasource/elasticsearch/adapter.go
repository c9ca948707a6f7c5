package elasticsearch

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
)

// binding creates go-elasticsearch clients. Every API call takes a context,
// so the same client serves both modes; the Connector decides whether the
// caller's cancellation reaches it.
type binding struct {
	mode datasource.Mode
}

// NewBinding returns the Elasticsearch binding for mode.
func NewBinding(mode datasource.Mode) datasource.Binding {
	return binding{mode: mode}
}

func (binding) Kind() datasource.Kind { return datasource.KindElasticsearch }

func (binding) RequiredFields() []string { return RequiredFields }

func (binding) Open(ctx context.Context, params datasource.Params) (datasource.Handle, error) {
	cfg, err := FromMap(params)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: cfg.Timeout}).DialContext,
		MaxIdleConnsPerHost: 2,
		TLSHandshakeTimeout: cfg.Timeout,
		// #nosec G402 -- opt-in for self-signed development clusters
		TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify},
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:  cfg.ResolvedAddresses(),
		CloudID:    cfg.CloudID,
		Username:   cfg.User,
		Password:   cfg.Password,
		APIKey:     cfg.APIKey,
		Transport:  transport,
		MaxRetries: 1,
	})
	if err != nil {
		return nil, apperrors.InvalidParameter(string(datasource.KindElasticsearch), err.Error())
	}

	h := &ClientHandle{client: client, transport: transport}
	if err := h.Ping(ctx); err != nil {
		transport.CloseIdleConnections()
		return nil, err
	}
	return h, nil
}

// ClientHandle wraps *elasticsearch.Client to implement datasource.Handle.
type ClientHandle struct {
	client    *elasticsearch.Client
	transport *http.Transport
}

// Ping sends HEAD / and fails on any non-2xx status.
func (h *ClientHandle) Ping(ctx context.Context) error {
	res, err := h.client.Ping(h.client.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("could not connect to Elasticsearch: %s", res.Status())
	}
	return nil
}

// Close drops idle HTTP connections. The client itself holds no other resources.
func (h *ClientHandle) Close() error {
	h.transport.CloseIdleConnections()
	return nil
}

// Client returns the underlying *elasticsearch.Client
func (h *ClientHandle) Client() *elasticsearch.Client {
	return h.client
}

// Client extracts the go-elasticsearch client from an Elasticsearch connector.
func Client(c datasource.Connector) (*elasticsearch.Client, error) {
	h, ok := c.Handle().(*ClientHandle)
	if !ok {
		return nil, apperrors.InvalidParameter(string(c.Kind()),
			fmt.Sprintf("expected an elasticsearch connector, got %T", c.Handle()))
	}
	return h.Client(), nil
}

var (
	_ datasource.Handle = (*ClientHandle)(nil)
	_ datasource.Pinger = (*ClientHandle)(nil)
)
