package cassandra

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
)

// ProbeQuery is run on open and by liveness probes.
const ProbeQuery = "SELECT release_version FROM system.local"

// binding opens gocql sessions. Blocking only.
type binding struct{}

// NewBinding returns the Cassandra binding.
func NewBinding() datasource.Binding {
	return binding{}
}

func (binding) Kind() datasource.Kind { return datasource.KindCassandra }

func (binding) RequiredFields() []string { return RequiredFields }

func (binding) Open(ctx context.Context, params datasource.Params) (datasource.Handle, error) {
	cfg, err := FromMap(params)
	if err != nil {
		return nil, err
	}

	session, err := cfg.ClusterConfig().CreateSession()
	if err != nil {
		return nil, err
	}

	h := &SessionHandle{session: session}
	if _, err := h.ReleaseVersion(ctx); err != nil {
		session.Close()
		return nil, err
	}
	return h, nil
}

// SessionHandle wraps *gocql.Session to implement datasource.Handle.
type SessionHandle struct {
	session *gocql.Session
}

// ReleaseVersion returns the Cassandra version of the coordinator node.
func (h *SessionHandle) ReleaseVersion(ctx context.Context) (string, error) {
	var version string
	if err := h.session.Query(ProbeQuery).WithContext(ctx).Scan(&version); err != nil {
		return "", err
	}
	return version, nil
}

// Ping runs the probe query.
func (h *SessionHandle) Ping(ctx context.Context) error {
	_, err := h.ReleaseVersion(ctx)
	return err
}

// Close closes the session
func (h *SessionHandle) Close() error {
	h.session.Close()
	return nil
}

// Session returns the underlying *gocql.Session
func (h *SessionHandle) Session() *gocql.Session {
	return h.session
}

// Session extracts the gocql session from a Cassandra connector.
func Session(c datasource.Connector) (*gocql.Session, error) {
	h, ok := c.Handle().(*SessionHandle)
	if !ok {
		return nil, apperrors.InvalidParameter(string(c.Kind()),
			fmt.Sprintf("expected a cassandra connector, got %T", c.Handle()))
	}
	return h.Session(), nil
}

var (
	_ datasource.Handle = (*SessionHandle)(nil)
	_ datasource.Pinger = (*SessionHandle)(nil)
)
