package mongodb

import (
	"context"
	"fmt"
	"time"

	mgo "gopkg.in/mgo.v2"

	"github.com/ekaya-inc/ekaya-connect/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-connect/pkg/apperrors"
)

// binding dials MongoDB through mgo. mgo has no context support, so the
// context only contributes its deadline. Blocking only.
type binding struct{}

// NewBinding returns the MongoDB binding.
func NewBinding() datasource.Binding {
	return binding{}
}

func (binding) Kind() datasource.Kind { return datasource.KindMongoDB }

func (binding) RequiredFields() []string { return RequiredFields }

func (binding) Open(ctx context.Context, params datasource.Params) (datasource.Handle, error) {
	cfg, err := FromMap(params)
	if err != nil {
		return nil, err
	}

	info := &mgo.DialInfo{
		Addrs:          cfg.Addrs(),
		Direct:         cfg.Direct,
		Timeout:        timeoutFor(ctx, cfg.Timeout),
		Database:       cfg.Database,
		ReplicaSetName: cfg.ReplicaSetName,
		Source:         cfg.AuthSource,
		Username:       cfg.User,
		Password:       cfg.Password,
	}

	session, err := mgo.DialWithInfo(info)
	if err != nil {
		return nil, err
	}

	// DialWithInfo only reaches one seed; confirm the server answers
	if err := session.Ping(); err != nil {
		session.Close()
		return nil, err
	}
	return &SessionHandle{session: session}, nil
}

// timeoutFor caps def by the time left on ctx.
func timeoutFor(ctx context.Context, def time.Duration) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return def
	}
	if left := time.Until(deadline); left < def {
		return max(left, time.Millisecond)
	}
	return def
}

// SessionHandle wraps *mgo.Session to implement datasource.Handle.
type SessionHandle struct {
	session *mgo.Session
}

// Ping checks the server on a copied session so a probe never shares a
// socket with the borrower.
func (h *SessionHandle) Ping(ctx context.Context) error {
	s := h.session.Copy()
	defer s.Close()
	s.SetSyncTimeout(timeoutFor(ctx, 5*time.Second))
	s.SetSocketTimeout(timeoutFor(ctx, 5*time.Second))
	return s.Ping()
}

// Close closes the root session
func (h *SessionHandle) Close() error {
	h.session.Close()
	return nil
}

// Session returns the root *mgo.Session. Callers should Copy it per unit of work.
func (h *SessionHandle) Session() *mgo.Session {
	return h.session
}

// Session extracts the mgo session from a MongoDB connector.
func Session(c datasource.Connector) (*mgo.Session, error) {
	h, ok := c.Handle().(*SessionHandle)
	if !ok {
		return nil, apperrors.InvalidParameter(string(c.Kind()),
			fmt.Sprintf("expected a mongodb connector, got %T", c.Handle()))
	}
	return h.Session(), nil
}

var (
	_ datasource.Handle = (*SessionHandle)(nil)
	_ datasource.Pinger = (*SessionHandle)(nil)
)
