package datasource

import "context"

// Handle is an open driver resource exclusively owned by one Connector.
type Handle interface {
	// Close releases the driver resource. It may be called at most once.
	Close() error
}

// Pinger is implemented by handles that can probe liveness.
// Probes may run while the handle is lent to a caller, so implementations
// must be safe for concurrent use.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Querier is implemented by handles that can run a scalar test query such as SELECT 1.
type Querier interface {
	QueryInt(ctx context.Context, query string) (int64, error)
}

// Binding opens handles for one kind in one mode.
type Binding interface {
	// Kind is the engine this binding connects to.
	Kind() Kind

	// RequiredFields are validated before Open is called.
	RequiredFields() []string

	// Open establishes a connection. Errors that are not already classified
	// are reported to callers as connection errors.
	Open(ctx context.Context, params Params) (Handle, error)
}

// Registration is what an adapter registers from its init() function.
// NonBlocking may be nil for kinds whose drivers only offer blocking I/O.
type Registration struct {
	Info        KindInfo
	Blocking    Binding
	NonBlocking Binding
}

// BindingFunc adapts a function into a Binding.
type BindingFunc struct {
	KindValue Kind
	Required  []string
	OpenFunc  func(ctx context.Context, params Params) (Handle, error)
}

func (b BindingFunc) Kind() Kind { return b.KindValue }

func (b BindingFunc) RequiredFields() []string { return b.Required }

func (b BindingFunc) Open(ctx context.Context, params Params) (Handle, error) {
	return b.OpenFunc(ctx, params)
}

var _ Binding = BindingFunc{}
