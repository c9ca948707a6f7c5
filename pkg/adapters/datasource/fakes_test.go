package datasource

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// fakeHandle is an in-memory Handle with a controllable liveness flag.
type fakeHandle struct {
	dead     atomic.Bool
	closes   atomic.Int32
	closeErr error
	panics   bool
}

func (h *fakeHandle) Ping(ctx context.Context) error {
	if h.dead.Load() {
		return errors.New("server has gone away")
	}
	return ctx.Err()
}

func (h *fakeHandle) Close() error {
	h.closes.Add(1)
	if h.panics {
		panic("driver exploded")
	}
	return h.closeErr
}

// silentHandle has no liveness primitive.
type silentHandle struct{}

func (silentHandle) Close() error { return nil }

// fakeBinding records every Open call and hands out fakeHandles.
type fakeBinding struct {
	kind     Kind
	required []string

	mu         sync.Mutex
	opens      int
	openErr    error
	handles    []*fakeHandle
	lastCtx    context.Context
	onOpen     func(ctx context.Context) error
	makeHandle func() Handle
}

func newFakeBinding(kind Kind, required ...string) *fakeBinding {
	return &fakeBinding{kind: kind, required: required}
}

func (b *fakeBinding) Kind() Kind { return b.kind }

func (b *fakeBinding) RequiredFields() []string { return b.required }

func (b *fakeBinding) Open(ctx context.Context, params Params) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.opens++
	b.lastCtx = ctx
	if b.onOpen != nil {
		if err := b.onOpen(ctx); err != nil {
			return nil, err
		}
	}
	if b.openErr != nil {
		return nil, b.openErr
	}
	if b.makeHandle != nil {
		return b.makeHandle(), nil
	}
	h := &fakeHandle{}
	b.handles = append(b.handles, h)
	return h, nil
}

func (b *fakeBinding) openCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opens
}

func (b *fakeBinding) setOpenErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openErr = err
}

// handleOf returns the fakeHandle behind a connector.
func handleOf(c Connector) *fakeHandle {
	return c.Handle().(*fakeHandle)
}
