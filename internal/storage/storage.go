package storage

import (
	"context"
	"errors"
)

// Keys used by the shopping cart.
const (
	KeyProducts = "products"
	KeyCart     = "cart"
)

var ErrNotFound = errors.New("key not found")

// Adapter is a string-keyed text store. Get returns ErrNotFound when the key
// has never been set.
type Adapter interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Pinger is implemented by adapters backed by a remote server.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks a if it supports it and reports healthy otherwise.
func Ping(ctx context.Context, a Adapter) error {
	if p, ok := a.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

type namespaced struct {
	next   Adapter
	prefix string
}

// Namespace scopes every key of next under prefix, so several carts can
// share one backend without seeing each other's state.
func Namespace(next Adapter, prefix string) Adapter {
	return &namespaced{next: next, prefix: prefix}
}

func (n *namespaced) Get(ctx context.Context, key string) (string, error) {
	return n.next.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key, value string) error {
	return n.next.Set(ctx, n.prefix+key, value)
}

func (n *namespaced) Ping(ctx context.Context) error {
	return Ping(ctx, n.next)
}
