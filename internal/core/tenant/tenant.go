// Package tenant carries the tenant of the current request on its context.
//
// Each request gets its own Holder. The tenant is written once at request
// entry and cleared when the request ends, so a context retained past the
// request (a leaked goroutine, a late callback) no longer resolves a tenant.
package tenant

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrAlreadySet = errors.New("tenant: already set for this request")
	ErrEmpty      = errors.New("tenant: empty tenant id")
	ErrMissing    = errors.New("tenant: no tenant in context")
)

// Holder is a write-once tenant slot. The zero value is ready to use.
type Holder struct {
	mu      sync.RWMutex
	id      string
	written bool
	cleared bool
}

// Set stores the tenant. A second call fails, also after Clear.
func (h *Holder) Set(id string) error {
	if id == "" {
		return ErrEmpty
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.written {
		return ErrAlreadySet
	}
	h.id = id
	h.written = true
	return nil
}

func (h *Holder) Get() (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.written || h.cleared {
		return "", false
	}
	return h.id, true
}

// Clear drops the tenant for good.
func (h *Holder) Clear() {
	h.mu.Lock()
	h.id = ""
	h.cleared = true
	h.mu.Unlock()
}

type holderKey struct{}

// NewContext attaches h to ctx.
func NewContext(ctx context.Context, h *Holder) context.Context {
	return context.WithValue(ctx, holderKey{}, h)
}

// FromContext returns the tenant of the request ctx belongs to.
func FromContext(ctx context.Context) (string, bool) {
	h, ok := ctx.Value(holderKey{}).(*Holder)
	if !ok {
		return "", false
	}
	return h.Get()
}

// Require is FromContext for data-access paths that must be scoped.
func Require(ctx context.Context) (string, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return "", ErrMissing
	}
	return id, nil
}

// Resolve returns claimed, or fallback when the token carried no tenant.
func Resolve(claimed, fallback string) string {
	if claimed != "" {
		return claimed
	}
	return fallback
}

// Scope runs fn with a new holder set to id and clears the holder when fn
// returns or panics.
func Scope(ctx context.Context, id string, fn func(context.Context) error) error {
	h := &Holder{}
	if err := h.Set(id); err != nil {
		return err
	}
	defer h.Clear()
	return fn(NewContext(ctx, h))
}
