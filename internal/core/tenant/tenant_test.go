package tenant

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolder_WriteOnce(t *testing.T) {
	var h Holder
	require.NoError(t, h.Set("school-a"))
	assert.ErrorIs(t, h.Set("school-b"), ErrAlreadySet)

	id, ok := h.Get()
	assert.True(t, ok)
	assert.Equal(t, "school-a", id)
}

func TestHolder_RejectsEmpty(t *testing.T) {
	var h Holder
	assert.ErrorIs(t, h.Set(""), ErrEmpty)
	_, ok := h.Get()
	assert.False(t, ok)
}

func TestHolder_ClearIsFinal(t *testing.T) {
	var h Holder
	require.NoError(t, h.Set("school-a"))
	h.Clear()

	_, ok := h.Get()
	assert.False(t, ok)
	assert.ErrorIs(t, h.Set("school-b"), ErrAlreadySet)
}

func TestScope_ClearsAfterReturn(t *testing.T) {
	var retained context.Context
	err := Scope(context.Background(), "school-a", func(ctx context.Context) error {
		id, err := Require(ctx)
		require.NoError(t, err)
		assert.Equal(t, "school-a", id)
		retained = ctx
		return nil
	})
	require.NoError(t, err)

	_, ok := FromContext(retained)
	assert.False(t, ok, "tenant must not outlive the request")
}

func TestScope_ClearsOnErrorAndPanic(t *testing.T) {
	boom := errors.New("boom")
	var retained context.Context

	err := Scope(context.Background(), "school-a", func(ctx context.Context) error {
		retained = ctx
		return boom
	})
	assert.ErrorIs(t, err, boom)
	_, ok := FromContext(retained)
	assert.False(t, ok)

	assert.Panics(t, func() {
		_ = Scope(context.Background(), "school-b", func(ctx context.Context) error {
			retained = ctx
			panic("handler failed")
		})
	})
	_, ok = FromContext(retained)
	assert.False(t, ok)
}

func TestScope_ConcurrentRequestsAreIsolated(t *testing.T) {
	var wg sync.WaitGroup
	tenants := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, id := range tenants {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_ = Scope(context.Background(), id, func(ctx context.Context) error {
				got, _ := FromContext(ctx)
				assert.Equal(t, id, got)
				return nil
			})
		}(id)
	}
	wg.Wait()
}

func TestResolve(t *testing.T) {
	assert.Equal(t, "school-a", Resolve("school-a", "default"))
	assert.Equal(t, "default", Resolve("", "default"))
}

func TestRequire_Missing(t *testing.T) {
	_, err := Require(context.Background())
	assert.ErrorIs(t, err, ErrMissing)
}
