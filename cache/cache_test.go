package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	_ CatalogCache = (*RedisCache)(nil)
	_ CatalogCache = Nop{}
	_ CatalogCache = (*Memory)(nil)
)

func TestNopNeverHits(t *testing.T) {
	ctx := context.Background()
	var c CatalogCache = Nop{}
	c.Set(ctx, "categories", []byte(`[]`))
	_, ok := c.Get(ctx, "categories")
	assert.False(t, ok)
}

func TestMemoryInvalidate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Set(ctx, "categories", []byte(`[{"id":1}]`))
	m.Set(ctx, "category:1", []byte(`{"id":1}`))

	got, ok := m.Get(ctx, "categories")
	assert.True(t, ok)
	assert.JSONEq(t, `[{"id":1}]`, string(got))
	assert.Equal(t, 2, m.Len())

	m.InvalidateCatalog(ctx)
	assert.Zero(t, m.Len())
	_, ok = m.Get(ctx, "categories")
	assert.False(t, ok)
}
