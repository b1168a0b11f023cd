package cache

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestWalletIDCache(t *testing.T) {
	c := NewWalletIDCache(time.Minute, time.Minute)
	_, ok := c.Get(1)
	assert.False(t, ok)

	id := uuid.New()
	c.Insert(1, id)
	got, ok := c.Get(1)
	assert.True(t, ok)
	assert.Equal(t, id, got)

	c.Flush()
	_, ok = c.Get(1)
	assert.False(t, ok)
}

func TestSharedIsSingleton(t *testing.T) {
	assert.Same(t, Shared(), Shared())
}
