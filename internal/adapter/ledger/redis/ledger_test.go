package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strogmv/assembler/internal/pkg/circuitbreaker"
)

func TestLedgerFailsFastWhileRedisIsDown(t *testing.T) {
	t.Parallel()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	l := NewLedger(client, "test:")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := l.Claim(ctx, "global/shop/orders/Order", "Order")
		require.Error(t, err)
		assert.False(t, errors.Is(err, circuitbreaker.ErrOpen), "attempt %d reached redis", i)
	}
	_, err := l.Claim(ctx, "global/shop/orders/Order", "Order")
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.ErrorIs(t, l.Release(ctx, "global/shop/orders/Order", "Order"), circuitbreaker.ErrOpen)
}

func TestKeyPrefix(t *testing.T) {
	t.Parallel()
	l := NewLedger(nil, "assembler:jndi:")
	assert.Equal(t, "assembler:jndi:global/shop/Order", l.key("global/shop/Order"))
}
