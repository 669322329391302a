package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/strogmv/assembler/assembler"
	"github.com/strogmv/assembler/internal/pkg/circuitbreaker"
)

func NewClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
}

// release deletes a claim only while it still belongs to the caller.
var release = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Ledger stores one key per external JNDI name; the value is the owning
// deployment id. Nodes sharing a Redis share the ledger. While Redis keeps
// failing, calls fail fast with circuitbreaker.ErrOpen.
type Ledger struct {
	client  *redis.Client
	prefix  string
	breaker *circuitbreaker.Breaker
}

func NewLedger(client *redis.Client, prefix string) *Ledger {
	return &Ledger{client: client, prefix: prefix, breaker: circuitbreaker.NewBreaker(3, 10*time.Second, 1)}
}

func (l *Ledger) key(name string) string { return l.prefix + name }

func (l *Ledger) Claim(ctx context.Context, name, deploymentID string) (owner string, err error) {
	err = l.breaker.Do(func() error {
		var cerr error
		owner, cerr = l.claim(ctx, name, deploymentID)
		return cerr
	})
	return owner, err
}

func (l *Ledger) claim(ctx context.Context, name, deploymentID string) (string, error) {
	ok, err := l.client.SetNX(ctx, l.key(name), deploymentID, 0).Result()
	if err != nil {
		return "", fmt.Errorf("claim %s: %w", name, err)
	}
	if ok {
		return deploymentID, nil
	}
	owner, err := l.client.Get(ctx, l.key(name)).Result()
	if errors.Is(err, redis.Nil) {
		// released between the two calls
		return l.claim(ctx, name, deploymentID)
	}
	if err != nil {
		return "", fmt.Errorf("read owner of %s: %w", name, err)
	}
	return owner, nil
}

func (l *Ledger) Release(ctx context.Context, name, deploymentID string) error {
	return l.breaker.Do(func() error {
		if err := release.Run(ctx, l.client, []string{l.key(name)}, deploymentID).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("release %s: %w", name, err)
		}
		return nil
	})
}

var _ assembler.NameLedger = (*Ledger)(nil)
