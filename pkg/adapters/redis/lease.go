package redis

import (
	"context"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// Both scripts act only while ARGV[1] still identifies this holder, so
// a stale caller cannot touch a lease someone else re-acquired since.
const (
	releaseScript = `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`
	extendScript = `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`
)

// Lease grants exclusive consumption of a channel across processes.
// The weak-event fan-out is process-local, so two relays consuming the
// same channel would each deliver to their own subscribers; a lease
// keeps it to one consumer per channel.
type Lease struct {
	client *backend.Client
	prefix string
}

// NewLease creates a lease manager using an existing client.
func NewLease(client *backend.Client, prefix string) *Lease {
	return &Lease{
		client: client,
		prefix: prefix,
	}
}

// Held is an acquired channel lease.
type Held struct {
	lease   *Lease
	channel string
	key     string
	val     string
	ttl     time.Duration
}

// Acquire polls until the channel lease is granted or ctx is done.
// The lease expires after ttl unless released or renewed, so a consumer
// that dies without releasing frees the channel once the TTL lapses.
func (l *Lease) Acquire(ctx context.Context, channel string, ttl time.Duration) (*Held, error) {
	key := l.prefix + "lease:" + channel

	// The value identifies this holder, so a stale release cannot free
	// a lease someone else has re-acquired since.
	val := fmt.Sprintf("%d", time.Now().UnixNano())

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		granted, err := l.client.SetNX(ctx, key, val, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis error acquiring lease: %w", err)
		}
		if granted {
			return &Held{lease: l, channel: channel, key: key, val: val, ttl: ttl}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Release frees the lease if this holder still owns it.
func (h *Held) Release(ctx context.Context) error {
	// Check-and-delete must be atomic, hence the script.
	return h.lease.client.Eval(ctx, releaseScript, []string{h.key}, h.val).Err()
}

// Keep renews the lease at a third of its TTL until ctx ends, then
// releases it. It returns early with an error if the lease is lost in
// between renewals.
func (h *Held) Keep(ctx context.Context) error {
	if h.ttl <= 0 {
		return fmt.Errorf("lease ttl must be positive, got %s", h.ttl)
	}

	ticker := time.NewTicker(h.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// The caller's context is already over; give the release
			// its own deadline.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return h.Release(releaseCtx)
		case <-ticker.C:
			res, err := h.lease.client.Eval(ctx, extendScript, []string{h.key}, h.val, h.ttl.Milliseconds()).Result()
			if err != nil {
				return fmt.Errorf("redis error extending lease: %w", err)
			}
			if n, ok := res.(int64); !ok || n == 0 {
				return fmt.Errorf("lease on channel %q lost before renewal", h.channel)
			}
		}
	}
}
