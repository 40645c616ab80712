package contentbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/cuihairu/playhub/internal/ports"
)

// RedisBus publishes change events on a redis pub/sub channel.
type RedisBus struct {
	cli     *redis.Client
	channel string
	origin  string
	logger  *slog.Logger

	mu   sync.Mutex
	subs []*redis.PubSub
}

func NewRedis(url, channel, origin string, logger *slog.Logger) (*RedisBus, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	return &RedisBus{
		cli:     redis.NewClient(opt),
		channel: channel,
		origin:  origin,
		logger:  logger.With("component", "contentbus.redis"),
	}, nil
}

func (b *RedisBus) Publish(ctx context.Context, evt ports.ChangeEvent) error {
	if evt.Origin == "" {
		evt.Origin = b.origin
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	payload, err := encode(evt)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return b.cli.Publish(ctx, b.channel, payload).Err()
}

// Subscribe waits for the subscription to be confirmed, then delivers on a goroutine
// until ctx is done.
func (b *RedisBus) Subscribe(ctx context.Context, fn func(ports.ChangeEvent)) error {
	ps := b.cli.Subscribe(ctx, b.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	b.mu.Lock()
	b.subs = append(b.subs, ps)
	b.mu.Unlock()

	deliver := foreign(b.origin, fn)
	ch := ps.Channel()
	go func() {
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				evt, err := decode([]byte(msg.Payload))
				if err != nil {
					b.logger.Warn("drop malformed change event", "error", err)
					continue
				}
				deliver(evt)
			}
		}
	}()
	return nil
}

func (b *RedisBus) Close() error {
	b.mu.Lock()
	for _, ps := range b.subs {
		_ = ps.Close()
	}
	b.subs = nil
	b.mu.Unlock()
	return b.cli.Close()
}
