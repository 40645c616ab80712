package contentbus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	kafka "github.com/segmentio/kafka-go"

	"github.com/cuihairu/playhub/internal/ports"
)

// KafkaBus writes change events to a topic; each instance reads it with its own
// consumer group so every instance sees every event.
type KafkaBus struct {
	brokers []string
	topic   string
	origin  string
	logger  *slog.Logger
	w       *kafka.Writer

	mu      sync.Mutex
	readers []*kafka.Reader
}

func NewKafka(brokers []string, topic, origin string, logger *slog.Logger) *KafkaBus {
	// Writers are safe for concurrent use
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireOne,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaBus{
		brokers: brokers,
		topic:   topic,
		origin:  origin,
		logger:  logger.With("component", "contentbus.kafka"),
		w:       w,
	}
}

func (b *KafkaBus) Publish(ctx context.Context, evt ports.ChangeEvent) error {
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
	return b.w.WriteMessages(ctx, kafka.Message{Key: []byte(evt.Key), Value: payload})
}

// Subscribe starts reading from the newest offset; earlier events are irrelevant to a
// cache that is empty at startup.
func (b *KafkaBus) Subscribe(ctx context.Context, fn func(ports.ChangeEvent)) error {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     b.brokers,
		Topic:       b.topic,
		GroupID:     "playhub-" + b.origin,
		StartOffset: kafka.LastOffset,
		MaxWait:     time.Second,
	})
	b.mu.Lock()
	b.readers = append(b.readers, r)
	b.mu.Unlock()

	deliver := foreign(b.origin, fn)
	go func() {
		for {
			msg, err := r.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					return
				}
				if errors.Is(err, io.EOF) { // reader closed
					return
				}
				b.logger.Warn("read change event", "error", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}
			evt, err := decode(msg.Value)
			if err != nil {
				b.logger.Warn("drop malformed change event", "error", err)
				continue
			}
			deliver(evt)
		}
	}()
	return nil
}

func (b *KafkaBus) Close() error {
	b.mu.Lock()
	readers := b.readers
	b.readers = nil
	b.mu.Unlock()
	var errs []error
	for _, r := range readers {
		errs = append(errs, r.Close())
	}
	errs = append(errs, b.w.Close())
	return errors.Join(errs...)
}
