// Package contentbus carries content change events between portal instances so that a
// write on one instance invalidates every cache.
package contentbus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/cuihairu/playhub/internal/ports"
)

// Config selects a bus driver: memory, redis, kafka or noop.
type Config struct {
	Driver       string `json:"driver,default=noop" mapstructure:"driver"`
	RedisURL     string `json:"redis_url,optional" mapstructure:"redis_url"`
	Channel      string `json:"channel,default=playhub:content:changes" mapstructure:"channel"`
	KafkaBrokers string `json:"kafka_brokers,optional" mapstructure:"kafka_brokers"`
	Topic        string `json:"topic,default=playhub.content.changes" mapstructure:"topic"`
	// Origin identifies this instance; empty generates one.
	Origin string `json:"origin,optional" mapstructure:"origin"`
}

// FromEnv reads CONTENT_BUS_* plus the shared REDIS_URL / KAFKA_BROKERS.
func FromEnv() Config {
	c := Config{
		Driver:       strings.ToLower(strings.TrimSpace(os.Getenv("CONTENT_BUS_DRIVER"))),
		RedisURL:     os.Getenv("REDIS_URL"),
		Channel:      os.Getenv("CONTENT_BUS_CHANNEL"),
		KafkaBrokers: os.Getenv("KAFKA_BROKERS"),
		Topic:        os.Getenv("CONTENT_BUS_TOPIC"),
		Origin:       os.Getenv("CONTENT_BUS_ORIGIN"),
	}
	if c.Driver == "" {
		c.Driver = "noop"
	}
	return c
}

// NewOrigin returns "<hostname>-<random>" for tagging this instance's events.
func NewOrigin() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "playhub"
	}
	return host + "-" + uuid.NewString()[:8]
}

// Open builds the configured bus. The memory driver gets a private hub; use
// MemoryHub.Bus to share one between instances in a process.
func Open(c Config, logger *slog.Logger) (ports.ChangeBus, error) {
	if logger == nil {
		logger = slog.Default()
	}
	origin := c.Origin
	if origin == "" {
		origin = NewOrigin()
	}
	switch strings.ToLower(c.Driver) {
	case "", "noop":
		return NewNoop(), nil
	case "memory":
		return NewMemoryHub().Bus(origin), nil
	case "redis":
		url := c.RedisURL
		if url == "" {
			url = "redis://localhost:6379/0"
		}
		channel := c.Channel
		if channel == "" {
			channel = "playhub:content:changes"
		}
		return NewRedis(url, channel, origin, logger)
	case "kafka":
		brokers := splitList(c.KafkaBrokers)
		if len(brokers) == 0 {
			brokers = []string{"localhost:9092"}
		}
		topic := c.Topic
		if topic == "" {
			topic = "playhub.content.changes"
		}
		return NewKafka(brokers, topic, origin, logger), nil
	}
	return nil, fmt.Errorf("unknown content bus driver: %s", c.Driver)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func encode(evt ports.ChangeEvent) ([]byte, error) {
	return json.Marshal(evt)
}

func decode(b []byte) (ports.ChangeEvent, error) {
	var evt ports.ChangeEvent
	if err := json.Unmarshal(b, &evt); err != nil {
		return evt, err
	}
	if _, err := ports.ParseContentKey(string(evt.Key)); err != nil {
		return evt, err
	}
	return evt, nil
}

// foreign drops events this instance published itself.
func foreign(origin string, fn func(ports.ChangeEvent)) func(ports.ChangeEvent) {
	return func(evt ports.ChangeEvent) {
		if evt.Origin == origin {
			return
		}
		fn(evt)
	}
}
