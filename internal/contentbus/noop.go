package contentbus

import (
	"context"

	"github.com/cuihairu/playhub/internal/ports"
)

type noopBus struct{}

// NewNoop returns a bus for single-instance deployments.
func NewNoop() ports.ChangeBus { return noopBus{} }

func (noopBus) Publish(context.Context, ports.ChangeEvent) error         { return nil }
func (noopBus) Subscribe(context.Context, func(ports.ChangeEvent)) error { return nil }
func (noopBus) Close() error                                             { return nil }
