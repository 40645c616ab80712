package svc

import "context"

type actorKey struct{}

func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) string {
	v := ctx.Value(actorKey{})
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
