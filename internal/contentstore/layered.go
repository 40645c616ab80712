package contentstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cuihairu/playhub/internal/ports"
)

// Layered chains stores from fastest to authoritative. Reads stop at the first tier
// holding the key and copy the document into the tiers before it. Writes land on the
// authoritative (last) tier first and are then mirrored forward.
//
// Once the local tier holds a key, edits made directly on the remote are only seen
// after a Refresh (normally driven by the change bus). ReadAuthoritative switches reads
// to the last tier first, so every cache reload picks up such edits and the front tiers
// serve only while the remote is unreachable.
type Layered struct {
	tiers         []ports.ContentStore
	logger        *slog.Logger
	authoritative bool
}

func NewLayered(logger *slog.Logger, tiers ...ports.ContentStore) *Layered {
	if logger == nil {
		logger = slog.Default()
	}
	return &Layered{tiers: tiers, logger: logger.With("component", "contentstore.layered")}
}

func (l *Layered) Name() string {
	names := make([]string, len(l.tiers))
	for i, t := range l.tiers {
		names[i] = t.Name()
	}
	return "layered(" + strings.Join(names, ">") + ")"
}

// Local returns the first tier.
func (l *Layered) Local() ports.ContentStore {
	if len(l.tiers) == 0 {
		return nil
	}
	return l.tiers[0]
}

// ReadAuthoritative makes Read consult the last tier before the others.
func (l *Layered) ReadAuthoritative() *Layered {
	l.authoritative = true
	return l
}

func (l *Layered) Read(ctx context.Context, key ports.ContentKey) ([]byte, error) {
	if l.authoritative && len(l.tiers) > 1 {
		return l.readAuthoritative(ctx, key)
	}
	return l.readFront(ctx, key, l.tiers)
}

func (l *Layered) readAuthoritative(ctx context.Context, key ports.ContentKey) ([]byte, error) {
	last := l.tiers[len(l.tiers)-1]
	front := l.tiers[:len(l.tiers)-1]
	b, err := last.Read(ctx, key)
	if err == nil {
		l.mirror(ctx, key, b, front)
		return b, nil
	}
	if errors.Is(err, ports.ErrUnknownKey) || errors.Is(err, ports.ErrContentNotFound) {
		return nil, err
	}
	l.logger.Warn("authoritative read failed, using front tiers", "tier", last.Name(), "key", string(key), "error", err)
	b, ferr := l.readFront(ctx, key, front)
	if ferr != nil {
		return nil, err
	}
	return b, nil
}

func (l *Layered) readFront(ctx context.Context, key ports.ContentKey, tiers []ports.ContentStore) ([]byte, error) {
	var lastErr error
	for i, t := range tiers {
		b, err := t.Read(ctx, key)
		if err == nil {
			l.mirror(ctx, key, b, l.tiers[:i])
			return b, nil
		}
		if errors.Is(err, ports.ErrUnknownKey) {
			return nil, err
		}
		if !errors.Is(err, ports.ErrContentNotFound) {
			l.logger.Warn("tier read failed", "tier", t.Name(), "key", string(key), "error", err)
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, notFound(key)
}

func (l *Layered) Write(ctx context.Context, key ports.ContentKey, doc []byte) error {
	if len(l.tiers) == 0 {
		return errors.New("layered store has no tiers")
	}
	last := l.tiers[len(l.tiers)-1]
	if err := last.Write(ctx, key, doc); err != nil {
		return fmt.Errorf("%s: %w", last.Name(), err)
	}
	l.mirror(ctx, key, doc, l.tiers[:len(l.tiers)-1])
	return nil
}

// Refresh re-reads key from the authoritative tier and overwrites the tiers in front of
// it. Used when another instance announces a change.
func (l *Layered) Refresh(ctx context.Context, key ports.ContentKey) error {
	if len(l.tiers) < 2 {
		return nil
	}
	last := l.tiers[len(l.tiers)-1]
	b, err := last.Read(ctx, key)
	if err != nil {
		return fmt.Errorf("refresh %s from %s: %w", key, last.Name(), err)
	}
	l.mirror(ctx, key, b, l.tiers[:len(l.tiers)-1])
	return nil
}

// mirror is best effort; a stale front tier is repaired by the next Refresh.
func (l *Layered) mirror(ctx context.Context, key ports.ContentKey, doc []byte, tiers []ports.ContentStore) {
	for _, t := range tiers {
		if err := t.Write(ctx, key, doc); err != nil {
			l.logger.Warn("tier write-back failed", "tier", t.Name(), "key", string(key), "error", err)
		}
	}
}

func (l *Layered) Close() error {
	var errs []error
	for _, t := range l.tiers {
		errs = append(errs, Close(t))
	}
	return errors.Join(errs...)
}
