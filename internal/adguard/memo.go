package adguard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/zeromicro/go-zero/core/collection"

	"github.com/cuihairu/playhub/internal/ports"
)

// Memo remembers verdicts by content hash so hot pages do not re-scan unchanged
// snippets. Editing a snippet changes its hash, so a stale verdict can never be reused.
type Memo struct {
	v      *Validator
	cache  *collection.Cache
	logger *slog.Logger
}

// NewMemo wraps v with a bounded verdict cache. size <= 0 and ttl <= 0 select defaults.
func NewMemo(v *Validator, size int, ttl time.Duration) (*Memo, error) {
	if size <= 0 {
		size = 4096
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	c, err := collection.NewCache(ttl, collection.WithLimit(size), collection.WithName("ad-verdicts"))
	if err != nil {
		return nil, err
	}
	return &Memo{v: v, cache: c, logger: v.logger}, nil
}

// Validate returns the remembered verdict for (placement, html) or evaluates it.
func (m *Memo) Validate(placement ports.Placement, html string) Verdict {
	key := verdictKey(placement, html)
	if got, ok := m.cache.Get(key); ok {
		if vd, ok := got.(Verdict); ok {
			if vd.Approved {
				vd.Content = html
				m.v.metrics.AdVerdict(context.Background(), string(placement), "approved")
				return vd
			}
			// a remembered rejection is still a rejected render
			m.logger.Warn("ad snippet rejected",
				"placement", string(placement),
				"reason", string(vd.Reason),
				"detail", vd.Detail,
				"memoized", true,
			)
			m.v.metrics.AdVerdict(context.Background(), string(placement), string(vd.Reason))
			return vd
		}
	}
	vd := m.v.Validate(placement, html)
	stored := vd
	stored.Content = ""
	m.cache.Set(key, stored)
	return vd
}

func verdictKey(placement ports.Placement, html string) string {
	h := sha256.New()
	h.Write([]byte(placement))
	h.Write([]byte{0})
	h.Write([]byte(html))
	return hex.EncodeToString(h.Sum(nil))
}
