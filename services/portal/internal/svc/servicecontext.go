package svc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/cuihairu/playhub/internal/adguard"
	"github.com/cuihairu/playhub/internal/auth/operators"
	common "github.com/cuihairu/playhub/internal/cli/common"
	"github.com/cuihairu/playhub/internal/contentbus"
	"github.com/cuihairu/playhub/internal/contentcache"
	"github.com/cuihairu/playhub/internal/contentstore"
	"github.com/cuihairu/playhub/internal/contentwatch"
	"github.com/cuihairu/playhub/internal/ports"
	"github.com/cuihairu/playhub/internal/service/content"
	"github.com/cuihairu/playhub/internal/telemetry"
	"github.com/cuihairu/playhub/services/portal/internal/config"
)

const (
	defaultMemoSize = 4096
	defaultMemoTTL  = time.Hour
)

type ServiceContext struct {
	Config config.Config

	Content    *content.Service
	Operators  *operators.Registry
	Authorizer *operators.Authorizer
	Telemetry  *telemetry.Provider
	Logger     *slog.Logger
	Origin     string

	store   ports.ContentStore
	bus     ports.ChangeBus
	watcher *contentwatch.Watcher
	cancel  context.CancelFunc

	closeOnce sync.Once
}

// Option replaces a dependency NewServiceContext would otherwise open from config.
type Option func(*deps)

type deps struct {
	store  ports.ContentStore
	bus    ports.ChangeBus
	origin string
	logger *slog.Logger
}

// WithStore serves content from store instead of the configured driver.
func WithStore(store ports.ContentStore) Option {
	return func(d *deps) { d.store = store }
}

// WithBus publishes and receives change events on bus, tagged with origin.
func WithBus(bus ports.ChangeBus, origin string) Option {
	return func(d *deps) { d.bus, d.origin = bus, origin }
}

// WithLogger skips the portal_log setup and logs to l.
func WithLogger(l *slog.Logger) Option {
	return func(d *deps) { d.logger = l }
}

func NewServiceContext(c config.Config, opts ...Option) (*ServiceContext, error) {
	var d deps
	for _, opt := range opts {
		opt(&d)
	}
	logger := d.logger
	if logger == nil {
		lc := c.PortalLog
		logger = common.SetupLoggerWithFile(lc.Level, lc.Format, lc.File, lc.MaxSize, lc.MaxBackups, lc.MaxAge, lc.Compress)
	}
	ctx := context.Background()

	s := &ServiceContext{Config: c, Logger: logger}
	ok := false
	defer func() {
		if !ok {
			s.Close()
		}
	}()

	tp, err := telemetry.NewProvider(ctx, c.Otel, logger)
	if err != nil {
		return nil, err
	}
	s.Telemetry = tp

	s.store = d.store
	if s.store == nil {
		sc := normalizeStore(c.Store)
		if s.store, err = contentstore.Open(ctx, sc, logger); err != nil {
			return nil, err
		}
	}

	ads, err := newAdChecker(c.Ads, logger, tp.Metrics)
	if err != nil {
		return nil, err
	}

	s.bus, s.Origin = d.bus, d.origin
	if s.bus == nil {
		bc := c.Bus
		if bc.Origin == "" {
			bc.Origin = contentbus.NewOrigin()
		}
		if s.bus, err = contentbus.Open(bc, logger); err != nil {
			return nil, err
		}
		s.Origin = bc.Origin
	}
	if s.Origin == "" {
		s.Origin = contentbus.NewOrigin()
	}

	cacheOpts, err := cacheOptions(c.Cache)
	if err != nil {
		return nil, err
	}
	cacheOpts.Logger = logger
	cacheOpts.Metrics = tp.Metrics
	s.Content, err = content.New(content.Options{
		Store:        s.store,
		CacheOptions: cacheOpts,
		Ads:          ads,
		Bus:          s.bus,
		Origin:       s.Origin,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	if s.Operators, err = operators.NewRegistry(c.Admin.Operators); err != nil {
		return nil, err
	}
	if s.Operators.Len() == 0 {
		logger.Warn("no admin operators configured; admin API rejects every request")
	}
	if s.Authorizer, err = operators.NewAuthorizer(c.Admin.RBACModel, c.Admin.RBACPolicy, logger); err != nil {
		return nil, err
	}

	bg, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	if err := s.Content.Subscribe(bg); err != nil {
		return nil, fmt.Errorf("subscribe content bus: %w", err)
	}
	if c.Watch.Enabled {
		if err := s.startWatcher(bg); err != nil {
			return nil, err
		}
	}
	if c.Content.Warm {
		s.Content.Warm()
	}

	logx.Infof("playhub portal ready: store=%s origin=%s operators=%d", s.store.Name(), s.Origin, s.Operators.Len())
	ok = true
	return s, nil
}

func (s *ServiceContext) startWatcher(ctx context.Context) error {
	dir := localDir(s.store)
	if dir == "" {
		s.Logger.Warn("watch enabled but the store has no local directory", "store", s.store.Name())
		return nil
	}
	debounce, err := parseDuration("watch.debounce", s.Config.Watch.Debounce, contentwatch.DefaultDebounce)
	if err != nil {
		return err
	}
	w, err := contentwatch.New(dir, debounce, s.Content.InvalidateLocal, s.Logger)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		_ = w.Close()
		return err
	}
	s.watcher = w
	return nil
}

// StoreName names the backing store for health output.
func (s *ServiceContext) StoreName() string {
	if s.store == nil {
		return ""
	}
	return s.store.Name()
}

// Close stops background work and releases the store, bus and exporters.
func (s *ServiceContext) Close() {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		if s.watcher != nil {
			_ = s.watcher.Close()
		}
		if s.bus != nil {
			if err := s.bus.Close(); err != nil {
				logx.Errorf("close content bus: %v", err)
			}
		}
		if s.store != nil {
			if err := contentstore.Close(s.store); err != nil {
				logx.Errorf("close content store: %v", err)
			}
		}
		if s.Telemetry != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.Telemetry.Shutdown(ctx); err != nil {
				logx.Errorf("shutdown telemetry: %v", err)
			}
		}
	})
}

func normalizeStore(c contentstore.Config) contentstore.Config {
	if strings.TrimSpace(c.Driver) == "" {
		c.Driver = "file"
	}
	if c.Dir == "" {
		c.Dir = "data"
	}
	return c
}

func localDir(store ports.ContentStore) string {
	switch st := store.(type) {
	case *contentstore.FileStore:
		return st.Dir()
	case *contentstore.Layered:
		return localDir(st.Local())
	}
	return ""
}

func newAdChecker(c config.AdsConfig, logger *slog.Logger, m *telemetry.ContentMetrics) (content.AdChecker, error) {
	policy := adguard.DefaultPolicy()
	if c.Policy != "" {
		var err error
		if policy, err = adguard.LoadPolicy(c.Policy); err != nil {
			return nil, fmt.Errorf("ads.policy: %w", err)
		}
	}
	v := adguard.New(policy, adguard.WithLogger(logger), adguard.WithMetrics(m))
	size := c.MemoSize
	if size <= 0 {
		size = defaultMemoSize
	}
	ttl, err := parseDuration("ads.memo_ttl", c.MemoTTL, defaultMemoTTL)
	if err != nil {
		return nil, err
	}
	return adguard.NewMemo(v, size, ttl)
}

func cacheOptions(c config.CacheConfig) (contentcache.Options[[]byte], error) {
	var o contentcache.Options[[]byte]
	var errs []error
	parse := func(name, raw string, def time.Duration) time.Duration {
		d, err := parseDuration(name, raw, def)
		if err != nil {
			errs = append(errs, err)
		}
		return d
	}
	o.DefaultTTL = parse("cache.default_ttl", c.DefaultTTL, contentcache.DefaultTTL)
	o.LoadTimeout = parse("cache.load_timeout", c.LoadTimeout, contentcache.DefaultLoadTimeout)
	o.FailureBackoff = parse("cache.failure_backoff", c.FailureBackoff, contentcache.DefaultFailureBackoff)
	o.ClassTTL = map[string]time.Duration{}
	for key, raw := range map[ports.ContentKey]string{
		ports.ContentGames:      c.GamesTTL,
		ports.ContentCategories: c.CategoriesTTL,
		ports.ContentAds:        c.AdsTTL,
		ports.ContentSettings:   c.SettingsTTL,
	} {
		if raw != "" {
			o.ClassTTL[string(key)] = parse("cache."+string(key)+"_ttl", raw, o.DefaultTTL)
		}
	}
	o.ServeStale = c.ServeStale
	return o, errors.Join(errs...)
}

func parseDuration(name, raw string, def time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", name, err)
	}
	if d < 0 {
		return def, fmt.Errorf("%s: negative duration %s", name, raw)
	}
	return d, nil
}
