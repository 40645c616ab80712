package config

import (
	"github.com/zeromicro/go-zero/rest"

	"github.com/cuihairu/playhub/internal/auth/operators"
	"github.com/cuihairu/playhub/internal/contentbus"
	"github.com/cuihairu/playhub/internal/contentstore"
	"github.com/cuihairu/playhub/internal/telemetry"
)

type Config struct {
	rest.RestConf
	PortalLog PortalLogConfig     `json:"portal_log,optional" yaml:"portal_log"`
	Content   ContentConfig       `json:"content,optional" yaml:"content"`
	Store     contentstore.Config `json:"store,optional" yaml:"store"`
	Cache     CacheConfig         `json:"cache,optional" yaml:"cache"`
	Ads       AdsConfig           `json:"ads,optional" yaml:"ads"`
	Bus       contentbus.Config   `json:"bus,optional" yaml:"bus"`
	Watch     WatchConfig         `json:"watch,optional" yaml:"watch"`
	Admin     AdminConfig         `json:"admin,optional" yaml:"admin"`
	Otel      telemetry.Config    `json:"otel,optional" yaml:"otel"`
}

type PortalLogConfig struct {
	Level      string `json:"level,optional" yaml:"level,optional"`
	Format     string `json:"format,optional" yaml:"format,optional"`
	File       string `json:"file,optional" yaml:"file,optional"`
	MaxSize    int    `json:"max_size,optional" yaml:"max_size,optional"`
	MaxBackups int    `json:"max_backups,optional" yaml:"max_backups,optional"`
	MaxAge     int    `json:"max_age,optional" yaml:"max_age,optional"`
	Compress   bool   `json:"compress,optional" yaml:"compress,optional"`
}

type ContentConfig struct {
	// Warm preloads every content key at startup.
	Warm bool `json:"warm,optional" yaml:"warm,optional"`
}

// CacheConfig durations are Go duration strings ("5m", "30s").
type CacheConfig struct {
	DefaultTTL     string `json:"default_ttl,optional" yaml:"default_ttl,optional"`
	GamesTTL       string `json:"games_ttl,optional" yaml:"games_ttl,optional"`
	CategoriesTTL  string `json:"categories_ttl,optional" yaml:"categories_ttl,optional"`
	AdsTTL         string `json:"ads_ttl,optional" yaml:"ads_ttl,optional"`
	SettingsTTL    string `json:"settings_ttl,optional" yaml:"settings_ttl,optional"`
	LoadTimeout    string `json:"load_timeout,optional" yaml:"load_timeout,optional"`
	FailureBackoff string `json:"failure_backoff,optional" yaml:"failure_backoff,optional"`
	ServeStale     bool   `json:"serve_stale,optional" yaml:"serve_stale,optional"`
}

type AdsConfig struct {
	// Policy is an optional yaml file extending the allowlist and danger patterns.
	Policy   string `json:"policy,optional" yaml:"policy,optional"`
	MemoSize int    `json:"memo_size,optional" yaml:"memo_size,optional"`
	MemoTTL  string `json:"memo_ttl,optional" yaml:"memo_ttl,optional"`
}

type WatchConfig struct {
	Enabled  bool   `json:"enabled,optional" yaml:"enabled,optional"`
	Debounce string `json:"debounce,optional" yaml:"debounce,optional"`
}

type AdminConfig struct {
	Operators  []operators.Operator `json:"operators,optional" yaml:"operators,optional"`
	RBACModel  string               `json:"rbac_model,optional" yaml:"rbac_model,optional"`
	RBACPolicy string               `json:"rbac_policy,optional" yaml:"rbac_policy,optional"`
}
