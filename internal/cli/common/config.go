package common

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/cuihairu/playhub/internal/contentbus"
	"github.com/cuihairu/playhub/internal/contentstore"
)

// EnvPrefix is the prefix of environment overrides, e.g. PLAYHUB_STORE_DRIVER.
const EnvPrefix = "PLAYHUB"

// Load reads cfgFile (optional), merges includes in order, overlays profiles.<profile>
// and binds PLAYHUB_* environment variables.
func Load(cfgFile string, includes []string, profile string) (*viper.Viper, error) {
	v, err := LoadWithIncludes(cfgFile, includes)
	if err != nil {
		return nil, err
	}
	if profile != "" {
		if v, err = ApplySectionAndProfile(v, "", profile); err != nil {
			return nil, err
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v, nil
}

// LoadWithIncludes reads base config and merges includes in order.
func LoadWithIncludes(base string, includes []string) (*viper.Viper, error) {
	v := viper.New()
	if base != "" {
		v.SetConfigFile(base)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	for _, inc := range includes {
		iv := viper.New()
		iv.SetConfigFile(inc)
		if err := iv.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("include %s: %w", inc, err)
		}
		if err := v.MergeConfigMap(iv.AllSettings()); err != nil {
			return nil, fmt.Errorf("include %s: %w", inc, err)
		}
	}
	return v, nil
}

// mergeMaps recursively merges b into a.
func mergeMaps(a, b map[string]any) map[string]any {
	for k, vb := range b {
		if ma, ok := a[k].(map[string]any); ok {
			if mb, ok2 := vb.(map[string]any); ok2 {
				a[k] = mergeMaps(ma, mb)
				continue
			}
		}
		a[k] = vb
	}
	return a
}

// ApplySectionAndProfile extracts a section and overlays profiles.<name> if present.
func ApplySectionAndProfile(v *viper.Viper, section, profile string) (*viper.Viper, error) {
	if section != "" {
		sub := v.Sub(section)
		if sub == nil {
			return nil, fmt.Errorf("section %s not found", section)
		}
		v = sub
	}
	if profile != "" {
		prof := v.Sub("profiles")
		if prof == nil {
			return nil, fmt.Errorf("profiles not found in section")
		}
		p := prof.Sub(profile)
		if p == nil {
			return nil, fmt.Errorf("profile %s not found", profile)
		}
		merged := mergeMaps(v.AllSettings(), p.AllSettings())
		delete(merged, "profiles")
		nv := viper.New()
		if err := nv.MergeConfigMap(merged); err != nil {
			return nil, err
		}
		v = nv
	}
	return v, nil
}

// StoreConfig decodes the store section, falling back to CONTENT_STORE_* variables for
// keys the file leaves unset.
func StoreConfig(v *viper.Viper) (contentstore.Config, error) {
	c := contentstore.FromEnv()
	if v.IsSet("store") {
		if err := v.UnmarshalKey("store", &c); err != nil {
			return c, fmt.Errorf("store section: %w", err)
		}
	}
	if c.Driver == "" {
		c.Driver = "file"
	}
	if c.Dir == "" {
		c.Dir = "data"
	}
	return c, nil
}

// BusConfig decodes the bus section over CONTENT_BUS_* defaults.
func BusConfig(v *viper.Viper) (contentbus.Config, error) {
	c := contentbus.FromEnv()
	if v.IsSet("bus") {
		if err := v.UnmarshalKey("bus", &c); err != nil {
			return c, fmt.Errorf("bus section: %w", err)
		}
	}
	if c.Driver == "" {
		c.Driver = "noop"
	}
	return c, nil
}
