package common

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cuihairu/playhub/internal/adguard"
	"github.com/cuihairu/playhub/internal/contentbus"
	"github.com/cuihairu/playhub/internal/contentstore"
	"github.com/cuihairu/playhub/internal/ports"
	"github.com/cuihairu/playhub/internal/service/content"
)

// Root holds the persistent flags shared by every subcommand and the config they load.
type Root struct {
	CfgFile  string
	Includes []string
	Profile  string

	V      *viper.Viper
	Logger *slog.Logger
}

// BindFlags registers --config, --include and --profile on cmd.
func (r *Root) BindFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&r.CfgFile, "config", "", "config file path")
	cmd.PersistentFlags().StringSliceVar(&r.Includes, "include", nil, "extra config files merged in order")
	cmd.PersistentFlags().StringVar(&r.Profile, "profile", "", "overlay profiles.<name> from the config")
}

// Load reads the config and installs the logger. It is meant for PersistentPreRunE.
func (r *Root) Load() error {
	v, err := Load(r.CfgFile, r.Includes, r.Profile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	r.V = v
	r.Logger = SetupLoggerFromViper(v)
	if used := v.ConfigFileUsed(); used != "" {
		r.Logger.Debug("config loaded", "file", used, "profile", r.Profile)
	}
	return nil
}

// Validator builds the ad validator from ads.policy (or the default policy).
func (r *Root) Validator() (*adguard.Validator, error) {
	p := adguard.DefaultPolicy()
	if path := r.V.GetString("ads.policy"); path != "" {
		var err error
		if p, err = adguard.LoadPolicy(path); err != nil {
			return nil, err
		}
	}
	return adguard.New(p, adguard.WithLogger(r.Logger)), nil
}

// ContentService opens the configured store and bus and wraps them in a content
// service tagged with a cli origin. The returned func releases both.
func (r *Root) ContentService(ctx context.Context) (*content.Service, func(), error) {
	sc, err := StoreConfig(r.V)
	if err != nil {
		return nil, nil, err
	}
	store, err := contentstore.Open(ctx, sc, r.Logger)
	if err != nil {
		return nil, nil, err
	}
	bc, err := BusConfig(r.V)
	if err != nil {
		_ = contentstore.Close(store)
		return nil, nil, err
	}
	if bc.Origin == "" {
		bc.Origin = "cli-" + contentbus.NewOrigin()
	}
	bus, err := contentbus.Open(bc, r.Logger)
	if err != nil {
		_ = contentstore.Close(store)
		return nil, nil, err
	}
	ads, err := r.Validator()
	if err != nil {
		_ = bus.Close()
		_ = contentstore.Close(store)
		return nil, nil, err
	}
	svc, err := content.New(content.Options{
		Store:  store,
		Ads:    ads,
		Bus:    bus,
		Origin: bc.Origin,
		Logger: r.Logger,
	})
	if err != nil {
		_ = bus.Close()
		_ = contentstore.Close(store)
		return nil, nil, err
	}
	closer := func() {
		_ = bus.Close()
		_ = contentstore.Close(store)
	}
	return svc, closer, nil
}

// ParseKey accepts a content key argument.
func ParseKey(arg string) (ports.ContentKey, error) {
	return ports.ParseContentKey(arg)
}
