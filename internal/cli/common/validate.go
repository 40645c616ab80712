package common

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/cuihairu/playhub/internal/adguard"
	"github.com/cuihairu/playhub/internal/auth/operators"
	"github.com/cuihairu/playhub/internal/contentstore"
)

func fileExists(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}
	if _, err := os.Stat(path); err != nil {
		return err
	}
	return nil
}

func ValidateAddr(addr string) error {
	if addr == "" {
		return fmt.Errorf("empty address")
	}
	if _, err := net.ResolveTCPAddr("tcp", addr); err != nil {
		return err
	}
	return nil
}

// Operators decodes admin.operators.
func Operators(v *viper.Viper) ([]operators.Operator, error) {
	var ops []operators.Operator
	if !v.IsSet("admin.operators") {
		return nil, nil
	}
	if err := v.UnmarshalKey("admin.operators", &ops); err != nil {
		return nil, fmt.Errorf("admin.operators: %w", err)
	}
	return ops, nil
}

// ValidateConfig checks the store, bus, ads and admin sections. strict additionally
// requires at least one operator and an rbac policy.
func ValidateConfig(v *viper.Viper, strict bool) error {
	var errs []error

	sc, err := StoreConfig(v)
	if err == nil {
		err = contentstore.Validate(sc)
	}
	if err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}

	bc, err := BusConfig(v)
	if err != nil {
		errs = append(errs, fmt.Errorf("bus: %w", err))
	} else {
		switch strings.ToLower(bc.Driver) {
		case "noop", "memory", "redis", "kafka":
		default:
			errs = append(errs, fmt.Errorf("bus: unknown driver %q", bc.Driver))
		}
	}

	if p := v.GetString("ads.policy"); p != "" {
		if _, err := adguard.LoadPolicy(p); err != nil {
			errs = append(errs, fmt.Errorf("ads.policy: %w", err))
		}
	}

	if a := v.GetString("http_addr"); a != "" {
		if err := ValidateAddr(a); err != nil {
			errs = append(errs, fmt.Errorf("http_addr: %w", err))
		}
	}

	ops, err := Operators(v)
	switch {
	case err != nil:
		errs = append(errs, err)
	case len(ops) == 0 && strict:
		errs = append(errs, errors.New("admin.operators: none configured"))
	default:
		if _, err := operators.NewRegistry(ops); err != nil {
			errs = append(errs, fmt.Errorf("admin.operators: %w", err))
		}
	}

	model, policy := v.GetString("admin.rbac_model"), v.GetString("admin.rbac_policy")
	switch {
	case model == "" && policy == "":
		if strict {
			errs = append(errs, errors.New("admin.rbac_model/rbac_policy missing"))
		}
	case model == "" || policy == "":
		errs = append(errs, errors.New("admin.rbac_model and admin.rbac_policy go together"))
	default:
		if err := fileExists(model); err != nil {
			errs = append(errs, fmt.Errorf("admin.rbac_model: %w", err))
		} else if err := fileExists(policy); err != nil {
			errs = append(errs, fmt.Errorf("admin.rbac_policy: %w", err))
		} else if _, err := operators.NewAuthorizer(model, policy, slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
			errs = append(errs, fmt.Errorf("admin rbac: %w", err))
		}
	}
	return errors.Join(errs...)
}
