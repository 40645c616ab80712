package operators

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/casbin/casbin/v2"

	"github.com/cuihairu/playhub/internal/ports"
)

// Actions checked by the admin API.
const (
	ActRead  = "read"
	ActWrite = "write"
)

// Objects checked by the admin API.
const (
	ObjCache = "cache"
	ObjAds   = "ads"
)

// ContentObject names the object for a content document.
func ContentObject(key ports.ContentKey) string { return "content:" + string(key) }

// Authorizer decides whether an operator may perform act on obj.
type Authorizer struct {
	enforcer *casbin.Enforcer
	logger   *slog.Logger
}

// NewAuthorizer loads a casbin model and policy. With both paths empty every
// authenticated operator is allowed everything.
func NewAuthorizer(modelPath, policyPath string, logger *slog.Logger) (*Authorizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Authorizer{logger: logger.With("component", "operators.rbac")}
	if strings.TrimSpace(modelPath) == "" && strings.TrimSpace(policyPath) == "" {
		a.logger.Warn("no rbac policy configured; every operator is allowed everything")
		return a, nil
	}
	e, err := casbin.NewEnforcer(modelPath, policyPath)
	if err != nil {
		return nil, fmt.Errorf("load rbac policy: %w", err)
	}
	a.enforcer = e
	a.logger.Info("rbac policy loaded", "model", modelPath, "policy", policyPath)
	return a, nil
}

// Allow reports ErrForbidden when operator may not act on obj.
func (a *Authorizer) Allow(operator, obj, act string) error {
	if a.enforcer == nil {
		return nil
	}
	ok, err := a.enforcer.Enforce(operator, obj, act)
	if err != nil {
		return fmt.Errorf("enforce: %w", err)
	}
	if !ok {
		a.logger.Warn("operator denied", "operator", operator, "obj", obj, "act", act)
		return fmt.Errorf("%w: %s %s %s", ErrForbidden, operator, act, obj)
	}
	return nil
}
