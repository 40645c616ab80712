package middleware

import (
	"errors"
	"net/http"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/rest/httpx"
	"github.com/zeromicro/go-zero/rest/pathvar"
	"go.opentelemetry.io/otel/trace"

	"github.com/cuihairu/playhub/internal/auth/operators"
	"github.com/cuihairu/playhub/internal/ports"
	"github.com/cuihairu/playhub/internal/telemetry"
	"github.com/cuihairu/playhub/services/portal/internal/svc"
)

// Object resolves the rbac object a request touches.
type Object func(r *http.Request) string

// Fixed always names obj.
func Fixed(obj string) Object {
	return func(*http.Request) string { return obj }
}

// ContentFromPath names the content document in the :key path segment.
func ContentFromPath(r *http.Request) string {
	return operators.ContentObject(ports.ContentKey(pathvar.Vars(r)["key"]))
}

// AdminMiddleware authenticates operator bearer tokens and checks the rbac policy.
type AdminMiddleware struct {
	ctx *svc.ServiceContext
}

func NewAdminMiddleware(ctx *svc.ServiceContext) *AdminMiddleware {
	return &AdminMiddleware{ctx: ctx}
}

// Handle requires an operator allowed to perform act on the object obj resolves.
func (m *AdminMiddleware) Handle(obj Object, act string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token := operators.BearerToken(r.Header.Get("Authorization"))
			name, err := m.ctx.Operators.Authenticate(token)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="playhub-admin"`)
				httpx.WriteJsonCtx(r.Context(), w, http.StatusUnauthorized, map[string]any{
					"code":    http.StatusUnauthorized,
					"message": "unauthorized",
				})
				return
			}
			trace.SpanFromContext(r.Context()).SetAttributes(telemetry.OperatorKey.String(name))
			target := obj(r)
			if err := m.ctx.Authorizer.Allow(name, target, act); err != nil {
				status, msg := http.StatusForbidden, "forbidden"
				if !errors.Is(err, operators.ErrForbidden) {
					status, msg = http.StatusInternalServerError, "authorization failed"
				}
				logx.WithContext(r.Context()).Infof("admin denied: operator=%s obj=%s act=%s: %v", name, target, act, err)
				httpx.WriteJsonCtx(r.Context(), w, status, map[string]any{
					"code":    status,
					"message": msg,
				})
				return
			}
			next(w, r.WithContext(svc.WithActor(r.Context(), name)))
		}
	}
}
