package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest"

	"github.com/cuihairu/playhub/internal/auth/operators"
	"github.com/cuihairu/playhub/services/portal/internal/middleware"
	"github.com/cuihairu/playhub/services/portal/internal/svc"
)

func RegisterHandlers(server *rest.Server, serverCtx *svc.ServiceContext) {
	public, admin := Routes(serverCtx)
	server.AddRoutes(public)
	server.AddRoutes(admin)
}

// Routes returns the public and the operator-only routes.
func Routes(serverCtx *svc.ServiceContext) (public, admin []rest.Route) {
	public = []rest.Route{
		{
			Method:  http.MethodGet,
			Path:    "/api/games",
			Handler: GamesListHandler(serverCtx),
		},
		{
			Method:  http.MethodGet,
			Path:    "/api/games/:slug",
			Handler: GameDetailHandler(serverCtx),
		},
		{
			Method:  http.MethodGet,
			Path:    "/api/categories",
			Handler: CategoriesListHandler(serverCtx),
		},
		{
			Method:  http.MethodGet,
			Path:    "/api/categories/:slug/games",
			Handler: CategoryGamesHandler(serverCtx),
		},
		{
			Method:  http.MethodGet,
			Path:    "/api/ads/:placement",
			Handler: AdsHandler(serverCtx),
		},
		{
			Method:  http.MethodGet,
			Path:    "/api/settings",
			Handler: SettingsHandler(serverCtx),
		},
		{
			Method:  http.MethodGet,
			Path:    "/healthz",
			Handler: HealthzHandler(serverCtx),
		},
	}

	auth := middleware.NewAdminMiddleware(serverCtx)
	admin = []rest.Route{
		{
			Method:  http.MethodGet,
			Path:    "/admin/api/content/:key",
			Handler: auth.Handle(middleware.ContentFromPath, operators.ActRead)(ContentGetHandler(serverCtx)),
		},
		{
			Method:  http.MethodPut,
			Path:    "/admin/api/content/:key",
			Handler: auth.Handle(middleware.ContentFromPath, operators.ActWrite)(ContentSaveHandler(serverCtx)),
		},
		{
			Method:  http.MethodPost,
			Path:    "/admin/api/content/:key/invalidate",
			Handler: auth.Handle(middleware.ContentFromPath, operators.ActWrite)(ContentInvalidateHandler(serverCtx)),
		},
		{
			Method:  http.MethodPost,
			Path:    "/admin/api/ads/check",
			Handler: auth.Handle(middleware.Fixed(operators.ObjAds), operators.ActRead)(AdCheckHandler(serverCtx)),
		},
		{
			Method:  http.MethodGet,
			Path:    "/admin/api/cache/stats",
			Handler: auth.Handle(middleware.Fixed(operators.ObjCache), operators.ActRead)(CacheStatsHandler(serverCtx)),
		},
	}
	return public, admin
}
