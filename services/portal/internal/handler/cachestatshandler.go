package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/cuihairu/playhub/services/portal/internal/logic"
	"github.com/cuihairu/playhub/services/portal/internal/svc"
)

func CacheStatsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := logic.NewCacheStatsLogic(r.Context(), svcCtx)
		resp, err := l.CacheStats()
		if err != nil {
			writeAdminError(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
