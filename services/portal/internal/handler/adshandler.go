package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/cuihairu/playhub/services/portal/internal/logic"
	"github.com/cuihairu/playhub/services/portal/internal/svc"
	"github.com/cuihairu/playhub/services/portal/internal/types"
)

func AdsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.AdsRequest
		if err := httpx.Parse(r, &req); err != nil {
			writePublicError(r.Context(), w, err)
			return
		}

		l := logic.NewAdsLogic(r.Context(), svcCtx)
		resp, err := l.Ads(&req)
		if err != nil {
			writePublicError(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
