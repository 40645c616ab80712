package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/cuihairu/playhub/services/portal/internal/logic"
	"github.com/cuihairu/playhub/services/portal/internal/svc"
	"github.com/cuihairu/playhub/services/portal/internal/types"
)

func ContentInvalidateHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ContentKeyRequest
		if err := httpx.ParsePath(r, &req); err != nil {
			writeAdminError(r.Context(), w, err)
			return
		}

		l := logic.NewContentInvalidateLogic(r.Context(), svcCtx)
		resp, err := l.ContentInvalidate(&req)
		if err != nil {
			writeAdminError(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
