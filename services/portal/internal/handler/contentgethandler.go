package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/cuihairu/playhub/services/portal/internal/logic"
	"github.com/cuihairu/playhub/services/portal/internal/svc"
	"github.com/cuihairu/playhub/services/portal/internal/types"
)

func ContentGetHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ContentKeyRequest
		if err := httpx.Parse(r, &req); err != nil {
			writeAdminError(r.Context(), w, err)
			return
		}

		l := logic.NewContentGetLogic(r.Context(), svcCtx)
		doc, err := l.ContentGet(&req)
		if err != nil {
			writeAdminError(r.Context(), w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(doc)
	}
}
