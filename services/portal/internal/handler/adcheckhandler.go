package handler

import (
	"fmt"
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/cuihairu/playhub/services/portal/internal/logic"
	"github.com/cuihairu/playhub/services/portal/internal/svc"
	"github.com/cuihairu/playhub/services/portal/internal/types"
)

func AdCheckHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.AdCheckRequest
		if err := httpx.ParseJsonBody(r, &req); err != nil {
			writeAdminError(r.Context(), w, fmt.Errorf("%w: %v", logic.ErrInvalidRequest, err))
			return
		}

		l := logic.NewAdCheckLogic(r.Context(), svcCtx)
		resp, err := l.AdCheck(&req)
		if err != nil {
			writeAdminError(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
