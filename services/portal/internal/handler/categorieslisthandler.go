package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/cuihairu/playhub/services/portal/internal/logic"
	"github.com/cuihairu/playhub/services/portal/internal/svc"
)

func CategoriesListHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := logic.NewCategoriesListLogic(r.Context(), svcCtx)
		resp, err := l.CategoriesList()
		if err != nil {
			writePublicError(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
