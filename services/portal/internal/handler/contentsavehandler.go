package handler

import (
	"io"
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/cuihairu/playhub/services/portal/internal/logic"
	"github.com/cuihairu/playhub/services/portal/internal/svc"
	"github.com/cuihairu/playhub/services/portal/internal/types"
)

// maxDocumentBytes bounds an uploaded content document.
const maxDocumentBytes = 4 << 20

func ContentSaveHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ContentKeyRequest
		if err := httpx.ParsePath(r, &req); err != nil {
			writeAdminError(r.Context(), w, err)
			return
		}
		doc, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
		if err != nil {
			writeAdminError(r.Context(), w, err)
			return
		}

		l := logic.NewContentSaveLogic(r.Context(), svcCtx)
		resp, err := l.ContentSave(&req, doc)
		if err != nil {
			writeAdminError(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
