package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/cuihairu/playhub/internal/contentcache"
	"github.com/cuihairu/playhub/internal/ports"
	"github.com/cuihairu/playhub/internal/service/content"
	"github.com/cuihairu/playhub/internal/validation"
	"github.com/cuihairu/playhub/services/portal/internal/logic"
	"github.com/cuihairu/playhub/services/portal/internal/types"
)

func writeProblem(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	httpx.WriteJsonCtx(ctx, w, status, types.ProblemResponse{Code: status, Message: msg})
}

// writePublicError only ever sees request errors; content failures already degraded
// to empty results in the content service.
func writePublicError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, logic.ErrNotFound):
		writeProblem(ctx, w, http.StatusNotFound, "not found")
	case errors.Is(err, logic.ErrInvalidRequest):
		writeProblem(ctx, w, http.StatusBadRequest, err.Error())
	default:
		writeProblem(ctx, w, http.StatusBadRequest, "invalid request")
	}
}

func writeAdminError(ctx context.Context, w http.ResponseWriter, err error) {
	var verr *validation.ValidationError
	var rej *content.AdRejectedError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &verr):
		httpx.WriteJsonCtx(ctx, w, http.StatusUnprocessableEntity, types.ProblemResponse{
			Code:     http.StatusUnprocessableEntity,
			Message:  "document failed schema validation",
			Problems: verr.Problems,
		})
	case errors.As(err, &rej):
		httpx.WriteJsonCtx(ctx, w, http.StatusUnprocessableEntity, types.ProblemResponse{
			Code:     http.StatusUnprocessableEntity,
			Message:  "ad snippets rejected",
			Rejected: rej.Rejections,
		})
	case errors.As(err, &tooLarge):
		writeProblem(ctx, w, http.StatusRequestEntityTooLarge, "document too large")
	case errors.Is(err, ports.ErrUnknownKey):
		writeProblem(ctx, w, http.StatusNotFound, "unknown content key")
	case errors.Is(err, ports.ErrContentNotFound):
		writeProblem(ctx, w, http.StatusNotFound, "content not found")
	case errors.Is(err, logic.ErrInvalidRequest):
		writeProblem(ctx, w, http.StatusBadRequest, err.Error())
	case errors.Is(err, contentcache.ErrNoValue):
		logx.WithContext(ctx).Errorf("content unavailable: %v", err)
		writeProblem(ctx, w, http.StatusServiceUnavailable, "content store unavailable")
	default:
		logx.WithContext(ctx).Errorf("admin request failed: %v", err)
		writeProblem(ctx, w, http.StatusInternalServerError, "internal error")
	}
}
