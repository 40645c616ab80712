package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/cuihairu/playhub/internal/ports"
	"github.com/cuihairu/playhub/services/portal/internal/svc"
	"github.com/cuihairu/playhub/services/portal/internal/types"
)

type ContentGetLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewContentGetLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ContentGetLogic {
	return &ContentGetLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// ContentGet returns the stored document as raw JSON.
func (l *ContentGetLogic) ContentGet(req *types.ContentKeyRequest) ([]byte, error) {
	key, err := ports.ParseContentKey(req.Key)
	if err != nil {
		return nil, err
	}
	return l.svcCtx.Content.Document(l.ctx, key)
}
