package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/cuihairu/playhub/internal/ports"
	"github.com/cuihairu/playhub/services/portal/internal/svc"
	"github.com/cuihairu/playhub/services/portal/internal/types"
)

type ContentInvalidateLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewContentInvalidateLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ContentInvalidateLogic {
	return &ContentInvalidateLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *ContentInvalidateLogic) ContentInvalidate(req *types.ContentKeyRequest) (*types.ContentInvalidateResponse, error) {
	key, err := ports.ParseContentKey(req.Key)
	if err != nil {
		return nil, err
	}
	if err := l.svcCtx.Content.Invalidate(l.ctx, key); err != nil {
		return nil, err
	}
	l.Infof("content invalidated: key=%s actor=%s", key, svc.ActorFromContext(l.ctx))
	return &types.ContentInvalidateResponse{Key: string(key), Invalidated: true}, nil
}
