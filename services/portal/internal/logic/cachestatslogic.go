package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/cuihairu/playhub/services/portal/internal/svc"
	"github.com/cuihairu/playhub/services/portal/internal/types"
)

type CacheStatsLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewCacheStatsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *CacheStatsLogic {
	return &CacheStatsLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *CacheStatsLogic) CacheStats() (*types.CacheStatsResponse, error) {
	return &types.CacheStatsResponse{
		Store:  l.svcCtx.StoreName(),
		Origin: l.svcCtx.Origin,
		Stats:  l.svcCtx.Content.Stats(),
	}, nil
}
