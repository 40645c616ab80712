package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/cuihairu/playhub/services/portal/internal/svc"
	"github.com/cuihairu/playhub/services/portal/internal/types"
)

type CategoryGamesLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewCategoryGamesLogic(ctx context.Context, svcCtx *svc.ServiceContext) *CategoryGamesLogic {
	return &CategoryGamesLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *CategoryGamesLogic) CategoryGames(req *types.CategoryGamesRequest) (*types.CategoryGamesResponse, error) {
	cat, page, ok := l.svcCtx.Content.GamesByCategory(l.ctx, req.Slug, req.Page, req.Size)
	if !ok {
		return nil, ErrNotFound
	}
	return &types.CategoryGamesResponse{
		Category:          categoryToInfo(cat),
		GamesListResponse: pageToResponse(page),
	}, nil
}
