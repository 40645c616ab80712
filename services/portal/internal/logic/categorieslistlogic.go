package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/cuihairu/playhub/services/portal/internal/svc"
	"github.com/cuihairu/playhub/services/portal/internal/types"
)

type CategoriesListLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewCategoriesListLogic(ctx context.Context, svcCtx *svc.ServiceContext) *CategoriesListLogic {
	return &CategoriesListLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *CategoriesListLogic) CategoriesList() (*types.CategoriesListResponse, error) {
	cats := l.svcCtx.Content.Categories(l.ctx)
	out := make([]types.CategoryInfo, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryToInfo(c))
	}
	return &types.CategoriesListResponse{Categories: out}, nil
}
