package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/cuihairu/playhub/services/portal/internal/svc"
	"github.com/cuihairu/playhub/services/portal/internal/types"
)

type SettingsLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewSettingsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *SettingsLogic {
	return &SettingsLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *SettingsLogic) Settings() (*types.SettingsResponse, error) {
	s := l.svcCtx.Content.Settings(l.ctx)
	return &types.SettingsResponse{
		SiteName:        s.SiteName,
		SiteDescription: s.SiteDescription,
		SiteUrl:         s.SiteURL,
		Logo:            s.Logo,
		AdsEnabled:      s.AdsEnabled,
		GamesPerPage:    s.GamesPerPage,
		ContactEmail:    s.ContactEmail,
	}, nil
}
