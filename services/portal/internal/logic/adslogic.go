package logic

import (
	"context"
	"fmt"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/cuihairu/playhub/internal/ports"
	"github.com/cuihairu/playhub/services/portal/internal/svc"
	"github.com/cuihairu/playhub/services/portal/internal/types"
)

type AdsLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewAdsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *AdsLogic {
	return &AdsLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Ads returns the approved, active snippets for a slot. Rejected snippets are dropped by
// the content service, so an empty list is a normal answer.
func (l *AdsLogic) Ads(req *types.AdsRequest) (*types.AdsResponse, error) {
	placement, err := ports.ParsePlacement(req.Placement)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	ads := l.svcCtx.Content.Ads(l.ctx, placement)
	out := make([]types.AdInfo, 0, len(ads))
	for _, ad := range ads {
		out = append(out, types.AdInfo{
			Id:          ad.ID,
			Position:    string(ad.Position),
			HtmlContent: ad.HTMLContent,
			Priority:    ad.Priority,
		})
	}
	return &types.AdsResponse{Placement: string(placement), Ads: out}, nil
}
