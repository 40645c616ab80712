package logic

import (
	"context"
	"fmt"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/cuihairu/playhub/internal/ports"
	"github.com/cuihairu/playhub/services/portal/internal/svc"
	"github.com/cuihairu/playhub/services/portal/internal/types"
)

type AdCheckLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewAdCheckLogic(ctx context.Context, svcCtx *svc.ServiceContext) *AdCheckLogic {
	return &AdCheckLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *AdCheckLogic) AdCheck(req *types.AdCheckRequest) (*types.AdCheckResponse, error) {
	placement, err := ports.ParsePlacement(req.Placement)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	v := l.svcCtx.Content.CheckAd(placement, req.HtmlContent)
	return &types.AdCheckResponse{
		Approved: v.Approved,
		Reason:   string(v.Reason),
		Detail:   v.Detail,
	}, nil
}
