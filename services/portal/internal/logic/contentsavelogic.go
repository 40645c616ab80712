package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/cuihairu/playhub/internal/ports"
	"github.com/cuihairu/playhub/services/portal/internal/svc"
	"github.com/cuihairu/playhub/services/portal/internal/types"
)

type ContentSaveLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewContentSaveLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ContentSaveLogic {
	return &ContentSaveLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *ContentSaveLogic) ContentSave(req *types.ContentKeyRequest, doc []byte) (*types.ContentSaveResponse, error) {
	key, err := ports.ParseContentKey(req.Key)
	if err != nil {
		return nil, err
	}
	actor := svc.ActorFromContext(l.ctx)
	if err := l.svcCtx.Content.Save(l.ctx, key, doc); err != nil {
		l.Infof("content save rejected: key=%s actor=%s: %v", key, actor, err)
		return nil, err
	}
	l.Infof("content saved: key=%s actor=%s bytes=%d", key, actor, len(doc))
	return &types.ContentSaveResponse{Key: string(key), Saved: true, Actor: actor}, nil
}
