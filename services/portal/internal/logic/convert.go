package logic

import (
	"github.com/cuihairu/playhub/internal/ports"
	"github.com/cuihairu/playhub/internal/service/content"
	"github.com/cuihairu/playhub/services/portal/internal/types"
)

func gameToInfo(g ports.Game) types.GameInfo {
	info := types.GameInfo{
		Id:          g.ID,
		Slug:        g.Slug,
		Title:       g.Title,
		Description: g.Description,
		Thumbnail:   g.Thumbnail,
		GameUrl:     g.GameURL,
		Categories:  g.Categories,
		Tags:        g.Tags,
		Featured:    g.Featured,
		Plays:       g.Plays,
		Rating:      g.Rating,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
	if info.Categories == nil {
		info.Categories = []string{}
	}
	if info.Tags == nil {
		info.Tags = []string{}
	}
	return info
}

func pageToResponse(p content.GamePage) types.GamesListResponse {
	out := types.GamesListResponse{Games: make([]types.GameInfo, 0, len(p.Games)), Total: p.Total, Page: p.Page, Size: p.Size}
	for _, g := range p.Games {
		out.Games = append(out.Games, gameToInfo(g))
	}
	return out
}

func categoryToInfo(c ports.Category) types.CategoryInfo {
	return types.CategoryInfo{
		Id:          c.ID,
		Slug:        c.Slug,
		Name:        c.Name,
		Description: c.Description,
		Icon:        c.Icon,
		Order:       c.Order,
	}
}
