package types

import (
	"time"

	"github.com/cuihairu/playhub/internal/contentcache"
)

type (
	GamesListRequest struct {
		Category string `form:"category,optional"`
		Featured bool   `form:"featured,optional"`
		Q        string `form:"q,optional"`
		Page     int    `form:"page,optional"`
		Size     int    `form:"size,optional"`
	}

	GameInfo struct {
		Id          string    `json:"id"`
		Slug        string    `json:"slug"`
		Title       string    `json:"title"`
		Description string    `json:"description,omitempty"`
		Thumbnail   string    `json:"thumbnail,omitempty"`
		GameUrl     string    `json:"gameUrl"`
		Categories  []string  `json:"categories"`
		Tags        []string  `json:"tags"`
		Featured    bool      `json:"featured"`
		Plays       int64     `json:"plays"`
		Rating      float64   `json:"rating"`
		CreatedAt   time.Time `json:"createdAt"`
		UpdatedAt   time.Time `json:"updatedAt"`
	}

	GamesListResponse struct {
		Games []GameInfo `json:"games"`
		Total int        `json:"total"`
		Page  int        `json:"page"`
		Size  int        `json:"size"`
	}

	GameDetailRequest struct {
		Slug string `path:"slug"`
	}

	GameDetailResponse struct {
		Game GameInfo `json:"game"`
	}

	CategoryInfo struct {
		Id          string `json:"id"`
		Slug        string `json:"slug"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		Icon        string `json:"icon,omitempty"`
		Order       int    `json:"order"`
	}

	CategoriesListResponse struct {
		Categories []CategoryInfo `json:"categories"`
	}

	CategoryGamesRequest struct {
		Slug string `path:"slug"`
		Page int    `form:"page,optional"`
		Size int    `form:"size,optional"`
	}

	CategoryGamesResponse struct {
		Category CategoryInfo `json:"category"`
		GamesListResponse
	}

	AdsRequest struct {
		Placement string `path:"placement"`
	}

	AdInfo struct {
		Id          string `json:"id"`
		Position    string `json:"position"`
		HtmlContent string `json:"htmlContent"`
		Priority    int    `json:"priority"`
	}

	AdsResponse struct {
		Placement string   `json:"placement"`
		Ads       []AdInfo `json:"ads"`
	}

	SettingsResponse struct {
		SiteName        string `json:"siteName"`
		SiteDescription string `json:"siteDescription"`
		SiteUrl         string `json:"siteUrl"`
		Logo            string `json:"logo"`
		AdsEnabled      bool   `json:"adsEnabled"`
		GamesPerPage    int    `json:"gamesPerPage"`
		ContactEmail    string `json:"contactEmail"`
	}

	HealthzResponse struct {
		Status string `json:"status"`
		Store  string `json:"store"`
		Origin string `json:"origin"`
	}

	ContentKeyRequest struct {
		Key string `path:"key"`
	}

	ContentSaveResponse struct {
		Key   string `json:"key"`
		Saved bool   `json:"saved"`
		Actor string `json:"actor"`
	}

	ContentInvalidateResponse struct {
		Key         string `json:"key"`
		Invalidated bool   `json:"invalidated"`
	}

	AdCheckRequest struct {
		Placement   string `json:"placement"`
		HtmlContent string `json:"htmlContent"`
	}

	AdCheckResponse struct {
		Approved bool   `json:"approved"`
		Reason   string `json:"reason,omitempty"`
		Detail   string `json:"detail,omitempty"`
	}

	CacheStatsResponse struct {
		Store  string             `json:"store"`
		Origin string             `json:"origin"`
		Stats  contentcache.Stats `json:"stats"`
	}

	ProblemResponse struct {
		Code     int      `json:"code"`
		Message  string   `json:"message"`
		Problems []string `json:"problems,omitempty"`
		Rejected any      `json:"rejected,omitempty"`
	}
)
