package ports

import (
	"strings"
	"time"
)

// Game is one playable title listed on the portal.
type Game struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	GameURL     string    `json:"gameUrl"`
	Categories  []string  `json:"categories,omitempty"` // category slugs
	Tags        []string  `json:"tags,omitempty"`
	Featured    bool      `json:"featured,omitempty"`
	Published   bool      `json:"published"`
	Plays       int64     `json:"plays,omitempty"`
	Rating      float64   `json:"rating,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// InCategory reports whether the game is tagged with the category slug (case-insensitive).
func (g *Game) InCategory(slug string) bool {
	for _, c := range g.Categories {
		if strings.EqualFold(strings.TrimSpace(c), slug) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy; slices are not shared with the receiver.
func (g Game) Clone() Game {
	cp := g
	if len(g.Categories) > 0 {
		cp.Categories = append([]string{}, g.Categories...)
	}
	if len(g.Tags) > 0 {
		cp.Tags = append([]string{}, g.Tags...)
	}
	return cp
}

// Category groups games on listing pages.
type Category struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Order       int    `json:"order"`
}
