package ports

import (
	"fmt"
	"strings"
	"time"
)

// Placement is a named page region where one ad snippet may render.
type Placement string

const (
	PlacementHeader    Placement = "header"
	PlacementSidebar   Placement = "sidebar"
	PlacementFooter    Placement = "footer"
	PlacementInContent Placement = "in_content"
	PlacementGamePage  Placement = "game_page"
	PlacementBelowGame Placement = "below_game"
)

// Placements lists every known slot in display order.
func Placements() []Placement {
	return []Placement{
		PlacementHeader,
		PlacementSidebar,
		PlacementFooter,
		PlacementInContent,
		PlacementGamePage,
		PlacementBelowGame,
	}
}

// ParsePlacement normalizes s and checks it against the known slots.
func ParsePlacement(s string) (Placement, error) {
	p := Placement(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlacement, s)
	}
	return p, nil
}

func (p Placement) Valid() bool {
	for _, k := range Placements() {
		if p == k {
			return true
		}
	}
	return false
}

// AdSnippet is operator-supplied third-party markup bound to a placement.
// HTMLContent is untrusted and must pass the ad validator before it is served.
// Position is decoded verbatim; readers check it with ParsePlacement per snippet.
type AdSnippet struct {
	ID          string    `json:"id"`
	Name        string    `json:"name,omitempty"`
	Position    Placement `json:"position"`
	HTMLContent string    `json:"htmlContent"`
	IsActive    bool      `json:"isActive"`
	Priority    int       `json:"priority,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AdsDocument is the stored shape of ContentAds.
type AdsDocument struct {
	Ads []AdSnippet `json:"ads"`
}
