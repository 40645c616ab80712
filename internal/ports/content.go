package ports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ContentKey names one stored content document.
type ContentKey string

const (
	ContentGames      ContentKey = "games"
	ContentCategories ContentKey = "categories"
	ContentAds        ContentKey = "ads"
	ContentSettings   ContentKey = "settings"
)

var (
	ErrContentNotFound  = errors.New("content not found")
	ErrUnknownKey       = errors.New("unknown content key")
	ErrUnknownPlacement = errors.New("unknown placement")
)

// ContentKeys lists every content document the portal serves.
func ContentKeys() []ContentKey {
	return []ContentKey{ContentGames, ContentCategories, ContentAds, ContentSettings}
}

// ParseContentKey accepts only the known content keys.
func ParseContentKey(s string) (ContentKey, error) {
	k := ContentKey(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ContentKeys() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKey, s)
}

func (k ContentKey) String() string { return string(k) }

// Settings are site-wide values editable by operators.
type Settings struct {
	SiteName        string `json:"siteName"`
	SiteDescription string `json:"siteDescription,omitempty"`
	SiteURL         string `json:"siteUrl,omitempty"`
	Logo            string `json:"logo,omitempty"`
	AdsEnabled      bool   `json:"adsEnabled"`
	GamesPerPage    int    `json:"gamesPerPage,omitempty"`
	ContactEmail    string `json:"contactEmail,omitempty"`
}

// ContentStore is durable storage for raw JSON content documents.
// Read returns ErrContentNotFound (possibly wrapped) when the key has never been written.
type ContentStore interface {
	Read(ctx context.Context, key ContentKey) ([]byte, error)
	Write(ctx context.Context, key ContentKey, doc []byte) error
	Name() string
}

// ChangeEvent announces that a content document was rewritten.
type ChangeEvent struct {
	Key    ContentKey `json:"key"`
	Origin string     `json:"origin"`
	At     time.Time  `json:"at"`
}

// ChangeBus fans content change events out to every portal instance.
type ChangeBus interface {
	Publish(ctx context.Context, evt ChangeEvent) error
	// Subscribe delivers events until ctx is done. It returns once the
	// subscription is established.
	Subscribe(ctx context.Context, fn func(ChangeEvent)) error
	Close() error
}
