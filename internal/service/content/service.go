// Package content is the typed read/write path over cached content documents.
//
// Public reads never fail: a missing or unreadable document degrades to an empty result
// and is logged. Admin operations return errors.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/cuihairu/playhub/internal/adguard"
	"github.com/cuihairu/playhub/internal/contentcache"
	"github.com/cuihairu/playhub/internal/ports"
	"github.com/cuihairu/playhub/internal/richtext"
	"github.com/cuihairu/playhub/internal/validation"
)

const (
	DefaultPageSize = 24
	MaxPageSize     = 100
)

// DefaultSettings apply when no settings document exists.
var DefaultSettings = ports.Settings{
	SiteName:     "PlayHub",
	AdsEnabled:   true,
	GamesPerPage: DefaultPageSize,
}

// AdChecker is satisfied by *adguard.Validator and *adguard.Memo.
type AdChecker interface {
	Validate(placement ports.Placement, html string) adguard.Verdict
}

// Refresher re-pulls a key from the authoritative tier (contentstore.Layered).
type Refresher interface {
	Refresh(ctx context.Context, key ports.ContentKey) error
}

// AdRejection describes one snippet that failed validation on save.
type AdRejection struct {
	ID        string          `json:"id"`
	Placement ports.Placement `json:"placement"`
	Reason    adguard.Reason  `json:"reason"`
	Detail    string          `json:"detail,omitempty"`
}

// AdRejectedError is returned by Save when an active snippet fails the ad validator.
type AdRejectedError struct {
	Rejections []AdRejection
}

func (e *AdRejectedError) Error() string {
	parts := make([]string, len(e.Rejections))
	for i, r := range e.Rejections {
		parts[i] = fmt.Sprintf("%s (%s): %s", r.ID, r.Placement, r.Reason)
	}
	return "ad snippets rejected: " + strings.Join(parts, ", ")
}

type Options struct {
	Store ports.ContentStore
	// Cache overrides the cache built from CacheOptions.
	Cache        *contentcache.Cache[[]byte]
	CacheOptions contentcache.Options[[]byte]
	Ads          AdChecker
	Schema       *validation.Validator
	Bus          ports.ChangeBus
	Sanitizer    *richtext.Sanitizer
	Origin       string
	Logger       *slog.Logger
}

type Service struct {
	store     ports.ContentStore
	cache     *contentcache.Cache[[]byte]
	ads       AdChecker
	schema    *validation.Validator
	bus       ports.ChangeBus
	sanitizer *richtext.Sanitizer
	origin    string
	logger    *slog.Logger
}

func New(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("content service: store required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:     opts.Store,
		ads:       opts.Ads,
		schema:    opts.Schema,
		bus:       opts.Bus,
		sanitizer: opts.Sanitizer,
		origin:    opts.Origin,
		logger:    logger.With("component", "content"),
	}
	if s.ads == nil {
		s.ads = adguard.NewDefault(adguard.WithLogger(logger))
	}
	if s.schema == nil {
		v, err := validation.New()
		if err != nil {
			return nil, err
		}
		s.schema = v
	}
	if s.sanitizer == nil {
		s.sanitizer = richtext.New()
	}
	s.cache = opts.Cache
	if s.cache == nil {
		co := opts.CacheOptions
		co.Clone = bytes.Clone
		if co.Absent == nil {
			co.Absent = func(err error) bool { return errors.Is(err, ports.ErrContentNotFound) }
		}
		if co.Logger == nil {
			co.Logger = logger
		}
		s.cache = contentcache.New(s.load, co)
	}
	return s, nil
}

func (s *Service) load(ctx context.Context, key string) ([]byte, error) {
	return s.store.Read(ctx, ports.ContentKey(key))
}

// doc returns the cached document or nil; failures were already logged by the cache.
func (s *Service) doc(ctx context.Context, key ports.ContentKey) []byte {
	b, ok := s.cache.Get(ctx, string(key))
	if !ok {
		return nil
	}
	return b
}

func (s *Service) decode(key ports.ContentKey, b []byte, into any) bool {
	if len(b) == 0 {
		return false
	}
	if err := json.Unmarshal(b, into); err != nil {
		s.logger.Warn("content document undecodable", "key", string(key), "error", err)
		return false
	}
	return true
}

// decodeItems decodes the list under field item by item. A malformed item is logged and
// skipped so it cannot blank its siblings; ok is false only when the document itself is
// absent or not an object holding a list.
func decodeItems[T any](s *Service, key ports.ContentKey, b []byte, field string) (items []T, ok bool) {
	var doc map[string]json.RawMessage
	if !s.decode(key, b, &doc) {
		return nil, false
	}
	var raw []json.RawMessage
	if list, found := doc[field]; found {
		if err := json.Unmarshal(list, &raw); err != nil {
			s.logger.Warn("content document undecodable", "key", string(key), "error", err)
			return nil, false
		}
	}
	items = make([]T, 0, len(raw))
	for i, r := range raw {
		var item T
		if err := json.Unmarshal(r, &item); err != nil {
			s.logger.Warn("content item skipped", "key", string(key), "index", i, "error", err)
			continue
		}
		items = append(items, item)
	}
	return items, true
}

// GameQuery filters the public game listing.
type GameQuery struct {
	Category string
	Featured bool
	Search   string
	Page     int
	Size     int
}

// GamePage is one page of published games.
type GamePage struct {
	Games []ports.Game `json:"games"`
	Total int          `json:"total"`
	Page  int          `json:"page"`
	Size  int          `json:"size"`
}

func (s *Service) publishedGames(ctx context.Context) []ports.Game {
	games, ok := decodeItems[ports.Game](s, ports.ContentGames, s.doc(ctx, ports.ContentGames), "games")
	if !ok {
		return nil
	}
	out := make([]ports.Game, 0, len(games))
	for _, g := range games {
		if !g.Published {
			continue
		}
		g = g.Clone()
		g.Description = s.sanitizer.HTML(g.Description)
		out = append(out, g)
	}
	return out
}

// Games lists published games matching q, newest first.
func (s *Service) Games(ctx context.Context, q GameQuery) GamePage {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	var matched []ports.Game
	for _, g := range s.publishedGames(ctx) {
		if q.Category != "" && !g.InCategory(q.Category) {
			continue
		}
		if q.Featured && !g.Featured {
			continue
		}
		if search != "" && !matches(g, search) {
			continue
		}
		matched = append(matched, g)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Featured != matched[j].Featured {
			return matched[i].Featured
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if q.Size <= 0 {
		q.Size = s.Settings(ctx).GamesPerPage
	}
	return paginate(matched, q.Page, q.Size)
}

func matches(g ports.Game, search string) bool {
	if strings.Contains(strings.ToLower(g.Title), search) {
		return true
	}
	for _, t := range g.Tags {
		if strings.EqualFold(t, search) {
			return true
		}
	}
	return false
}

func paginate(games []ports.Game, page, size int) GamePage {
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	if start > len(games) {
		start = len(games)
	}
	end := start + size
	if end > len(games) {
		end = len(games)
	}
	return GamePage{Games: append([]ports.Game{}, games[start:end]...), Total: len(games), Page: page, Size: size}
}

// Game returns the published game with slug.
func (s *Service) Game(ctx context.Context, slug string) (ports.Game, bool) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	for _, g := range s.publishedGames(ctx) {
		if g.Slug == slug {
			return g, true
		}
	}
	return ports.Game{}, false
}

// Categories are ordered by Order, then name.
func (s *Service) Categories(ctx context.Context) []ports.Category {
	cats, ok := decodeItems[ports.Category](s, ports.ContentCategories, s.doc(ctx, ports.ContentCategories), "categories")
	if !ok {
		return []ports.Category{}
	}
	out := make([]ports.Category, len(cats))
	for i, c := range cats {
		c.Description = s.sanitizer.HTML(c.Description)
		out[i] = c
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// GamesByCategory returns the category and one page of its games; ok is false when the
// category does not exist.
func (s *Service) GamesByCategory(ctx context.Context, slug string, page, size int) (ports.Category, GamePage, bool) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	for _, c := range s.Categories(ctx) {
		if c.Slug == slug {
			return c, s.Games(ctx, GameQuery{Category: slug, Page: page, Size: size}), true
		}
	}
	return ports.Category{}, GamePage{Games: []ports.Game{}, Page: 1, Size: size}, false
}

// Settings falls back to DefaultSettings field by field.
func (s *Service) Settings(ctx context.Context) ports.Settings {
	out := DefaultSettings
	b := s.doc(ctx, ports.ContentSettings)
	if len(b) == 0 {
		return out
	}
	if !s.decode(ports.ContentSettings, b, &out) {
		return DefaultSettings
	}
	if out.GamesPerPage <= 0 {
		out.GamesPerPage = DefaultPageSize
	}
	if strings.TrimSpace(out.SiteName) == "" {
		out.SiteName = DefaultSettings.SiteName
	}
	return out
}

// Ads returns the active snippets for placement that pass the ad validator, highest
// priority first. Rejected snippets are left out; their slot simply stays empty.
func (s *Service) Ads(ctx context.Context, placement ports.Placement) []ports.AdSnippet {
	out := []ports.AdSnippet{}
	if !placement.Valid() || !s.Settings(ctx).AdsEnabled {
		return out
	}
	ads, ok := decodeItems[ports.AdSnippet](s, ports.ContentAds, s.doc(ctx, ports.ContentAds), "ads")
	if !ok {
		return out
	}
	for _, ad := range ads {
		pos, err := ports.ParsePlacement(string(ad.Position))
		if err != nil {
			s.logger.Warn("ad snippet skipped", "id", ad.ID, "error", err)
			continue
		}
		if pos != placement || !ad.IsActive {
			continue
		}
		ad.Position = pos
		vd := s.ads.Validate(placement, ad.HTMLContent)
		if !vd.Approved {
			continue
		}
		ad.HTMLContent = vd.Content
		out = append(out, ad)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

// CheckAd runs the ad validator without storing anything.
func (s *Service) CheckAd(placement ports.Placement, html string) adguard.Verdict {
	return s.ads.Validate(placement, html)
}

// Document returns the raw stored document for key.
func (s *Service) Document(ctx context.Context, key ports.ContentKey) ([]byte, error) {
	if _, err := ports.ParseContentKey(string(key)); err != nil {
		return nil, err
	}
	return s.cache.Lookup(ctx, string(key))
}

// Save validates doc, writes it to the store, invalidates the cache and announces the
// change to other instances.
func (s *Service) Save(ctx context.Context, key ports.ContentKey, doc []byte) error {
	if _, err := ports.ParseContentKey(string(key)); err != nil {
		return err
	}
	if err := s.schema.Validate(key, doc); err != nil {
		return err
	}
	if key == ports.ContentAds {
		if err := s.checkAdsDocument(doc); err != nil {
			return err
		}
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, doc); err != nil {
		return err
	}
	if err := s.store.Write(ctx, key, compact.Bytes()); err != nil {
		return fmt.Errorf("store %s: %w", s.store.Name(), err)
	}
	s.cache.Invalidate(string(key))
	s.publish(ctx, key)
	s.logger.Info("content saved", "key", string(key), "bytes", compact.Len(), "store", s.store.Name())
	return nil
}

func (s *Service) checkAdsDocument(doc []byte) error {
	var d ports.AdsDocument
	if err := json.Unmarshal(doc, &d); err != nil {
		return &validation.ValidationError{Key: ports.ContentAds, Problems: []string{err.Error()}}
	}
	var rej []AdRejection
	var problems []string
	for i, ad := range d.Ads {
		pos, err := ports.ParsePlacement(string(ad.Position))
		if err != nil {
			problems = append(problems, fmt.Sprintf("ads.%d.position: %v", i, err))
			continue
		}
		ad.Position = pos
		if !ad.IsActive {
			continue
		}
		if vd := s.ads.Validate(ad.Position, ad.HTMLContent); !vd.Approved {
			rej = append(rej, AdRejection{ID: ad.ID, Placement: ad.Position, Reason: vd.Reason, Detail: vd.Detail})
		}
	}
	if len(problems) > 0 {
		return &validation.ValidationError{Key: ports.ContentAds, Problems: problems}
	}
	if len(rej) > 0 {
		return &AdRejectedError{Rejections: rej}
	}
	return nil
}

// Invalidate drops key here and on every other instance.
func (s *Service) Invalidate(ctx context.Context, key ports.ContentKey) error {
	if _, err := ports.ParseContentKey(string(key)); err != nil {
		return err
	}
	s.cache.Invalidate(string(key))
	s.publish(ctx, key)
	return nil
}

// InvalidateLocal drops key on this instance only (file watcher path).
func (s *Service) InvalidateLocal(key ports.ContentKey) {
	s.cache.Invalidate(string(key))
}

func (s *Service) publish(ctx context.Context, key ports.ContentKey) {
	if s.bus == nil {
		return
	}
	evt := ports.ChangeEvent{Key: key, Origin: s.origin, At: time.Now().UTC()}
	if err := s.bus.Publish(ctx, evt); err != nil {
		s.logger.Warn("publish content change failed", "key", string(key), "error", err)
	}
}

// HandleChange applies a change announced by another instance: the local tier is
// refreshed when the store has one, then the cache entry is dropped and re-warmed.
func (s *Service) HandleChange(evt ports.ChangeEvent) {
	if r, ok := s.store.(Refresher); ok {
		ctx, cancel := context.WithTimeout(context.Background(), contentcache.DefaultLoadTimeout)
		if err := r.Refresh(ctx, evt.Key); err != nil {
			s.logger.Warn("refresh local tier failed", "key", string(evt.Key), "error", err)
		}
		cancel()
	}
	s.cache.Invalidate(string(evt.Key))
	s.cache.Preload(string(evt.Key), nil)
	s.logger.Info("content changed elsewhere", "key", string(evt.Key), "origin", evt.Origin)
}

// Subscribe starts applying bus events until ctx is done.
func (s *Service) Subscribe(ctx context.Context) error {
	if s.bus == nil {
		return nil
	}
	return s.bus.Subscribe(ctx, s.HandleChange)
}

// Warm preloads keys (all keys when none are given) in the background.
func (s *Service) Warm(keys ...ports.ContentKey) {
	if len(keys) == 0 {
		keys = ports.ContentKeys()
	}
	for _, k := range keys {
		s.cache.Preload(string(k), nil)
	}
}

func (s *Service) Stats() contentcache.Stats { return s.cache.Stats() }

func (s *Service) StoreName() string { return s.store.Name() }
