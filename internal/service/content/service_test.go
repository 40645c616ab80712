package content

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuihairu/playhub/internal/contentbus"
	"github.com/cuihairu/playhub/internal/ports"
	"github.com/cuihairu/playhub/internal/validation"
)

type memStore struct {
	mu     sync.Mutex
	docs   map[ports.ContentKey][]byte
	fail   atomic.Bool
	writes atomic.Int32
	reads  atomic.Int32
}

func newMemStore(docs map[ports.ContentKey]string) *memStore {
	m := &memStore{docs: map[ports.ContentKey][]byte{}}
	for k, v := range docs {
		m.docs[k] = []byte(v)
	}
	return m
}

func (m *memStore) Name() string { return "mem" }

func (m *memStore) Read(_ context.Context, key ports.ContentKey) ([]byte, error) {
	m.reads.Add(1)
	if m.fail.Load() {
		return nil, errors.New("store down")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.docs[key]
	if !ok {
		return nil, ports.ErrContentNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *memStore) Write(_ context.Context, key ports.ContentKey, doc []byte) error {
	if m.fail.Load() {
		return errors.New("store down")
	}
	m.writes.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = append([]byte(nil), doc...)
	return nil
}

const (
	gamesJSON = `{"games":[
		{"id":"1","slug":"snake","title":"Snake","gameUrl":"https://g.example/snake","categories":["arcade"],"tags":["classic"],"published":true,"featured":true,"createdAt":"2024-01-01T00:00:00Z","description":"<p>Eat</p><script>x()</script>"},
		{"id":"2","slug":"tetris","title":"Tetris","gameUrl":"https://g.example/tetris","categories":["puzzle","arcade"],"published":true,"createdAt":"2024-03-01T00:00:00Z"},
		{"id":"3","slug":"draft","title":"Draft","gameUrl":"https://g.example/draft","categories":["arcade"],"published":false},
		{"id":"4","slug":"sudoku","title":"Sudoku","gameUrl":"https://g.example/sudoku","categories":["puzzle"],"published":true,"createdAt":"2024-02-01T00:00:00Z"}
	]}`
	categoriesJSON = `{"categories":[
		{"id":"c2","slug":"puzzle","name":"Puzzle","order":2},
		{"id":"c1","slug":"arcade","name":"Arcade","order":1}
	]}`
	adsJSON = `{"ads":[
		{"id":"ok-low","position":"header","htmlContent":"<script src='https://pagead2.googlesyndication.com/a.js'></script>","isActive":true,"priority":1},
		{"id":"ok-high","position":"header","htmlContent":"<script src='https://securepubads.doubleclick.net/b.js'></script>","isActive":true,"priority":5},
		{"id":"iframe","position":"header","htmlContent":"<iframe src='https://googlesyndication.com/x'></iframe>","isActive":true},
		{"id":"inactive","position":"header","htmlContent":"<script src='https://adnxs.com/c.js'></script>","isActive":false},
		{"id":"footer","position":"footer","htmlContent":"<script src='https://adnxs.com/c.js'></script>","isActive":true}
	]}`
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newService(t *testing.T, store ports.ContentStore, bus ports.ChangeBus, origin string) *Service {
	t.Helper()
	s, err := New(Options{Store: store, Bus: bus, Origin: origin, Logger: quiet()})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func fullStore() *memStore {
	return newMemStore(map[ports.ContentKey]string{
		ports.ContentGames:      gamesJSON,
		ports.ContentCategories: categoriesJSON,
		ports.ContentAds:        adsJSON,
		ports.ContentSettings:   `{"siteName":"Arcade Hub","adsEnabled":true,"gamesPerPage":2}`,
	})
}

func TestGamesListing(t *testing.T) {
	s := newService(t, fullStore(), nil, "a")
	ctx := context.Background()

	page := s.Games(ctx, GameQuery{})
	if page.Total != 3 || page.Size != 2 || len(page.Games) != 2 {
		t.Fatalf("page = %+v", page)
	}
	// featured first, then newest
	if page.Games[0].Slug != "snake" || page.Games[1].Slug != "tetris" {
		t.Fatalf("order = %s, %s", page.Games[0].Slug, page.Games[1].Slug)
	}
	if strings.Contains(page.Games[0].Description, "<script") || !strings.Contains(page.Games[0].Description, "<p>Eat</p>") {
		t.Fatalf("description not sanitized: %q", page.Games[0].Description)
	}
	if p2 := s.Games(ctx, GameQuery{Page: 2}); len(p2.Games) != 1 || p2.Games[0].Slug != "sudoku" {
		t.Fatalf("page 2 = %+v", p2)
	}
	if p := s.Games(ctx, GameQuery{Category: "PUZZLE", Size: 10}); p.Total != 2 {
		t.Fatalf("category filter total = %d", p.Total)
	}
	if p := s.Games(ctx, GameQuery{Featured: true}); p.Total != 1 {
		t.Fatalf("featured total = %d", p.Total)
	}
	if p := s.Games(ctx, GameQuery{Search: "classic"}); p.Total != 1 || p.Games[0].Slug != "snake" {
		t.Fatalf("search by tag = %+v", p)
	}
	if p := s.Games(ctx, GameQuery{Search: "tet"}); p.Total != 1 {
		t.Fatalf("search by title = %+v", p)
	}
	if _, ok := s.Game(ctx, "draft"); ok {
		t.Fatalf("unpublished game exposed")
	}
	if g, ok := s.Game(ctx, "Tetris"); !ok || g.ID != "2" {
		t.Fatalf("game lookup = %+v %v", g, ok)
	}
}

func TestCategories(t *testing.T) {
	s := newService(t, fullStore(), nil, "a")
	ctx := context.Background()
	cats := s.Categories(ctx)
	if len(cats) != 2 || cats[0].Slug != "arcade" {
		t.Fatalf("categories = %+v", cats)
	}
	c, page, ok := s.GamesByCategory(ctx, "arcade", 1, 10)
	if !ok || c.Name != "Arcade" || page.Total != 2 {
		t.Fatalf("arcade = %+v %+v %v", c, page, ok)
	}
	if _, page, ok := s.GamesByCategory(ctx, "racing", 1, 10); ok || len(page.Games) != 0 {
		t.Fatalf("unknown category should be empty")
	}
}

func TestAdsOnlyApprovedActiveSnippets(t *testing.T) {
	s := newService(t, fullStore(), nil, "a")
	ads := s.Ads(context.Background(), ports.PlacementHeader)
	if len(ads) != 2 {
		t.Fatalf("ads = %+v", ads)
	}
	if ads[0].ID != "ok-high" || ads[1].ID != "ok-low" {
		t.Fatalf("priority order: %s, %s", ads[0].ID, ads[1].ID)
	}
	if ads[1].HTMLContent != "<script src='https://pagead2.googlesyndication.com/a.js'></script>" {
		t.Fatalf("approved content changed: %q", ads[1].HTMLContent)
	}
	if got := s.Ads(context.Background(), ports.PlacementSidebar); len(got) != 0 {
		t.Fatalf("sidebar should be empty: %+v", got)
	}
	if got := s.Ads(context.Background(), ports.Placement("popup")); len(got) != 0 {
		t.Fatalf("unknown placement returned ads")
	}
}

func TestAdsDisabledBySettings(t *testing.T) {
	store := fullStore()
	store.docs[ports.ContentSettings] = []byte(`{"siteName":"x","adsEnabled":false}`)
	s := newService(t, store, nil, "a")
	if got := s.Ads(context.Background(), ports.PlacementHeader); len(got) != 0 {
		t.Fatalf("ads served while disabled: %+v", got)
	}
}

func TestMalformedItemsAreSkippedAlone(t *testing.T) {
	store := fullStore()
	store.docs[ports.ContentAds] = []byte(`{"ads":[
		{"id":"typo","position":"sidebarr","htmlContent":"<script src='https://adnxs.com/c.js'></script>","isActive":true},
		{"id":"good","position":"Header","htmlContent":"<script src='https://adnxs.com/c.js'></script>","isActive":true},
		{"id":"broken","position":7,"htmlContent":"<script src='https://adnxs.com/c.js'></script>","isActive":true}
	]}`)
	store.docs[ports.ContentGames] = []byte(`{"games":[
		{"id":"1","slug":"snake","title":"Snake","gameUrl":"https://g.example/snake","published":true,"plays":"many"},
		{"id":"2","slug":"tetris","title":"Tetris","gameUrl":"https://g.example/tetris","published":true}
	]}`)
	store.docs[ports.ContentCategories] = []byte(`{"categories":[{"id":"c1","slug":"arcade","name":"Arcade","order":"first"},{"id":"c2","slug":"puzzle","name":"Puzzle"}]}`)
	s := newService(t, store, nil, "a")
	ctx := context.Background()

	ads := s.Ads(ctx, ports.PlacementHeader)
	if len(ads) != 1 || ads[0].ID != "good" || ads[0].Position != ports.PlacementHeader {
		t.Fatalf("header ads = %+v", ads)
	}
	if got := s.Ads(ctx, ports.PlacementSidebar); len(got) != 0 {
		t.Fatalf("misspelled placement served: %+v", got)
	}
	if p := s.Games(ctx, GameQuery{}); p.Total != 1 || p.Games[0].Slug != "tetris" {
		t.Fatalf("games = %+v", p)
	}
	if c := s.Categories(ctx); len(c) != 1 || c[0].Slug != "puzzle" {
		t.Fatalf("categories = %+v", c)
	}
}

func TestSaveRejectsUnknownPlacement(t *testing.T) {
	store := fullStore()
	s := newService(t, store, nil, "a")
	err := s.checkAdsDocument([]byte(`{"ads":[{"id":"x","position":"popup","htmlContent":"<script src='https://adnxs.com/a.js'></script>","isActive":true}]}`))
	var verr *validation.ValidationError
	if !errors.As(err, &verr) || len(verr.Problems) != 1 || !strings.Contains(verr.Problems[0], "ads.0.position") {
		t.Fatalf("expected placement problem, got %v", err)
	}
}

func TestPublicReadsDegradeToEmpty(t *testing.T) {
	store := fullStore()
	store.fail.Store(true)
	s := newService(t, store, nil, "a")
	ctx := context.Background()
	if p := s.Games(ctx, GameQuery{}); p.Total != 0 || p.Games == nil {
		t.Fatalf("games = %+v", p)
	}
	if c := s.Categories(ctx); c == nil || len(c) != 0 {
		t.Fatalf("categories = %+v", c)
	}
	if a := s.Ads(ctx, ports.PlacementHeader); a == nil || len(a) != 0 {
		t.Fatalf("ads = %+v", a)
	}
	if st := s.Settings(ctx); st != DefaultSettings {
		t.Fatalf("settings = %+v", st)
	}
	if _, err := s.Document(ctx, ports.ContentGames); err == nil {
		t.Fatalf("admin read should surface the failure")
	}
}

func TestMissingDocumentIsNotReadPerRequest(t *testing.T) {
	store := fullStore()
	delete(store.docs, ports.ContentSettings)
	s := newService(t, store, nil, "a")
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		if got := s.Ads(ctx, ports.PlacementHeader); len(got) != 2 {
			t.Fatalf("ads with default settings: %+v", got)
		}
	}
	// one read for settings, one for ads
	if r := store.reads.Load(); r != 2 {
		t.Fatalf("store read %d times for a missing settings document", r)
	}

	store.mu.Lock()
	store.docs[ports.ContentSettings] = []byte(`{"siteName":"Late","adsEnabled":true}`)
	store.mu.Unlock()
	s.InvalidateLocal(ports.ContentSettings)
	if got := s.Settings(ctx).SiteName; got != "Late" {
		t.Fatalf("created document not picked up after invalidation: %q", got)
	}
}

func TestStoreOutageIsNotReadPerRequest(t *testing.T) {
	store := fullStore()
	store.fail.Store(true)
	s := newService(t, store, nil, "a")
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		s.Categories(ctx)
	}
	if r := store.reads.Load(); r != 1 {
		t.Fatalf("store read %d times during an outage", r)
	}
}

func TestStaleDocumentSurvivesStoreOutage(t *testing.T) {
	store := fullStore()
	s, err := New(Options{Store: store, Logger: quiet()})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if s.Games(ctx, GameQuery{}).Total != 3 {
		t.Fatalf("initial load failed")
	}
	store.fail.Store(true)
	s.InvalidateLocal(ports.ContentGames)
	if got := s.Games(ctx, GameQuery{}).Total; got != 3 {
		t.Fatalf("stale games lost after failed reload: %d", got)
	}
}

func TestSaveRejectsInvalidDocuments(t *testing.T) {
	store := fullStore()
	s := newService(t, store, nil, "a")
	ctx := context.Background()

	err := s.Save(ctx, ports.ContentGames, []byte(`{"games":[{"id":"1"}]}`))
	if !errors.Is(err, validation.ErrInvalid) {
		t.Fatalf("expected schema error, got %v", err)
	}
	bad := `{"ads":[{"id":"x","position":"sidebar","htmlContent":"<embed src='https://adnxs.com/a'>","isActive":true},
		{"id":"off","position":"sidebar","htmlContent":"<iframe>","isActive":false}]}`
	err = s.Save(ctx, ports.ContentAds, []byte(bad))
	var rej *AdRejectedError
	if !errors.As(err, &rej) || len(rej.Rejections) != 1 || rej.Rejections[0].ID != "x" {
		t.Fatalf("expected one ad rejection, got %v", err)
	}
	if err := s.Save(ctx, "users", []byte(`{}`)); !errors.Is(err, ports.ErrUnknownKey) {
		t.Fatalf("unknown key: %v", err)
	}
	if store.writes.Load() != 0 {
		t.Fatalf("store written %d times", store.writes.Load())
	}
}

func TestSaveInvalidatesAndPublishes(t *testing.T) {
	store := fullStore()
	hub := contentbus.NewMemoryHub()
	a := newService(t, store, hub.Bus("a"), "a")
	b := newService(t, store, hub.Bus("b"), "b")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Subscribe(ctx); err != nil {
		t.Fatal(err)
	}
	if err := b.Subscribe(ctx); err != nil {
		t.Fatal(err)
	}

	if a.Settings(ctx).SiteName != "Arcade Hub" || b.Settings(ctx).SiteName != "Arcade Hub" {
		t.Fatalf("initial settings")
	}
	if err := a.Save(ctx, ports.ContentSettings, []byte(`{ "siteName": "New Name", "adsEnabled": true }`)); err != nil {
		t.Fatal(err)
	}
	if got := string(store.docs[ports.ContentSettings]); got != `{"siteName":"New Name","adsEnabled":true}` {
		t.Fatalf("stored document not compacted: %s", got)
	}
	if a.Settings(ctx).SiteName != "New Name" {
		t.Fatalf("writer cache not invalidated")
	}
	deadline := time.Now().Add(2 * time.Second)
	for b.Settings(ctx).SiteName != "New Name" {
		if time.Now().After(deadline) {
			t.Fatalf("peer cache not invalidated")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWarmPreloadsEveryKey(t *testing.T) {
	store := fullStore()
	s := newService(t, store, nil, "a")
	s.Warm()
	deadline := time.Now().Add(2 * time.Second)
	for {
		st := s.Stats()
		populated := 0
		for _, e := range st.Entries {
			if e.Populated {
				populated++
			}
		}
		if populated == len(ports.ContentKeys()) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("warm populated %d keys", populated)
		}
		time.Sleep(10 * time.Millisecond)
	}
	reads := store.reads.Load()
	s.Games(context.Background(), GameQuery{})
	if store.reads.Load() != reads {
		t.Fatalf("warmed key reloaded")
	}
}

func TestCheckAd(t *testing.T) {
	s := newService(t, fullStore(), nil, "a")
	if vd := s.CheckAd(ports.PlacementFooter, "<script src='https://evil.example/x.js'></script>"); vd.Approved {
		t.Fatalf("untrusted snippet approved")
	}
}
