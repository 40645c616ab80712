package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zeromicro/go-zero/rest/router"
	"golang.org/x/crypto/bcrypt"

	"github.com/cuihairu/playhub/internal/auth/operators"
	"github.com/cuihairu/playhub/internal/contentbus"
	"github.com/cuihairu/playhub/internal/contentstore"
	"github.com/cuihairu/playhub/internal/ports"
	"github.com/cuihairu/playhub/services/portal/internal/config"
	"github.com/cuihairu/playhub/services/portal/internal/svc"
	"github.com/cuihairu/playhub/services/portal/internal/types"
)

const (
	rootToken   = "root.t0p"
	editorToken = "ed.pencil"
	viewerToken = "vi.glasses"

	gamesDoc = `{"games":[
		{"id":"1","slug":"snake","title":"Snake","gameUrl":"https://g.example/snake","categories":["arcade"],"published":true,"featured":true},
		{"id":"2","slug":"tetris","title":"Tetris","gameUrl":"https://g.example/tetris","categories":["puzzle"],"published":true},
		{"id":"3","slug":"draft","title":"Draft","gameUrl":"https://g.example/draft","categories":["arcade"],"published":false}
	]}`
	categoriesDoc = `{"categories":[{"id":"c1","slug":"arcade","name":"Arcade","order":1},{"id":"c2","slug":"puzzle","name":"Puzzle","order":2}]}`
	adsDoc        = `{"ads":[
		{"id":"good","position":"header","htmlContent":"<script src='https://pagead2.googlesyndication.com/a.js'></script>","isActive":true,"priority":3},
		{"id":"evil","position":"header","htmlContent":"<script src='https://evil.example/x.js'></script>","isActive":true,"priority":9}
	]}`
	settingsDoc = `{"siteName":"Arcade Hub","gamesPerPage":10,"adsEnabled":true}`
)

type portal struct {
	ctx     *svc.ServiceContext
	handler http.Handler
	store   *contentstore.FileStore
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func hashOf(t *testing.T, token string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return string(h)
}

func writeDocs(t *testing.T, dir string, docs map[ports.ContentKey]string) {
	t.Helper()
	for key, doc := range docs {
		if err := os.WriteFile(filepath.Join(dir, string(key)+".json"), []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func seededDir(t *testing.T) string {
	dir := t.TempDir()
	writeDocs(t, dir, map[ports.ContentKey]string{
		ports.ContentGames:      gamesDoc,
		ports.ContentCategories: categoriesDoc,
		ports.ContentAds:        adsDoc,
		ports.ContentSettings:   settingsDoc,
	})
	return dir
}

func rbacFiles(t *testing.T) (string, string) {
	t.Helper()
	policy, err := os.ReadFile(filepath.Join("..", "..", "..", "..", "configs", "rbac_policy.csv"))
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.csv")
	extra := "g, ed, role:editor\ng, vi, role:viewer\n"
	if err := os.WriteFile(path, append(policy, []byte("\n"+extra)...), 0o644); err != nil {
		t.Fatal(err)
	}
	return filepath.Join("..", "..", "..", "..", "configs", "rbac_model.conf"), path
}

func newPortal(t *testing.T, dir string, hub *contentbus.MemoryHub, origin string) *portal {
	t.Helper()
	store, err := contentstore.NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	model, policy := rbacFiles(t)
	var c config.Config
	c.Admin = config.AdminConfig{
		Operators: []operators.Operator{
			{Name: "root", TokenHash: hashOf(t, rootToken)},
			{Name: "ed", TokenHash: hashOf(t, editorToken)},
			{Name: "vi", TokenHash: hashOf(t, viewerToken)},
		},
		RBACModel:  model,
		RBACPolicy: policy,
	}
	ctx, err := svc.NewServiceContext(c,
		svc.WithStore(store),
		svc.WithBus(hub.Bus(origin), origin),
		svc.WithLogger(quiet()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(ctx.Close)

	r := router.NewRouter()
	public, admin := Routes(ctx)
	for _, rt := range append(public, admin...) {
		if err := r.Handle(rt.Method, rt.Path, rt.Handler); err != nil {
			t.Fatal(err)
		}
	}
	return &portal{ctx: ctx, handler: r, store: store}
}

func (p *portal) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	p.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestPublicRoutes(t *testing.T) {
	p := newPortal(t, seededDir(t), contentbus.NewMemoryHub(), "a")

	rec := p.do(t, http.MethodGet, "/api/games", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("games: %d %s", rec.Code, rec.Body)
	}
	var games types.GamesListResponse
	decode(t, rec, &games)
	if games.Total != 2 || games.Games[0].Slug != "snake" {
		t.Fatalf("games = %+v", games)
	}

	if rec := p.do(t, http.MethodGet, "/api/games/tetris", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("tetris: %d", rec.Code)
	}
	if rec := p.do(t, http.MethodGet, "/api/games/draft", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unpublished game: %d", rec.Code)
	}
	if rec := p.do(t, http.MethodGet, "/api/categories/nope/games", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown category: %d", rec.Code)
	}

	rec = p.do(t, http.MethodGet, "/api/categories/puzzle/games", "", "")
	var cg types.CategoryGamesResponse
	decode(t, rec, &cg)
	if cg.Category.Slug != "puzzle" || cg.Total != 1 || cg.Games[0].Slug != "tetris" {
		t.Fatalf("category games = %+v", cg)
	}

	rec = p.do(t, http.MethodGet, "/api/ads/header", "", "")
	var ads types.AdsResponse
	decode(t, rec, &ads)
	if len(ads.Ads) != 1 || ads.Ads[0].Id != "good" {
		t.Fatalf("ads = %+v", ads)
	}
	if rec := p.do(t, http.MethodGet, "/api/ads/popup", "", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown placement: %d", rec.Code)
	}

	rec = p.do(t, http.MethodGet, "/api/settings", "", "")
	var st types.SettingsResponse
	decode(t, rec, &st)
	if st.SiteName != "Arcade Hub" || st.GamesPerPage != 10 {
		t.Fatalf("settings = %+v", st)
	}
}

func TestPublicRoutesDegradeWithoutContent(t *testing.T) {
	p := newPortal(t, t.TempDir(), contentbus.NewMemoryHub(), "a")

	rec := p.do(t, http.MethodGet, "/api/games", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("games: %d", rec.Code)
	}
	var games types.GamesListResponse
	decode(t, rec, &games)
	if games.Total != 0 || games.Games == nil {
		t.Fatalf("games = %+v", games)
	}
	rec = p.do(t, http.MethodGet, "/api/ads/footer", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ads":[]`) {
		t.Fatalf("ads: %d %s", rec.Code, rec.Body)
	}
}

func TestAdminAuth(t *testing.T) {
	p := newPortal(t, seededDir(t), contentbus.NewMemoryHub(), "a")

	rec := p.do(t, http.MethodGet, "/admin/api/content/games", "", "")
	if rec.Code != http.StatusUnauthorized || rec.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("anonymous: %d", rec.Code)
	}
	if rec := p.do(t, http.MethodGet, "/admin/api/content/games", "root.wrong", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", rec.Code)
	}
	if rec := p.do(t, http.MethodGet, "/admin/api/content/games", viewerToken, ""); rec.Code != http.StatusOK {
		t.Fatalf("viewer read: %d", rec.Code)
	}
	if rec := p.do(t, http.MethodPut, "/admin/api/content/settings", viewerToken, settingsDoc); rec.Code != http.StatusForbidden {
		t.Fatalf("viewer write: %d", rec.Code)
	}
	if rec := p.do(t, http.MethodPost, "/admin/api/ads/check", viewerToken, `{"placement":"header","htmlContent":"<p>x</p>"}`); rec.Code != http.StatusForbidden {
		t.Fatalf("viewer ads check: %d", rec.Code)
	}
	if rec := p.do(t, http.MethodGet, "/admin/api/content/games", rootToken, ""); rec.Code != http.StatusOK {
		t.Fatalf("root read: %d", rec.Code)
	}
	if rec := p.do(t, http.MethodGet, "/admin/api/content/scores", rootToken, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown key: %d", rec.Code)
	}
}

func TestAdminSaveRejectsBadDocuments(t *testing.T) {
	dir := seededDir(t)
	p := newPortal(t, dir, contentbus.NewMemoryHub(), "a")

	rec := p.do(t, http.MethodPut, "/admin/api/content/settings", editorToken, `{"gamesPerPage":0}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("schema: %d %s", rec.Code, rec.Body)
	}
	var prob types.ProblemResponse
	decode(t, rec, &prob)
	if len(prob.Problems) == 0 {
		t.Fatalf("no problems listed: %+v", prob)
	}

	rec = p.do(t, http.MethodPut, "/admin/api/content/ads", editorToken,
		`{"ads":[{"id":"bad","position":"footer","htmlContent":"<script>alert(1)</script>","isActive":true}]}`)
	if rec.Code != http.StatusUnprocessableEntity || !strings.Contains(rec.Body.String(), `"rejected"`) {
		t.Fatalf("ads: %d %s", rec.Code, rec.Body)
	}

	for key, want := range map[ports.ContentKey]string{ports.ContentSettings: settingsDoc, ports.ContentAds: adsDoc} {
		got, err := os.ReadFile(filepath.Join(dir, string(key)+".json"))
		if err != nil || string(got) != want {
			t.Fatalf("%s changed on disk: %v", key, err)
		}
	}
}

func TestAdminSavePropagates(t *testing.T) {
	dir := seededDir(t)
	hub := contentbus.NewMemoryHub()
	a := newPortal(t, dir, hub, "a")
	b := newPortal(t, dir, hub, "b")

	for _, p := range []*portal{a, b} {
		var st types.SettingsResponse
		decode(t, p.do(t, http.MethodGet, "/api/settings", "", ""), &st)
		if st.SiteName != "Arcade Hub" {
			t.Fatalf("settings = %+v", st)
		}
	}

	rec := a.do(t, http.MethodPut, "/admin/api/content/settings", editorToken, `{"siteName":"Retro Room","gamesPerPage":12}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("save: %d %s", rec.Code, rec.Body)
	}
	var saved types.ContentSaveResponse
	decode(t, rec, &saved)
	if !saved.Saved || saved.Actor != "ed" {
		t.Fatalf("save response = %+v", saved)
	}

	for name, p := range map[string]*portal{"a": a, "b": b} {
		var st types.SettingsResponse
		decode(t, p.do(t, http.MethodGet, "/api/settings", "", ""), &st)
		if st.SiteName != "Retro Room" || st.GamesPerPage != 12 {
			t.Fatalf("%s still serves %+v", name, st)
		}
	}

	rec = a.do(t, http.MethodGet, "/admin/api/content/settings", viewerToken, "")
	if !strings.Contains(rec.Body.String(), "Retro Room") {
		t.Fatalf("raw document = %s", rec.Body)
	}
}

func TestAdminInvalidateAndStats(t *testing.T) {
	dir := seededDir(t)
	p := newPortal(t, dir, contentbus.NewMemoryHub(), "a")

	var before types.GamesListResponse
	decode(t, p.do(t, http.MethodGet, "/api/games", "", ""), &before)

	writeDocs(t, dir, map[ports.ContentKey]string{
		ports.ContentGames: `{"games":[{"id":"9","slug":"pong","title":"Pong","gameUrl":"https://g.example/pong","published":true}]}`,
	})
	rec := p.do(t, http.MethodPost, "/admin/api/content/games/invalidate", editorToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("invalidate: %d %s", rec.Code, rec.Body)
	}
	var after types.GamesListResponse
	decode(t, p.do(t, http.MethodGet, "/api/games", "", ""), &after)
	if before.Total != 2 || after.Total != 1 || after.Games[0].Slug != "pong" {
		t.Fatalf("before %d, after %+v", before.Total, after)
	}

	rec = p.do(t, http.MethodGet, "/admin/api/cache/stats", viewerToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: %d", rec.Code)
	}
	var stats types.CacheStatsResponse
	decode(t, rec, &stats)
	if stats.Store != "file" || stats.Origin != "a" || stats.Stats.Loads == 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestAdminAdCheck(t *testing.T) {
	p := newPortal(t, seededDir(t), contentbus.NewMemoryHub(), "a")

	cases := []struct {
		html     string
		approved bool
	}{
		{`<script src="https://pagead2.googlesyndication.com/pagead/js/adsbygoogle.js"></script>`, true},
		{`<script src="https://evil.example/x.js"></script>`, false},
		{`<img src=x onerror="alert(1)">`, false},
	}
	for _, tc := range cases {
		body, _ := json.Marshal(types.AdCheckRequest{Placement: "sidebar", HtmlContent: tc.html})
		rec := p.do(t, http.MethodPost, "/admin/api/ads/check", editorToken, string(body))
		if rec.Code != http.StatusOK {
			t.Fatalf("check: %d %s", rec.Code, rec.Body)
		}
		var v types.AdCheckResponse
		decode(t, rec, &v)
		if v.Approved != tc.approved {
			t.Fatalf("%s: approved=%v reason=%s", tc.html, v.Approved, v.Reason)
		}
		if !v.Approved && v.Reason == "" {
			t.Fatalf("%s: rejection without reason", tc.html)
		}
	}
}
