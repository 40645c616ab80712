package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/cuihairu/playhub/internal/ports"
)

func TestValidateDocuments(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		name string
		key  ports.ContentKey
		doc  string
		ok   bool
	}{
		{"games ok", ports.ContentGames, `{"games":[{"id":"1","slug":"snake","title":"Snake","gameUrl":"https://g.example/snake","rating":4.5}]}`, true},
		{"games empty list", ports.ContentGames, `{"games":[]}`, true},
		{"games missing title", ports.ContentGames, `{"games":[{"id":"1","slug":"snake","gameUrl":"https://g.example"}]}`, false},
		{"games bad slug", ports.ContentGames, `{"games":[{"id":"1","slug":"Snake Game","title":"S","gameUrl":"https://g.example"}]}`, false},
		{"games bad url", ports.ContentGames, `{"games":[{"id":"1","slug":"s","title":"S","gameUrl":"javascript:alert(1)"}]}`, false},
		{"games rating range", ports.ContentGames, `{"games":[{"id":"1","slug":"s","title":"S","gameUrl":"https://g","rating":9}]}`, false},
		{"games duplicate slug", ports.ContentGames, `{"games":[{"id":"1","slug":"s","title":"S","gameUrl":"https://g"},{"id":"2","slug":"s","title":"T","gameUrl":"https://g"}]}`, false},
		{"categories ok", ports.ContentCategories, `{"categories":[{"id":"c1","slug":"puzzle","name":"Puzzle","order":1}]}`, true},
		{"categories wrong type", ports.ContentCategories, `{"categories":{}}`, false},
		{"ads ok", ports.ContentAds, `{"ads":[{"id":"a1","position":"header","htmlContent":"<div></div>","isActive":true}]}`, true},
		{"ads unknown placement", ports.ContentAds, `{"ads":[{"id":"a1","position":"popup","htmlContent":"x","isActive":true}]}`, false},
		{"ads too long", ports.ContentAds, `{"ads":[{"id":"a1","position":"footer","htmlContent":"` + strings.Repeat("é", 10001) + `","isActive":true}]}`, false},
		{"ads duplicate id", ports.ContentAds, `{"ads":[{"id":"a1","position":"footer","htmlContent":"x","isActive":true},{"id":"a1","position":"header","htmlContent":"y","isActive":false}]}`, false},
		{"settings ok", ports.ContentSettings, `{"siteName":"Play","adsEnabled":true,"gamesPerPage":24}`, true},
		{"settings no name", ports.ContentSettings, `{"adsEnabled":true}`, false},
		{"settings page size", ports.ContentSettings, `{"siteName":"Play","gamesPerPage":0}`, false},
		{"not json", ports.ContentSettings, `{"siteName":`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(tc.key, []byte(tc.doc))
			if (err == nil) != tc.ok {
				t.Fatalf("Validate = %v, want ok=%v", err, tc.ok)
			}
			if err != nil {
				var ve *ValidationError
				if !errors.As(err, &ve) || ve.Key != tc.key || len(ve.Problems) == 0 || !errors.Is(err, ErrInvalid) {
					t.Fatalf("unexpected error shape: %#v", err)
				}
			}
		})
	}
}

func TestValidateUnknownKey(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Validate("users", []byte(`{}`)); !errors.Is(err, ports.ErrUnknownKey) {
		t.Fatalf("got %v", err)
	}
	if _, err := Schema("users"); err == nil {
		t.Fatalf("schema for unknown key")
	}
	if b, err := Schema(ports.ContentAds); err != nil || !strings.Contains(string(b), "below_game") {
		t.Fatalf("ads schema: %v", err)
	}
}
