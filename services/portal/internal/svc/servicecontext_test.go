package svc

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cuihairu/playhub/internal/contentcache"
	"github.com/cuihairu/playhub/internal/contentstore"
	"github.com/cuihairu/playhub/services/portal/internal/config"
)

func TestCacheOptions(t *testing.T) {
	o, err := cacheOptions(config.CacheConfig{
		DefaultTTL: "2m",
		AdsTTL:     "30s",
		ServeStale: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if o.DefaultTTL != 2*time.Minute || o.ClassTTL["ads"] != 30*time.Second || !o.ServeStale {
		t.Fatalf("options = %+v", o)
	}
	if _, ok := o.ClassTTL["games"]; ok {
		t.Fatalf("unset class ttl should fall back to the default")
	}
	if o.LoadTimeout != contentcache.DefaultLoadTimeout || o.FailureBackoff != contentcache.DefaultFailureBackoff {
		t.Fatalf("defaults not applied: %+v", o)
	}

	_, err = cacheOptions(config.CacheConfig{GamesTTL: "soon", LoadTimeout: "-1s"})
	if err == nil || !strings.Contains(err.Error(), "cache.games_ttl") || !strings.Contains(err.Error(), "cache.load_timeout") {
		t.Fatalf("err = %v", err)
	}
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{"", time.Second, false},
		{"  ", time.Second, false},
		{"250ms", 250 * time.Millisecond, false},
		{"0s", 0, false},
		{"ten", time.Second, true},
		{"-5s", time.Second, true},
	}
	for _, tc := range cases {
		got, err := parseDuration("x", tc.raw, time.Second)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Fatalf("%q: got %v, %v", tc.raw, got, err)
		}
	}
}

func TestNormalizeStoreAndLocalDir(t *testing.T) {
	c := normalizeStore(contentstore.Config{})
	if c.Driver != "file" || c.Dir != "data" {
		t.Fatalf("normalized = %+v", c)
	}
	dir := t.TempDir()
	fs, err := contentstore.NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got := localDir(fs); got != dir {
		t.Fatalf("localDir = %q", got)
	}
	if got := localDir(nil); got != "" {
		t.Fatalf("localDir(nil) = %q", got)
	}
}

func TestActorContext(t *testing.T) {
	ctx := WithActor(context.Background(), "alice")
	if ActorFromContext(ctx) != "alice" {
		t.Fatalf("actor lost")
	}
}
