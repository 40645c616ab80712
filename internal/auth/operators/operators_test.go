package operators

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/cuihairu/playhub/internal/ports"
)

func hashOf(t *testing.T, token string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return string(h)
}

func TestAuthenticate(t *testing.T) {
	r, err := NewRegistry([]Operator{
		{Name: "alice", TokenHash: hashOf(t, "alice.s3cret")},
		{Name: "bob", TokenHash: hashOf(t, "bob.hunter2")},
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ { // second pass hits the verified cache
		if name, err := r.Authenticate("alice.s3cret"); err != nil || name != "alice" {
			t.Fatalf("alice: %q %v", name, err)
		}
	}
	for _, bad := range []string{"", "alice", "alice.wrong", "bob.s3cret", "carol.s3cret", ".s3cret"} {
		if _, err := r.Authenticate(bad); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("token %q accepted: %v", bad, err)
		}
	}
}

func TestRegistryRejectsBadConfig(t *testing.T) {
	cases := [][]Operator{
		{{Name: "", TokenHash: hashOf(t, "x.y")}},
		{{Name: "a.b", TokenHash: hashOf(t, "x.y")}},
		{{Name: "alice", TokenHash: "plaintext"}},
		{{Name: "alice", TokenHash: hashOf(t, "a.1")}, {Name: "alice", TokenHash: hashOf(t, "a.2")}},
	}
	for i, ops := range cases {
		if _, err := NewRegistry(ops); err == nil {
			t.Fatalf("case %d accepted", i)
		}
	}
}

func TestNewToken(t *testing.T) {
	token, hash, err := NewToken("ops")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(token, "ops.") {
		t.Fatalf("token = %s", token)
	}
	r, err := NewRegistry([]Operator{{Name: "ops", TokenHash: hash}})
	if err != nil {
		t.Fatal(err)
	}
	if name, err := r.Authenticate(token); err != nil || name != "ops" {
		t.Fatalf("minted token rejected: %v", err)
	}
	if _, _, err := NewToken(strings.Repeat("n", 60)); err == nil {
		t.Fatalf("overlong name accepted")
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer alice.x":  "alice.x",
		"bearer  alice.x": "alice.x",
		"Basic abc":       "",
		"":                "",
	}
	for in, want := range cases {
		if got := BearerToken(in); got != want {
			t.Fatalf("BearerToken(%q) = %q", in, got)
		}
	}
}

func TestAuthorizer(t *testing.T) {
	dir := t.TempDir()
	model := `[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`
	policy := "p, role:admin, *, *\np, role:viewer, content:*, read\ng, alice, role:admin\ng, bob, role:viewer\n"
	modelPath := filepath.Join(dir, "model.conf")
	policyPath := filepath.Join(dir, "policy.csv")
	_ = os.WriteFile(modelPath, []byte(model), 0o644)
	_ = os.WriteFile(policyPath, []byte(policy), 0o644)

	a, err := NewAuthorizer(modelPath, policyPath, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	games := ContentObject(ports.ContentGames)
	if err := a.Allow("alice", games, ActWrite); err != nil {
		t.Fatalf("admin denied: %v", err)
	}
	if err := a.Allow("alice", ObjCache, ActWrite); err != nil {
		t.Fatalf("admin denied cache: %v", err)
	}
	if err := a.Allow("bob", games, ActRead); err != nil {
		t.Fatalf("viewer read denied: %v", err)
	}
	if err := a.Allow("bob", games, ActWrite); !errors.Is(err, ErrForbidden) {
		t.Fatalf("viewer write allowed: %v", err)
	}
	if err := a.Allow("mallory", games, ActRead); !errors.Is(err, ErrForbidden) {
		t.Fatalf("unknown operator allowed: %v", err)
	}
}

func TestAuthorizerWithoutPolicyAllows(t *testing.T) {
	a, err := NewAuthorizer("", "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Allow("anyone", ObjAds, ActWrite); err != nil {
		t.Fatalf("open authorizer denied: %v", err)
	}
}
