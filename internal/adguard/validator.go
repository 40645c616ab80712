// Package adguard decides whether operator-supplied ad markup may be injected into a
// public page.
//
// The checks are a coarse allowlist/denylist heuristic, not an HTML sanitizer and not a
// security boundary against a determined attacker: markup that names a trusted ad network
// anywhere (even as a decoy) passes the provenance rule. The write path for snippets is
// operator-only; the validator exists to catch mistakes and known-bad vectors. It never
// rewrites or strips content: a snippet is served byte-for-byte or not at all.
package adguard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/cuihairu/playhub/internal/ports"
	"github.com/cuihairu/playhub/internal/telemetry"
)

// MaxContentLength bounds a snippet, in characters.
const MaxContentLength = 10000

// Reason names the rule that rejected a snippet.
type Reason string

const (
	ReasonEmpty           Reason = "empty"
	ReasonTooLong         Reason = "too_long"
	ReasonNoTrustedDomain Reason = "no_trusted_domain"
	ReasonDangerPattern   Reason = "danger_pattern"
)

// Verdict is the outcome of validating one snippet. An approved verdict carries the
// input unchanged in Content; a rejected one carries Reason and a Detail for operators.
type Verdict struct {
	Approved bool   `json:"approved"`
	Content  string `json:"-"`
	Reason   Reason `json:"reason,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// Err returns nil for approvals and a *RejectedError otherwise.
func (v Verdict) Err() error {
	if v.Approved {
		return nil
	}
	return &RejectedError{Reason: v.Reason, Detail: v.Detail}
}

// RejectedError reports a failed validation.
type RejectedError struct {
	Reason Reason
	Detail string
}

func (e *RejectedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("ad rejected: %s", e.Reason)
	}
	return fmt.Sprintf("ad rejected: %s (%s)", e.Reason, e.Detail)
}

// Checker is satisfied by *Validator and *Memo.
type Checker interface {
	Validate(placement ports.Placement, html string) Verdict
}

// Validator applies the size, allowlist and denylist rules in that order and stops at the
// first failure. It holds no mutable state and is safe for concurrent use.
type Validator struct {
	allow   []string
	deny    []string
	maxLen  int
	logger  *slog.Logger
	metrics *telemetry.ContentMetrics
}

type Option func(*Validator)

func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) {
		if l != nil {
			v.logger = l
		}
	}
}

func WithMetrics(m *telemetry.ContentMetrics) Option {
	return func(v *Validator) { v.metrics = m }
}

// New builds a Validator from a policy. The fixed danger patterns always apply and the
// length bound never exceeds MaxContentLength, whatever the policy says.
func New(p Policy, opts ...Option) *Validator {
	p = p.normalized()
	v := &Validator{
		allow:  p.AllowDomains,
		deny:   p.DenyPatterns,
		maxLen: p.MaxLength,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// NewDefault builds a Validator with DefaultPolicy.
func NewDefault(opts ...Option) *Validator { return New(DefaultPolicy(), opts...) }

// AllowDomains returns a copy of the trusted domain substrings.
func (v *Validator) AllowDomains() []string { return append([]string{}, v.allow...) }

// DenyPatterns returns a copy of the lowercased danger patterns.
func (v *Validator) DenyPatterns() []string { return append([]string{}, v.deny...) }

// Validate checks html for the given placement.
func (v *Validator) Validate(placement ports.Placement, html string) Verdict {
	vd := v.evaluate(html)
	if vd.Approved {
		vd.Content = html
		v.metrics.AdVerdict(context.Background(), string(placement), "approved")
		return vd
	}
	v.logger.Warn("ad snippet rejected",
		"placement", string(placement),
		"reason", string(vd.Reason),
		"detail", vd.Detail,
	)
	v.metrics.AdVerdict(context.Background(), string(placement), string(vd.Reason))
	return vd
}

func (v *Validator) evaluate(html string) Verdict {
	if html == "" {
		return Verdict{Reason: ReasonEmpty}
	}
	// cheap byte bound first; a string of n bytes has at most n runes
	if len(html) > v.maxLen {
		if n := utf8.RuneCountInString(html); n > v.maxLen {
			return Verdict{Reason: ReasonTooLong, Detail: fmt.Sprintf("%d > %d characters", n, v.maxLen)}
		}
	}
	trusted := false
	for _, d := range v.allow {
		if strings.Contains(html, d) {
			trusted = true
			break
		}
	}
	if !trusted {
		return Verdict{Reason: ReasonNoTrustedDomain, Detail: "none of " + strings.Join(v.allow, ", ")}
	}
	lower := strings.ToLower(html)
	for _, p := range v.deny {
		if strings.Contains(lower, p) {
			return Verdict{Reason: ReasonDangerPattern, Detail: p}
		}
	}
	return Verdict{Approved: true}
}
