// Package richtext cleans operator-authored HTML (game and category descriptions)
// before it is served. Ad snippets never pass through here; they are accepted or
// rejected whole by the ad validator.
package richtext

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer is safe for concurrent use once built.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// New allows the UGC element set; links get rel="nofollow noopener" and open in a new
// tab.
func New() *Sanitizer {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnFullyQualifiedLinks(true)
	p.AllowURLSchemes("http", "https", "mailto")
	return &Sanitizer{policy: p}
}

// HTML returns s with disallowed markup removed.
func (s *Sanitizer) HTML(in string) string {
	if strings.TrimSpace(in) == "" {
		return ""
	}
	return s.policy.Sanitize(in)
}

// Plain strips every tag, for places that render text only (titles, meta text).
func Plain(in string) string {
	return strings.TrimSpace(bluemonday.StrictPolicy().Sanitize(in))
}
