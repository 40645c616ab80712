package adguard

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultAllowDomains are the ad networks trusted out of the box.
var DefaultAllowDomains = []string{
	"googlesyndication.com",
	"googleadservices.com",
	"googletagservices.com",
	"doubleclick.net",
	"adservice.google.com",
	"amazon-adsystem.com",
	"adnxs.com",
}

// dangerPatterns block embedded frames/objects/forms and script-bearing URI schemes.
// They are matched against lowercased content and can only be extended by a policy.
var dangerPatterns = []string{
	"<iframe",
	"<object",
	"<embed",
	"<form",
	"javascript:",
	"data:",
	"vbscript:",
}

// DangerPatterns returns the fixed denylist.
func DangerPatterns() []string { return append([]string{}, dangerPatterns...) }

// Policy configures a Validator. A zero Policy behaves like DefaultPolicy.
type Policy struct {
	// AllowDomains extends DefaultAllowDomains, or replaces it when ReplaceAllow is set.
	AllowDomains []string `yaml:"allow_domains"`
	ReplaceAllow bool     `yaml:"replace_allow"`
	// DenyPatterns extends the fixed danger patterns.
	DenyPatterns []string `yaml:"deny_patterns"`
	// MaxLength may lower MaxContentLength; zero keeps it.
	MaxLength int `yaml:"max_length"`
}

func DefaultPolicy() Policy {
	return Policy{}
}

// LoadPolicy reads a yaml policy file. An empty path yields DefaultPolicy.
func LoadPolicy(path string) (Policy, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPolicy(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read ad policy: %w", err)
	}
	var p Policy
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Policy{}, fmt.Errorf("parse ad policy %s: %w", path, err)
	}
	if p.ReplaceAllow && len(dedupe(p.AllowDomains, false)) == 0 {
		return Policy{}, fmt.Errorf("ad policy %s: replace_allow requires allow_domains", path)
	}
	if p.MaxLength < 0 {
		return Policy{}, fmt.Errorf("ad policy %s: max_length must not be negative", path)
	}
	return p, nil
}

// normalized resolves the effective lists: allow domains keep their case (the allowlist
// match is case-sensitive), deny patterns are lowercased.
func (p Policy) normalized() Policy {
	var allow []string
	if !p.ReplaceAllow {
		allow = append(allow, DefaultAllowDomains...)
	}
	allow = append(allow, p.AllowDomains...)
	deny := append(append([]string{}, dangerPatterns...), p.DenyPatterns...)
	maxLen := MaxContentLength
	if p.MaxLength > 0 && p.MaxLength < maxLen {
		maxLen = p.MaxLength
	}
	return Policy{
		AllowDomains: dedupe(allow, false),
		ReplaceAllow: p.ReplaceAllow,
		DenyPatterns: dedupe(deny, true),
		MaxLength:    maxLen,
	}
}

func dedupe(in []string, lower bool) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if lower {
			s = strings.ToLower(s)
		}
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
