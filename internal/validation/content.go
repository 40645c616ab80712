// Package validation checks content documents against the JSON schema of their key
// before they reach a store.
package validation

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/cuihairu/playhub/internal/ports"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// ErrInvalid matches every *ValidationError.
var ErrInvalid = errors.New("invalid content document")

// ValidationError lists every problem found in one document.
type ValidationError struct {
	Key      ports.ContentKey
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Key, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

// Validator holds one compiled schema per content key.
type Validator struct {
	schemas map[ports.ContentKey]*gojsonschema.Schema
}

// New compiles the embedded schemas.
func New() (*Validator, error) {
	v := &Validator{schemas: map[ports.ContentKey]*gojsonschema.Schema{}}
	for _, key := range ports.ContentKeys() {
		data, err := schemaFS.ReadFile("schemas/" + string(key) + ".json")
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", key, err)
		}
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", key, err)
		}
		v.schemas[key] = s
	}
	return v, nil
}

// Schema returns the raw schema for key.
func Schema(key ports.ContentKey) ([]byte, error) {
	if _, err := ports.ParseContentKey(string(key)); err != nil {
		return nil, err
	}
	return schemaFS.ReadFile("schemas/" + string(key) + ".json")
}

// Validate checks doc against the schema of key, then checks that ids and slugs are
// unique within the document.
func (v *Validator) Validate(key ports.ContentKey, doc []byte) error {
	s, ok := v.schemas[key]
	if !ok {
		return fmt.Errorf("%w: %q", ports.ErrUnknownKey, key)
	}
	if !json.Valid(doc) {
		return &ValidationError{Key: key, Problems: []string{"document is not valid JSON"}}
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return &ValidationError{Key: key, Problems: []string{err.Error()}}
	}
	var problems []string
	for _, e := range res.Errors() {
		problems = append(problems, e.String())
	}
	if len(problems) == 0 {
		problems = duplicates(key, doc)
	}
	if len(problems) > 0 {
		return &ValidationError{Key: key, Problems: problems}
	}
	return nil
}

type identified struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
}

func duplicates(key ports.ContentKey, doc []byte) []string {
	var items []identified
	switch key {
	case ports.ContentGames:
		var d struct {
			Games []identified `json:"games"`
		}
		_ = json.Unmarshal(doc, &d)
		items = d.Games
	case ports.ContentCategories:
		var d struct {
			Categories []identified `json:"categories"`
		}
		_ = json.Unmarshal(doc, &d)
		items = d.Categories
	case ports.ContentAds:
		var d struct {
			Ads []identified `json:"ads"`
		}
		_ = json.Unmarshal(doc, &d)
		items = d.Ads
	default:
		return nil
	}
	var problems []string
	ids, slugs := map[string]bool{}, map[string]bool{}
	for i, it := range items {
		if ids[it.ID] {
			problems = append(problems, fmt.Sprintf("%s.%d: duplicate id %q", key, i, it.ID))
		}
		ids[it.ID] = true
		if it.Slug == "" {
			continue
		}
		if slugs[it.Slug] {
			problems = append(problems, fmt.Sprintf("%s.%d: duplicate slug %q", key, i, it.Slug))
		}
		slugs[it.Slug] = true
	}
	return problems
}
