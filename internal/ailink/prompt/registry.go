package prompt

import (
	"fmt"
	"sort"
	"strings"
)

// Registry looks up prompt definitions by slug.
type Registry interface {
	Get(slug string) (*Prompt, error)
	List() []*Prompt
}

// MapRegistry is a Registry backed by a slug-keyed map.
type MapRegistry map[string]*Prompt

// NewRegistry indexes prompts by slug, rejecting blanks and duplicates.
func NewRegistry(prompts []*Prompt) (MapRegistry, error) {
	reg := make(MapRegistry, len(prompts))
	for _, p := range prompts {
		if p == nil {
			continue
		}
		slug := strings.TrimSpace(p.Config.Slug)
		if slug == "" {
			return nil, fmt.Errorf("prompt missing slug")
		}
		if _, dup := reg[slug]; dup {
			return nil, fmt.Errorf("duplicate prompt slug: %s", slug)
		}
		reg[slug] = p
	}
	return reg, nil
}

func (r MapRegistry) Get(slug string) (*Prompt, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("prompt slug is required")
	}
	p, ok := r[slug]
	if !ok {
		return nil, fmt.Errorf("prompt %q not found", slug)
	}
	return p, nil
}

// List returns prompts sorted by slug.
func (r MapRegistry) List() []*Prompt {
	slugs := make([]string, 0, len(r))
	for slug := range r {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	out := make([]*Prompt, 0, len(slugs))
	for _, slug := range slugs {
		out = append(out, r[slug])
	}
	return out
}

// Require reports the first agent prompt missing from reg.
func Require(reg Registry, slugs ...string) error {
	if len(slugs) == 0 {
		slugs = AgentSlugs()
	}
	for _, slug := range slugs {
		if _, err := reg.Get(slug); err != nil {
			return err
		}
	}
	return nil
}
