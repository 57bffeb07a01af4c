package prompt

import (
	"embed"
	"strings"
)

//go:embed prompts/*.md
var defaultPromptsFS embed.FS

// Slugs of the built-in prompts.
const (
	SlugRisk             = "risk-assessment"
	SlugCredibility      = "credibility-assessment"
	SlugNarrative        = "structural-narrative"
	SlugContradiction    = "contradiction-check"
	SlugExecutiveSummary = "executive-summary"
)

// AgentSlugs lists the prompts the analysis pipeline depends on.
func AgentSlugs() []string {
	return []string{SlugRisk, SlugCredibility, SlugNarrative, SlugContradiction, SlugExecutiveSummary}
}

// LoadDefaults loads the embedded prompt set.
func LoadDefaults() ([]*Prompt, error) {
	return loadFS(defaultPromptsFS, "prompts", "builtin")
}

// DefaultRegistry builds a registry from embedded prompts, with prompts from
// overrideDir (if non-empty) replacing built-ins that share a slug.
func DefaultRegistry(overrideDir string) (Registry, error) {
	prompts, err := LoadDefaults()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(overrideDir) != "" {
		overrides, err := LoadFromDir(overrideDir)
		if err != nil {
			return nil, err
		}
		prompts = mergeBySlug(prompts, overrides)
	}
	reg, err := NewRegistry(prompts)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func mergeBySlug(base, overrides []*Prompt) []*Prompt {
	index := make(map[string]int, len(base))
	merged := append([]*Prompt(nil), base...)
	for i, p := range merged {
		index[p.Config.Slug] = i
	}
	for _, p := range overrides {
		if i, ok := index[p.Config.Slug]; ok {
			merged[i] = p
			continue
		}
		index[p.Config.Slug] = len(merged)
		merged = append(merged, p)
	}
	return merged
}
