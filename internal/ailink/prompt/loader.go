package prompt

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Load parses a prompt file: YAML frontmatter between "---" lines, then a
// Markdown body used as the system template unless system_template is set.
// A file without frontmatter is read as plain YAML.
func Load(source string, data []byte) (*Prompt, error) {
	text := strings.TrimSpace(strings.ReplaceAll(string(data), "\r\n", "\n"))
	if text == "" {
		return nil, fmt.Errorf("parse prompt %s: empty prompt", source)
	}

	front, body, hasFront := splitFrontmatter(text)
	if !hasFront {
		front, body = text, ""
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(front), &cfg); err != nil {
		return nil, fmt.Errorf("parse prompt %s: invalid frontmatter: %w", source, err)
	}
	if strings.TrimSpace(cfg.SystemTemplate) == "" {
		cfg.SystemTemplate = strings.TrimSpace(body)
	}
	if cfg.SystemTemplate == "" {
		return nil, fmt.Errorf("prompt %s missing system_template", source)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate prompt %s: %w", source, err)
	}
	return &Prompt{Config: cfg, Source: source}, nil
}

func splitFrontmatter(text string) (front, body string, ok bool) {
	lines := strings.Split(text, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", text, false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[1:i], "\n"), strings.Join(lines[i+1:], "\n"), true
		}
	}
	return strings.Join(lines[1:], "\n"), "", true
}

// LoadFromDir loads every *.md prompt in dir.
func LoadFromDir(dir string) ([]*Prompt, error) {
	return loadFS(os.DirFS(dir), ".", dir)
}

// loadFS loads the *.md files under root of fsys in name order. label
// prefixes the Source of each prompt.
func loadFS(fsys fs.FS, root, label string) ([]*Prompt, error) {
	matches, err := fs.Glob(fsys, path.Join(root, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("scan prompts in %s: %w", label, err)
	}

	prompts := make([]*Prompt, 0, len(matches))
	for _, name := range matches {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read prompt %s: %w", name, err)
		}
		p, err := Load(path.Join(label, path.Base(name)), data)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, p)
	}
	return prompts, nil
}

func validateConfig(cfg Config) error {
	if !slugPattern.MatchString(cfg.Slug) {
		return fmt.Errorf("slug %q must be lowercase kebab-case", cfg.Slug)
	}
	if f := cfg.Response.Format; f != "" && f != "text" && f != "json" {
		return fmt.Errorf("response.format %q must be json or text", f)
	}
	if t := cfg.Response.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("response.temperature %.2f out of range [0,2]", *t)
	}
	if m := cfg.Response.MaxTokens; m != nil && *m <= 0 {
		return fmt.Errorf("response.max_tokens must be positive")
	}
	return nil
}
