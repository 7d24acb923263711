// Package model defines the core golf data types and wire records.
package model

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/hole-sync/internal/metric"
)

// DefaultFallback is the language used when a selection names an unknown one.
const DefaultFallback = "python"

// Language is a registry entry.
type Language struct {
	ID      string          `json:"id" yaml:"id"`
	Name    string          `json:"name" yaml:"name"`
	Example string          `json:"example" yaml:"example"`
	Metrics []metric.Metric `json:"-" yaml:"-"`
}

// SupportsMetric reports whether the language is scored under m.
func (l Language) SupportsMetric(m metric.Metric) bool {
	return slices.Contains(l.Metrics, m)
}

// BytesOnly reports whether Chars scoring is unavailable.
func (l Language) BytesOnly() bool {
	return !l.SupportsMetric(metric.Chars)
}

// Registry is an immutable set of languages.
type Registry struct {
	langs    map[string]Language
	fallback string
}

// NewRegistry builds a registry. The fallback language must be present.
// Language ids are part of draft keys, so they may not contain '_'. Every
// language is scored in bytes; chars scoring is optional.
func NewRegistry(langs []Language, fallback string) (*Registry, error) {
	if fallback == "" {
		fallback = DefaultFallback
	}
	r := &Registry{langs: make(map[string]Language, len(langs)), fallback: fallback}
	for _, l := range langs {
		if l.ID == "" {
			return nil, fmt.Errorf("language with empty id")
		}
		if strings.Contains(l.ID, "_") {
			return nil, fmt.Errorf("language %q: id may not contain '_'", l.ID)
		}
		if len(l.Metrics) == 0 {
			l.Metrics = metric.All[:]
		}
		if !l.SupportsMetric(metric.Bytes) {
			return nil, fmt.Errorf("language %q: bytes scoring is required", l.ID)
		}
		if l.Name == "" {
			l.Name = l.ID
		}
		r.langs[l.ID] = l
	}
	if _, ok := r.langs[fallback]; !ok {
		return nil, fmt.Errorf("fallback language %q not in registry", fallback)
	}
	return r, nil
}

// Lookup returns the language with the given id.
func (r *Registry) Lookup(id string) (Language, bool) {
	l, ok := r.langs[id]
	return l, ok
}

// Resolve returns the language for id, or the fallback language when id is
// empty or unknown.
func (r *Registry) Resolve(id string) Language {
	if l, ok := r.langs[id]; ok {
		return l
	}
	return r.langs[r.fallback]
}

// Fallback returns the fallback language id.
func (r *Registry) Fallback() string { return r.fallback }

// Sorted returns every language ordered by name.
func (r *Registry) Sorted() []Language {
	out := make([]Language, 0, len(r.langs))
	for _, l := range r.langs {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// DefaultRegistry returns the built-in language set.
func DefaultRegistry() *Registry {
	r, _ := NewRegistry([]Language{
		{ID: "assembly", Name: "Assembly", Example: "SYS_WRITE = 1\nmov $SYS_WRITE, %eax\n", Metrics: []metric.Metric{metric.Bytes}},
		{ID: "bash", Name: "Bash", Example: "echo Hello, World!\n"},
		{ID: "go", Name: "Go", Example: "package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(\"Hello, World!\")\n}\n"},
		{ID: "javascript", Name: "JavaScript", Example: "print('Hello, World!');\n"},
		{ID: "perl", Name: "Perl", Example: "say 'Hello, World!';\n"},
		{ID: "python", Name: "Python", Example: "print('Hello, World!')\n"},
		{ID: "ruby", Name: "Ruby", Example: "puts 'Hello, World!'\n"},
	}, DefaultFallback)
	return r
}

type registryFile struct {
	Fallback  string `yaml:"fallback"`
	Languages []struct {
		ID      string   `yaml:"id"`
		Name    string   `yaml:"name"`
		Example string   `yaml:"example"`
		Metrics []string `yaml:"metrics"`
	} `yaml:"languages"`
}

// LoadRegistry reads a YAML registry file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}

	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}

	langs := make([]Language, 0, len(f.Languages))
	for _, fl := range f.Languages {
		l := Language{ID: fl.ID, Name: fl.Name, Example: fl.Example}
		for _, s := range fl.Metrics {
			m, err := metric.Parse(s)
			if err != nil {
				return nil, fmt.Errorf("language %s: %w", fl.ID, err)
			}
			if !slices.Contains(l.Metrics, m) {
				l.Metrics = append(l.Metrics, m)
			}
		}
		slices.Sort(l.Metrics)
		langs = append(langs, l)
	}
	return NewRegistry(langs, f.Fallback)
}
