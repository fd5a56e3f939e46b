// Package skills loads the skill documents that make up the injection
// corpus, either from Markdown files with YAML front matter or from
// PostgreSQL.
package skills

import (
	"context"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/indexer/index"
)

// Skill is one injectable knowledge document.
type Skill struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Keywords    []string `json:"keywords,omitempty" yaml:"keywords"`
	Content     string   `json:"content,omitempty" yaml:"-"`
	SourceFile  string   `json:"source_file,omitempty" yaml:"-"`
}

// Body is the text indexed for ranking: the description followed by the
// instructional content.
func (s Skill) Body() string {
	switch {
	case s.Description == "":
		return s.Content
	case s.Content == "":
		return s.Description
	default:
		return s.Description + "\n\n" + s.Content
	}
}

// Source yields the current set of skills.
type Source interface {
	ListSkills(ctx context.Context) ([]Skill, error)
}

// Entries converts skills into index entries, preserving order.
func Entries(list []Skill) []index.Entry {
	entries := make([]index.Entry, 0, len(list))
	for _, s := range list {
		entries = append(entries, index.Entry{Name: s.Name, Body: s.Body()})
	}
	return entries
}

// KeywordMap collects the alias keywords of every skill that has any.
func KeywordMap(list []Skill) map[string][]string {
	kw := make(map[string][]string)
	for _, s := range list {
		if len(s.Keywords) == 0 {
			continue
		}
		if _, seen := kw[s.Name]; seen {
			continue
		}
		kw[s.Name] = append([]string(nil), s.Keywords...)
	}
	return kw
}

func normalizeName(name string) string {
	return strings.TrimSpace(name)
}
