package skills

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// skillFileName is the file looked up inside a per-skill directory.
const skillFileName = "SKILL.md"

// LoadResult summarizes a directory load operation.
type LoadResult struct {
	Loaded int
	Errors []LoadError
}

// LoadError records a per-file parse or validation error.
type LoadError struct {
	File    string
	Message string
}

// Loader parses Markdown skill files.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a Loader. A nil logger uses the default one.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger.With("component", "skill-loader")}
}

// LoadDir reads every *.md file directly inside dir and every
// <dir>/<name>/SKILL.md. Skills are returned sorted by name. Per-file
// failures are recorded in the LoadResult; an error is returned only when
// dir itself cannot be read.
func (l *Loader) LoadDir(dir string) ([]Skill, *LoadResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading skills directory %s: %w", dir, err)
	}

	result := &LoadResult{}
	byName := make(map[string]string)
	var list []Skill

	for _, entry := range entries {
		var path, stem string
		switch {
		case entry.IsDir():
			path = filepath.Join(dir, entry.Name(), skillFileName)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			stem = entry.Name()
		case strings.HasSuffix(entry.Name(), ".md"):
			path = filepath.Join(dir, entry.Name())
			stem = strings.TrimSuffix(entry.Name(), ".md")
		default:
			continue
		}

		skill, err := l.ParseFile(path, stem)
		if err != nil {
			l.logger.Warn("skill parse error", "file", path, "error", err)
			result.Errors = append(result.Errors, LoadError{File: path, Message: err.Error()})
			continue
		}
		if first, dup := byName[skill.Name]; dup {
			msg := fmt.Sprintf("duplicate skill name %q (first defined in %s)", skill.Name, first)
			l.logger.Warn("skill validation error", "file", path, "skill", skill.Name, "error", msg)
			result.Errors = append(result.Errors, LoadError{File: path, Message: msg})
			continue
		}
		byName[skill.Name] = path
		list = append(list, *skill)
		result.Loaded++
	}

	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	l.logger.Info("skills loaded",
		"dir", dir,
		"loaded", result.Loaded,
		"errors", len(result.Errors),
	)
	return list, result, nil
}

// ParseFile reads one skill file. Front matter is optional; when the name
// is missing from it, stem is used.
func (l *Loader) ParseFile(path, stem string) (*Skill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	skill, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if skill.Name == "" {
		skill.Name = normalizeName(stem)
	}
	if skill.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	skill.SourceFile = path
	return skill, nil
}

// Parse splits a Markdown document into YAML front matter and body.
func Parse(data []byte) (*Skill, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	skill := &Skill{}
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading skill: %w", err)
		}
		return nil, fmt.Errorf("empty file")
	}

	var bodyLines []string
	if strings.TrimSpace(scanner.Text()) == "---" {
		var fm []string
		closed := false
		for scanner.Scan() {
			line := scanner.Text()
			if strings.TrimSpace(line) == "---" {
				closed = true
				break
			}
			fm = append(fm, line)
		}
		if !closed {
			return nil, fmt.Errorf("unclosed YAML front matter (missing closing ---)")
		}
		if err := yaml.Unmarshal([]byte(strings.Join(fm, "\n")), skill); err != nil {
			return nil, fmt.Errorf("parsing YAML front matter: %w", err)
		}
	} else {
		bodyLines = append(bodyLines, scanner.Text())
	}

	for scanner.Scan() {
		bodyLines = append(bodyLines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading skill: %w", err)
	}

	skill.Name = normalizeName(skill.Name)
	skill.Description = strings.TrimSpace(skill.Description)
	skill.Content = strings.TrimSpace(strings.Join(bodyLines, "\n"))
	return skill, nil
}

// DirSource serves skills from a directory, re-reading it on every call.
type DirSource struct {
	loader *Loader
	dir    string
}

// NewDirSource creates a Source backed by dir.
func NewDirSource(loader *Loader, dir string) *DirSource {
	return &DirSource{loader: loader, dir: dir}
}

// ListSkills loads the directory. Per-file errors are logged by the loader
// and do not fail the call.
func (d *DirSource) ListSkills(ctx context.Context) ([]Skill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	list, _, err := d.loader.LoadDir(d.dir)
	return list, err
}
