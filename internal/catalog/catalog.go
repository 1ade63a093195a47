// Package catalog holds the list of showcased projects and matches free text
// (a chat query or history message) against it.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sakif/portfolio-api/internal/model"
)

type fileConfig struct {
	Projects []model.Project `yaml:"projects"`
}

// Catalog is immutable after Load and safe for concurrent use.
type Catalog struct {
	projects []model.Project
}

// New builds a catalog from an in-memory list. Entries without a name are
// dropped.
func New(projects []model.Project) *Catalog {
	c := &Catalog{}
	for _, p := range projects {
		p.Name = strings.TrimSpace(p.Name)
		p.Owner = strings.TrimSpace(p.Owner)
		p.Repo = strings.TrimSpace(p.Repo)
		if p.Name == "" {
			continue
		}
		c.projects = append(c.projects, p)
	}
	return c
}

// Load reads a YAML file of the form:
//
//	projects:
//	  - name: Quiz Master App
//	    owner: 23f2001281
//	    repo: Quiz-Master-App-V2
//
// A missing file yields an empty catalog and no error; detection then never
// matches.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: reading %s: %w", path, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("catalog: parsing %s: %w", path, err)
	}
	return New(cfg.Projects), nil
}

func (c *Catalog) Len() int { return len(c.projects) }

// Match returns the first project whose normalized name, or normalized repo
// name, occurs in the normalized text.
func (c *Catalog) Match(text string) (model.Project, bool) {
	q := normalize(text)
	if q == "" {
		return model.Project{}, false
	}
	for _, p := range c.projects {
		if strings.Contains(q, normalize(p.Name)) {
			return p, true
		}
		if repo := normalize(p.Repo); repo != "" && strings.Contains(q, repo) {
			return p, true
		}
	}
	return model.Project{}, false
}

// Detect looks in the query first, then walks history from newest to oldest.
func (c *Catalog) Detect(query string, history []model.ChatMessage) (model.Project, bool) {
	if p, ok := c.Match(query); ok {
		return p, true
	}
	for i := len(history) - 1; i >= 0; i-- {
		if p, ok := c.Match(history[i].Text); ok {
			return p, true
		}
	}
	return model.Project{}, false
}

// normalize lower-cases, collapses runs of whitespace to one space and trims.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
