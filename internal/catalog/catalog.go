// Package catalog resolves application identifiers to the analytical tables
// that hold their event data.
package catalog

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	"event-feed/internal/domain"
)

// appIDPattern accepts package-style identifiers: a 2-3 letter TLD segment
// followed by one or more dot-separated alphanumeric segments.
var appIDPattern = regexp.MustCompile(`(?i)^[a-z]{2,3}(\.[a-z0-9]+)+$`)

// TableRef identifies one analytical table.
type TableRef struct {
	Project string `yaml:"project"`
	Dataset string `yaml:"dataset"`
	Table   string `yaml:"table"`
}

// FQN returns the fully-qualified "project.dataset.table" name.
func (r TableRef) FQN() string {
	return fmt.Sprintf("%s.%s.%s", r.Project, r.Dataset, r.Table)
}

// Resolver maps app ids to table references. The mapping is loaded once at
// startup and read-only afterwards.
type Resolver struct {
	entries map[string]TableRef
}

// NewResolver creates a Resolver from an explicit mapping.
func NewResolver(entries map[string]TableRef) *Resolver {
	return &Resolver{entries: entries}
}

// Load reads a YAML table map file: a mapping of app id to
// {project, dataset, table}.
func Load(path string) (*Resolver, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path is operator-controlled
	if err != nil {
		return nil, fmt.Errorf("read table map %s: %w", path, err)
	}
	var entries map[string]TableRef
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse table map %s: %w", path, err)
	}
	for id, ref := range entries {
		if ref.Project == "" || ref.Dataset == "" || ref.Table == "" {
			return nil, fmt.Errorf("table map entry %q is incomplete", id)
		}
	}
	return &Resolver{entries: entries}, nil
}

// Resolve validates the app id format and returns the table holding its
// events. A format failure is a ValidationError; an unknown id is a
// NotFoundError. The two are deliberately distinct: callers map them to 400
// and 404 respectively.
func (r *Resolver) Resolve(appID string) (TableRef, error) {
	if !appIDPattern.MatchString(appID) {
		return TableRef{}, domain.ErrValidation("cannot parse app id: %q. Check formatting and try again", appID)
	}
	ref, ok := r.entries[appID]
	if !ok {
		return TableRef{}, domain.ErrNotFound("could not find a table for app id: %q", appID)
	}
	return ref, nil
}

// AppIDs returns the known app ids in sorted order.
func (r *Resolver) AppIDs() []string {
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
