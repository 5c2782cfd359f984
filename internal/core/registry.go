package core

import (
	"fmt"
	"sort"
	"strings"
)

// Catalog holds the mapping sets of every known form, keyed by form title
// (case-insensitive). It is built once and never modified.
type Catalog struct {
	sets map[string]MappingSet
}

// NewCatalog validates each set and rejects duplicate form titles.
func NewCatalog(sets ...MappingSet) (*Catalog, error) {
	c := &Catalog{sets: make(map[string]MappingSet, len(sets))}
	for _, s := range sets {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		key := catalogKey(s.FormTitle)
		if _, exists := c.sets[key]; exists {
			return nil, fmt.Errorf("mapping already registered: %s", s.FormTitle)
		}
		c.sets[key] = s
	}
	return c, nil
}

// MustCatalog is NewCatalog that panics on error. Use it for
// compiled-in mapping tables.
func MustCatalog(sets ...MappingSet) *Catalog {
	c, err := NewCatalog(sets...)
	if err != nil {
		panic(err)
	}
	return c
}

func catalogKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// Lookup returns the mapping set for a form title.
func (c *Catalog) Lookup(formTitle string) (MappingSet, error) {
	if c != nil {
		if s, ok := c.sets[catalogKey(formTitle)]; ok {
			return s, nil
		}
	}
	return MappingSet{}, fmt.Errorf("%w: %q", ErrMappingNotFound, formTitle)
}

// Titles returns the registered form titles, sorted.
func (c *Catalog) Titles() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.sets))
	for _, s := range c.sets {
		out = append(out, s.FormTitle)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered forms.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.sets)
}
