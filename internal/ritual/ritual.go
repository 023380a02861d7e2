package ritual

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/codecraft/internal/ir"
)

// BuiltinSource is the CUE source of the built-in catalog.
//
//go:embed rituals.cue
var BuiltinSource []byte

// BuiltinFilename names BuiltinSource in compile diagnostics.
const BuiltinFilename = "rituals.cue"

// ErrUnknownRitual is returned by Lookup for names not in the catalog.
var ErrUnknownRitual = errors.New("unknown ritual")

// Template is a named ritual text.
type Template struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Text        string `json:"text"`
}

// Catalog is an ordered set of templates keyed by name.
//
// Thread-safety: a Catalog is read-only after construction and safe for
// concurrent use.
type Catalog struct {
	templates []Template
	byName    map[string]int
}

// NewCatalog builds a catalog preserving the given order.
// Returns an error if two templates share a name.
func NewCatalog(templates ...Template) (*Catalog, error) {
	c := &Catalog{
		templates: make([]Template, 0, len(templates)),
		byName:    make(map[string]int, len(templates)),
	}
	for _, t := range templates {
		if _, dup := c.byName[t.Name]; dup {
			return nil, fmt.Errorf("duplicate ritual %q", t.Name)
		}
		c.byName[t.Name] = len(c.templates)
		c.templates = append(c.templates, t)
	}
	return c, nil
}

// Lookup returns the template registered under name.
// The error wraps ErrUnknownRitual when name is absent.
func (c *Catalog) Lookup(name string) (Template, error) {
	i, ok := c.byName[name]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s", ErrUnknownRitual, name)
	}
	return c.templates[i], nil
}

// Templates returns the templates in catalog order.
func (c *Catalog) Templates() []Template {
	return slices.Clone(c.templates)
}

// Names returns the template names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.templates))
	for i, t := range c.templates {
		names[i] = t.Name
	}
	return names
}

// Len returns the number of templates.
func (c *Catalog) Len() int { return len(c.templates) }

// Render substitutes every "$key" in text with the JSON rendering of
// params[key]. Longer keys are substituted first so "$event" never
// rewrites the prefix of "$events"; ties are broken lexically.
// Placeholders without a parameter are left as they are.
//
// Substitution is a single pass over text: a placeholder that appears inside
// a substituted value is never expanded again, whatever the key order.
func Render(text string, params ir.Object) (string, error) {
	if len(params) == 0 {
		return text, nil
	}

	keys := params.SortedKeys()
	slices.SortStableFunc(keys, func(a, b string) int {
		return len(b) - len(a)
	})

	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		rendered, err := ir.MarshalValue(params[k])
		if err != nil {
			return "", fmt.Errorf("render parameter %q: %w", k, err)
		}
		pairs = append(pairs, "$"+k, string(rendered))
	}
	return strings.NewReplacer(pairs...).Replace(text), nil
}
