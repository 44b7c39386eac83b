// Package catalog loads the set of reservable GPU resources.
//
// A catalog is a CUE or YAML document with a top-level "resources" map keyed
// by resource id. Both formats are checked against the embedded CUE schema,
// so defaults (kind "gpu", one GPU, enabled) and constraints apply the same
// way regardless of the source format.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSrc string

// Resource is one reservable unit.
type Resource struct {
	ID       string            `json:"-" yaml:"-"`
	Kind     string            `json:"kind,omitempty" yaml:"kind,omitempty"`
	Model    string            `json:"model,omitempty" yaml:"model,omitempty"`
	GPUs     int               `json:"gpus,omitempty" yaml:"gpus,omitempty"`
	Host     string            `json:"host,omitempty" yaml:"host,omitempty"`
	Disabled bool              `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Labels   map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// Catalog is an immutable set of resources.
//
// Thread-safety: a Catalog is read-only after construction and safe for
// concurrent use.
type Catalog struct {
	resources map[string]Resource
}

// LoadError reports an invalid catalog document with its source position
// when one is known.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads a catalog from a .cue, .yaml or .yml file.
func Load(path string) (*Catalog, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(path, src)
}

// Parse decodes a catalog document. The filename extension selects the
// format and is used in error positions.
func Parse(filename string, src []byte) (*Catalog, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("catalog schema: %w", err)
	}

	var doc cue.Value
	switch ext := filepath.Ext(filename); ext {
	case ".cue":
		doc = ctx.CompileBytes(src, cue.Filename(filename))
	case ".yaml", ".yml":
		raw, err := decodeYAML(src)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		doc = ctx.Encode(raw)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q: use .cue, .yaml or .yml", ext)
	}
	if err := doc.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := schema.Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	if !doc.LookupPath(cue.ParsePath("resources")).Exists() {
		return nil, &LoadError{
			Field:   "resources",
			Message: "resources is required",
			Pos:     doc.Pos(),
		}
	}

	iter, err := v.LookupPath(cue.ParsePath("resources")).Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	c := &Catalog{resources: make(map[string]Resource)}
	for iter.Next() {
		var r Resource
		if err := iter.Value().Decode(&r); err != nil {
			return nil, formatCUEError(err)
		}
		r.ID = iter.Label()
		c.resources[r.ID] = r
	}
	return c, nil
}

// yamlFile is the YAML catalog layout. Unknown top-level keys are rejected.
type yamlFile struct {
	Resources map[string]Resource `yaml:"resources" json:"resources"`
}

func decodeYAML(src []byte) (yamlFile, error) {
	var f yamlFile
	dec := yaml.NewDecoder(bytes.NewReader(src))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return yamlFile{}, fmt.Errorf("decode yaml catalog: %w", err)
	}
	if f.Resources == nil {
		return yamlFile{}, &LoadError{Field: "resources", Message: "resources is required"}
	}
	return f, nil
}

// FromResources builds a catalog directly. Zero-valued fields get the same
// defaults the schema applies.
func FromResources(resources ...Resource) *Catalog {
	c := &Catalog{resources: make(map[string]Resource, len(resources))}
	for _, r := range resources {
		if r.Kind == "" {
			r.Kind = "gpu"
		}
		if r.GPUs == 0 {
			r.GPUs = 1
		}
		c.resources[r.ID] = r
	}
	return c
}

// Exists reports whether id names an enabled resource.
func (c *Catalog) Exists(id string) bool {
	r, ok := c.resources[id]
	return ok && !r.Disabled
}

// Lookup returns the resource with the given id, enabled or not.
func (c *Catalog) Lookup(id string) (Resource, bool) {
	r, ok := c.resources[id]
	return r, ok
}

// IDs returns every resource id in sorted order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.resources))
	for id := range c.resources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resources returns every resource sorted by id.
func (c *Catalog) Resources() []Resource {
	out := make([]Resource, 0, len(c.resources))
	for _, id := range c.IDs() {
		out = append(out, c.resources[id])
	}
	return out
}

// Len returns the number of resources, enabled or not.
func (c *Catalog) Len() int {
	return len(c.resources)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &LoadError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
