// Package catalog maps level names to generation requests.
//
// A catalog is a TOML file with an optional [defaults] table and one
// [[level]] table per level:
//
//	[defaults]
//	density = "normal"
//	macro_count = 4
//	palette = "slate"
//
//	[[level]]
//	name = "canyon-01"
//	primary = "shards"
//	secondary = "lines"
//	seed = 1234
//
// Seeds may be integers or strings ("0xdeadbeef" for hex). A level without a
// seed derives one from its name, so renaming a level changes its pattern
// but reordering the file does not.
package catalog

import (
	stderrors "errors"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/backdrop/pkg/compose"
	"github.com/matzehuels/backdrop/pkg/errors"
	"github.com/matzehuels/backdrop/pkg/generator"
	"github.com/matzehuels/backdrop/pkg/texture"
)

// Defaults apply to every level that leaves a field unset.
type Defaults struct {
	Density    string `toml:"density"`
	MacroCount int    `toml:"macro_count"`
	MesoCount  int    `toml:"meso_count"`
	MicroCount int    `toml:"micro_count"`
	Palette    string `toml:"palette"`
}

// Level is one [[level]] entry as written in the file.
type Level struct {
	Name       string `toml:"name"`
	Primary    string `toml:"primary"`
	Secondary  string `toml:"secondary"`
	Density    string `toml:"density"`
	MacroCount int    `toml:"macro_count"`
	MesoCount  int    `toml:"meso_count"`
	MicroCount int    `toml:"micro_count"`
	Seed       any    `toml:"seed"`
	Palette    string `toml:"palette"`
}

// Entry is a fully resolved level.
type Entry struct {
	Name    string
	Request compose.Request
	Palette string
	Derived bool // seed was derived from the name
}

// Catalog is a validated set of levels. It is immutable after loading.
type Catalog struct {
	Defaults Defaults
	entries  []Entry
	byName   map[string]int
}

type file struct {
	Defaults Defaults `toml:"defaults"`
	Levels   []Level  `toml:"level"`
}

// Load reads and validates the catalog at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "catalog %s", path)
		}
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Read parses a catalog from r.
func Read(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates catalog data. Unknown keys, duplicate names
// and invalid families, densities, counts or seeds are INVALID_CATALOG
// errors.
func Parse(data []byte) (*Catalog, error) {
	var f file
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		var perr toml.ParseError
		if stderrors.As(err, &perr) {
			return nil, errors.Wrap(errors.ErrCodeInvalidCatalog, err, "line %d", perr.Position.Line)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidCatalog, err, "decode catalog")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidCatalog, "unknown keys: %s", strings.Join(keys, ", "))
	}

	c := &Catalog{Defaults: f.Defaults, byName: make(map[string]int, len(f.Levels))}
	for i, l := range f.Levels {
		e, err := resolve(f.Defaults, l)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidCatalog, err, "level %d (%q)", i+1, l.Name)
		}
		if _, dup := c.byName[e.Name]; dup {
			return nil, errors.New(errors.ErrCodeInvalidCatalog, "duplicate level %q", e.Name)
		}
		c.byName[e.Name] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	return c, nil
}

func resolve(d Defaults, l Level) (Entry, error) {
	if err := errors.ValidateLevelName(l.Name); err != nil {
		return Entry{}, err
	}
	if l.Primary == "" {
		return Entry{}, errors.New(errors.ErrCodeInvalidFamily, "primary family is required")
	}
	primary, err := generator.ParseFamily(l.Primary)
	if err != nil {
		return Entry{}, err
	}
	secondary, err := generator.ParseFamily(l.Secondary)
	if err != nil {
		return Entry{}, err
	}

	req := compose.DefaultRequest(primary, 0)
	req.Secondary = secondary
	density := firstNonEmpty(l.Density, d.Density)
	if density != "" {
		if req.Density, err = generator.ParseDensity(density); err != nil {
			return Entry{}, err
		}
	}
	req.MacroCount = firstNonZero(l.MacroCount, d.MacroCount, req.MacroCount)
	req.MesoCount = firstNonZero(l.MesoCount, d.MesoCount, req.MesoCount)
	req.MicroCount = firstNonZero(l.MicroCount, d.MicroCount, req.MicroCount)

	seed, derived, err := parseSeed(l.Name, l.Seed)
	if err != nil {
		return Entry{}, err
	}
	req.ZoneSeed = seed

	if err := req.Validate(); err != nil {
		return Entry{}, err
	}

	palette := firstNonEmpty(l.Palette, d.Palette, texture.DefaultPalette)
	if _, err := texture.LookupPalette(palette); err != nil {
		return Entry{}, err
	}
	return Entry{Name: l.Name, Request: req, Palette: palette, Derived: derived}, nil
}

func parseSeed(name string, v any) (uint64, bool, error) {
	switch s := v.(type) {
	case nil:
		return DeriveSeed(name), true, nil
	case int64:
		if s < 0 {
			return 0, false, errors.New(errors.ErrCodeInvalidInput, "seed must not be negative, got %d", s)
		}
		return uint64(s), false, nil
	case string:
		seed, err := errors.ParseSeed(s)
		return seed, false, err
	default:
		return 0, false, errors.New(errors.ErrCodeInvalidInput, "seed must be an integer or string, got %T", v)
	}
}

// DeriveSeed returns the seed used for a level that does not set one: the
// 64-bit FNV-1a hash of its name.
func DeriveSeed(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return h.Sum64()
}

// Len returns the number of levels.
func (c *Catalog) Len() int { return len(c.entries) }

// Names returns level names in file order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.Name
	}
	return names
}

// Entries returns all resolved levels in file order.
func (c *Catalog) Entries() []Entry {
	return slices.Clone(c.entries)
}

// Lookup returns the resolved level.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Resolve returns the generation request for a level, or a LEVEL_NOT_FOUND
// error.
func (c *Catalog) Resolve(name string) (compose.Request, error) {
	e, ok := c.Lookup(name)
	if !ok {
		return compose.Request{}, errors.New(errors.ErrCodeLevelNotFound, "no level %q in catalog", name)
	}
	return e.Request, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
