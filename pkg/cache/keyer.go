package cache

import "fmt"

// KeyVersion is mixed into every key. Bump it whenever generator output
// changes for an existing request so old artifacts are no longer served.
const KeyVersion = "v1"

// Keyer builds cache keys.
type Keyer interface {
	// PatternKey identifies one generation request.
	PatternKey(opts PatternKeyOpts) string

	// ArtifactKey identifies one encoded output of a pattern.
	ArtifactKey(patternHash string, opts ArtifactKeyOpts) string
}

// PatternKeyOpts holds everything that determines the generated fields.
type PatternKeyOpts struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary,omitempty"`
	Density    string `json:"density"`
	MacroCount int    `json:"macro_count"`
	MesoCount  int    `json:"meso_count"`
	MicroCount int    `json:"micro_count"`
	Seed       uint64 `json:"seed"`
}

// ArtifactKeyOpts holds everything that determines one encoded artifact.
type ArtifactKeyOpts struct {
	Name    string `json:"name"`   // "macro", "preview", "snapshot", ...
	Format  string `json:"format"` // "png" or "json"
	Size    int    `json:"size,omitempty"`
	Palette string `json:"palette,omitempty"`
}

// DefaultKeyer produces "pattern:<sha256>" and "artifact:<sha256>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// PatternKey implements Keyer.
func (DefaultKeyer) PatternKey(opts PatternKeyOpts) string {
	return hashKey("pattern", KeyVersion, opts)
}

// ArtifactKey implements Keyer.
func (DefaultKeyer) ArtifactKey(patternHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", KeyVersion, patternHash, opts)
}

// PatternHash returns the hash part of a pattern key, used as the stable
// identifier of a pattern in history records and ETags.
func PatternHash(patternKey string) string {
	for i := len(patternKey) - 1; i >= 0; i-- {
		if patternKey[i] == ':' {
			return patternKey[i+1:]
		}
	}
	return patternKey
}

// String renders the options for logs.
func (o ArtifactKeyOpts) String() string {
	if o.Size > 0 {
		return fmt.Sprintf("%s.%s@%d", o.Name, o.Format, o.Size)
	}
	return o.Name + "." + o.Format
}
