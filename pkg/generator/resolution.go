package generator

import "fmt"

// Size is a field extent in pixels.
type Size struct {
	Width  int `json:"width" toml:"width"`
	Height int `json:"height" toml:"height"`
}

// Square returns a Size with equal sides.
func Square(n int) Size { return Size{Width: n, Height: n} }

// String renders the size as WxH.
func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// Resolution holds the pixel size of each tier for one family.
type Resolution struct {
	Macro  Size `json:"macro"`
	Meso   Size `json:"meso"`
	Accent Size `json:"accent"`
	Micro  Size `json:"micro"`
}

// Macro tiers stay small: they are blurred and upscaled, and the bias pass
// iterates over every pixel several times. Families with sharp geometry get
// larger detail tiers.
var resolutions = map[Family]Resolution{
	DirectionalLineFields: {Macro: Square(96), Meso: Square(192), Accent: Square(192), Micro: Square(128)},
	BandGradients:         {Macro: Square(64), Meso: Square(128), Accent: Square(192), Micro: Square(128)},
	VoronoiRegions:        {Macro: Square(96), Meso: Square(192), Accent: Square(192), Micro: Square(128)},
	PolygonShards:         {Macro: Square(128), Meso: Square(256), Accent: Square(192), Micro: Square(128)},
	WaveInterference:      {Macro: Square(96), Meso: Square(192), Accent: Square(192), Micro: Square(128)},
	FractalLite:           {Macro: Square(128), Meso: Square(256), Accent: Square(192), Micro: Square(128)},
}

// ResolutionFor returns the tier sizes for f. It panics on an unknown family.
func ResolutionFor(f Family) Resolution {
	res, ok := resolutions[f]
	if !ok {
		panic(fmt.Sprintf("generator: no resolution for family %s", f))
	}
	return res
}
