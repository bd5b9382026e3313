package formats

import (
	"bytes"
	"errors"
	"fmt"
	"os"
)

// GND format errors.
var (
	ErrInvalidGNDMagic       = errors.New("invalid GND magic: expected 'GRGN'")
	ErrUnsupportedGNDVersion = errors.New("unsupported GND version")
	ErrTruncatedGNDData      = errors.New("truncated GND data")
	ErrInvalidGNDSize        = errors.New("invalid GND dimensions")
)

const (
	maxGNDSide     = 1024
	maxGNDTextures = 1 << 12
	maxSurfaces    = 1 << 22
	maxLightmaps   = 1 << 22
)

// GNDVersion is the ground file version.
type GNDVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v GNDVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// GNDSurface is a textured face of a tile.
type GNDSurface struct {
	U          [4]float32
	V          [4]float32
	TextureID  int16 // -1 = none
	LightmapID int16
	Color      [4]uint8 // BGRA
}

// GNDTile is one ground cell.
type GNDTile struct {
	// Corner heights: bottom-left, bottom-right, top-left, top-right.
	// Heights grow downwards.
	Altitude     [4]float32
	TopSurface   int32 // -1 = none
	FrontSurface int32
	RightSurface int32
}

// GND is a parsed ground file. Lightmap pixels are read past; only their
// count is kept.
type GND struct {
	Version   GNDVersion
	Width     uint32
	Height    uint32
	Zoom      float32 // tile edge length
	Textures  []string
	Lightmaps int
	Surfaces  []GNDSurface
	Tiles     []GNDTile // row-major, Width per row
}

// Tile returns the tile at x, y, or nil outside the map.
func (g *GND) Tile(x, y int) *GNDTile {
	if x < 0 || y < 0 || x >= int(g.Width) || y >= int(g.Height) {
		return nil
	}
	return &g.Tiles[y*int(g.Width)+x]
}

// Surface returns surface id, or nil when id is negative or out of range.
func (g *GND) Surface(id int32) *GNDSurface {
	if id < 0 || int(id) >= len(g.Surfaces) {
		return nil
	}
	return &g.Surfaces[id]
}

// AltitudeRange returns the lowest and highest corner altitude.
func (g *GND) AltitudeRange() (lo, hi float32) {
	if len(g.Tiles) == 0 {
		return 0, 0
	}
	lo, hi = g.Tiles[0].Altitude[0], g.Tiles[0].Altitude[0]
	for _, t := range g.Tiles {
		for _, h := range t.Altitude {
			lo = min(lo, h)
			hi = max(hi, h)
		}
	}
	return lo, hi
}

// ParseGND parses a ground file. Versions 1.5 through 1.9 are supported.
func ParseGND(data []byte) (*GND, error) {
	if len(data) < 6 {
		return nil, ErrTruncatedGNDData
	}
	if string(data[:4]) != "GRGN" {
		return nil, ErrInvalidGNDMagic
	}

	g := &GND{Version: GNDVersion{Major: data[4], Minor: data[5]}}
	if g.Version.Major != 1 || g.Version.Minor < 5 || g.Version.Minor > 9 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGNDVersion, g.Version)
	}

	r := &reader{r: bytes.NewReader(data[6:]), truncated: ErrTruncatedGNDData}
	r.read(&g.Width)
	r.read(&g.Height)
	r.read(&g.Zoom)
	if r.err != nil {
		return nil, r.err
	}
	if g.Width == 0 || g.Height == 0 || g.Width > maxGNDSide || g.Height > maxGNDSide {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGNDSize, g.Width, g.Height)
	}

	g.Textures = alloc[string](r.count("textures", maxGNDTextures))
	nameLen := r.count("texture name length", 1024)
	for i := range g.Textures {
		g.Textures[i] = r.fixed(nameLen)
	}

	g.Lightmaps = r.count("lightmaps", maxLightmaps)
	var lw, lh, cells int32
	r.read(&lw)
	r.read(&lh)
	r.read(&cells)
	if r.err == nil && (lw < 0 || lh < 0 || cells < 0) {
		return nil, fmt.Errorf("%w: lightmap %dx%dx%d", ErrInvalidCount, lw, lh, cells)
	}
	// Brightness plus RGB per pixel.
	r.skip(int64(g.Lightmaps) * int64(lw) * int64(lh) * int64(cells) * 4)

	g.Surfaces = alloc[GNDSurface](r.count("surfaces", maxSurfaces))
	for i := range g.Surfaces {
		s := &g.Surfaces[i]
		r.read(&s.U)
		r.read(&s.V)
		r.read(&s.TextureID)
		r.read(&s.LightmapID)
		r.read(&s.Color)
	}
	if r.err != nil {
		return nil, fmt.Errorf("surfaces: %w", r.err)
	}

	g.Tiles = make([]GNDTile, g.Width*g.Height)
	r.read(g.Tiles)
	if r.err != nil {
		return nil, fmt.Errorf("tiles: %w", r.err)
	}
	return g, nil
}

// ParseGNDFile parses the ground file at path.
func ParseGNDFile(path string) (*GND, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading GND file: %w", err)
	}
	return ParseGND(data)
}
