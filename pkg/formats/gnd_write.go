package formats

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Faultbox/midgard-ply/pkg/encoding"
)

const gndTextureNameSize = 80

// MarshalBinary encodes the ground without lightmaps. Tiles must hold
// Width*Height entries.
func (g *GND) MarshalBinary() ([]byte, error) {
	v := g.Version
	if v.Major != 1 || v.Minor < 5 || v.Minor > 9 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGNDVersion, v)
	}
	if len(g.Tiles) != int(g.Width*g.Height) {
		return nil, fmt.Errorf("%w: %d tiles for %dx%d", ErrInvalidGNDSize, len(g.Tiles), g.Width, g.Height)
	}

	var b bytes.Buffer
	w := func(data any) { binary.Write(&b, binary.LittleEndian, data) }

	b.WriteString("GRGN")
	b.WriteByte(v.Major)
	b.WriteByte(v.Minor)
	w(g.Width)
	w(g.Height)
	w(g.Zoom)

	w(int32(len(g.Textures)))
	w(int32(gndTextureNameSize))
	for _, t := range g.Textures {
		b.Write(encoding.EncodeFixed(t, gndTextureNameSize))
	}

	w([4]int32{0, 8, 8, 1}) // no lightmaps of 8x8, one cell

	w(int32(len(g.Surfaces)))
	for _, s := range g.Surfaces {
		w(s.U)
		w(s.V)
		w(s.TextureID)
		w(s.LightmapID)
		w(s.Color)
	}
	w(g.Tiles)
	return b.Bytes(), nil
}
