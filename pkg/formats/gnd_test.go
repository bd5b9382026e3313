package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"testing"
)

func flatTiles(w, h int, surface int32) []GNDTile {
	tiles := make([]GNDTile, w*h)
	for i := range tiles {
		tiles[i] = GNDTile{TopSurface: surface, FrontSurface: -1, RightSurface: -1}
	}
	return tiles
}

func sampleGND() *GND {
	g := &GND{
		Version:  GNDVersion{Major: 1, Minor: 7},
		Width:    3,
		Height:   2,
		Zoom:     10,
		Textures: []string{"prontera\\grass.bmp", "backside.bmp"},
		Surfaces: []GNDSurface{
			{U: [4]float32{0, 1, 0, 1}, V: [4]float32{0, 0, 1, 1}, TextureID: 0, Color: [4]uint8{10, 20, 30, 255}},
			{TextureID: -1, LightmapID: 3},
		},
		Tiles: flatTiles(3, 2, 0),
	}
	g.Tiles[4].Altitude = [4]float32{-5, -5, -2, -2}
	g.Tiles[5].TopSurface = -1
	return g
}

func TestGNDRoundTrip(t *testing.T) {
	want := sampleGND()
	data, err := want.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	got, err := ParseGND(data)
	if err != nil {
		t.Fatalf("ParseGND: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch\n got: %+v\nwant: %+v", got, want)
	}
}

func TestParseGNDSkipsLightmaps(t *testing.T) {
	g := sampleGND()
	data, err := g.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	// Splice two 2x2 single-cell lightmaps in after the texture table.
	lightmapAt := 6 + 12 + 8 + len(g.Textures)*gndTextureNameSize
	var lm bytes.Buffer
	binary.Write(&lm, binary.LittleEndian, [4]int32{2, 2, 2, 1})
	lm.Write(bytes.Repeat([]byte{0xAB}, 2*2*2*4))

	spliced := append([]byte(nil), data[:lightmapAt]...)
	spliced = append(spliced, lm.Bytes()...)
	spliced = append(spliced, data[lightmapAt+16:]...)

	got, err := ParseGND(spliced)
	if err != nil {
		t.Fatalf("ParseGND: %v", err)
	}
	if got.Lightmaps != 2 {
		t.Errorf("Lightmaps = %d, want 2", got.Lightmaps)
	}
	if !reflect.DeepEqual(got.Tiles, g.Tiles) {
		t.Error("tiles misread after lightmaps")
	}
}

func TestParseGNDErrors(t *testing.T) {
	good, err := sampleGND().MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	patch := func(off int, b ...byte) []byte {
		d := append([]byte(nil), good...)
		copy(d[off:], b)
		return d
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncatedGNDData},
		{"magic", patch(0, 'X'), ErrInvalidGNDMagic},
		{"v1.4", patch(5, 4), ErrUnsupportedGNDVersion},
		{"v2.0", patch(4, 2, 0), ErrUnsupportedGNDVersion},
		{"zero width", patch(6, 0, 0, 0, 0), ErrInvalidGNDSize},
		{"huge height", patch(10, 0, 0, 1, 0), ErrInvalidGNDSize},
		{"negative textures", patch(18, 0xFF, 0xFF, 0xFF, 0xFF), ErrInvalidCount},
		{"truncated header", good[:12], ErrTruncatedGNDData},
		{"truncated tiles", good[:len(good)-3], ErrTruncatedGNDData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGND(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGNDMarshalErrors(t *testing.T) {
	g := sampleGND()
	g.Tiles = g.Tiles[:2]
	if _, err := g.MarshalBinary(); !errors.Is(err, ErrInvalidGNDSize) {
		t.Errorf("short tiles: err = %v, want ErrInvalidGNDSize", err)
	}

	g = sampleGND()
	g.Version.Minor = 2
	if _, err := g.MarshalBinary(); !errors.Is(err, ErrUnsupportedGNDVersion) {
		t.Errorf("version: err = %v, want ErrUnsupportedGNDVersion", err)
	}
}

func TestGNDLookups(t *testing.T) {
	g := sampleGND()

	if tile := g.Tile(1, 1); tile != &g.Tiles[4] {
		t.Errorf("Tile(1, 1) = %p, want %p", tile, &g.Tiles[4])
	}
	for _, xy := range [][2]int{{-1, 0}, {3, 0}, {0, 2}} {
		if g.Tile(xy[0], xy[1]) != nil {
			t.Errorf("Tile(%d, %d) should be nil", xy[0], xy[1])
		}
	}

	if g.Surface(1) != &g.Surfaces[1] {
		t.Error("Surface(1) should return the second surface")
	}
	if g.Surface(-1) != nil || g.Surface(2) != nil {
		t.Error("Surface out of range should be nil")
	}

	lo, hi := g.AltitudeRange()
	if lo != -5 || hi != 0 {
		t.Errorf("AltitudeRange() = %v, %v, want -5, 0", lo, hi)
	}
	if lo, hi := (&GND{}).AltitudeRange(); lo != 0 || hi != 0 {
		t.Errorf("empty AltitudeRange() = %v, %v", lo, hi)
	}
}
