package formats

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Faultbox/midgard-ply/pkg/encoding"
)

// MarshalBinary encodes the world's model placements in the layout of its
// Version. Environment sections are written zeroed and skipped objects are
// not written.
func (rw *RSW) MarshalBinary() ([]byte, error) {
	v := rw.Version
	if !v.supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSWVersion, v)
	}

	var b bytes.Buffer
	w := func(data any) { binary.Write(&b, binary.LittleEndian, data) }
	fixed := func(s string, size int) { b.Write(encoding.EncodeFixed(s, size)) }

	b.WriteString("GRSW")
	b.WriteByte(v.Major)
	b.WriteByte(v.Minor)
	switch {
	case v.AtLeast(2, 5):
		w(v.BuildNumber)
		b.WriteByte(0)
	case v.AtLeast(2, 2):
		b.WriteByte(uint8(v.BuildNumber))
	}

	fixed(rw.IniFile, rswPathSize)
	fixed(rw.GndFile, rswPathSize)
	if v.AtLeast(1, 4) {
		fixed(rw.GatFile, rswPathSize)
		fixed(rw.SrcFile, rswPathSize)
	}

	var env int
	if v.AtLeast(1, 3) && !v.AtLeast(2, 6) {
		env += rswWaterSize
	}
	if v.AtLeast(1, 5) {
		env += rswLightSize
	}
	if v.AtLeast(1, 7) {
		env += rswOpacitySize
	}
	if v.AtLeast(1, 6) {
		env += rswGroundSize
	}
	b.Write(make([]byte, env))

	w(int32(len(rw.Models)))
	for _, m := range rw.Models {
		w(RSWObjectModel)
		if v.AtLeast(1, 3) {
			fixed(m.Name, rswPathSize)
			w(m.AnimType)
			w(m.AnimSpeed)
			w(m.BlockType)
		}
		if v.AtLeast(2, 6) && v.BuildNumber >= 162 {
			b.WriteByte(0)
		}
		fixed(m.ModelName, rswLongName)
		fixed(m.NodeName, rswLongName)
		w(m.Position)
		w(m.Rotation)
		w(m.Scale)
	}
	return b.Bytes(), nil
}
