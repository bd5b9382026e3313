package formats

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Faultbox/midgard-ply/pkg/encoding"
)

// MarshalBinary encodes the model in the layout of its Version, which must
// be one ParseRSM accepts.
func (m *RSM) MarshalBinary() ([]byte, error) {
	v := m.Version
	if v.Major != 1 || v.Minor < 1 || v.Minor > 5 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, v)
	}

	var b bytes.Buffer
	w := func(data any) { binary.Write(&b, binary.LittleEndian, data) }
	name := func(s string) { b.Write(encoding.EncodeFixed(s, nameSize)) }

	b.WriteString("GRSM")
	b.WriteByte(v.Major)
	b.WriteByte(v.Minor)
	w(m.AnimLength)
	w(int32(m.Shading))
	if v.AtLeast(1, 4) {
		b.WriteByte(uint8(m.Alpha * 255))
	}
	b.Write(make([]byte, 16))

	w(int32(len(m.Textures)))
	for _, t := range m.Textures {
		name(t)
	}
	name(m.RootNode)

	w(int32(len(m.Nodes)))
	for i := range m.Nodes {
		n := &m.Nodes[i]
		name(n.Name)
		name(n.Parent)
		w(int32(len(n.TextureIDs)))
		w(n.TextureIDs)
		w(n.Matrix)
		w(n.Offset)
		w(n.Position)
		w(n.RotAngle)
		w(n.RotAxis)
		w(n.Scale)

		w(int32(len(n.Vertices)))
		w(n.Vertices)

		w(int32(len(n.TexCoords)))
		for _, tc := range n.TexCoords {
			if v.AtLeast(1, 2) {
				w(tc.Color)
			}
			w(tc.U)
			w(tc.V)
		}

		w(int32(len(n.Faces)))
		for _, f := range n.Faces {
			w(f.VertexIDs)
			w(f.TexCoordIDs)
			w(f.TextureID)
			w(uint16(0))
			w(f.TwoSide)
			if v.AtLeast(1, 2) {
				w(f.SmoothGroup)
			}
		}

		if !v.AtLeast(1, 5) {
			w(int32(len(n.PosKeys)))
			for _, k := range n.PosKeys {
				w(k.Frame)
				w(k.Position)
			}
		}
		w(int32(len(n.RotKeys)))
		for _, k := range n.RotKeys {
			w(k.Frame)
			w(k.Quaternion)
		}
		if v.AtLeast(1, 5) {
			w(int32(len(n.ScaleKeys)))
			for _, k := range n.ScaleKeys {
				w(k.Frame)
				w(k.Scale)
			}
		}
	}

	w(int32(len(m.VolumeBoxes)))
	for _, box := range m.VolumeBoxes {
		w(box.Size)
		w(box.Position)
		w(box.Rotation)
		if v.AtLeast(1, 3) {
			w(box.Flag)
		}
	}
	return b.Bytes(), nil
}
