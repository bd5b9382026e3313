package ply

import (
	"bufio"
	"strconv"

	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-ply/pkg/math"
	"github.com/Faultbox/midgard-ply/pkg/scene"
)

// emitter writes the vertex and face blocks of an ASCII document.
type emitter struct {
	w        *bufio.Writer
	schema   Schema
	resolver *scene.Resolver
	line     []byte

	// written is the number of vertices emitted by meshes already visited
	// in the face pass; it offsets each mesh's local indices.
	written uint64
}

func newEmitter(w *bufio.Writer, s Schema, r *scene.Resolver) *emitter {
	return &emitter{w: w, schema: s, resolver: r, line: make([]byte, 0, 128)}
}

func (e *emitter) writeVertices(root scene.Node) error {
	_, err := walkMeshes(root, e.resolver, e.vertexRecords)
	return err
}

func (e *emitter) writeFaces(root scene.Node) error {
	e.written = 0
	_, err := walkMeshes(root, e.resolver, e.faceRecords)
	return err
}

func (e *emitter) vertexRecords(m meshRef) error {
	g := m.geom
	pos := g.Attribute(scene.AttrPosition)
	normals := g.Attribute(scene.AttrNormal)
	uvs := g.Attribute(scene.AttrUV)
	colors := g.Attribute(scene.AttrColor)

	var normalMatrix math.Mat3
	if e.schema.IncludeNormals && normals != nil {
		normalMatrix = m.world.NormalMatrix()
	}

	for i := 0; i < pos.Count(); i++ {
		l := e.line[:0]

		p := m.world.TransformPoint(pos.Vec3(i))
		l = appendVec3(l, p)

		if e.schema.IncludeNormals {
			var n math.Vec3
			if normals != nil {
				n = normalMatrix.MulVec3(normals.Vec3(i)).Normalize()
			}
			l = append(l, ' ')
			l = appendVec3(l, n)
		}

		if e.schema.IncludeUVs {
			var u, v float32
			if uvs != nil {
				u, v = uvs.X(i), uvs.Y(i)
			}
			l = append(l, ' ')
			l = appendFloat(l, u)
			l = append(l, ' ')
			l = appendFloat(l, v)
		}

		if e.schema.IncludeColors {
			r, gr, b := 255, 255, 255
			if colors != nil {
				r, gr, b = colorByte(colors.X(i)), colorByte(colors.Y(i)), colorByte(colors.Z(i))
			}
			l = append(l, ' ')
			l = strconv.AppendInt(l, int64(r), 10)
			l = append(l, ' ')
			l = strconv.AppendInt(l, int64(gr), 10)
			l = append(l, ' ')
			l = strconv.AppendInt(l, int64(b), 10)
		}

		l = append(l, '\n')
		if _, err := e.w.Write(l); err != nil {
			return err
		}
		e.line = l
	}
	return nil
}

func (e *emitter) faceRecords(m meshRef) error {
	g := m.geom
	n := g.VertexCount()
	offset := e.written

	if idx := g.Index(); idx != nil {
		for i := 0; i+2 < idx.Count(); i += 3 {
			err := e.writeFace(
				offset+uint64(idx.At(i)),
				offset+uint64(idx.At(i+1)),
				offset+uint64(idx.At(i+2)))
			if err != nil {
				return err
			}
		}
	} else {
		for i := 0; i+2 < n; i += 3 {
			base := offset + uint64(i)
			if err := e.writeFace(base, base+1, base+2); err != nil {
				return err
			}
		}
	}

	e.written += uint64(n)
	return nil
}

func (e *emitter) writeFace(a, b, c uint64) error {
	l := append(e.line[:0], '3', ' ')
	l = strconv.AppendUint(l, a, 10)
	l = append(l, ' ')
	l = strconv.AppendUint(l, b, 10)
	l = append(l, ' ')
	l = strconv.AppendUint(l, c, 10)
	l = append(l, '\n')
	e.line = l
	_, err := e.w.Write(l)
	return err
}

func appendVec3(dst []byte, v math.Vec3) []byte {
	dst = appendFloat(dst, v.X)
	dst = append(dst, ' ')
	dst = appendFloat(dst, v.Y)
	dst = append(dst, ' ')
	return appendFloat(dst, v.Z)
}

// appendFloat writes the shortest text that reads back as the same float32.
// Negative zero is written as 0.
func appendFloat(dst []byte, f float32) []byte {
	if f == 0 {
		return append(dst, '0')
	}
	return strconv.AppendFloat(dst, float64(f), 'g', -1, 32)
}

// colorByte maps a [0,1] channel to [0,255] by flooring, so only 1.0 maps
// to 255.
func colorByte(c float32) int {
	v := math32.Floor(c * 255)
	switch {
	case v != v || v < 0: // NaN or negative
		return 0
	case v > 255:
		return 255
	}
	return int(v)
}
