package scene

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Faultbox/midgard-ply/pkg/math"
)

// degenerateEpsilon is the cross-product length below which a face has no area.
const degenerateEpsilon = 1e-5

// TexCoord is a texture coordinate with an RGBA vertex colour attached.
type TexCoord struct {
	U, V  float32
	Color [4]uint8
}

// Face is a triangle whose corners index the vertex and texcoord pools
// independently.
type Face struct {
	Vertices  [3]uint32
	TexCoords [3]uint32
	TwoSided  bool
}

// FaceGeometry is a face-list mesh, the representation used by model files
// where a corner's position and texcoord come from separate pools. It is
// converted to a non-indexed BufferGeometry for export.
type FaceGeometry struct {
	id        uuid.UUID
	Vertices  []math.Vec3
	TexCoords []TexCoord
	Faces     []Face
	// Mirrored reverses the corner order of every face but keeps its normal.
	// Set it for geometry drawn under a transform with a negative
	// determinant, which flips winding but not the transformed normal.
	Mirrored bool
}

// NewFaceGeometry creates an empty face geometry with a fresh ID.
func NewFaceGeometry() *FaceGeometry {
	return &FaceGeometry{id: uuid.New()}
}

// ID returns the geometry handle.
func (g *FaceGeometry) ID() uuid.UUID { return g.id }

// ToBuffer expands every face into three unshared vertices with a flat face
// normal. Faces with no area are dropped. Two-sided faces also emit a
// reversed back face with the normal flipped. UV and colour attributes are
// produced only when the geometry has texcoords.
func (g *FaceGeometry) ToBuffer() (*BufferGeometry, error) {
	hasTex := len(g.TexCoords) > 0

	var positions, normals []math.Vec3
	var uvs []math.Vec2
	var colors []float32

	addCorner := func(vid, tid uint32, n math.Vec3) {
		positions = append(positions, g.Vertices[vid])
		normals = append(normals, n)
		if hasTex {
			tc := g.TexCoords[tid]
			uvs = append(uvs, math.Vec2{X: tc.U, Y: tc.V})
			colors = append(colors,
				float32(tc.Color[0])/255,
				float32(tc.Color[1])/255,
				float32(tc.Color[2])/255)
		}
	}

	front := [3]int{0, 1, 2}
	if g.Mirrored {
		front = [3]int{0, 2, 1}
	}
	back := [3]int{front[2], front[1], front[0]}

	for i, f := range g.Faces {
		for c := 0; c < 3; c++ {
			if int(f.Vertices[c]) >= len(g.Vertices) {
				return nil, fmt.Errorf("%w: face %d references vertex %d of %d",
					ErrMalformedGeometry, i, f.Vertices[c], len(g.Vertices))
			}
			if hasTex && int(f.TexCoords[c]) >= len(g.TexCoords) {
				return nil, fmt.Errorf("%w: face %d references texcoord %d of %d",
					ErrMalformedGeometry, i, f.TexCoords[c], len(g.TexCoords))
			}
		}

		v0 := g.Vertices[f.Vertices[0]]
		v1 := g.Vertices[f.Vertices[1]]
		v2 := g.Vertices[f.Vertices[2]]
		cross := v1.Sub(v0).Cross(v2.Sub(v0))
		if cross.Length() < degenerateEpsilon {
			continue
		}
		normal := cross.Normalize()

		for _, c := range front {
			addCorner(f.Vertices[c], f.TexCoords[c], normal)
		}
		if f.TwoSided {
			flipped := normal.Negate()
			for _, c := range back {
				addCorner(f.Vertices[c], f.TexCoords[c], flipped)
			}
		}
	}

	buf := NewBufferGeometry()
	buf.id = g.id
	buf.SetAttribute(AttrPosition, Vec3Attribute(positions))
	buf.SetAttribute(AttrNormal, Vec3Attribute(normals))
	if hasTex {
		buf.SetAttribute(AttrUV, Vec2Attribute(uvs))
		buf.SetAttribute(AttrColor, NewAttribute(3, colors))
	}
	return buf, nil
}
