package scene

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-ply/pkg/math"
)

func TestTraverseOrder(t *testing.T) {
	root := NewGroup("root")
	a := NewGroup("a")
	a1 := NewMesh("a1", nil)
	a2 := NewMesh("a2", nil)
	b := NewPoints("b", nil)
	a.Add(a1, a2)
	root.Add(a, b)

	var names []string
	Traverse(root, func(n Node, _ math.Mat4) {
		names = append(names, n.Name())
	})

	assert.Equal(t, []string{"root", "a", "a1", "a2", "b"}, names)
}

func TestTraverseComposesWorldMatrix(t *testing.T) {
	root := NewGroup("root")
	root.SetMatrix(math.Translate(10, 0, 0))
	child := NewGroup("child")
	child.SetMatrix(math.Scale(2, 2, 2))
	leaf := NewMesh("leaf", nil)
	leaf.SetMatrix(math.Translate(0, 1, 0))
	child.Add(leaf)
	root.Add(child)

	worlds := map[string]math.Mat4{}
	Traverse(root, func(n Node, world math.Mat4) {
		worlds[n.Name()] = world
	})

	// root * scale * translate: (0,0,0) -> (0,1,0) -> (0,2,0) -> (10,2,0)
	got := worlds["leaf"].TransformPoint(math.Vec3{})
	assert.Equal(t, math.Vec3{X: 10, Y: 2, Z: 0}, got)
}

func TestTraverseNilRoot(t *testing.T) {
	called := false
	Traverse(nil, func(Node, math.Mat4) { called = true })
	assert.False(t, called)
}

func TestAddIgnoresNil(t *testing.T) {
	g := NewGroup("g")
	g.Add(nil, NewGroup("x"), nil)
	assert.Len(t, g.Children(), 1)
}

func TestAttributeAccessors(t *testing.T) {
	uv := NewAttribute(2, []float32{0.1, 0.2, 0.3, 0.4})
	assert.Equal(t, 2, uv.Count())
	assert.Equal(t, float32(0.3), uv.X(1))
	assert.Equal(t, float32(0.4), uv.Y(1))
	assert.Equal(t, float32(0), uv.Z(1), "missing component reads as zero")

	var missing *Attribute
	assert.Equal(t, 0, missing.Count())
}

func TestValidate(t *testing.T) {
	tri := []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}

	tests := []struct {
		name    string
		build   func() *BufferGeometry
		wantErr bool
	}{
		{
			name: "positions only",
			build: func() *BufferGeometry {
				return NewBufferGeometry().SetAttribute(AttrPosition, NewAttribute(3, tri))
			},
		},
		{
			name: "no positions",
			build: func() *BufferGeometry {
				return NewBufferGeometry().SetAttribute(AttrUV, NewAttribute(2, []float32{0, 0}))
			},
		},
		{
			name: "normal count mismatch",
			build: func() *BufferGeometry {
				return NewBufferGeometry().
					SetAttribute(AttrPosition, NewAttribute(3, tri)).
					SetAttribute(AttrNormal, NewAttribute(3, []float32{0, 0, 1}))
			},
			wantErr: true,
		},
		{
			name: "ragged position buffer",
			build: func() *BufferGeometry {
				return NewBufferGeometry().SetAttribute(AttrPosition, NewAttribute(3, tri[:8]))
			},
			wantErr: true,
		},
		{
			name: "uv with wrong item size",
			build: func() *BufferGeometry {
				return NewBufferGeometry().
					SetAttribute(AttrPosition, NewAttribute(3, tri)).
					SetAttribute(AttrUV, NewAttribute(3, tri))
			},
			wantErr: true,
		},
		{
			name: "rgba colors",
			build: func() *BufferGeometry {
				return NewBufferGeometry().
					SetAttribute(AttrPosition, NewAttribute(3, tri)).
					SetAttribute(AttrColor, NewAttribute(4, make([]float32, 12)))
			},
		},
		{
			name: "index not a triangle list",
			build: func() *BufferGeometry {
				return NewBufferGeometry().
					SetAttribute(AttrPosition, NewAttribute(3, tri)).
					SetIndex([]uint32{0, 1})
			},
			wantErr: true,
		},
		{
			name: "index out of range",
			build: func() *BufferGeometry {
				return NewBufferGeometry().
					SetAttribute(AttrPosition, NewAttribute(3, tri)).
					SetIndex([]uint32{0, 1, 3})
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build().Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrMalformedGeometry), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFaceGeometryToBuffer(t *testing.T) {
	g := NewFaceGeometry()
	g.Vertices = []math.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {2, 0, 0}}
	g.TexCoords = []TexCoord{
		{U: 0, V: 0, Color: [4]uint8{255, 0, 0, 255}},
		{U: 1, V: 0, Color: [4]uint8{0, 255, 0, 255}},
		{U: 0, V: 1, Color: [4]uint8{0, 0, 255, 255}},
	}
	g.Faces = []Face{
		{Vertices: [3]uint32{0, 1, 2}, TexCoords: [3]uint32{0, 1, 2}, TwoSided: true},
		// collinear, dropped
		{Vertices: [3]uint32{0, 1, 3}, TexCoords: [3]uint32{0, 1, 2}},
	}

	buf, err := g.ToBuffer()
	require.NoError(t, err)
	require.NoError(t, buf.Validate())

	assert.Equal(t, g.ID(), buf.ID())
	assert.Nil(t, buf.Index())
	assert.Equal(t, 6, buf.VertexCount(), "front and back face")

	normals := buf.Attribute(AttrNormal)
	assert.Equal(t, math.Vec3{Z: 1}, normals.Vec3(0))
	assert.Equal(t, math.Vec3{Z: -1}, normals.Vec3(3))

	// back face corners are reversed
	pos := buf.Attribute(AttrPosition)
	assert.Equal(t, math.Vec3{X: 0, Y: 1}, pos.Vec3(3))
	assert.Equal(t, math.Vec3{}, pos.Vec3(5))

	colors := buf.Attribute(AttrColor)
	assert.Equal(t, float32(1), colors.X(0))
	assert.Equal(t, float32(1), colors.Z(2))
	assert.Equal(t, float32(1), buf.Attribute(AttrUV).X(1))
}

func TestFaceGeometryMirrored(t *testing.T) {
	g := NewFaceGeometry()
	g.Vertices = []math.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	g.TexCoords = []TexCoord{{U: 0}, {U: 1}, {U: 2}}
	g.Faces = []Face{{Vertices: [3]uint32{0, 1, 2}, TexCoords: [3]uint32{0, 1, 2}, TwoSided: true}}
	g.Mirrored = true

	buf, err := g.ToBuffer()
	require.NoError(t, err)
	require.Equal(t, 6, buf.VertexCount())

	pos := buf.Attribute(AttrPosition)
	normals := buf.Attribute(AttrNormal)
	uvs := buf.Attribute(AttrUV)

	// front: corners 0, 2, 1 keeping the unmirrored normal
	assert.Equal(t, math.Vec3{}, pos.Vec3(0))
	assert.Equal(t, math.Vec3{Y: 1}, pos.Vec3(1))
	assert.Equal(t, math.Vec3{X: 1}, pos.Vec3(2))
	assert.Equal(t, math.Vec3{Z: 1}, normals.Vec3(0))
	assert.Equal(t, float32(2), uvs.X(1), "texcoords follow their corner")

	// back: corners 1, 2, 0
	assert.Equal(t, math.Vec3{X: 1}, pos.Vec3(3))
	assert.Equal(t, math.Vec3{}, pos.Vec3(5))
	assert.Equal(t, math.Vec3{Z: -1}, normals.Vec3(3))
}

func TestFaceGeometryWithoutTexCoords(t *testing.T) {
	g := NewFaceGeometry()
	g.Vertices = []math.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	g.Faces = []Face{{Vertices: [3]uint32{0, 1, 2}}}

	buf, err := g.ToBuffer()
	require.NoError(t, err)
	assert.False(t, buf.HasAttribute(AttrUV))
	assert.False(t, buf.HasAttribute(AttrColor))
	assert.True(t, buf.HasAttribute(AttrNormal))
}

func TestFaceGeometryBadVertex(t *testing.T) {
	g := NewFaceGeometry()
	g.Vertices = []math.Vec3{{0, 0, 0}}
	g.Faces = []Face{{Vertices: [3]uint32{0, 1, 2}}}

	_, err := g.ToBuffer()
	assert.ErrorIs(t, err, ErrMalformedGeometry)
}

type countingGeometry struct {
	*FaceGeometry
	calls int
}

func (c *countingGeometry) ToBuffer() (*BufferGeometry, error) {
	c.calls++
	return c.FaceGeometry.ToBuffer()
}

func TestResolverMemoizesByID(t *testing.T) {
	fg := NewFaceGeometry()
	fg.Vertices = []math.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	fg.Faces = []Face{{Vertices: [3]uint32{0, 1, 2}}}
	shared := &countingGeometry{FaceGeometry: fg}

	r := NewResolver()
	first, err := r.Resolve(shared)
	require.NoError(t, err)
	second, err := r.Resolve(shared)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, shared.calls)
	assert.Equal(t, 1, r.Len())

	// A fresh resolver starts over.
	_, err = NewResolver().Resolve(shared)
	require.NoError(t, err)
	assert.Equal(t, 2, shared.calls)
}

func TestResolverPassesBufferThrough(t *testing.T) {
	buf := NewBufferGeometry().SetAttribute(AttrPosition, NewAttribute(3, []float32{0, 0, 0}))
	got, err := NewResolver().Resolve(buf)
	require.NoError(t, err)
	assert.Same(t, buf, got)
}

func TestResolverCachesErrors(t *testing.T) {
	bad := NewBufferGeometry().
		SetAttribute(AttrPosition, NewAttribute(3, []float32{0, 0, 0})).
		SetIndex([]uint32{0, 0, 5})

	r := NewResolver()
	_, err := r.Resolve(bad)
	assert.ErrorIs(t, err, ErrMalformedGeometry)
	_, err = r.Resolve(bad)
	assert.ErrorIs(t, err, ErrMalformedGeometry)
}

func TestResolverNil(t *testing.T) {
	tests := []struct {
		name string
		g    Geometry
	}{
		{"nil interface", nil},
		{"nil buffer", (*BufferGeometry)(nil)},
		{"nil face list", (*FaceGeometry)(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver()
			buf, err := r.Resolve(tt.g)
			assert.NoError(t, err)
			assert.Nil(t, buf)
			assert.Zero(t, r.Len())
		})
	}
}
