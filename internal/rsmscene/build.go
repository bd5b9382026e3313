// Package rsmscene turns RSM models and scene manifests into scene graphs
// ready for PLY export.
//
// Each RSM node becomes a Group carrying the node's hierarchy transform,
// which its child nodes inherit, and a Mesh below it carrying the
// vertex-only transform (pivot offset and 3x3 matrix), which they don't.
package rsmscene

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-ply/pkg/formats"
	"github.com/Faultbox/midgard-ply/pkg/math"
	"github.com/Faultbox/midgard-ply/pkg/scene"
)

// BuildOptions controls how models are converted.
type BuildOptions struct {
	// AnimTimeMs poses keyframed nodes at this time.
	AnimTimeMs float32
	// FlipY mirrors the model vertically, converting the file's Y-down
	// coordinates to Y-up.
	FlipY bool
	// ForceTwoSided emits back faces for every face, not just flagged ones.
	ForceTwoSided bool
	// Ground adds a world's ground mesh when building worlds.
	Ground bool
	// Logger receives warnings about skipped faces. Nil disables logging.
	Logger *zap.Logger
}

func (o BuildOptions) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// geometryKey identifies converted geometry. Mirrored and unmirrored
// instances of a node wind their faces in opposite orders, so they cannot
// share one geometry.
type geometryKey struct {
	node     *formats.RSMNode
	mirrored bool
}

// geometryCache maps a model node to its converted geometry so repeated
// builds of one model share geometry handles.
type geometryCache map[geometryKey]*scene.FaceGeometry

// Build converts a parsed model into a scene tree rooted at a group named
// name.
func Build(name string, model *formats.RSM, opts BuildOptions) (*scene.Group, error) {
	return build(name, model, opts, geometryCache{}, false)
}

// build converts model. mirrored reports whether the tree will be placed
// under a transform with a negative determinant.
func build(name string, model *formats.RSM, opts BuildOptions, geoms geometryCache, mirrored bool) (*scene.Group, error) {
	if model == nil {
		return nil, fmt.Errorf("building %s: nil model", name)
	}

	root := scene.NewGroup(name)
	if opts.FlipY {
		root.SetMatrix(math.Scale(1, -1, 1))
		mirrored = !mirrored
	}

	b := &builder{
		model:   model,
		opts:    opts,
		geoms:   geoms,
		visited: make(map[*formats.RSMNode]bool),
		log:     opts.logger().With(zap.String("model", name)),
	}
	for _, n := range model.RootNodes() {
		b.addNode(root, n, mirrored)
	}
	// Anything not reached from a root sits in a parent cycle.
	for i := range model.Nodes {
		if n := &model.Nodes[i]; !b.visited[n] {
			b.log.Warn("node in parent cycle attached to model root", zap.String("node", n.Name))
			b.addNode(root, n, mirrored)
		}
	}
	return root, nil
}

type builder struct {
	model   *formats.RSM
	opts    BuildOptions
	geoms   geometryCache
	visited map[*formats.RSMNode]bool
	log     *zap.Logger
}

// addNode adds n below parent. mirrored reports whether parent's world
// transform has a negative determinant.
func (b *builder) addNode(parent *scene.Group, n *formats.RSMNode, mirrored bool) {
	if b.visited[n] {
		return
	}
	b.visited[n] = true

	hierarchy := HierarchyMatrix(n, b.opts.AnimTimeMs)
	mirrored = mirrored != flipsWinding(hierarchy)

	g := scene.NewGroup(n.Name)
	g.SetMatrix(hierarchy)
	parent.Add(g)

	if len(n.Faces) > 0 {
		vertex := VertexMatrix(n)
		mesh := scene.NewMesh(n.Name+"#mesh", b.geometry(n, mirrored != flipsWinding(vertex)))
		mesh.SetMatrix(vertex)
		g.Add(mesh)
	}

	for _, child := range b.model.ChildNodes(n.Name) {
		b.addNode(g, child, mirrored)
	}
}

func (b *builder) geometry(n *formats.RSMNode, mirrored bool) *scene.FaceGeometry {
	key := geometryKey{node: n, mirrored: mirrored}
	if g, ok := b.geoms[key]; ok {
		return g
	}
	g, dropped := convertNode(n, b.opts.ForceTwoSided)
	if dropped > 0 {
		b.log.Warn("dropped faces with out of range indices",
			zap.String("node", n.Name), zap.Int("faces", dropped))
	}
	g.Mirrored = mirrored
	b.geoms[key] = g
	return g
}

// flipsWinding reports whether m mirrors space, reversing the apparent
// winding of any triangle it transforms.
func flipsWinding(m math.Mat4) bool {
	return m.Mat3x3().Determinant() < 0
}

// convertNode copies a node's face list into a FaceGeometry, dropping faces
// whose corners index past the vertex or texcoord pools.
func convertNode(n *formats.RSMNode, forceTwoSided bool) (g *scene.FaceGeometry, dropped int) {
	g = scene.NewFaceGeometry()
	g.Vertices = make([]math.Vec3, len(n.Vertices))
	for i, v := range n.Vertices {
		g.Vertices[i] = math.V3(v)
	}
	g.TexCoords = make([]scene.TexCoord, len(n.TexCoords))
	for i, tc := range n.TexCoords {
		g.TexCoords[i] = scene.TexCoord{U: tc.U, V: tc.V, Color: tc.Color}
	}

	g.Faces = make([]scene.Face, 0, len(n.Faces))
	for _, f := range n.Faces {
		if !faceInRange(f, len(n.Vertices), len(n.TexCoords)) {
			dropped++
			continue
		}
		var face scene.Face
		for c := 0; c < 3; c++ {
			face.Vertices[c] = uint32(f.VertexIDs[c])
			face.TexCoords[c] = uint32(f.TexCoordIDs[c])
		}
		face.TwoSided = forceTwoSided || f.TwoSide != 0
		g.Faces = append(g.Faces, face)
	}
	return g, dropped
}

func faceInRange(f formats.RSMFace, vertices, texCoords int) bool {
	for c := 0; c < 3; c++ {
		if int(f.VertexIDs[c]) >= vertices {
			return false
		}
		if texCoords > 0 && int(f.TexCoordIDs[c]) >= texCoords {
			return false
		}
	}
	return true
}

// HierarchyMatrix is the transform a node passes on to its children:
// position, then rotation, then scale. Rotation keyframes replace the static
// axis-angle rotation and position keyframes replace the static position.
func HierarchyMatrix(n *formats.RSMNode, animTimeMs float32) math.Mat4 {
	pos := math.V3(n.Position)
	if p, ok := PositionAt(n.PosKeys, animTimeMs); ok {
		pos = p
	}
	m := math.Translate(pos.X, pos.Y, pos.Z)

	if len(n.RotKeys) > 0 {
		m = m.Mul(RotationAt(n.RotKeys, animTimeMs).ToMat4())
	} else if n.RotAngle != 0 {
		m = m.Mul(math.RotateAxis(math.V3(n.RotAxis), n.RotAngle))
	}

	m = m.Mul(math.Scale(n.Scale[0], n.Scale[1], n.Scale[2]))

	if len(n.ScaleKeys) > 0 {
		s := ScaleAt(n.ScaleKeys, animTimeMs)
		m = m.Mul(math.Scale(s.X, s.Y, s.Z))
	}
	return m
}

// VertexMatrix is the transform applied only to a node's own vertices.
func VertexMatrix(n *formats.RSMNode) math.Mat4 {
	return math.Translate(n.Offset[0], n.Offset[1], n.Offset[2]).Mul(math.FromMat3x3(n.Matrix))
}
