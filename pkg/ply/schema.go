package ply

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-ply/pkg/math"
	"github.com/Faultbox/midgard-ply/pkg/scene"
)

// Schema is the aggregate shape of the document: element counts and which
// optional vertex properties are written.
type Schema struct {
	Format         Format
	VertexCount    int
	FaceCount      int
	IncludeNormals bool
	IncludeUVs     bool
	IncludeColors  bool
	IncludeIndices bool
	// IndexWidth is the byte width of the face index type: 1, 2 or 4.
	IndexWidth int
}

// Stats describes the scene an export walked.
type Stats struct {
	Meshes     int // drawables with positions
	Skipped    int // drawables without positions
	Geometries int // distinct geometries resolved
	Vertices   int
	Faces      int
}

// IndexWidth returns the number of bytes needed to store a vertex index for
// a document with vertexCount vertices.
func IndexWidth(vertexCount int) int {
	switch {
	case vertexCount <= 256:
		return 1
	case vertexCount <= 65536:
		return 2
	default:
		return 4
	}
}

// meshRef is a drawable with usable positions, as seen by both passes.
type meshRef struct {
	node  scene.Node
	geom  *scene.BufferGeometry
	world math.Mat4
}

// walkMeshes calls fn for every drawable that has positions, in traversal
// order. Both the aggregation and the emission pass go through here so they
// see the same meshes in the same order. It returns the number of drawables
// skipped for lacking positions.
func walkMeshes(root scene.Node, r *scene.Resolver, fn func(m meshRef) error) (skipped int, err error) {
	scene.Traverse(root, func(n scene.Node, world math.Mat4) {
		if err != nil {
			return
		}
		d, ok := n.(scene.Drawable)
		if !ok {
			return
		}
		geom, rerr := r.Resolve(d.Geometry())
		if rerr != nil {
			err = fmt.Errorf("node %q: %w", n.Name(), rerr)
			return
		}
		if geom == nil || !geom.HasAttribute(scene.AttrPosition) {
			skipped++
			return
		}
		err = fn(meshRef{node: n, geom: geom, world: world})
	})
	return skipped, err
}

// aggregator owns the counters of the first pass.
type aggregator struct {
	schema Schema
	stats  Stats

	hasNormals bool
	hasUVs     bool
	hasColors  bool
}

func (a *aggregator) visit(m meshRef) error {
	n := m.geom.VertexCount()

	corners := n
	if idx := m.geom.Index(); idx != nil {
		corners = idx.Count()
	}
	if a.schema.IncludeIndices && corners%3 != 0 {
		return fmt.Errorf("%w: node %q has %d unindexed vertices, not a whole triangle list",
			ErrMalformedGeometry, m.node.Name(), n)
	}

	a.schema.VertexCount += n
	a.schema.FaceCount += corners / 3
	a.stats.Meshes++

	a.hasNormals = a.hasNormals || m.geom.HasAttribute(scene.AttrNormal)
	a.hasUVs = a.hasUVs || m.geom.HasAttribute(scene.AttrUV)
	a.hasColors = a.hasColors || m.geom.HasAttribute(scene.AttrColor)
	return nil
}

// aggregate runs the first pass over the scene.
func aggregate(root scene.Node, opts Options, r *scene.Resolver) (Schema, Stats, error) {
	a := &aggregator{}
	a.schema.Format = opts.format()
	a.schema.IncludeIndices = !opts.excludes(PropertyIndex)

	skipped, err := walkMeshes(root, r, a.visit)
	if err != nil {
		return Schema{}, Stats{}, err
	}

	s := a.schema
	s.IncludeNormals = a.hasNormals && !opts.excludes(PropertyNormal)
	s.IncludeUVs = a.hasUVs && !opts.excludes(PropertyUV)
	s.IncludeColors = a.hasColors && !opts.excludes(PropertyColor)
	s.IndexWidth = IndexWidth(s.VertexCount)

	st := a.stats
	st.Skipped = skipped
	st.Geometries = r.Len()
	st.Vertices = s.VertexCount
	if s.IncludeIndices {
		st.Faces = s.FaceCount
	}

	opts.logger().Debug("aggregated PLY schema",
		zap.Int("meshes", st.Meshes),
		zap.Int("skipped", st.Skipped),
		zap.Int("vertices", s.VertexCount),
		zap.Int("faces", s.FaceCount),
		zap.Bool("normals", s.IncludeNormals),
		zap.Bool("uvs", s.IncludeUVs),
		zap.Bool("colors", s.IncludeColors),
		zap.Bool("indices", s.IncludeIndices),
		zap.Int("index_width", s.IndexWidth),
	)
	return s, st, nil
}

// Inspect runs only the aggregation pass and reports the schema an export
// with these options would produce.
func Inspect(root scene.Node, opts Options) (Schema, Stats, error) {
	if err := opts.validate(); err != nil {
		return Schema{}, Stats{}, err
	}
	return aggregate(root, opts, scene.NewResolver())
}
