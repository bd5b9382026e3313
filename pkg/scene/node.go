// Package scene is a minimal scene graph: a tree of transform nodes, some of
// which carry mesh geometry.
package scene

import "github.com/Faultbox/midgard-ply/pkg/math"

// Node is an element of the scene tree.
type Node interface {
	Name() string
	// Matrix is the node's transform relative to its parent.
	Matrix() math.Mat4
	Children() []Node
}

// Drawable is a node that carries geometry (a mesh or a point cloud).
type Drawable interface {
	Node
	Geometry() Geometry
}

// Object holds the state shared by all node kinds.
type Object struct {
	name     string
	matrix   math.Mat4
	children []Node
}

func newObject(name string) Object {
	return Object{name: name, matrix: math.Identity()}
}

// Name returns the node name.
func (o *Object) Name() string { return o.name }

// Matrix returns the local transform.
func (o *Object) Matrix() math.Mat4 { return o.matrix }

// SetMatrix replaces the local transform.
func (o *Object) SetMatrix(m math.Mat4) { o.matrix = m }

// Children returns the child nodes in traversal order.
func (o *Object) Children() []Node { return o.children }

// Add appends children. Nil nodes are ignored.
func (o *Object) Add(children ...Node) {
	for _, c := range children {
		if c != nil {
			o.children = append(o.children, c)
		}
	}
}

// Group is a container node without geometry.
type Group struct {
	Object
}

// NewGroup creates an empty group with an identity transform.
func NewGroup(name string) *Group {
	return &Group{Object: newObject(name)}
}

// Mesh is a node whose geometry is a triangle list.
type Mesh struct {
	Object
	geometry Geometry
}

// NewMesh creates a mesh node with an identity transform.
func NewMesh(name string, g Geometry) *Mesh {
	return &Mesh{Object: newObject(name), geometry: g}
}

// Geometry returns the mesh geometry.
func (m *Mesh) Geometry() Geometry { return m.geometry }

// Points is a node whose geometry is a point cloud. It is exported the same
// way as a mesh.
type Points struct {
	Object
	geometry Geometry
}

// NewPoints creates a point cloud node with an identity transform.
func NewPoints(name string, g Geometry) *Points {
	return &Points{Object: newObject(name), geometry: g}
}

// Geometry returns the point geometry.
func (p *Points) Geometry() Geometry { return p.geometry }

// Traverse visits root and all of its descendants depth-first, parents
// before children, in stored child order. world is the node's transform
// composed with all of its ancestors'.
func Traverse(root Node, fn func(n Node, world math.Mat4)) {
	traverse(root, math.Identity(), fn)
}

func traverse(n Node, parent math.Mat4, fn func(Node, math.Mat4)) {
	if n == nil {
		return
	}
	world := parent.Mul(n.Matrix())
	fn(n, world)
	for _, c := range n.Children() {
		traverse(c, world, fn)
	}
}
