package scene

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/Faultbox/midgard-ply/pkg/math"
)

// Attribute names recognised by exporters.
const (
	AttrPosition = "position"
	AttrNormal   = "normal"
	AttrUV       = "uv"
	AttrColor    = "color"
)

// ErrMalformedGeometry is returned for geometry whose buffers are inconsistent.
var ErrMalformedGeometry = errors.New("malformed geometry")

// Geometry is mesh data attached to a Drawable. Implementations are either a
// *BufferGeometry or a Converter that can produce one.
type Geometry interface {
	// ID identifies the geometry; nodes sharing geometry share the ID.
	ID() uuid.UUID
}

// Converter is geometry stored in another representation.
type Converter interface {
	Geometry
	ToBuffer() (*BufferGeometry, error)
}

// Attribute is a flat float buffer read ItemSize components at a time.
type Attribute struct {
	ItemSize int
	Data     []float32
}

// NewAttribute wraps data as an attribute with the given item size.
func NewAttribute(itemSize int, data []float32) *Attribute {
	return &Attribute{ItemSize: itemSize, Data: data}
}

// Vec3Attribute builds a 3-component attribute.
func Vec3Attribute(vs []math.Vec3) *Attribute {
	data := make([]float32, 0, len(vs)*3)
	for _, v := range vs {
		data = append(data, v.X, v.Y, v.Z)
	}
	return NewAttribute(3, data)
}

// Vec2Attribute builds a 2-component attribute.
func Vec2Attribute(vs []math.Vec2) *Attribute {
	data := make([]float32, 0, len(vs)*2)
	for _, v := range vs {
		data = append(data, v.X, v.Y)
	}
	return NewAttribute(2, data)
}

// Count returns the number of items.
func (a *Attribute) Count() int {
	if a == nil || a.ItemSize <= 0 {
		return 0
	}
	return len(a.Data) / a.ItemSize
}

// X returns the first component of item i.
func (a *Attribute) X(i int) float32 { return a.component(i, 0) }

// Y returns the second component of item i.
func (a *Attribute) Y(i int) float32 { return a.component(i, 1) }

// Z returns the third component of item i.
func (a *Attribute) Z(i int) float32 { return a.component(i, 2) }

// Vec3 returns item i as a vector.
func (a *Attribute) Vec3(i int) math.Vec3 {
	return math.Vec3{X: a.X(i), Y: a.Y(i), Z: a.Z(i)}
}

func (a *Attribute) component(i, c int) float32 {
	if c >= a.ItemSize {
		return 0
	}
	return a.Data[i*a.ItemSize+c]
}

// Index is a triangle list of vertex indices.
type Index struct {
	Data []uint32
}

// Count returns the number of indices.
func (x *Index) Count() int {
	if x == nil {
		return 0
	}
	return len(x.Data)
}

// At returns index i.
func (x *Index) At(i int) uint32 { return x.Data[i] }

// BufferGeometry stores per-vertex attributes in flat buffers with an
// optional triangle index. Without an index, consecutive position triples
// form the triangles.
type BufferGeometry struct {
	id         uuid.UUID
	attributes map[string]*Attribute
	index      *Index
}

// NewBufferGeometry creates an empty geometry with a fresh ID.
func NewBufferGeometry() *BufferGeometry {
	return &BufferGeometry{
		id:         uuid.New(),
		attributes: make(map[string]*Attribute),
	}
}

// ID returns the geometry handle.
func (g *BufferGeometry) ID() uuid.UUID { return g.id }

// SetAttribute stores an attribute under name. A nil attribute removes it.
func (g *BufferGeometry) SetAttribute(name string, a *Attribute) *BufferGeometry {
	if a == nil {
		delete(g.attributes, name)
		return g
	}
	g.attributes[name] = a
	return g
}

// Attribute returns the named attribute or nil.
func (g *BufferGeometry) Attribute(name string) *Attribute {
	return g.attributes[name]
}

// HasAttribute reports whether the named attribute is present.
func (g *BufferGeometry) HasAttribute(name string) bool {
	return g.attributes[name] != nil
}

// SetIndex sets the triangle index. A nil slice removes it.
func (g *BufferGeometry) SetIndex(indices []uint32) *BufferGeometry {
	if indices == nil {
		g.index = nil
		return g
	}
	g.index = &Index{Data: indices}
	return g
}

// Index returns the triangle index or nil.
func (g *BufferGeometry) Index() *Index { return g.index }

// VertexCount returns the number of positions.
func (g *BufferGeometry) VertexCount() int {
	return g.Attribute(AttrPosition).Count()
}

var itemSizes = map[string][]int{
	AttrPosition: {3},
	AttrNormal:   {3},
	AttrUV:       {2},
	AttrColor:    {3, 4},
}

// Validate checks that the buffers describe a consistent mesh: item sizes
// match the attribute kind, every attribute has as many items as there are
// positions, and the index is a whole triangle list referencing existing
// vertices. Geometry without positions is valid and simply empty.
func (g *BufferGeometry) Validate() error {
	pos := g.Attribute(AttrPosition)
	if pos == nil {
		return nil
	}
	n := pos.Count()

	for name, a := range g.attributes {
		if sizes, ok := itemSizes[name]; ok && !slices.Contains(sizes, a.ItemSize) {
			return fmt.Errorf("%w: attribute %q has item size %d", ErrMalformedGeometry, name, a.ItemSize)
		}
		if a.ItemSize <= 0 || len(a.Data)%a.ItemSize != 0 {
			return fmt.Errorf("%w: attribute %q length %d is not a multiple of %d",
				ErrMalformedGeometry, name, len(a.Data), a.ItemSize)
		}
		if a.Count() != n {
			return fmt.Errorf("%w: attribute %q has %d items, positions have %d",
				ErrMalformedGeometry, name, a.Count(), n)
		}
	}

	if g.index != nil {
		if g.index.Count()%3 != 0 {
			return fmt.Errorf("%w: index length %d is not a multiple of 3", ErrMalformedGeometry, g.index.Count())
		}
		for i, v := range g.index.Data {
			if int(v) >= n {
				return fmt.Errorf("%w: index %d references vertex %d of %d", ErrMalformedGeometry, i, v, n)
			}
		}
	}
	return nil
}
