package rsmscene

import (
	"github.com/Faultbox/midgard-ply/pkg/formats"
	"github.com/Faultbox/midgard-ply/pkg/math"
	"github.com/Faultbox/midgard-ply/pkg/scene"
)

// wallEpsilon is the height difference below which neighbouring tiles are
// treated as joined.
const wallEpsilon = 0.001

var white = math.Vec3{X: 1, Y: 1, Z: 1}

// Triangle orders for a quad's corners: tops split along the bottom-left to
// top-right diagonal; walls run top edge first.
var (
	topOrder  = [6]uint32{0, 1, 2, 2, 1, 3}
	wallOrder = [6]uint32{0, 2, 1, 1, 2, 3}
)

type groundBuilder struct {
	g     *formats.GND
	flipY bool

	positions []math.Vec3
	normals   []math.Vec3
	uvs       []math.Vec2
	colors    []math.Vec3
	index     []uint32
}

// BuildGround builds the ground mesh of a map: one quad per tile with a top
// surface, plus walls where neighbouring tiles differ in height. The mesh is
// centered on the map, matching world model positions. With flipY the
// Y-down altitudes become Y-up.
func BuildGround(name string, g *formats.GND, flipY bool) *scene.Mesh {
	b := &groundBuilder{g: g, flipY: flipY}
	for y := 0; y < int(g.Height); y++ {
		for x := 0; x < int(g.Width); x++ {
			b.tile(x, y)
		}
	}

	geo := scene.NewBufferGeometry().
		SetAttribute(scene.AttrPosition, scene.Vec3Attribute(b.positions)).
		SetAttribute(scene.AttrNormal, scene.Vec3Attribute(b.normals)).
		SetAttribute(scene.AttrUV, scene.Vec2Attribute(b.uvs)).
		SetAttribute(scene.AttrColor, scene.Vec3Attribute(b.colors)).
		SetIndex(b.index)
	return scene.NewMesh(name, geo)
}

// corner returns the position of a tile corner at altitude h. Column cx and
// row cz count corners, not tiles.
func (b *groundBuilder) corner(cx, cz int, h float32) math.Vec3 {
	zoom := b.g.Zoom
	p := math.Vec3{
		X: float32(cx)*zoom - float32(b.g.Width)*zoom/2,
		Y: h,
		Z: float32(cz)*zoom - float32(b.g.Height)*zoom/2,
	}
	if b.flipY {
		p.Y = -p.Y
	}
	return p
}

func (b *groundBuilder) tile(x, y int) {
	t := b.g.Tile(x, y)
	bl := b.corner(x, y+1, t.Altitude[0])
	br := b.corner(x+1, y+1, t.Altitude[1])
	tl := b.corner(x, y, t.Altitude[2])
	tr := b.corner(x+1, y, t.Altitude[3])

	top := b.g.Surface(t.TopSurface)
	if top != nil {
		c := top.Color
		color := math.Vec3{X: float32(c[2]) / 255, Y: float32(c[1]) / 255, Z: float32(c[0]) / 255}
		b.quad(
			[4]math.Vec3{bl, br, tl, tr},
			[4]math.Vec2{{X: top.U[2], Y: top.V[2]}, {X: top.U[3], Y: top.V[3]}, {X: top.U[0], Y: top.V[0]}, {X: top.U[1], Y: top.V[1]}},
			color, topOrder,
		)
	}

	if next := b.g.Tile(x, y+1); next != nil && differs(t.Altitude[0], next.Altitude[2], t.Altitude[1], next.Altitude[3]) {
		if uv, ok := b.wallUV(t.FrontSurface, top); ok {
			b.quad([4]math.Vec3{
				bl, br,
				b.corner(x, y+1, next.Altitude[2]),
				b.corner(x+1, y+1, next.Altitude[3]),
			}, uv, white, wallOrder)
		}
	}

	if right := b.g.Tile(x+1, y); right != nil && differs(t.Altitude[1], right.Altitude[0], t.Altitude[3], right.Altitude[2]) {
		if uv, ok := b.wallUV(t.RightSurface, top); ok {
			b.quad([4]math.Vec3{
				tr, br,
				b.corner(x+1, y, right.Altitude[2]),
				b.corner(x+1, y+1, right.Altitude[0]),
			}, uv, white, wallOrder)
		}
	}
}

func differs(a0, b0, a1, b1 float32) bool {
	return abs(a0-b0) > wallEpsilon || abs(a1-b1) > wallEpsilon
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// wallUV picks the wall's own surface, falling back to the full texture of
// the top surface. Walls of tiles with neither are not built.
func (b *groundBuilder) wallUV(id int32, top *formats.GNDSurface) ([4]math.Vec2, bool) {
	if s := b.g.Surface(id); s != nil {
		var uv [4]math.Vec2
		for i := range uv {
			uv[i] = math.Vec2{X: s.U[i], Y: s.V[i]}
		}
		return uv, true
	}
	if top != nil {
		return [4]math.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}}, true
	}
	return [4]math.Vec2{}, false
}

// quad adds corners p as two triangles in the given vertex order. The
// normal follows the winding of the first triangle.
func (b *groundBuilder) quad(p [4]math.Vec3, uv [4]math.Vec2, color math.Vec3, order [6]uint32) {
	normal := p[order[1]].Sub(p[order[0]]).Cross(p[order[2]].Sub(p[order[0]])).Normalize()

	base := uint32(len(b.positions))
	for i := range p {
		b.positions = append(b.positions, p[i])
		b.normals = append(b.normals, normal)
		b.uvs = append(b.uvs, uv[i])
		b.colors = append(b.colors, color)
	}
	for _, o := range order {
		b.index = append(b.index, base+o)
	}
}
