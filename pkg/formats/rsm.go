package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/midgard-ply/pkg/encoding"
)

// RSM format errors.
var (
	ErrInvalidRSMMagic       = errors.New("invalid RSM magic: expected 'GRSM'")
	ErrUnsupportedRSMVersion = errors.New("unsupported RSM version")
	ErrTruncatedRSMData      = errors.New("truncated RSM data")
	ErrInvalidCount          = errors.New("invalid RSM element count")
)

// Sanity limits on element counts. Anything above these is a corrupt file.
const (
	maxNodes     = 10000
	maxTextures  = 1000
	maxElements  = 1 << 20
	maxKeyframes = 100000
	maxBoxes     = 1000

	nameSize = 40
)

// RSMVersion is the file format version.
type RSMVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v RSMVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast reports whether v >= major.minor.
func (v RSMVersion) AtLeast(major, minor uint8) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

// RSMShading is the shading mode stored in the header.
type RSMShading int32

const (
	RSMShadingNone   RSMShading = 0
	RSMShadingFlat   RSMShading = 1
	RSMShadingSmooth RSMShading = 2
)

func (s RSMShading) String() string {
	switch s {
	case RSMShadingNone:
		return "none"
	case RSMShadingFlat:
		return "flat"
	case RSMShadingSmooth:
		return "smooth"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// RSMTexCoord is a texture coordinate with its vertex colour. Files before
// 1.2 carry no colour; it reads as opaque white.
type RSMTexCoord struct {
	Color [4]uint8
	U, V  float32
}

// RSMFace is a triangle. Vertex and texcoord corners index separate pools.
type RSMFace struct {
	VertexIDs   [3]uint16
	TexCoordIDs [3]uint16
	TextureID   uint16
	TwoSide     int32
	SmoothGroup int32 // 1.2+
}

// RSMPosKey is a position keyframe (files before 1.5).
type RSMPosKey struct {
	Frame    int32
	Position [3]float32
}

// RSMRotKey is a rotation keyframe as an XYZW quaternion.
type RSMRotKey struct {
	Frame      int32
	Quaternion [4]float32
}

// RSMScaleKey is a scale keyframe (1.5+).
type RSMScaleKey struct {
	Frame int32
	Scale [3]float32
}

// RSMNode is one mesh in the model hierarchy.
type RSMNode struct {
	Name       string
	Parent     string
	TextureIDs []int32

	Matrix   [9]float32 // column-major 3x3
	Offset   [3]float32
	Position [3]float32
	RotAngle float32 // radians
	RotAxis  [3]float32
	Scale    [3]float32

	Vertices  [][3]float32
	TexCoords []RSMTexCoord
	Faces     []RSMFace

	PosKeys   []RSMPosKey
	RotKeys   []RSMRotKey
	ScaleKeys []RSMScaleKey
}

// RSMVolumeBox is a collision box.
type RSMVolumeBox struct {
	Size     [3]float32
	Position [3]float32
	Rotation [3]float32
	Flag     int32 // 1.3+
}

// RSM is a parsed model.
type RSM struct {
	Version     RSMVersion
	AnimLength  int32 // milliseconds
	Shading     RSMShading
	Alpha       float32
	Textures    []string
	RootNode    string
	Nodes       []RSMNode
	VolumeBoxes []RSMVolumeBox
}

// reader decodes little-endian fields and remembers the first error, so a
// run of reads can be checked once. Running out of data is reported as
// truncated.
type reader struct {
	r         *bytes.Reader
	err       error
	truncated error
}

func (r *reader) read(v any) {
	if r.err != nil {
		return
	}
	if err := binary.Read(r.r, binary.LittleEndian, v); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = r.truncated
		}
		r.err = err
	}
}

func (r *reader) skip(n int64) {
	if r.err != nil {
		return
	}
	if int64(r.r.Len()) < n {
		r.err = r.truncated
		return
	}
	r.r.Seek(n, io.SeekCurrent)
}

func (r *reader) name() string { return r.fixed(nameSize) }

// fixed reads a NUL-padded EUC-KR field of size bytes.
func (r *reader) fixed(size int) string {
	buf := make([]byte, size)
	r.read(buf)
	if r.err != nil {
		return ""
	}
	return encoding.DecodeFixed(buf)
}

// count reads an int32 element count and checks it against limit.
func (r *reader) count(what string, limit int32) int {
	var n int32
	r.read(&n)
	if r.err == nil && (n < 0 || n > limit) {
		r.err = fmt.Errorf("%w: %d %s", ErrInvalidCount, n, what)
	}
	if r.err != nil {
		return 0
	}
	return int(n)
}

func alloc[T any](n int) []T {
	if n == 0 {
		return nil
	}
	return make([]T, n)
}

// ParseRSM parses a model. Versions 1.1 through 1.5 are supported.
func ParseRSM(data []byte) (*RSM, error) {
	if len(data) < 6 {
		return nil, ErrTruncatedRSMData
	}
	if string(data[:4]) != "GRSM" {
		return nil, ErrInvalidRSMMagic
	}

	m := &RSM{Version: RSMVersion{Major: data[4], Minor: data[5]}}
	if m.Version.Major != 1 || m.Version.Minor < 1 || m.Version.Minor > 5 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, m.Version)
	}

	r := &reader{r: bytes.NewReader(data[6:]), truncated: ErrTruncatedRSMData}
	r.read(&m.AnimLength)
	r.read(&m.Shading)

	m.Alpha = 1
	if m.Version.AtLeast(1, 4) {
		var alpha uint8
		r.read(&alpha)
		m.Alpha = float32(alpha) / 255
	}
	r.skip(16) // reserved

	m.Textures = alloc[string](r.count("textures", maxTextures))
	for i := range m.Textures {
		m.Textures[i] = r.name()
	}

	m.RootNode = r.name()

	m.Nodes = alloc[RSMNode](r.count("nodes", maxNodes))
	for i := range m.Nodes {
		readNode(r, m.Version, &m.Nodes[i])
		if r.err != nil {
			return nil, fmt.Errorf("node %d: %w", i, r.err)
		}
	}
	if r.err != nil {
		return nil, r.err
	}

	// Volume boxes are optional trailing data.
	if r.r.Len() >= 4 {
		m.VolumeBoxes = alloc[RSMVolumeBox](r.count("volume boxes", maxBoxes))
		for i := range m.VolumeBoxes {
			b := &m.VolumeBoxes[i]
			r.read(&b.Size)
			r.read(&b.Position)
			r.read(&b.Rotation)
			if m.Version.AtLeast(1, 3) {
				r.read(&b.Flag)
			}
		}
		if r.err != nil {
			return nil, fmt.Errorf("volume boxes: %w", r.err)
		}
	}

	return m, nil
}

func readNode(r *reader, v RSMVersion, n *RSMNode) {
	n.Name = r.name()
	n.Parent = r.name()

	n.TextureIDs = alloc[int32](r.count("texture ids", maxTextures))
	r.read(n.TextureIDs)

	r.read(&n.Matrix)
	r.read(&n.Offset)
	r.read(&n.Position)
	r.read(&n.RotAngle)
	r.read(&n.RotAxis)
	r.read(&n.Scale)

	n.Vertices = alloc[[3]float32](r.count("vertices", maxElements))
	r.read(n.Vertices)

	n.TexCoords = alloc[RSMTexCoord](r.count("texcoords", maxElements))
	for i := range n.TexCoords {
		tc := &n.TexCoords[i]
		if v.AtLeast(1, 2) {
			r.read(&tc.Color)
		} else {
			tc.Color = [4]uint8{255, 255, 255, 255}
		}
		r.read(&tc.U)
		r.read(&tc.V)
	}

	n.Faces = alloc[RSMFace](r.count("faces", maxElements))
	for i := range n.Faces {
		f := &n.Faces[i]
		var padding uint16
		r.read(&f.VertexIDs)
		r.read(&f.TexCoordIDs)
		r.read(&f.TextureID)
		r.read(&padding)
		r.read(&f.TwoSide)
		if v.AtLeast(1, 2) {
			r.read(&f.SmoothGroup)
		}
	}

	if !v.AtLeast(1, 5) {
		n.PosKeys = alloc[RSMPosKey](r.count("position keys", maxKeyframes))
		for i := range n.PosKeys {
			r.read(&n.PosKeys[i].Frame)
			r.read(&n.PosKeys[i].Position)
		}
	}

	n.RotKeys = alloc[RSMRotKey](r.count("rotation keys", maxKeyframes))
	for i := range n.RotKeys {
		r.read(&n.RotKeys[i].Frame)
		r.read(&n.RotKeys[i].Quaternion)
	}

	if v.AtLeast(1, 5) {
		n.ScaleKeys = alloc[RSMScaleKey](r.count("scale keys", maxKeyframes))
		for i := range n.ScaleKeys {
			r.read(&n.ScaleKeys[i].Frame)
			r.read(&n.ScaleKeys[i].Scale)
		}
	}
}

// ParseRSMFile parses the model at path.
func ParseRSMFile(path string) (*RSM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RSM file: %w", err)
	}
	return ParseRSM(data)
}

// TotalVertexCount returns the number of vertices across all nodes.
func (m *RSM) TotalVertexCount() int {
	total := 0
	for _, n := range m.Nodes {
		total += len(n.Vertices)
	}
	return total
}

// TotalFaceCount returns the number of faces across all nodes.
func (m *RSM) TotalFaceCount() int {
	total := 0
	for _, n := range m.Nodes {
		total += len(n.Faces)
	}
	return total
}

// NodeByName returns the first node called name, or nil.
func (m *RSM) NodeByName(name string) *RSMNode {
	for i := range m.Nodes {
		if m.Nodes[i].Name == name {
			return &m.Nodes[i]
		}
	}
	return nil
}

// ChildNodes returns the nodes whose parent is name, in file order.
func (m *RSM) ChildNodes(name string) []*RSMNode {
	var children []*RSMNode
	for i := range m.Nodes {
		n := &m.Nodes[i]
		if n.Parent == name && n.Name != name {
			children = append(children, n)
		}
	}
	return children
}

// RootNodes returns the nodes that start a hierarchy: the named root node
// if it exists, followed by every node whose parent is missing or itself.
func (m *RSM) RootNodes() []*RSMNode {
	var roots []*RSMNode
	named := m.NodeByName(m.RootNode)
	if named != nil {
		roots = append(roots, named)
	}
	for i := range m.Nodes {
		n := &m.Nodes[i]
		if n == named {
			continue
		}
		if n.Parent == "" || n.Parent == n.Name || m.NodeByName(n.Parent) == nil {
			roots = append(roots, n)
		}
	}
	return roots
}

// HasAnimation reports whether any node carries keyframes.
func (m *RSM) HasAnimation() bool {
	for _, n := range m.Nodes {
		if len(n.PosKeys) > 0 || len(n.RotKeys) > 0 || len(n.ScaleKeys) > 0 {
			return true
		}
	}
	return false
}
