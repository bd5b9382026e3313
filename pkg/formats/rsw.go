package formats

import (
	"bytes"
	"errors"
	"fmt"
	"os"
)

// RSW format errors.
var (
	ErrInvalidRSWMagic       = errors.New("invalid RSW magic: expected 'GRSW'")
	ErrUnsupportedRSWVersion = errors.New("unsupported RSW version")
	ErrTruncatedRSWData      = errors.New("truncated RSW data")
	ErrUnknownObjectType     = errors.New("unknown RSW object type")
)

const (
	rswPathSize = 40
	rswLongName = 80

	maxObjects = 1 << 20
)

// Byte sizes of world sections and objects that are read past.
const (
	rswWaterSize   = 24 // level, type, wave height, speed, pitch, anim speed
	rswLightSize   = 32 // longitude, latitude, diffuse, ambient
	rswOpacitySize = 4
	rswGroundSize  = 16 // top, bottom, left, right

	rswLightObjectSize  = rswLongName + 12 + 12 + 4
	rswSoundObjectSize  = 2*rswLongName + 12 + 4*4
	rswEffectObjectSize = rswLongName + 12 + 4 + 4 + 16
)

// RSWVersion is the world file version. BuildNumber is set from 2.2 on.
type RSWVersion struct {
	Major       uint8
	Minor       uint8
	BuildNumber uint32
}

// String returns "Major.Minor", or "Major.Minor.Build" when a build number
// is present.
func (v RSWVersion) String() string {
	if v.BuildNumber > 0 {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.BuildNumber)
	}
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast reports whether v >= major.minor.
func (v RSWVersion) AtLeast(major, minor uint8) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

func (v RSWVersion) supported() bool {
	return v.Major == 1 && v.Minor >= 2 || v.Major == 2 && v.Minor <= 6
}

// RSWObjectType is the kind of a world object.
type RSWObjectType int32

const (
	RSWObjectModel  RSWObjectType = 1
	RSWObjectLight  RSWObjectType = 2
	RSWObjectSound  RSWObjectType = 3
	RSWObjectEffect RSWObjectType = 4
)

func (t RSWObjectType) String() string {
	switch t {
	case RSWObjectModel:
		return "model"
	case RSWObjectLight:
		return "light"
	case RSWObjectSound:
		return "sound"
	case RSWObjectEffect:
		return "effect"
	default:
		return fmt.Sprintf("unknown(%d)", int32(t))
	}
}

// RSWModel places one RSM model in the world. Position is relative to the
// map center with Y pointing down; Rotation is in degrees.
type RSWModel struct {
	Name      string // 1.3+
	AnimType  int32  // 1.3+
	AnimSpeed float32
	BlockType int32
	ModelName string // path under data/model/
	NodeName  string
	Position  [3]float32
	Rotation  [3]float32
	Scale     [3]float32
}

// RSW is a world file reduced to its model placements. Lights, sounds and
// effects are read past and only counted.
type RSW struct {
	Version RSWVersion
	IniFile string
	GndFile string
	GatFile string // 1.4+
	SrcFile string // 1.4+
	Models  []RSWModel
	Skipped map[RSWObjectType]int
}

// ParseRSW parses a world file. Versions 1.2 through 2.6 are supported.
func ParseRSW(data []byte) (*RSW, error) {
	if len(data) < 6 {
		return nil, ErrTruncatedRSWData
	}
	if string(data[:4]) != "GRSW" {
		return nil, ErrInvalidRSWMagic
	}

	w := &RSW{Version: RSWVersion{Major: data[4], Minor: data[5]}}
	if !w.Version.supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSWVersion, w.Version)
	}
	v := &w.Version

	r := &reader{r: bytes.NewReader(data[6:]), truncated: ErrTruncatedRSWData}
	switch {
	case v.AtLeast(2, 5):
		r.read(&v.BuildNumber)
		r.skip(1) // render flags
	case v.AtLeast(2, 2):
		var build uint8
		r.read(&build)
		v.BuildNumber = uint32(build)
	}

	w.IniFile = r.fixed(rswPathSize)
	w.GndFile = r.fixed(rswPathSize)
	if v.AtLeast(1, 4) {
		w.GatFile = r.fixed(rswPathSize)
		w.SrcFile = r.fixed(rswPathSize)
	}

	// Water moved to the ground file in 2.6.
	if v.AtLeast(1, 3) && !v.AtLeast(2, 6) {
		r.skip(rswWaterSize)
	}
	if v.AtLeast(1, 5) {
		r.skip(rswLightSize)
	}
	if v.AtLeast(1, 7) {
		r.skip(rswOpacitySize)
	}
	if v.AtLeast(1, 6) {
		r.skip(rswGroundSize)
	}

	n := r.count("objects", maxObjects)
	if r.err != nil {
		return nil, r.err
	}
	for i := 0; i < n; i++ {
		if err := w.readObject(r); err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
	}
	// A quadtree follows from 2.1 on; placement does not need it.
	return w, nil
}

func (w *RSW) readObject(r *reader) error {
	var t RSWObjectType
	r.read(&t)
	if r.err != nil {
		return r.err
	}

	switch t {
	case RSWObjectModel:
		w.Models = append(w.Models, readRSWModel(r, w.Version))
	case RSWObjectLight:
		r.skip(rswLightObjectSize)
	case RSWObjectSound:
		size := int64(rswSoundObjectSize)
		if w.Version.AtLeast(2, 0) {
			size += 4 // cycle
		}
		r.skip(size)
	case RSWObjectEffect:
		r.skip(rswEffectObjectSize)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownObjectType, int32(t))
	}
	if r.err != nil {
		return r.err
	}

	if t != RSWObjectModel {
		if w.Skipped == nil {
			w.Skipped = make(map[RSWObjectType]int)
		}
		w.Skipped[t]++
	}
	return nil
}

func readRSWModel(r *reader, v RSWVersion) RSWModel {
	var m RSWModel
	if v.AtLeast(1, 3) {
		m.Name = r.fixed(rswPathSize)
		r.read(&m.AnimType)
		r.read(&m.AnimSpeed)
		r.read(&m.BlockType)
	}
	if v.AtLeast(2, 6) && v.BuildNumber >= 162 {
		r.skip(1) // collision flags
	}
	m.ModelName = r.fixed(rswLongName)
	m.NodeName = r.fixed(rswLongName)
	r.read(&m.Position)
	r.read(&m.Rotation)
	r.read(&m.Scale)
	return m
}

// ParseRSWFile parses the world file at path.
func ParseRSWFile(path string) (*RSW, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RSW file: %w", err)
	}
	return ParseRSW(data)
}
