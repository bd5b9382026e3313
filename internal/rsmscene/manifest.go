package rsmscene

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-ply/pkg/math"
	"github.com/Faultbox/midgard-ply/pkg/scene"
)

var ErrEmptyManifest = errors.New("manifest has no instances")

// Manifest places model instances in one scene.
//
//	name: south gate
//	instances:
//	  - model: data/model/wall.rsm
//	    position: [10, 0, -4]
//	    rotation: [0, 90, 0]
//	    scale: [1, 1, 1]
type Manifest struct {
	Name      string     `yaml:"name"`
	Instances []Instance `yaml:"instances"`
}

// Instance is one placed model. Rotation is in degrees and is applied
// about Y, then X, then Z. A missing scale means 1.
type Instance struct {
	Name     string      `yaml:"name,omitempty"`
	Model    string      `yaml:"model"`
	Position [3]float32  `yaml:"position"`
	Rotation [3]float32  `yaml:"rotation"`
	Scale    *[3]float32 `yaml:"scale,omitempty"`
}

// Matrix returns the instance's placement transform.
func (i Instance) Matrix() math.Mat4 {
	const rad = 3.14159265358979323846 / 180

	m := math.Translate(i.Position[0], i.Position[1], i.Position[2])
	m = m.Mul(math.RotateY(i.Rotation[1] * rad))
	m = m.Mul(math.RotateX(i.Rotation[0] * rad))
	m = m.Mul(math.RotateZ(i.Rotation[2] * rad))
	if i.Scale != nil {
		m = m.Mul(math.Scale(i.Scale[0], i.Scale[1], i.Scale[2]))
	}
	return m
}

// ParseManifest decodes a YAML manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if len(m.Instances) == 0 {
		return nil, ErrEmptyManifest
	}
	for i, inst := range m.Instances {
		if inst.Model == "" {
			return nil, fmt.Errorf("parsing manifest: instance %d has no model", i)
		}
	}
	return &m, nil
}

// LoadManifest reads and decodes the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return ParseManifest(data)
}

// BuildManifest builds one group holding every instance of m.
func (l *Loader) BuildManifest(m *Manifest) (*scene.Group, error) {
	return l.place(m, false)
}

// place builds m's instances under one group. With lenient set, instances
// whose model cannot be loaded are logged and left out.
func (l *Loader) place(m *Manifest, lenient bool) (*scene.Group, error) {
	root := scene.NewGroup(m.Name)
	for i, inst := range m.Instances {
		placement := inst.Matrix()
		g, err := l.instance(inst.Model, flipsWinding(placement))
		if err != nil {
			if lenient {
				l.log.Warn("skipping instance",
					zap.String("scene", m.Name),
					zap.Int("instance", i),
					zap.String("model", inst.Model),
					zap.Error(err),
				)
				continue
			}
			return nil, fmt.Errorf("instance %d: %w", i, err)
		}

		name := inst.Name
		if name == "" {
			name = fmt.Sprintf("%s@%d", inst.Model, i)
		}
		placed := scene.NewGroup(name)
		placed.SetMatrix(placement)
		placed.Add(g)
		root.Add(placed)
	}
	return root, nil
}
