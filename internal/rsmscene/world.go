package rsmscene

import (
	"fmt"
	"path"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-ply/pkg/formats"
	"github.com/Faultbox/midgard-ply/pkg/scene"
)

// World files name their ground relative to dataRoot and their models
// relative to modelRoot.
const (
	dataRoot  = "data"
	modelRoot = "data/model"
)

// WorldManifest converts the model placements of a world file. Rotations
// are already degrees applied Y, X, Z. World positions are Y-down; flipY
// negates Y to match models built with FlipY.
func WorldManifest(name string, w *formats.RSW, flipY bool) *Manifest {
	m := &Manifest{Name: name, Instances: make([]Instance, 0, len(w.Models))}
	for _, p := range w.Models {
		scale := p.Scale
		pos := p.Position
		if flipY {
			pos[1] = -pos[1]
		}
		m.Instances = append(m.Instances, Instance{
			Name:     p.Name,
			Model:    path.Join(modelRoot, p.ModelName),
			Position: pos,
			Rotation: p.Rotation,
			Scale:    &scale,
		})
	}
	return m
}

// World reads the world file at path through the loader's source and builds
// every model it places, plus the ground mesh when the Ground option is set.
// Models that cannot be loaded are logged and left out, as a map commonly
// references a few missing files.
func (l *Loader) World(file string) (*scene.Group, error) {
	data, err := l.read(file)
	if err != nil {
		return nil, fmt.Errorf("reading world %s: %w", file, err)
	}
	w, err := formats.ParseRSW(data)
	if err != nil {
		return nil, fmt.Errorf("parsing world %s: %w", file, err)
	}

	fields := []zap.Field{
		zap.String("path", file),
		zap.Stringer("version", w.Version),
		zap.Int("models", len(w.Models)),
	}
	for t, n := range w.Skipped {
		fields = append(fields, zap.Int("skipped_"+t.String(), n))
	}
	l.log.Debug("loaded world", fields...)

	root, err := l.place(WorldManifest(file, w, l.opts.FlipY), true)
	if err != nil {
		return nil, err
	}

	if l.opts.Ground && w.GndFile != "" {
		ground, err := l.ground(w.GndFile)
		if err != nil {
			return nil, err
		}
		root.Add(ground)
	}
	return root, nil
}

func (l *Loader) ground(gndFile string) (*scene.Mesh, error) {
	p := path.Join(dataRoot, gndFile)
	data, err := l.read(p)
	if err != nil {
		return nil, fmt.Errorf("reading ground %s: %w", p, err)
	}
	g, err := formats.ParseGND(data)
	if err != nil {
		return nil, fmt.Errorf("parsing ground %s: %w", p, err)
	}
	l.log.Debug("loaded ground",
		zap.String("path", p),
		zap.Stringer("version", g.Version),
		zap.Uint32("width", g.Width),
		zap.Uint32("height", g.Height),
	)
	return BuildGround(gndFile, g, l.opts.FlipY), nil
}
