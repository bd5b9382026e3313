package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-ply/internal/config"
	"github.com/Faultbox/midgard-ply/internal/logger"
	"github.com/Faultbox/midgard-ply/internal/rsmscene"
	"github.com/Faultbox/midgard-ply/internal/watch"
	"github.com/Faultbox/midgard-ply/pkg/grf"
	"github.com/Faultbox/midgard-ply/pkg/ply"
	"github.com/Faultbox/midgard-ply/pkg/scene"
)

const (
	stdoutName = "-"
	outputMode = 0o644
)

type exporter struct {
	cfg    *config.Config
	inputs []string
	output string
	stdout io.Writer

	opts     ply.Options
	loader   *rsmscene.Loader
	archives []*grf.Archive
	log      *zap.Logger
}

func newExporter(cfg *config.Config, inputs []string, stdout io.Writer) (*exporter, error) {
	if len(inputs) == 0 {
		return nil, errors.New("no inputs")
	}

	opts, err := cfg.ExportOptions(logger.Named("ply"))
	if err != nil {
		return nil, err
	}

	e := &exporter{
		cfg:    cfg,
		inputs: inputs,
		output: cfg.Export.Output,
		stdout: stdout,
		opts:   opts,
		log:    logger.Named("plyexport"),
	}
	if e.output == "" {
		e.output = outputFor(inputs[0])
	}

	var src rsmscene.Chain
	for _, dir := range cfg.Data.ModelDirs {
		src = append(src, rsmscene.DirSource(dir))
	}
	for _, path := range cfg.Data.GRFPaths {
		a, err := grf.Open(path)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.archives = append(e.archives, a)
		src = append(src, a)
		e.log.Debug("opened archive", zap.String("path", path), zap.Int("files", len(a.List())))
	}
	e.loader = rsmscene.NewLoader(src, cfg.BuildOptions(logger.Named("rsm")))
	return e, nil
}

func (e *exporter) Close() error {
	var errs []error
	for _, a := range e.archives {
		errs = append(errs, a.Close())
	}
	return errors.Join(errs...)
}

// outputFor names the default output after an input: wall.rsm -> wall.ply.
func outputFor(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".ply"
}

func isManifest(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func isWorld(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".rsw")
}

// buildScene places every input under one root.
func (e *exporter) buildScene() (*scene.Group, error) {
	root := scene.NewGroup("scene")
	for _, in := range e.inputs {
		var g *scene.Group
		var err error
		if isManifest(in) {
			var m *rsmscene.Manifest
			if m, err = rsmscene.LoadManifest(in); err != nil {
				return nil, err
			}
			if m.Name == "" {
				m.Name = in
			}
			g, err = e.loader.BuildManifest(m)
		} else if isWorld(in) {
			g, err = e.loader.World(in)
		} else {
			g, err = e.loader.Instance(in)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", in, err)
		}
		root.Add(g)
	}
	return root, nil
}

func (e *exporter) export() error {
	start := time.Now()

	root, err := e.buildScene()
	if err != nil {
		return err
	}

	var stats ply.Stats
	if e.output == stdoutName {
		stats, err = ply.EncodeStats(e.stdout, root, e.opts)
	} else {
		stats, err = e.writeFile(root)
	}
	if err != nil {
		return err
	}

	e.log.Info("exported",
		zap.String("output", e.output),
		zap.Int("meshes", stats.Meshes),
		zap.Int("geometries", stats.Geometries),
		zap.Int("vertices", stats.Vertices),
		zap.Int("faces", stats.Faces),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// writeFile writes to a temporary file next to the output and renames it
// into place, so a failed export never leaves a partial document.
func (e *exporter) writeFile(root scene.Node) (ply.Stats, error) {
	tmp, err := os.CreateTemp(filepath.Dir(e.output), ".plyexport-*.ply")
	if err != nil {
		return ply.Stats{}, err
	}

	stats, err := ply.EncodeStats(tmp, root, e.opts)
	if err == nil {
		err = tmp.Chmod(outputMode)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), e.output)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return ply.Stats{}, err
	}
	return stats, nil
}

// watchPaths lists the files on disk behind the last export: manifests,
// and every input, model, world and ground found in a model directory,
// plus keep. Files that only live in an archive are not watched.
func (e *exporter) watchPaths(keep ...string) []string {
	var paths []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, p := range keep {
		add(p)
	}
	for _, in := range e.inputs {
		if isManifest(in) {
			add(in)
		} else if p, ok := e.onDisk(in); ok {
			add(p)
		}
	}
	for _, f := range e.loader.Files() {
		if p, ok := e.onDisk(f); ok {
			add(p)
		}
	}
	return paths
}

// onDisk finds the file the model directories serve for a data path.
func (e *exporter) onDisk(name string) (string, bool) {
	for _, dir := range e.cfg.Data.ModelDirs {
		p := rsmscene.DirSource(dir).Path(name)
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

func (e *exporter) watch(ctx context.Context) error {
	initial := e.watchPaths()
	if len(initial) == 0 {
		return errors.New("watch: no inputs on disk")
	}
	w, err := watch.New(initial, time.Duration(e.cfg.Export.DebounceMs)*time.Millisecond, logger.Named("watch"))
	if err != nil {
		return err
	}
	defer w.Close()

	e.log.Info("watching inputs", zap.Strings("files", initial))
	return w.Run(ctx, func(changed []string) {
		e.log.Info("inputs changed", zap.Strings("files", changed))
		e.loader.Reset()
		if err := e.export(); err != nil {
			e.log.Error("export failed", zap.Error(err))
		}
		// Manifests and worlds may now reference other files. Inputs stay
		// watched even while an editor has them moved aside.
		paths := e.watchPaths(initial...)
		if err := w.Set(paths); err != nil {
			e.log.Warn("updating watched files", zap.Error(err))
			return
		}
		e.log.Debug("watching inputs", zap.Strings("files", paths))
	})
}
