package rsmscene

import (
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-ply/pkg/encoding"
	"github.com/Faultbox/midgard-ply/pkg/formats"
	"github.com/Faultbox/midgard-ply/pkg/scene"
)

type loadedModel struct {
	rsm   *formats.RSM
	geoms geometryCache
}

// Loader parses models from a Source and caches them by path, so every
// instance of one model shares its geometry. It is safe for concurrent use.
type Loader struct {
	src  Source
	opts BuildOptions
	log  *zap.Logger

	mu     sync.Mutex
	models map[string]*loadedModel

	filesMu sync.Mutex
	files   map[string]string // normalized path -> path as read
}

// NewLoader creates a loader reading from src.
func NewLoader(src Source, opts BuildOptions) *Loader {
	return &Loader{
		src:    src,
		opts:   opts,
		log:    opts.logger(),
		models: make(map[string]*loadedModel),
		files:  make(map[string]string),
	}
}

// read reads path from the source and records it for Files.
func (l *Loader) read(path string) ([]byte, error) {
	data, err := l.src.Read(path)
	if err != nil {
		return nil, err
	}
	key := encoding.NormalizePath(path)
	l.filesMu.Lock()
	if _, ok := l.files[key]; !ok {
		l.files[key] = path
	}
	l.filesMu.Unlock()
	return data, nil
}

// Files returns, sorted, every path read from the source since the loader
// was created or last Reset: models, worlds and grounds.
func (l *Loader) Files() []string {
	l.filesMu.Lock()
	defer l.filesMu.Unlock()
	out := make([]string, 0, len(l.files))
	for _, p := range l.files {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

func (l *Loader) load(path string) (*loadedModel, error) {
	key := encoding.NormalizePath(path)

	l.mu.Lock()
	defer l.mu.Unlock()

	if m, ok := l.models[key]; ok {
		return m, nil
	}

	data, err := l.read(path)
	if err != nil {
		return nil, fmt.Errorf("reading model %s: %w", path, err)
	}
	rsm, err := formats.ParseRSM(data)
	if err != nil {
		return nil, fmt.Errorf("parsing model %s: %w", path, err)
	}

	l.log.Debug("loaded model",
		zap.String("path", path),
		zap.Stringer("version", rsm.Version),
		zap.Int("nodes", len(rsm.Nodes)),
		zap.Int("vertices", rsm.TotalVertexCount()),
		zap.Int("faces", rsm.TotalFaceCount()),
	)

	m := &loadedModel{rsm: rsm, geoms: geometryCache{}}
	l.models[key] = m
	return m, nil
}

// Model returns the parsed model at path.
func (l *Loader) Model(path string) (*formats.RSM, error) {
	m, err := l.load(path)
	if err != nil {
		return nil, err
	}
	return m.rsm, nil
}

// Instance builds a new scene tree for the model at path. Trees built from
// the same path share geometry.
func (l *Loader) Instance(path string) (*scene.Group, error) {
	return l.instance(path, false)
}

// instance builds a tree to be placed under a transform that mirrors space
// when mirrored is set.
func (l *Loader) instance(path string, mirrored bool) (*scene.Group, error) {
	m, err := l.load(path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return build(path, m.rsm, l.opts, m.geoms, mirrored)
}

// Forget drops a cached model so the next load reads it again.
func (l *Loader) Forget(path string) {
	l.mu.Lock()
	delete(l.models, encoding.NormalizePath(path))
	l.mu.Unlock()
}

// Reset drops every cached model and forgets the files read.
func (l *Loader) Reset() {
	l.mu.Lock()
	l.models = make(map[string]*loadedModel)
	l.mu.Unlock()

	l.filesMu.Lock()
	l.files = make(map[string]string)
	l.filesMu.Unlock()
}

// Cached returns the number of models in the cache.
func (l *Loader) Cached() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.models)
}
