// Package ply exports a scene graph as a single merged PLY mesh.
//
// An export makes two passes over the scene. The first aggregates vertex
// and face counts and the set of vertex properties present on any mesh;
// the second writes one vertex record per vertex, transformed into world
// space, and one face record per triangle with indices offset into the
// concatenated vertex list.
package ply

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-ply/pkg/scene"
)

var (
	// ErrMalformedGeometry is returned when the scene cannot be written as
	// a consistent document, most commonly an unindexed mesh whose vertex
	// count is not a multiple of three while face output is enabled.
	ErrMalformedGeometry = scene.ErrMalformedGeometry

	// ErrBinaryUnsupported is returned when Options.Binary is set.
	ErrBinaryUnsupported = errors.New("binary PLY output is not supported")
)

// Export renders the scene under root as an ASCII PLY document.
func Export(root scene.Node, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, root, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes the scene under root to w as an ASCII PLY document.
func Encode(w io.Writer, root scene.Node, opts Options) error {
	_, err := EncodeStats(w, root, opts)
	return err
}

// EncodeStats is Encode, also reporting what was exported. Nothing is
// written to w unless the scene aggregates without error.
func EncodeStats(w io.Writer, root scene.Node, opts Options) (Stats, error) {
	if err := opts.validate(); err != nil {
		return Stats{}, err
	}
	if opts.Binary {
		return Stats{}, ErrBinaryUnsupported
	}

	resolver := scene.NewResolver()
	schema, stats, err := aggregate(root, opts, resolver)
	if err != nil {
		return Stats{}, err
	}

	bw := bufio.NewWriterSize(w, 64*1024)
	e := newEmitter(bw, schema, resolver)

	if err := schema.WriteHeader(bw); err != nil {
		return Stats{}, fmt.Errorf("writing header: %w", err)
	}
	if err := e.writeVertices(root); err != nil {
		return Stats{}, fmt.Errorf("writing vertices: %w", err)
	}
	bw.WriteByte('\n')
	if schema.IncludeIndices {
		if err := e.writeFaces(root); err != nil {
			return Stats{}, fmt.Errorf("writing faces: %w", err)
		}
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return Stats{}, fmt.Errorf("flushing PLY output: %w", err)
	}

	opts.logger().Debug("exported PLY",
		zap.Int("vertices", stats.Vertices),
		zap.Int("faces", stats.Faces),
		zap.Int("geometries", stats.Geometries),
	)
	return stats, nil
}
