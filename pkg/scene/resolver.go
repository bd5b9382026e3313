package scene

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
)

type resolved struct {
	buf *BufferGeometry
	err error
}

// Resolver presents any Geometry as a validated *BufferGeometry. Converted
// and validated results are memoized by geometry ID, so geometry shared by
// several nodes is converted once. A Resolver is meant to live for a single
// export and is not safe for concurrent use.
type Resolver struct {
	cache map[uuid.UUID]resolved
}

// NewResolver creates a resolver with an empty cache.
func NewResolver() *Resolver {
	return &Resolver{cache: make(map[uuid.UUID]resolved)}
}

// Resolve returns the buffer form of g. A nil geometry, including a nil
// pointer of a concrete geometry type, resolves to nil.
func (r *Resolver) Resolve(g Geometry) (*BufferGeometry, error) {
	if isNil(g) {
		return nil, nil
	}
	id := g.ID()
	if hit, ok := r.cache[id]; ok {
		return hit.buf, hit.err
	}

	buf, err := r.convert(g)
	if err == nil {
		err = buf.Validate()
	}
	if err != nil {
		buf = nil
	}
	r.cache[id] = resolved{buf: buf, err: err}
	return buf, err
}

// Len returns the number of distinct geometries resolved so far.
func (r *Resolver) Len() int { return len(r.cache) }

func isNil(g Geometry) bool {
	if g == nil {
		return true
	}
	v := reflect.ValueOf(g)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func (r *Resolver) convert(g Geometry) (*BufferGeometry, error) {
	switch g := g.(type) {
	case *BufferGeometry:
		return g, nil
	case Converter:
		buf, err := g.ToBuffer()
		if err != nil {
			return nil, fmt.Errorf("converting geometry %s: %w", g.ID(), err)
		}
		return buf, nil
	default:
		return nil, fmt.Errorf("%w: unsupported geometry type %T", ErrMalformedGeometry, g)
	}
}
