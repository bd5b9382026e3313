package ply

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ErrUnknownProperty is returned for an exclusion name that is not one of
// normal, uv, color or index.
var ErrUnknownProperty = errors.New("unknown PLY property")

// Property names an optional part of the exported document.
type Property string

const (
	PropertyNormal Property = "normal"
	PropertyUV     Property = "uv"
	PropertyColor  Property = "color"
	PropertyIndex  Property = "index"
)

// ParseProperty validates a property name (case-insensitive).
func ParseProperty(s string) (Property, error) {
	p := Property(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PropertyNormal, PropertyUV, PropertyColor, PropertyIndex:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProperty, s)
}

// ParseProperties validates a list of property names.
func ParseProperties(names []string) ([]Property, error) {
	props := make([]Property, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		p, err := ParseProperty(name)
		if err != nil {
			return nil, err
		}
		props = append(props, p)
	}
	return props, nil
}

// Format is the data encoding declared in the header.
type Format int

const (
	FormatASCII Format = iota
	FormatBinaryBigEndian
	FormatBinaryLittleEndian
)

// String returns the name used on the header's format line.
func (f Format) String() string {
	switch f {
	case FormatBinaryBigEndian:
		return "binary_big_endian"
	case FormatBinaryLittleEndian:
		return "binary_little_endian"
	default:
		return "ascii"
	}
}

// Options controls what an export contains.
type Options struct {
	// Binary requests a binary document. Only ASCII bodies are written;
	// Encode rejects Binary with ErrBinaryUnsupported.
	Binary bool
	// LittleEndian selects binary_little_endian when Binary is set.
	LittleEndian bool
	// Exclude drops properties even when the geometry provides them.
	Exclude []Property
	// Logger receives debug output. Nil disables logging.
	Logger *zap.Logger
}

func (o Options) excludes(p Property) bool {
	for _, e := range o.Exclude {
		if e == p {
			return true
		}
	}
	return false
}

func (o Options) format() Format {
	switch {
	case !o.Binary:
		return FormatASCII
	case o.LittleEndian:
		return FormatBinaryLittleEndian
	default:
		return FormatBinaryBigEndian
	}
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o Options) validate() error {
	for _, e := range o.Exclude {
		if _, err := ParseProperty(string(e)); err != nil {
			return err
		}
	}
	return nil
}
