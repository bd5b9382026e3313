package ply

import (
	"fmt"
	"io"
	"strings"
)

// Header returns the PLY header text for the schema, including the
// trailing end_header line. Property order here is the column order of the
// body.
func (s Schema) Header() string {
	var b strings.Builder

	b.WriteString("ply\n")
	fmt.Fprintf(&b, "format %s 1.0\n", s.Format)

	fmt.Fprintf(&b, "element vertex %d\n", s.VertexCount)
	b.WriteString("property float x\nproperty float y\nproperty float z\n")
	if s.IncludeNormals {
		b.WriteString("property float nx\nproperty float ny\nproperty float nz\n")
	}
	if s.IncludeUVs {
		b.WriteString("property float s\nproperty float t\n")
	}
	if s.IncludeColors {
		b.WriteString("property uchar red\nproperty uchar green\nproperty uchar blue\n")
	}

	if s.IncludeIndices {
		fmt.Fprintf(&b, "element face %d\n", s.FaceCount)
		fmt.Fprintf(&b, "property list uchar uint%d vertex_index\n", s.indexWidth()*8)
	}

	b.WriteString("end_header\n")
	return b.String()
}

// WriteHeader writes Header to w.
func (s Schema) WriteHeader(w io.Writer) error {
	_, err := io.WriteString(w, s.Header())
	return err
}

func (s Schema) indexWidth() int {
	if s.IndexWidth == 0 {
		return IndexWidth(s.VertexCount)
	}
	return s.IndexWidth
}
