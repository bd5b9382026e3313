package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Faultbox/midgard-ply/internal/rsmscene"
	"github.com/Faultbox/midgard-ply/pkg/formats"
	"github.com/Faultbox/midgard-ply/pkg/grf"
	"github.com/Faultbox/midgard-ply/pkg/ply"
)

const modelExt = ".rsm"

// readInput reads path from the archive when one is given, else from disk.
func readInput(archivePath, path string) ([]byte, error) {
	if archivePath == "" {
		return os.ReadFile(path)
	}
	archive, err := grf.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer archive.Close()
	return archive.Read(path)
}

func cmdInfo(w io.Writer, args []string) error {
	fs := newFlagSet("info", w)
	archivePath := fs.String("grf", "", "Read the model from this archive")
	animTime := fs.Float64("time", 0, "Animation time in milliseconds")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(w, "Usage: rsmtool info [-grf file.grf] [-time ms] <model.rsm>")
		return errUsage
	}
	path := fs.Arg(0)

	data, err := readInput(*archivePath, path)
	if err != nil {
		return err
	}

	model, err := formats.ParseRSM(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	fmt.Fprintf(w, "Model:     %s\n", path)
	fmt.Fprintf(w, "Version:   %s\n", model.Version)
	fmt.Fprintf(w, "Shading:   %s\n", model.Shading)
	fmt.Fprintf(w, "Textures:  %d\n", len(model.Textures))
	fmt.Fprintf(w, "Nodes:     %d\n", len(model.Nodes))
	fmt.Fprintf(w, "Vertices:  %d\n", model.TotalVertexCount())
	fmt.Fprintf(w, "Faces:     %d\n", model.TotalFaceCount())
	if model.HasAnimation() {
		fmt.Fprintf(w, "Animation: %d ms\n", model.AnimLength)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Hierarchy:")
	printTree(w, model)

	root, err := rsmscene.Build(filepath.Base(path), model, rsmscene.BuildOptions{
		AnimTimeMs: float32(*animTime),
		FlipY:      true,
	})
	if err != nil {
		return err
	}
	schema, stats, err := ply.Inspect(root, ply.Options{})
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "PLY export:")
	fmt.Fprintf(w, "  meshes    %d\n", stats.Meshes)
	fmt.Fprintf(w, "  vertices  %d\n", schema.VertexCount)
	fmt.Fprintf(w, "  faces     %d\n", schema.FaceCount)
	fmt.Fprintf(w, "  index     uint%d\n", schema.IndexWidth*8)
	return nil
}

func cmdWorld(w io.Writer, args []string) error {
	fs := newFlagSet("world", w)
	archivePath := fs.String("grf", "", "Read the map from this archive")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(w, "Usage: rsmtool world [-grf file.grf] <map.rsw>")
		return errUsage
	}
	path := fs.Arg(0)

	data, err := readInput(*archivePath, path)
	if err != nil {
		return err
	}
	world, err := formats.ParseRSW(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	fmt.Fprintf(w, "Map:      %s\n", path)
	fmt.Fprintf(w, "Version:  %s\n", world.Version)
	fmt.Fprintf(w, "Ground:   %s\n", world.GndFile)
	fmt.Fprintf(w, "Models:   %d placed\n", len(world.Models))
	for _, t := range []formats.RSWObjectType{formats.RSWObjectLight, formats.RSWObjectSound, formats.RSWObjectEffect} {
		if n := world.Skipped[t]; n > 0 {
			fmt.Fprintf(w, "          %d %ss\n", n, t)
		}
	}

	// Count placements per model, most used first.
	counts := make(map[string]int)
	for _, m := range world.Models {
		counts[m.ModelName]++
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	if len(names) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Placements:")
	}
	for _, name := range names {
		fmt.Fprintf(w, "  %4d  %s\n", counts[name], name)
	}
	return nil
}

// printTree writes the node hierarchy, one node per line, indented by
// depth. Nodes reachable twice through bad parent links print once.
func printTree(w io.Writer, model *formats.RSM) {
	seen := make(map[*formats.RSMNode]bool)
	var walk func(n *formats.RSMNode, depth int)
	walk = func(n *formats.RSMNode, depth int) {
		if seen[n] {
			return
		}
		seen[n] = true
		fmt.Fprintf(w, "  %s%s (%d vertices, %d faces", strings.Repeat("  ", depth), n.Name, len(n.Vertices), len(n.Faces))
		if keys := len(n.PosKeys) + len(n.RotKeys) + len(n.ScaleKeys); keys > 0 {
			fmt.Fprintf(w, ", %d keys", keys)
		}
		fmt.Fprintln(w, ")")
		for _, c := range model.ChildNodes(n.Name) {
			walk(c, depth+1)
		}
	}
	for _, n := range model.RootNodes() {
		walk(n, 0)
	}
}

// matchModel reports whether an archive path is a model matching pattern.
// The pattern is a glob on the base name or a substring of the full path.
func matchModel(path, pattern string) bool {
	path = strings.ToLower(path)
	if filepath.Ext(path) != modelExt {
		return false
	}
	if pattern == "" {
		return true
	}
	pattern = strings.ToLower(pattern)
	if matched, _ := filepath.Match(pattern, filepath.Base(path)); matched {
		return true
	}
	return strings.Contains(path, pattern)
}

func cmdList(w io.Writer, args []string) error {
	fs := newFlagSet("list", w)
	limit := fs.Int("n", 0, "Limit output to N models (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(w, "Usage: rsmtool list [-n N] <file.grf> [pattern]")
		return errUsage
	}

	archive, err := grf.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer archive.Close()

	count := 0
	for _, f := range archive.List() {
		if !matchModel(f, fs.Arg(1)) {
			continue
		}
		e, err := archive.Stat(f)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%10d  %s\n", e.UncompressedSize, f)
		count++
		if *limit > 0 && count >= *limit {
			break
		}
	}
	fmt.Fprintf(w, "\n(%d models)\n", count)
	return nil
}

func cmdExtract(w io.Writer, args []string) error {
	fs := newFlagSet("extract", w)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		fmt.Fprintln(w, "Usage: rsmtool extract <file.grf> <pattern> [output]")
		return errUsage
	}
	outputDir := "."
	if fs.NArg() > 2 {
		outputDir = fs.Arg(2)
	}

	archive, err := grf.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer archive.Close()

	extracted := 0
	for _, f := range archive.List() {
		if !matchModel(f, fs.Arg(1)) {
			continue
		}
		local := filepath.FromSlash(f)
		if !filepath.IsLocal(local) {
			fmt.Fprintf(w, "Skipped: %s (path escapes output)\n", f)
			continue
		}

		data, err := archive.Read(f)
		if err != nil {
			return fmt.Errorf("reading %s: %w", f, err)
		}

		// Preserve directory structure
		outputPath := filepath.Join(outputDir, local)
		if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(outputPath, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(w, "Extracted: %s (%d bytes)\n", outputPath, len(data))
		extracted++
	}

	fmt.Fprintf(w, "\nExtracted %d models\n", extracted)
	return nil
}

func cmdPack(w io.Writer, args []string) error {
	fs := newFlagSet("pack", w)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(w, "Usage: rsmtool pack <output.grf> <dir>")
		return errUsage
	}
	outputPath, root := fs.Arg(0), fs.Arg(1)

	var files []grf.File
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.ToLower(filepath.Ext(path)) != modelExt {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, grf.File{Name: filepath.ToSlash(rel), Data: data})
		return nil
	})
	if err != nil {
		return err
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if err := grf.Write(out, files); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	fmt.Fprintf(w, "Packed %d models into %s\n", len(files), outputPath)
	return nil
}
