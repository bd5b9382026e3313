// rsmtool inspects RSM models and extracts them from GRF archives.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

var errUsage = errors.New("invalid arguments")

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "info":
		err = cmdInfo(os.Stdout, args)
	case "world":
		err = cmdWorld(os.Stdout, args)
	case "list", "ls":
		err = cmdList(os.Stdout, args)
	case "extract", "x":
		err = cmdExtract(os.Stdout, args)
	case "pack":
		err = cmdPack(os.Stdout, args)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage(os.Stderr)
		os.Exit(1)
	}

	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `rsmtool - RSM model utility

Usage:
  rsmtool <command> [options]

Commands:
  info [-grf file.grf] [-time ms] <model.rsm>  Show model structure and PLY size
  world [-grf file.grf] <map.rsw>              Show the models a map places
  list [-n N] <file.grf> [pattern]             List models in an archive
  extract <file.grf> <pattern> [output]        Extract matching models
  pack <output.grf> <dir>                      Pack every model under dir

Examples:
  rsmtool info data/model/prontera/wall.rsm
  rsmtool info -grf data.grf data/model/prontera/wall.rsm
  rsmtool world -grf data.grf data/prontera.rsw
  rsmtool list data.grf "*gate*"
  rsmtool extract data.grf "*gate*.rsm" ./models
  rsmtool pack models.grf ./models`)
}

func newFlagSet(name string, w io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(w)
	return fs
}
