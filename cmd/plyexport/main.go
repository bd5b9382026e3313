// plyexport converts RSM models and scene manifests to PLY meshes.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-ply/internal/config"
	"github.com/Faultbox/midgard-ply/internal/logger"
)

func main() {
	fs := flag.NewFlagSet("plyexport", flag.ExitOnError)
	fs.Usage = func() { printUsage(fs) }
	flags := config.RegisterFlags(fs)
	fs.Parse(os.Args[1:])

	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.InitWithFileConfig(cfg.Logging.Level, cfg.LogFileConfig(), true); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, fs.Args(), os.Stdout)
	stop()

	if err != nil {
		logger.Error("export failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

// run exports once, then keeps re-exporting on change in watch mode until
// ctx is done.
func run(ctx context.Context, cfg *config.Config, inputs []string, stdout io.Writer) error {
	ex, err := newExporter(cfg, inputs, stdout)
	if err != nil {
		return err
	}
	defer ex.Close()

	if err := ex.export(); err != nil {
		if !cfg.Export.Watch {
			return err
		}
		ex.log.Error("export failed, waiting for changes", zap.Error(err))
	}
	if !cfg.Export.Watch {
		return nil
	}
	return ex.watch(ctx)
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintln(fs.Output(), `plyexport - convert RSM models to PLY

Usage:
  plyexport [options] <model.rsm | world.rsw | scene.yaml>...

Every input is placed in one merged mesh. Model and world paths are looked
up in the configured model directories, then in the GRF archives given with
-grf. A world exports every model it places.

Examples:
  plyexport data/model/prontera/wall.rsm
  plyexport -exclude color,uv -o - wall.rsm > wall.ply
  plyexport -grf data.grf -time 500 -o gate.ply gate.yaml
  plyexport -grf data.grf -ground -o prontera.ply data/prontera.rsw
  plyexport -watch scene.yaml

Options:`)
	fs.PrintDefaults()
}
