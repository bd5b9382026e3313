package config

import (
	"flag"
	"strings"
)

// Flags are the command-line overrides. Only flags given on the command
// line override file values.
type Flags struct {
	fs *flag.FlagSet

	config   string
	output   string
	exclude  string
	grf      string
	logFile  string
	animTime float64
	debug    bool
	binary   bool
	watch    bool
	flipY    bool
	twoSided bool
	ground   bool
}

// RegisterFlags defines the config flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.config, "config", "", "Path to config file (.yaml or .toml)")
	fs.StringVar(&f.output, "o", "", "Output file, - for stdout (default <first input>.ply)")
	fs.StringVar(&f.exclude, "exclude", "", "Comma separated properties to leave out: normal,uv,color,index")
	fs.StringVar(&f.grf, "grf", "", "Comma separated GRF archives to read models from")
	fs.StringVar(&f.logFile, "log", "", "Also log to this file, rotated")
	fs.Float64Var(&f.animTime, "time", 0, "Animation time in milliseconds to pose models at")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&f.binary, "binary", false, "Request binary PLY output")
	fs.BoolVar(&f.watch, "watch", false, "Re-export whenever an input changes")
	fs.BoolVar(&f.flipY, "flip-y", true, "Convert model Y-down coordinates to Y-up")
	fs.BoolVar(&f.twoSided, "two-sided", false, "Emit back faces for every face")
	fs.BoolVar(&f.ground, "ground", false, "Include the ground mesh of .rsw inputs")
	return f
}

// ConfigPath returns the explicit config path given with -config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return f.config
}

// apply copies the flags that were set onto cfg.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "o":
			cfg.Export.Output = f.output
		case "exclude":
			cfg.Export.Exclude = splitList(f.exclude)
		case "grf":
			cfg.Data.GRFPaths = splitList(f.grf)
		case "log":
			cfg.Logging.LogFile = f.logFile
		case "time":
			cfg.Export.AnimTimeMs = float32(f.animTime)
		case "debug":
			if f.debug {
				cfg.Logging.Level = "debug"
			}
		case "binary":
			cfg.Export.Binary = f.binary
		case "watch":
			cfg.Export.Watch = f.watch
		case "flip-y":
			cfg.Export.FlipY = f.flipY
		case "two-sided":
			cfg.Export.ForceTwoSided = f.twoSided
		case "ground":
			cfg.Export.Ground = f.ground
		}
	})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
