package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/planbiir/trkm/internal/logger"
)

// assignments collects repeated -set key=value flags.
type assignments []string

func (a *assignments) String() string { return strings.Join(*a, ",") }

func (a *assignments) Set(v string) error {
	*a = append(*a, v)
	return nil
}

func main() {
	var (
		cfg        cliConfig
		sets       assignments
		showVer    bool
		logLevel   string
		logFormat  string
		seedOption uint64
	)
	flag.StringVar(&cfg.output, "o", "", "Output file (default: <name>.gpx)")
	flag.StringVar(&cfg.format, "format", "", "Output format: gpx, geojson or db (default: from -o extension)")
	flag.StringVar(&cfg.name, "name", "", "Name of the merged track (default: input names joined with -)")
	flag.BoolVar(&cfg.clean, "clean", false, "Smooth pauses and repair speed outliers after merging")
	flag.Float64Var(&cfg.maxSpeed, "max-speed", 0, "Maximum plausible speed in km/h (default 50)")
	flag.Float64Var(&cfg.maxStep, "max-step", 0, "Longest usable gap between points in seconds (default 10)")
	flag.Uint64Var(&seedOption, "seed", 0, "Seed for the cleaner's cadence jitter")
	flag.BoolVar(&cfg.verbose, "verbose", false, "Log every smoothed pause and repaired outlier")
	flag.StringVar(&cfg.optionsPath, "options", "", "YAML file with flat key: value options")
	flag.Var(&sets, "set", "Set an option as key=value (repeatable)")
	flag.StringVar(&cfg.dbPath, "db", "", "Track database for db:<name> inputs, -import and -format db")
	flag.BoolVar(&cfg.importOnly, "import", false, "Store the inputs in the track database instead of merging")
	flag.Float64Var(&cfg.simplify, "simplify", 0, "GeoJSON line simplification tolerance in degrees")
	flag.BoolVar(&cfg.points, "points", false, "Add one GeoJSON feature per point")
	flag.StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	flag.StringVar(&logFormat, "log-format", "console", "Log format: console or json")
	flag.BoolVar(&showVer, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Printf("trkm - Merge and clean activity tracks\n\n")
		fmt.Printf("usage: trkm [options] input...\n\n")
		fmt.Printf("inputs:\n")
		fmt.Printf("  track.gpx, track.tcx, track.fit   recorded activities\n")
		fmt.Printf("  ride.yaml                         synthetic activity description\n")
		fmt.Printf("  db:<name>                         stream imported with -import (needs -db)\n\n")
		fmt.Printf("examples:\n")
		fmt.Printf("  trkm -o ride.gpx watch.fit bike.gpx\n")
		fmt.Printf("  trkm -clean -max-speed 45 -o ride.geojson watch.tcx phone.gpx\n")
		fmt.Printf("  trkm -db tracks.db -import watch.fit\n")
		fmt.Printf("  trkm -db tracks.db -format db db:watch bike.gpx\n\n")
		fmt.Printf("options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVer {
		fmt.Println("trkm v0.3.0 - track merger")
		os.Exit(0)
	}

	cfg.inputs = flag.Args()
	if len(cfg.inputs) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	cfg.sets = sets
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			cfg.seed = &seedOption
		}
	})

	log, err := logger.New(logLevel, logFormat, "trkm")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = run(ctx, cfg, os.Stdout, log)
	stop()
	_ = log.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}
}
