package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/planbiir/trkm/internal/clean"
	"github.com/planbiir/trkm/internal/geojson"
	"github.com/planbiir/trkm/internal/gpx"
	"github.com/planbiir/trkm/internal/input"
	"github.com/planbiir/trkm/internal/merge"
	"github.com/planbiir/trkm/internal/options"
	"github.com/planbiir/trkm/internal/store"
	"github.com/planbiir/trkm/internal/track"
)

const progressEvery = 10000

type cliConfig struct {
	inputs []string

	output string
	format string
	name   string

	clean    bool
	maxSpeed float64
	maxStep  float64
	seed     *uint64
	verbose  bool

	optionsPath string
	sets        []string

	dbPath     string
	importOnly bool

	simplify float64
	points   bool
}

// buildOptions layers the option file, -set assignments and dedicated flags,
// later ones winning.
func buildOptions(cfg cliConfig) (options.Options, error) {
	opts := options.Options{}
	if cfg.optionsPath != "" {
		loaded, err := options.Load(cfg.optionsPath)
		if err != nil {
			return nil, err
		}
		opts.Merge(loaded)
	}
	for _, s := range cfg.sets {
		k, v, err := options.ParseAssignment(s)
		if err != nil {
			return nil, err
		}
		opts.Set(k, v)
	}
	if cfg.maxSpeed > 0 {
		opts.Set("MaxSpeed", strconv.FormatFloat(cfg.maxSpeed, 'f', -1, 64))
	}
	if cfg.maxStep > 0 {
		opts.Set("MaxStep", strconv.FormatFloat(cfg.maxStep, 'f', -1, 64))
	}
	if cfg.seed != nil {
		opts.Set("Seed", strconv.FormatUint(*cfg.seed, 10))
	}
	if cfg.verbose {
		opts.Set("verbose", "true")
	}
	return opts, nil
}

func outputFormat(cfg cliConfig) (string, error) {
	switch f := strings.ToLower(cfg.format); f {
	case "gpx", "geojson", "db":
		return f, nil
	case "":
		switch strings.ToLower(filepath.Ext(cfg.output)) {
		case ".geojson", ".json":
			return "geojson", nil
		default:
			return "gpx", nil
		}
	default:
		return "", fmt.Errorf("unknown output format %q", cfg.format)
	}
}

// interrupted reports a cancelled ctx once the stage before it has finished.
func interrupted(ctx context.Context, after string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("interrupted after %s: %w", after, err)
	}
	return nil
}

// run executes one invocation. Cancelling ctx stops database I/O at once;
// reading, merging and cleaning run to completion and the cancellation is
// honored between them, before anything is written.
func run(ctx context.Context, cfg cliConfig, out io.Writer, log *zap.Logger) error {
	opts, err := buildOptions(cfg)
	if err != nil {
		return err
	}
	format, err := outputFormat(cfg)
	if err != nil {
		return err
	}

	var st *store.Store
	if cfg.dbPath != "" {
		st, err = store.Open(ctx, store.Config{Path: cfg.dbPath, Logger: log})
		if err != nil {
			return err
		}
		defer st.Close()
	} else if cfg.importOnly || format == "db" || input.NeedsStore(cfg.inputs) {
		return fmt.Errorf("a track database is required, use -db")
	}

	for _, arg := range cfg.inputs {
		fmt.Fprintf(out, "📖 Reading %s\n", arg)
	}
	sources, err := input.OpenAll(ctx, cfg.inputs, st)
	if err != nil {
		return err
	}
	if err := interrupted(ctx, "reading inputs"); err != nil {
		return err
	}

	if cfg.importOnly {
		for _, src := range sources {
			n, err := st.ImportSource(ctx, src)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "💾 Imported %s: %d points\n", src.Name(), n)
		}
		return nil
	}

	names := make([]string, len(sources))
	for i, src := range sources {
		names[i] = src.Name()
	}
	name := cfg.name
	if name == "" {
		name = strings.Join(names, "-")
	}

	mcfg := merge.DefaultConfig()
	mcfg.Logger = log
	mcfg.Progress = func(n int) {
		if n%progressEvery == 0 {
			fmt.Fprintf(out, "⏳ %d points merged...\n", n)
		}
	}
	points, mstats, err := merge.Merge(sources, mcfg)
	if err != nil {
		return err
	}
	if err := interrupted(ctx, "merge"); err != nil {
		return err
	}
	records := merge.Records(points)
	fmt.Fprintf(out, "🔀 Merged %d sources into %d points (%d synthesized, %d deduplicated, %d dropped)\n",
		len(sources), len(records), mstats.Synthesized, mstats.Deduplicated, mstats.Dropped)

	if cfg.clean {
		ccfg := clean.ConfigFromOptions(opts)
		ccfg.Logger = log
		result, err := clean.Clean(records, ccfg)
		if err != nil {
			return fmt.Errorf("clean: %w", err)
		}
		records = result.Points
		printCleanStats(out, result.Stats)
		if err := interrupted(ctx, "cleaning"); err != nil {
			return err
		}
	}

	switch format {
	case "db":
		id, err := st.SaveRun(ctx, store.Run{Name: name, Sources: names, Cleaned: cfg.clean}, records)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "💾 Saved run %s (%s)\n", id, name)
	case "geojson":
		path := outputPath(cfg.output, name, ".geojson")
		var buf bytes.Buffer
		err := geojson.Encode(&buf, name, records, geojson.Options{Tolerance: cfg.simplify, Points: cfg.points})
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintf(out, "💾 Wrote %s\n", path)
	default:
		path := outputPath(cfg.output, name, ".gpx")
		if err := gpx.WriteFile(path, name, records); err != nil {
			return err
		}
		fmt.Fprintf(out, "💾 Wrote %s\n", path)
	}

	fmt.Fprintf(out, "✅ %d points, %.2f km\n", len(records), finalDistance(records)/1000)
	return nil
}

func outputPath(output, name, ext string) string {
	if output != "" {
		return output
	}
	return name + ext
}

func finalDistance(records []track.Record) float64 {
	for i := len(records) - 1; i >= 0; i-- {
		if d, ok := records[i].Float(track.Distance); ok {
			return d
		}
	}
	return 0
}

func printCleanStats(out io.Writer, stats clean.Stats) {
	fmt.Fprintf(out, "\n📊 Cleaning Statistics:\n")
	fmt.Fprintf(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(out, "⏸️  Pauses: %d found, %d smoothed\n", stats.PausesFound, stats.PausesSmoothed)
	fmt.Fprintf(out, "🛑 Forced stops: %d\n", stats.StopsForced)
	fmt.Fprintf(out, "⚡ Outliers repaired: %d, speeds raised: %d\n", stats.OutliersRepaired, stats.SpeedsRaised)
	fmt.Fprintf(out, "📏 Distance: %.2f → %.2f km (%.2f km reduced, %.1f%%)\n",
		stats.OriginalDistance, stats.FinalDistance, stats.DistanceReduced, stats.DistancePercent)
	fmt.Fprintf(out, "⏱️  Processing Time: %v\n", stats.ProcessingTime)
	fmt.Fprintf(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
}
