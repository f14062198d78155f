package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/planbiir/trkm/internal/geo"
	"github.com/planbiir/trkm/internal/gpx"
	"github.com/planbiir/trkm/internal/input"
	"github.com/planbiir/trkm/internal/logger"
	"github.com/planbiir/trkm/internal/merge"
	"github.com/planbiir/trkm/internal/store"
	"github.com/planbiir/trkm/internal/track"
)

func main() {
	gapFlag := flag.Duration("gap", 30*time.Second, "Minimum gap duration to report per input (e.g. 2m)")
	noOffsetsFlag := flag.Bool("no-offsets", false, "Average raw distances instead of offsetting late joiners")
	dbFlag := flag.String("db", "", "Track database for db:<name> inputs")
	outFlag := flag.String("out", "", "Optional path to write the merged GPX")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	log, err := logger.New(*logLevel, "console", "mergeanalyze")
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	args := flag.Args()
	if len(args) < 1 {
		log.Fatal(fmt.Sprintf("usage: %s [flags] <input>...", os.Args[0]))
	}

	ctx := context.Background()
	var st *store.Store
	if *dbFlag != "" {
		st, err = store.Open(ctx, store.Config{Path: *dbFlag, Logger: log})
		if err != nil {
			log.Fatal("open database", zap.Error(err))
		}
		defer st.Close()
	}

	sources, err := input.OpenAll(ctx, args, st)
	if err != nil {
		log.Fatal("open inputs", zap.Error(err))
	}

	// Inputs are read up front so they can be both analyzed and merged.
	inputs := make([][]track.Record, len(sources))
	replay := make([]track.Source, len(sources))
	for i, src := range sources {
		records, err := track.Collect(src)
		if err != nil {
			log.Fatal("read input", zap.String("input", args[i]), zap.Error(err))
		}
		inputs[i] = records
		replay[i] = track.NewSliceSource(src.Name(), records)

		fmt.Printf("Input #%d: %s (%s)\n", i+1, args[i], src.Name())
		printTrackStats(records)
	}

	cfg := merge.DefaultConfig()
	cfg.Logger = log
	cfg.DisableDistanceOffsets = *noOffsetsFlag
	fmt.Printf("\nMerge config: distance_offsets=%v\n", !cfg.DisableDistanceOffsets)

	points, stats, err := merge.Merge(replay, cfg)
	if err != nil {
		log.Fatal("merge failed", zap.Error(err))
	}

	fmt.Printf("\nMerge stats: steps=%d synthesized=%d deduplicated=%d dropped=%d\n",
		stats.Steps, stats.Synthesized, stats.Deduplicated, stats.Dropped)
	names := make([]string, 0, len(stats.Contributions))
	for name := range stats.Contributions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		offset, joined := stats.Offsets[name]
		if joined {
			fmt.Printf("  %s: %d contributions, distance offset %.1fm\n", name, stats.Contributions[name], offset)
		} else {
			fmt.Printf("  %s: %d contributions\n", name, stats.Contributions[name])
		}
	}

	merged := merge.Records(points)
	fmt.Printf("\nMerged track summary:\n")
	printTrackStats(merged)

	for i, records := range inputs {
		gaps := analyzeGaps(records, points, sources[i].Name(), *gapFlag)
		fmt.Printf("\nGap analysis for %s (threshold %v):\n", sources[i].Name(), *gapFlag)
		if len(gaps) == 0 {
			fmt.Println("  no gaps exceeding threshold")
		}
		for idx, gap := range gaps {
			fmt.Printf("  Gap #%d: %s – %s (duration %v)\n", idx+1, gap.startTime, gap.endTime, gap.duration)
			if gap.covered == 0 {
				fmt.Printf("    gap left empty\n")
				continue
			}
			fmt.Printf("    covered by other inputs: %d points\n", gap.covered)
			fmt.Printf("    coverage: %s – %s (duration %v)\n", gap.first, gap.last, gap.last.Sub(gap.first))
		}
	}

	if *outFlag != "" {
		if err := gpx.WriteFile(*outFlag, "merged", merged); err != nil {
			log.Fatal("write merged gpx", zap.Error(err))
		}
		fmt.Printf("\nMerged GPX written to %s\n", *outFlag)
	}
}

type gapInfo struct {
	startTime time.Time
	endTime   time.Time
	duration  time.Duration

	covered     int
	first, last time.Time
}

// analyzeGaps finds the gaps longer than threshold in one input and counts
// the merged points inside each gap that other inputs contributed to.
func analyzeGaps(records []track.Record, merged []merge.Point, name string, threshold time.Duration) []gapInfo {
	result := []gapInfo{}
	if len(records) < 2 {
		return result
	}
	j := 0
	for i := 0; i < len(records)-1; i++ {
		a, b := records[i].Time, records[i+1].Time
		gap := b.Sub(a)
		if gap <= threshold {
			continue
		}
		info := gapInfo{startTime: a, endTime: b, duration: gap}
		for j < len(merged) && !merged[j].Time.After(a) {
			j++
		}
		for ; j < len(merged) && merged[j].Time.Before(b); j++ {
			if !contributed(merged[j], name) {
				if info.covered == 0 {
					info.first = merged[j].Time
				}
				info.last = merged[j].Time
				info.covered++
			}
		}
		result = append(result, info)
	}
	return result
}

func contributed(p merge.Point, name string) bool {
	for _, s := range p.Sources {
		if s == name {
			return true
		}
	}
	return false
}

func printTrackStats(records []track.Record) {
	if len(records) == 0 {
		fmt.Printf("  points: 0\n")
		return
	}
	start, end := timeBounds(records)
	fmt.Printf("  points: %d\n", len(records))
	fmt.Printf("  time span: %s – %s (duration %v)\n", start, end, end.Sub(start))
	fmt.Printf("  path length: %.3f km\n", geo.PathLength(records)/1000)
	for _, a := range track.Attrs() {
		known := 0
		for i := range records {
			if records[i].Get(a).Known() {
				known++
			}
		}
		if known > 0 {
			fmt.Printf("  %-12s %5.1f%% known\n", a.String()+":", 100*float64(known)/float64(len(records)))
		}
	}
}

func timeBounds(records []track.Record) (time.Time, time.Time) {
	var start, end time.Time
	for _, r := range records {
		if r.Time.IsZero() {
			continue
		}
		if start.IsZero() || r.Time.Before(start) {
			start = r.Time
		}
		if end.IsZero() || r.Time.After(end) {
			end = r.Time
		}
	}
	return start, end
}
