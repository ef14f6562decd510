package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/pippi2802/hlem-framework/pkg/checkpoint"
	"github.com/pippi2802/hlem-framework/pkg/config"
	"github.com/pippi2802/hlem-framework/pkg/eventlog"
	"github.com/pippi2802/hlem-framework/pkg/hlem"
	"github.com/pippi2802/hlem-framework/pkg/parser"
	"github.com/pippi2802/hlem-framework/pkg/report"
	"github.com/pippi2802/hlem-framework/pkg/telemetry"
	"github.com/pippi2802/hlem-framework/pkg/writer"
)

func runMine(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(inputFile); os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", inputFile)
	}

	cfg := config.Global().Get()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted, cleaning up...")
		cancel()
	}()

	if shutdown, err := initTelemetry(cfg); err != nil {
		return err
	} else if shutdown != nil {
		defer shutdown(context.Background())
	}

	miningCfg, err := buildMiningConfig(cmd, cfg)
	if err != nil {
		return err
	}

	return mineOnce(ctx, cmd, cfg, miningCfg)
}

// mineOnce runs the full pipeline for one log file: load, preprocess, mine,
// gather statistics, write outputs. The watch command calls it per change.
func mineOnce(ctx context.Context, cmd *cobra.Command, cfg *config.Config, miningCfg hlem.Config) error {
	cacheBackend, err := openCache(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	cacheKey := checkpoint.Key(inputFile, miningCfg)

	if cacheBackend != nil {
		cached, err := cacheBackend.Load(ctx, cacheKey)
		if err != nil && verbose {
			fmt.Fprintf(os.Stderr, "cache lookup failed: %v\n", err)
		}
		if cached != nil {
			fmt.Printf("Cached run %s from %s: %d high-level events, %d paths (use --no-cache to re-mine)\n",
				cached.ID, cached.CreatedAt.Format(time.RFC3339), cached.HLECount, len(cached.Paths))
			return nil
		}
	}

	startTime := time.Now()

	log, err := eventlog.Load(ctx, inputFile, parser.Config{BufferSize: bufferSize})
	if err != nil {
		return fmt.Errorf("loading event log: %w", err)
	}

	profile := buildProfile(cmd, cfg)
	log = profile.Apply(log)
	if len(profile.ExcludedResources) > 0 {
		miningCfg.ResourceSelection = sortedKeys(log.Resources(profile.ExcludedResources...))
	}

	if verbose {
		fmt.Printf("Input:       %s\n", inputFile)
		fmt.Printf("Cases:       %d\n", log.Len())
		fmt.Printf("Events:      %d\n", log.NumEvents())
		fmt.Printf("Granularity: %s\n", miningCfg.Granularity)
		fmt.Printf("Percentile:  %.2f\n", miningCfg.Percentile)
	}

	miner, err := hlem.NewMiner(miningCfg)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(3,
		progressbar.OptionSetDescription("mining"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)
	miner.OnStage = func(stage string) {
		bar.Describe(stage)
		bar.Add(1)
	}

	hles, paths, err := miner.Mine(ctx, log)
	if err != nil {
		return fmt.Errorf("mining failed: %w", err)
	}
	bar.Finish()

	table := hlem.GatherStatistics(hles, paths, log.ControlFlow(),
		miningCfg.Percentile, miningCfg.CoThresh)

	significant, err := writeResults(cmd, cfg, log, profile, hles, table)
	if err != nil {
		return err
	}

	fmt.Println(report.HLEStatistics(hles))
	fmt.Println()
	fmt.Println(report.RunSummary(log.Len(), log.NumEvents(), len(hles), len(table.Rows), significant))
	if verbose {
		fmt.Printf("\nElapsed: %s\n", time.Since(startTime).Round(time.Millisecond))
	}

	if cacheBackend != nil {
		run := checkpoint.NewRun(inputFile, cacheKey, len(hles), table)
		if err := cacheBackend.Save(ctx, run); err != nil && verbose {
			fmt.Fprintf(os.Stderr, "cache save failed: %v\n", err)
		}
	}

	return nil
}

// writeResults writes the configured output files and returns the number of
// statistically significant outcome paths.
func writeResults(cmd *cobra.Command, cfg *config.Config, log *eventlog.Log, profile eventlog.Profile, hles map[hlem.EventID]hlem.HighLevelEvent, table hlem.Table) (int, error) {
	outDir := outputDir
	if outDir == "" {
		outDir = cfg.Output.Dir
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return 0, fmt.Errorf("creating output directory: %w", err)
	}

	significant := 0
	if profile.OutcomeActivity != "" {
		successful, unsuccessful := log.PartitionByActivity(profile.OutcomeActivity)
		target := filepath.Join(outDir, "outcome.csv")
		n, err := report.WriteOutcomeCSV(target, table, successful, unsuccessful)
		if err != nil {
			return 0, fmt.Errorf("writing outcome table: %w", err)
		}
		significant = n
		if verbose {
			fmt.Printf("Outcome:     %s (%d rows)\n", target, n)
		}
	}

	if throughputLo > 0 && throughputHi > throughputLo {
		classes := log.PartitionByThroughput(throughputLo, throughputHi)
		target := filepath.Join(outDir, "throughput.csv")
		n, err := report.WriteThroughputCSV(target, table, classes)
		if err != nil {
			return 0, fmt.Errorf("writing throughput table: %w", err)
		}
		if verbose {
			fmt.Printf("Throughput:  %s (%d rows)\n", target, n)
		}
	}

	if writeWorkbook || cfg.Output.Workbook {
		target := filepath.Join(outDir, "results.xlsx")
		successful, unsuccessful := log.PartitionByActivity(profile.OutcomeActivity)
		if throughputLo > 0 && throughputHi > throughputLo {
			tp := log.PartitionByThroughput(throughputLo, throughputHi)
			if err := report.WriteWorkbook(target, table, successful, unsuccessful, &tp); err != nil {
				return 0, fmt.Errorf("writing workbook: %w", err)
			}
		} else if err := report.WriteWorkbook(target, table, successful, unsuccessful, nil); err != nil {
			return 0, fmt.Errorf("writing workbook: %w", err)
		}
		if verbose {
			fmt.Printf("Workbook:    %s\n", target)
		}
	}

	dbPath := databasePath
	if dbPath == "" {
		dbPath = cfg.Output.Database
	}
	wantParquet := exportParquet || cfg.Output.Parquet
	if dbPath != "" || wantParquet {
		w, err := writer.NewDuckDBWriter(dbPath)
		if err != nil {
			return 0, err
		}
		defer w.Close()
		if err := w.WriteEvents(hles); err != nil {
			return 0, err
		}
		if err := w.WritePaths(table); err != nil {
			return 0, err
		}
		if wantParquet {
			if err := w.ExportParquet(outDir); err != nil {
				return 0, err
			}
			if verbose {
				fmt.Printf("Parquet:     %s\n", outDir)
			}
		}
	}

	return significant, nil
}

// buildMiningConfig merges the configuration file defaults with the command
// line flags; flags win when explicitly set.
func buildMiningConfig(cmd *cobra.Command, cfg *config.Config) (hlem.Config, error) {
	out := hlem.DefaultConfig()

	// Configuration file layer.
	m := cfg.Mining
	g, err := hlem.ParseGranularity(m.Granularity)
	if err != nil {
		return out, err
	}
	out.Granularity = g
	if traffic, err := hlem.ParseTraffic(m.Traffic); err == nil {
		out.Traffic = traffic
	}
	if len(m.Features) > 0 {
		features, err := hlem.ParseFeatures(joinComma(m.Features))
		if err != nil {
			return out, err
		}
		out.Features = features
	}
	out.Percentile = m.Percentile
	out.CoThresh = m.CoThresh
	out.CoPathThresh = m.CoPathThresh
	out.MinPathFrequency = m.MinPathFrequency
	out.OnlyMaximalPaths = m.OnlyMaximalPaths
	out.ResourceInfo = m.ResourceInfo
	out.TypeBased = m.TypeBased
	out.SegPercentile = m.SegPercentile

	// Flag layer.
	if cmd.Flags().Changed("granularity") {
		g, err := hlem.ParseGranularity(granularityFlag)
		if err != nil {
			return out, err
		}
		out.Granularity = g
	}
	if cmd.Flags().Changed("traffic") {
		traffic, err := hlem.ParseTraffic(trafficFlag)
		if err != nil {
			return out, err
		}
		out.Traffic = traffic
	}
	if cmd.Flags().Changed("features") {
		features, err := hlem.ParseFeatures(featuresFlag)
		if err != nil {
			return out, err
		}
		out.Features = features
	}
	if cmd.Flags().Changed("percentile") {
		out.Percentile = percentileFlag
	}
	if cmd.Flags().Changed("co-thresh") {
		out.CoThresh = coThreshFlag
	}
	if cmd.Flags().Changed("co-path-thresh") {
		out.CoPathThresh = coPathThreshFlag
	}
	if cmd.Flags().Changed("min-path-frequency") {
		out.MinPathFrequency = minPathFrequency
	}
	if allPaths {
		out.OnlyMaximalPaths = false
	}
	if noResources {
		out.ResourceInfo = false
	}
	if typeBased {
		out.TypeBased = true
	}
	if cmd.Flags().Changed("seg-percentile") {
		out.SegPercentile = segPercentileFlag
	}
	if maxPathLength > 0 {
		out.MaxPathLength = maxPathLength
	}
	if len(activityFilter) > 0 {
		out.ActivitySelection = activityFilter
	}

	return out, nil
}

// buildProfile merges preprocessing settings from config file and flags.
func buildProfile(cmd *cobra.Command, cfg *config.Config) eventlog.Profile {
	p := eventlog.Profile{
		WorkflowPrefix:       cfg.Preprocess.WorkflowPrefix,
		RolesAsResources:     cfg.Preprocess.RolesAsResources,
		CompletionActivities: cfg.Preprocess.CompletionActivities,
		ExcludedResources:    cfg.Preprocess.ExcludedResources,
		OutcomeActivity:      cfg.Preprocess.OutcomeActivity,
	}
	if cmd.Flags().Changed("workflow-prefix") {
		p.WorkflowPrefix = workflowPrefix
	}
	if rolesAsResources {
		p.RolesAsResources = true
	}
	if len(completionActivities) > 0 {
		p.CompletionActivities = completionActivities
	}
	if len(excludedResources) > 0 {
		p.ExcludedResources = excludedResources
	}
	if cmd.Flags().Changed("outcome-activity") {
		p.OutcomeActivity = outcomeActivity
	}
	return p
}

// openCache selects the run cache backend; nil means caching is off.
func openCache(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (checkpoint.Backend, error) {
	if noCache {
		return nil, nil
	}
	switch cfg.Cache.Backend {
	case "", "off":
		return nil, nil
	case "local":
		return checkpoint.NewLocalBackend(cfg.Cache.Dir)
	case "redis":
		rc := checkpoint.DefaultRedisConfig(cfg.Cache.Redis)
		if cfg.Cache.TTL > 0 {
			rc.TTL = cfg.Cache.TTL
		}
		return checkpoint.NewRedisBackend(rc)
	case "s3":
		sc := checkpoint.DefaultS3Config(cfg.Cache.S3Bucket)
		sc.Region = cfg.Cache.S3Region
		return checkpoint.NewS3Backend(ctx, sc)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// initTelemetry enables OTLP export when an endpoint is configured.
func initTelemetry(cfg *config.Config) (func(context.Context) error, error) {
	endpoint := otlpEndpoint
	if endpoint == "" && cfg.Telemetry.Enabled {
		endpoint = cfg.Telemetry.Endpoint
	}
	if endpoint == "" {
		return nil, nil
	}
	otlpCfg := telemetry.DefaultOTLPConfig("hlem")
	otlpCfg.Endpoint = endpoint
	otlpCfg.ServiceVersion = version
	shutdown, err := telemetry.InitOTLP(otlpCfg)
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}
	return shutdown, nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	mgr := config.Global()
	cfg := mgr.Get()

	fmt.Println("Loaded configuration files:")
	paths := mgr.GetPaths()
	if len(paths) == 0 {
		fmt.Println("  (none, using defaults)")
	}
	for _, p := range paths {
		fmt.Printf("  - %s\n", p)
	}
	fmt.Println()
	fmt.Printf("Granularity:        %s\n", cfg.Mining.Granularity)
	fmt.Printf("Traffic:            %s\n", cfg.Mining.Traffic)
	fmt.Printf("Features:           %s\n", joinComma(cfg.Mining.Features))
	fmt.Printf("Percentile:         %.2f\n", cfg.Mining.Percentile)
	fmt.Printf("Co threshold:       %.2f\n", cfg.Mining.CoThresh)
	fmt.Printf("Co path threshold:  %.2f\n", cfg.Mining.CoPathThresh)
	fmt.Printf("Min path frequency: %d\n", cfg.Mining.MinPathFrequency)
	fmt.Printf("Cache backend:      %s\n", cfg.Cache.Backend)
	fmt.Printf("Output directory:   %s\n", cfg.Output.Dir)
	return nil
}

func joinComma(parts []string) string {
	return strings.Join(parts, ",")
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
