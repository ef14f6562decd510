// hlem - High-level event mining for process event logs.
// Mines high-traffic patterns from XES logs and correlates them with case
// outcomes.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// CLI flags
var (
	inputFile string
	verbose   bool

	// Mining flags
	granularityFlag   string
	trafficFlag       string
	featuresFlag      string
	percentileFlag    float64
	coThreshFlag      float64
	coPathThreshFlag  float64
	minPathFrequency  int
	allPaths          bool
	noResources       bool
	typeBased         bool
	segPercentileFlag float64
	maxPathLength     int
	activityFilter    []string

	// Preprocessing flags
	workflowPrefix       string
	rolesAsResources     bool
	completionActivities []string
	excludedResources    []string
	outcomeActivity      string

	// Output flags
	outputDir    string
	databasePath string
	exportParquet bool
	writeWorkbook bool
	throughputLo  time.Duration
	throughputHi  time.Duration

	// Cache and telemetry flags
	noCache      bool
	otlpEndpoint string

	// Parser flags
	bufferSize int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hlem",
	Short: "hlem - Mine high-level events from process event logs",
	Long: `hlem mines high-level events (HLEs) from low-level process event logs.

Feature values (caseload entering or leaving an activity, workload, batching,
delays) are computed per time window, classified against a percentile
threshold, and chained into high-level activity paths. Paths are then tested
for statistical association with case outcomes.`,
	Version: fmt.Sprintf("%s (%s)", version, commit),
}

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Mine high-level events and paths from an event log",
	Long: `Mine high-level events and activity paths from an XES event log.

Examples:
  hlem mine -i bpic2017.xes --outcome-activity A_Pending
  hlem mine -i log.xes --granularity week --features exit,enter,workload
  hlem mine -i log.xes --percentile 95 --traffic High,Low -o results/
  hlem mine -i log.xes --db results.duckdb --parquet`,
	RunE: runMine,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-mine an event log whenever it changes on disk",
	Long: `Watch an event log file and re-run the mining pipeline on every change.

Example:
  hlem watch -i live.xes -o results/`,
	RunE: runWatch,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration and its sources",
	RunE:  runConfig,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	for _, cmd := range []*cobra.Command{mineCmd, watchCmd} {
		cmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input XES event log (required)")
		cmd.MarkFlagRequired("input")

		// Mining flags
		cmd.Flags().StringVar(&granularityFlag, "granularity", "day", "Frame granularity (day, week, month)")
		cmd.Flags().StringVar(&trafficFlag, "traffic", "High", "Traffic labels to mine (High, Low, or High,Low)")
		cmd.Flags().StringVar(&featuresFlag, "features", "", "Comma-separated feature list (exit,enter,handover,workload,batch,delay,exec,todo,progress,wt)")
		cmd.Flags().Float64Var(&percentileFlag, "percentile", 0.9, "Classification percentile, in (0.5,1) or (50,100)")
		cmd.Flags().Float64Var(&coThreshFlag, "co-thresh", 0.5, "Case overlap threshold for the first path link")
		cmd.Flags().Float64Var(&coPathThreshFlag, "co-path-thresh", 0.5, "Case overlap threshold for path extensions")
		cmd.Flags().IntVar(&minPathFrequency, "min-path-frequency", 10, "Minimum participating cases per retained path")
		cmd.Flags().BoolVar(&allPaths, "all-paths", false, "Keep non-maximal paths too")
		cmd.Flags().BoolVar(&noResources, "no-resources", false, "Disable resource-keyed features (for logs without resources)")
		cmd.Flags().BoolVar(&typeBased, "type-based", false, "Partition feature computation by executing resource")
		cmd.Flags().Float64Var(&segPercentileFlag, "seg-percentile", 0.9, "Percentile for the delay duration cutoff")
		cmd.Flags().IntVar(&maxPathLength, "max-path-length", 0, "Maximum path length (0 = unlimited)")
		cmd.Flags().StringSliceVar(&activityFilter, "activities", nil, "Restrict mining to these activities")

		// Preprocessing flags
		cmd.Flags().StringVar(&workflowPrefix, "workflow-prefix", "", "Append lifecycle to activities with this prefix (e.g. W_)")
		cmd.Flags().BoolVar(&rolesAsResources, "roles-as-resources", false, "Use org:role as the resource attribute")
		cmd.Flags().StringSliceVar(&completionActivities, "completion-activities", nil, "Keep only cases containing one of these activities")
		cmd.Flags().StringSliceVar(&excludedResources, "exclude-resources", nil, "Resources to exclude from mining (system accounts)")
		cmd.Flags().StringVar(&outcomeActivity, "outcome-activity", "", "Activity marking a successful case (enables outcome analysis)")

		// Output flags
		cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory for result files")
		cmd.Flags().StringVar(&databasePath, "db", "", "DuckDB database path for result tables")
		cmd.Flags().BoolVar(&exportParquet, "parquet", false, "Export result tables as Parquet into the output directory")
		cmd.Flags().BoolVar(&writeWorkbook, "xlsx", false, "Write an XLSX workbook with all result sheets")
		cmd.Flags().DurationVar(&throughputLo, "throughput-lo", 0, "Lower throughput-class boundary (enables throughput analysis with --throughput-hi)")
		cmd.Flags().DurationVar(&throughputHi, "throughput-hi", 0, "Upper throughput-class boundary")

		// Cache and telemetry flags
		cmd.Flags().BoolVar(&noCache, "no-cache", false, "Skip the run cache and always re-mine")
		cmd.Flags().StringVar(&otlpEndpoint, "otlp-endpoint", "", "OTLP gRPC endpoint for trace export")

		cmd.Flags().IntVar(&bufferSize, "buffer-size", 65536, "Read buffer size in bytes")
	}

	rootCmd.AddCommand(mineCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
}
