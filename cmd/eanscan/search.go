package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvalverde/eanscan/internal/aggregator"
	"github.com/mvalverde/eanscan/internal/analyzer"
	"github.com/mvalverde/eanscan/internal/config"
	"github.com/mvalverde/eanscan/internal/database"
	"github.com/mvalverde/eanscan/internal/fetch"
	"github.com/mvalverde/eanscan/internal/log"
	"github.com/mvalverde/eanscan/internal/model"
	"github.com/mvalverde/eanscan/internal/report"
	"github.com/mvalverde/eanscan/internal/source"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <ean>...",
		Short: "Search public web sources for evidence about an EAN barcode",
		Long: `Search investigates one or more EAN barcode numbers across public web
sources and classifies every mention of the identifier.

Sources queried:
- Web search results (with search terms in the configured language)
- Internet Archive snapshots of search pages for the identifier
- Marketplace search listings
- The Open Food Facts product database

Each identifier occurrence is classified as historical (discontinued,
replaced), current (in stock, available), or indeterminate, and the
deduplicated evidence is aggregated into a report.

Examples:
  # Scan a single identifier
  eanscan search 4006381333931

  # Scan several identifiers sequentially
  eanscan search 4006381333931 96385074

  # English search terms, JSON report to a file
  eanscan search --lang en --json -o report.json 4006381333931

  # Route requests through rotating proxies
  eanscan search --proxy socks5://127.0.0.1:9050 --proxy http://10.0.0.2:8080 4006381333931

  # Bound the whole scan to two minutes
  eanscan search --timeout-total 2m 4006381333931`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearchCmd,
	}

	// Fetch behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().IntP("retries", "r", config.DefaultRetries,
		"Attempts per HTTP request (5xx and network errors are retried)")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of search units running at once")
	cmd.Flags().StringArrayP("proxy", "p", nil,
		"Proxy URL to rotate through (http, https, or socks5; repeatable)")

	// Search shape flags
	cmd.Flags().Int("max-results", config.DefaultMaxResults,
		"Search engine results examined per term")
	cmd.Flags().Int("max-snapshots", config.DefaultMaxSnapshots,
		"Archive snapshots fetched per scan")
	cmd.Flags().StringP("lang", "l", config.DefaultLanguage,
		"Qualifier language for generated search terms (BCP 47 tag)")
	cmd.Flags().StringSlice("sources", nil,
		"Restrict the scan to the named sources (google, wayback, amazon, openfoodfacts)")
	cmd.Flags().Duration("timeout-total", 0,
		"Deadline for the whole scan of one identifier (0 = no deadline)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .eanscan in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown and --csv)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json and --csv)")
	cmd.Flags().Bool("csv", false,
		"Output findings as CSV (mutually exclusive with --json and --markdown)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runSearchCmd executes the search command.
func runSearchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	// Validate all identifiers before any network activity. A bad
	// identifier aborts the whole invocation rather than half-running.
	eans, err := parseEANs(cfg.EANs)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runSearch(ctx, cfg, eans, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.Retries, err = cmd.Flags().GetInt("retries")
	if err != nil {
		return nil, err
	}

	cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}

	cfg.Proxies, err = cmd.Flags().GetStringArray("proxy")
	if err != nil {
		return nil, err
	}

	cfg.MaxResults, err = cmd.Flags().GetInt("max-results")
	if err != nil {
		return nil, err
	}

	cfg.MaxSnapshots, err = cmd.Flags().GetInt("max-snapshots")
	if err != nil {
		return nil, err
	}

	cfg.Language, err = cmd.Flags().GetString("lang")
	if err != nil {
		return nil, err
	}

	cfg.Sources, err = cmd.Flags().GetStringSlice("sources")
	if err != nil {
		return nil, err
	}

	cfg.GlobalTimeout, err = cmd.Flags().GetDuration("timeout-total")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load settings from the config file.
	// If the user explicitly specified a path, error if not found.
	// If no path specified, silently continue without file settings.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		fileConfig, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFileConfig(fileConfig)
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.CSVReport, err = cmd.Flags().GetBool("csv")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// Always save to database using XDG data directory
	cfg.SaveToDB = true
	cfg.DBDir = config.XDGDataDir()

	// Positional arguments (identifiers)
	cfg.EANs = args

	return cfg, nil
}

// parseEANs validates every identifier argument.
func parseEANs(args []string) ([]model.EAN, error) {
	eans := make([]model.EAN, 0, len(args))
	for _, arg := range args {
		ean, err := model.ParseEAN(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid identifier %q: %w", arg, err)
		}
		eans = append(eans, ean)
	}
	return eans, nil
}

// runSearch executes the scan for all identifiers sequentially.
func runSearch(ctx context.Context, cfg *config.Config, eans []model.EAN, logger *slog.Logger) error {
	logger.Info("starting scan",
		"identifiers", cfg.EANs,
		"language", cfg.Language,
		"concurrency", cfg.Concurrency,
		"proxies", len(cfg.Proxies),
	)

	var db *database.HistoryDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	agg, err := buildAggregator(cfg, logger)
	if err != nil {
		return err
	}

	for _, ean := range eans {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fmt.Printf("Scanning %s...\n", ean)
		scanReport := agg.Scan(ctx, ean)
		fmt.Printf("Scan completed in %s\n\n", scanReport.Elapsed.Round(time.Millisecond))

		if err := outputReport(cfg, scanReport); err != nil {
			logger.Error("report failed", "identifier", ean.String(), "error", err)
		}

		if err := saveScanReport(ctx, db, scanReport, logger); err != nil {
			logger.Error("failed to save scan report", "identifier", ean.String(), "error", err)
		}
	}

	return nil
}

// buildAggregator wires the fetch client, sources, analyzer, and
// aggregator according to the configuration.
func buildAggregator(cfg *config.Config, logger *slog.Logger) (*aggregator.Aggregator, error) {
	client, err := fetch.NewClient(
		fetch.WithUserAgents(cfg.UserAgents),
		fetch.WithProxies(cfg.Proxies),
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithRetries(cfg.Retries),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetch client: %w", err)
	}

	analyzerOpts := []analyzer.Option{
		analyzer.WithContextWindow(cfg.ContextWindow),
	}
	if cfg.FileConfig != nil {
		vocab := cfg.FileConfig.Vocabulary
		if len(vocab.Historical) > 0 || len(vocab.Current) > 0 {
			analyzerOpts = append(analyzerOpts,
				analyzer.WithExtraVocabulary(vocab.Historical, vocab.Current))
		}
	}

	agg := aggregator.New(
		aggregator.WithAnalyzer(analyzer.New(analyzerOpts...)),
		aggregator.WithLanguage(cfg.Language),
		aggregator.WithConcurrency(cfg.Concurrency),
		aggregator.WithGlobalTimeout(cfg.GlobalTimeout),
		aggregator.WithLogger(logger),
	)
	agg.SetSources(buildSources(cfg, client, agg.Recorder(), logger))
	return agg, nil
}

// buildSources constructs the source registry, honoring the --sources
// restriction and per-source settings from the config file.
func buildSources(cfg *config.Config, client *fetch.Client, recorder source.StatsRecorder, logger *slog.Logger) []source.Searcher {
	shared := []source.Option{
		source.WithStatsRecorder(recorder),
		source.WithLogger(logger),
		source.WithMaxResults(cfg.MaxResults),
		source.WithMaxSnapshots(cfg.MaxSnapshots),
		source.WithLanguage(cfg.Language),
	}

	var sources []source.Searcher
	for _, s := range source.AllWith(client, shared, fileSourceOptions(cfg)) {
		name := s.Name().String()

		if len(cfg.Sources) > 0 && !slices.Contains(cfg.Sources, name) {
			continue
		}
		if cfg.FileConfig != nil && cfg.FileConfig.GetSourceConfig(name).Disabled {
			continue
		}
		sources = append(sources, s)
	}
	return sources
}

// fileSourceOptions derives per-source options from the config file:
// a source-specific result cap and extra request headers.
func fileSourceOptions(cfg *config.Config) func(model.Source) []source.Option {
	if cfg.FileConfig == nil {
		return nil
	}
	return func(name model.Source) []source.Option {
		sc := cfg.FileConfig.GetSourceConfig(name.String())

		var opts []source.Option
		if sc.MaxResults > 0 {
			opts = append(opts, source.WithMaxResults(sc.MaxResults))
		}
		if len(sc.Headers) > 0 {
			opts = append(opts, source.WithHeaders(sc.Headers))
		}
		return opts
	}
}

// outputReport outputs the scan report in the requested format.
func outputReport(cfg *config.Config, scanReport *model.ScanReport) error {
	var output *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output,
			report.WithPrettyPrint(),
			report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	case cfg.CSVReport:
		writer = report.NewCSVWriter(output, report.WithContext(cfg.Verbose))
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err := writer.Write(scanReport)
	return err
}

// saveScanReport saves the scan report to the database if enabled.
// If db is nil, this function is a no-op.
func saveScanReport(ctx context.Context, db *database.HistoryDB, scanReport *model.ScanReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	if err := db.SaveScanReport(ctx, scanReport); err != nil {
		return fmt.Errorf("failed to save scan report: %w", err)
	}

	logger.Info("scan report saved to database", "identifier", scanReport.EAN)
	return nil
}
