package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/spf13/cobra"

	"github.com/nao1215/foilscan/internal/browser"
	"github.com/nao1215/foilscan/internal/collector"
	"github.com/nao1215/foilscan/internal/config"
	"github.com/nao1215/foilscan/internal/crawler"
	"github.com/nao1215/foilscan/internal/database"
	"github.com/nao1215/foilscan/internal/log"
	"github.com/nao1215/foilscan/internal/metrics"
	"github.com/nao1215/foilscan/internal/model"
	"github.com/nao1215/foilscan/internal/pipeline"
	"github.com/nao1215/foilscan/internal/report"
	"github.com/nao1215/foilscan/internal/session"
	"github.com/nao1215/foilscan/internal/specs"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [surface-or-url...]",
		Short: "Capture rider posts from one or more surfaces",
		Long: `Scan opens a browser with the stored session, scrolls the surface feed and
extracts the foil models, rider weights, use cases and sentiment of every
post it finds.

Targets are surface names from the configuration file (axis-riders is
built in) or absolute URLs. Each target writes its own document.

When the stored session has expired and manual login is enabled, the
browser window stays open until you log in and press Enter.

Examples:
  # Scan the built-in surface
  foilscan scan axis-riders

  # Scan an ad-hoc URL with the interactive profile
  foilscan scan --profile interactive https://www.facebook.com/groups/axisfoilriders

  # More scroll passes, JSON document on stdout
  foilscan scan -n 30 --json axis-riders

  # Repeat every six hours until interrupted
  foilscan scan --schedule "0 */6 * * *" --metrics-file /var/lib/node_exporter/foilscan.prom axis-riders

Exit codes:
  0    success, including runs with zero posts
  1    configuration or other error
  2    authentication failed
  3    navigation failed or the surface stopped responding
  130  interrupted`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Configuration file and profile
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .foilscan in current or home directory)")
	cmd.Flags().StringP("profile", "p", "",
		"Profile applied to every target (smart, classic, interactive, standalone or one from the file)")

	// Session
	cmd.Flags().String("credentials", "",
		"Cookie store: a file path or redis://host:port/db?key=name (default: "+config.DefaultCredentialPath()+")")
	cmd.Flags().Bool("manual-login", false,
		"Wait for a manual login when the session has expired")

	// Discovery
	cmd.Flags().IntP("iterations", "n", config.DefaultIterations,
		"Number of scroll passes")
	cmd.Flags().Int("min-text-length", config.DefaultMinTextLength,
		"Shortest text block, in characters, treated as a post")
	cmd.Flags().Int("excerpt-length", config.DefaultExcerptLength,
		"Characters of each post kept in the document (0 keeps everything)")
	cmd.Flags().Duration("min-delay", config.DefaultMinDelay,
		"Shortest pause after a scroll")
	cmd.Flags().Duration("max-delay", config.DefaultMaxDelay,
		"Longest pause after a scroll")
	cmd.Flags().Int("scroll-min", config.DefaultScrollMin,
		"Shortest scroll distance in pixels")
	cmd.Flags().Int("scroll-max", config.DefaultScrollMax,
		"Longest scroll distance in pixels (0 scrolls to the bottom)")
	cmd.Flags().Duration("settle-delay", config.DefaultSettleDelay,
		"Pause after each navigation")
	cmd.Flags().DurationP("timeout", "t", config.DefaultOperationTimeout,
		"Timeout of a single browser operation")
	cmd.Flags().String("warmup-url", "",
		"Page loaded before the surface")
	cmd.Flags().String("selector", config.DefaultContainerSelector,
		"CSS selector of a post container")

	// Browser
	cmd.Flags().Bool("headless", true,
		"Run the browser without a window")
	cmd.Flags().Bool("stealth", true,
		"Hide the automation markers of the browser")
	cmd.Flags().String("user-agent", "",
		"Browser user agent")
	cmd.Flags().String("chrome-path", "",
		"Chrome executable (default: auto-detect)")

	// Batch and schedule
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of surfaces scanned concurrently")
	cmd.Flags().String("schedule", "",
		"Cron expression; repeat the scan on this schedule until interrupted")

	// Output
	cmd.Flags().StringP("output", "o", config.DefaultOutputPattern,
		"Document path; {surface} and {date} are replaced (empty disables the file)")
	cmd.Flags().String("markdown-file", "",
		"Also write a Markdown summary; {surface} and {date} are replaced")
	cmd.Flags().BoolP("json", "j", false,
		"Print the document as JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print a Markdown summary (mutually exclusive with --json)")
	cmd.Flags().Bool("no-db", false,
		"Do not record the run in the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: "+config.XDGDataDir()+")")
	cmd.Flags().String("metrics-file", "",
		"Write run metrics in the Prometheus text format to this file")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newScanner(cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr(), cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer s.close()

	if cfg.Schedule != "" {
		return s.runScheduled(ctx, cfg.Schedule)
	}
	return s.scanAll(ctx)
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit path that does not exist is an error; without one a
	// missing file simply means built-in surfaces and profiles only.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		cfg.File, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	cfg.Overrides, err = buildOverrides(cmd)
	if err != nil {
		return nil, err
	}

	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.Schedule, err = flags.GetString("schedule"); err != nil {
		return nil, err
	}
	if cfg.OutputPattern, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.MarkdownFile, err = flags.GetString("markdown-file"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.MetricsFile, err = flags.GetString("metrics-file"); err != nil {
		return nil, err
	}
	if cfg.ChromePath, err = flags.GetString("chrome-path"); err != nil {
		return nil, err
	}

	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.Targets = args

	return cfg, nil
}

// buildOverrides collects the per-surface flags the user actually set.
// Flags left at their defaults do not override the configuration file.
func buildOverrides(cmd *cobra.Command) (config.SurfaceConfig, error) {
	flags := cmd.Flags()
	var o config.SurfaceConfig
	var err error

	if o.Profile, err = flags.GetString("profile"); err != nil {
		return o, err
	}
	if o.CredentialStore, err = flags.GetString("credentials"); err != nil {
		return o, err
	}
	if o.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return o, err
	}
	if flags.Changed("selector") {
		if o.ContainerSelector, err = flags.GetString("selector"); err != nil {
			return o, err
		}
	}
	if flags.Changed("iterations") {
		if o.Iterations, err = flags.GetInt("iterations"); err != nil {
			return o, err
		}
	}
	if flags.Changed("timeout") {
		if o.OperationTimeout, err = flags.GetDuration("timeout"); err != nil {
			return o, err
		}
	}
	if flags.Changed("warmup-url") {
		v, err := flags.GetString("warmup-url")
		if err != nil {
			return o, err
		}
		o.WarmupURL = &v
	}

	intFlags := map[string]**int{
		"min-text-length": &o.MinTextLength,
		"excerpt-length":  &o.ExcerptLength,
		"scroll-min":      &o.ScrollMin,
		"scroll-max":      &o.ScrollMax,
	}
	for name, dst := range intFlags {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetInt(name)
		if err != nil {
			return o, err
		}
		*dst = &v
	}

	durationFlags := map[string]**time.Duration{
		"min-delay":    &o.MinDelay,
		"max-delay":    &o.MaxDelay,
		"settle-delay": &o.SettleDelay,
	}
	for name, dst := range durationFlags {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetDuration(name)
		if err != nil {
			return o, err
		}
		*dst = &v
	}

	boolFlags := map[string]**bool{
		"headless":     &o.Headless,
		"stealth":      &o.Stealth,
		"manual-login": &o.ManualLogin,
	}
	for name, dst := range boolFlags {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetBool(name)
		if err != nil {
			return o, err
		}
		*dst = &v
	}

	return o, nil
}

// scanner runs the configured targets. It owns the resources shared by
// every run of an invocation: the history database, the metrics registry
// and the terminal.
type scanner struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *database.RunDB
	metrics *metrics.Recorder
	table   *specs.Table

	out    *lockedWriter
	errOut io.Writer
	in     *bufio.Reader

	// promptMu serializes manual logins so concurrent runs never compete
	// for the terminal.
	promptMu sync.Mutex

	// stores holds one credential store per location for the lifetime of
	// the scanner, shared by every run and schedule activation using it.
	storesMu sync.Mutex
	stores   map[string]session.Store
}

func newScanner(cfg *config.Config, logger *slog.Logger, out, errOut io.Writer, in io.Reader) (*scanner, error) {
	s := &scanner{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.NewRecorder(),
		table:   specs.Default(),
		out:     &lockedWriter{w: out},
		errOut:  errOut,
		in:      bufio.NewReader(in),
	}

	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		s.db = db
		logger.Info("database opened", "path", db.Path())
	}
	return s, nil
}

func (s *scanner) close() {
	s.storesMu.Lock()
	defer s.storesMu.Unlock()
	for location, store := range s.stores {
		if c, ok := store.(io.Closer); ok {
			if err := c.Close(); err != nil {
				s.logger.Warn("closing credential store failed", "location", location, "error", err)
			}
		}
	}
	s.stores = nil
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Warn("closing database failed", "error", err)
		}
	}
}

// scanAll runs every target once. The returned error joins the errors of
// all failed targets so the exit code reflects the worst of them.
func (s *scanner) scanAll(ctx context.Context) error {
	targets := make([]pipeline.Target, 0, len(s.cfg.Targets))
	settings := make(map[pipeline.Target]config.Settings, len(s.cfg.Targets))
	for _, name := range s.cfg.Targets {
		set, err := s.cfg.Resolve(name)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		target := pipeline.Target{Name: set.Name, URL: set.URL}
		targets = append(targets, target)
		settings[target] = set
	}

	bp := pipeline.NewBatchProcessor(
		func(target pipeline.Target) (*pipeline.Runner, error) {
			return s.newRunner(target, settings[target])
		},
		pipeline.WithConcurrency(s.cfg.BatchSize),
		pipeline.WithBatchLogger(s.logger),
	)

	fmt.Fprintf(s.errOut, "Scanning %d surface(s)...\n", len(targets))
	start := time.Now()

	var mu sync.Mutex
	var errs []error
	err := bp.ProcessBatchWithCallback(ctx, targets, func(res pipeline.Result, index int) {
		mu.Lock()
		defer mu.Unlock()

		label := targetLabel(res.Target)
		switch {
		case res.Document == nil:
			fmt.Fprintf(s.errOut, "[%d/%d] %s: %v\n", index+1, len(targets), label, res.Err)
		case res.Err != nil:
			fmt.Fprintf(s.errOut, "[%d/%d] %s: %s with %d posts: %v\n",
				index+1, len(targets), label, res.Document.Meta.Status, len(res.Document.Posts), res.Err)
		default:
			fmt.Fprintf(s.errOut, "[%d/%d] %s: %d posts\n",
				index+1, len(targets), label, len(res.Document.Posts))
		}
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", label, res.Err))
		}
	})
	if err != nil {
		errs = append(errs, err)
	}

	fmt.Fprintf(s.errOut, "Scan completed in %s\n", time.Since(start).Round(time.Millisecond))

	if s.cfg.MetricsFile != "" {
		if err := s.metrics.WriteTextfile(s.cfg.MetricsFile); err != nil {
			s.logger.Error("writing metrics failed", "path", s.cfg.MetricsFile, "error", err)
		}
	}

	return errors.Join(errs...)
}

// runScheduled runs scanAll at every activation of the cron expression
// until ctx is cancelled. A failed scan is logged and the schedule goes on.
func (s *scanner) runScheduled(ctx context.Context, expr string) error {
	schedule, err := cronexpr.Parse(expr)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidSchedule, err)
	}

	for {
		next := schedule.Next(time.Now())
		if next.IsZero() {
			s.logger.Info("schedule has no further activations", "schedule", expr)
			return nil
		}
		fmt.Fprintf(s.errOut, "Next scan at %s\n", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if err := s.scanAll(ctx); err != nil {
			if ctx.Err() != nil {
				return err
			}
			s.logger.Error("scheduled scan failed", "schedule", expr, "error", err)
		}
	}
}

// newRunner assembles the browser, engine, collector and sinks of one run.
func (s *scanner) newRunner(target pipeline.Target, set config.Settings) (*pipeline.Runner, error) {
	store, err := s.credentialStore(set.CredentialStore)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}

	launcher := browser.Launcher(browserOptions(set, s.cfg.ChromePath))
	engine := crawler.NewEngine(launcher, store, set.URL, engineOptions(set, s.logger, s.metrics, s.promptLogin)...)

	coll := collector.New(
		collector.WithMinTextLength(set.MinTextLength),
		collector.WithExcerptLength(set.ExcerptLength),
		collector.WithLogger(s.logger),
		collector.WithMetrics(s.metrics, target.Name),
	)

	return pipeline.NewRunner(engine, coll,
		pipeline.WithSinks(s.sinks(target, time.Now())...),
		pipeline.WithRunnerMetrics(s.metrics),
		pipeline.WithRunnerLogger(s.logger),
	), nil
}

// credentialStore returns the store for location, opening it on first use.
// An empty location gets a fresh in-memory store every time.
func (s *scanner) credentialStore(location string) (session.Store, error) {
	if location == "" {
		return session.Open(location)
	}

	s.storesMu.Lock()
	defer s.storesMu.Unlock()
	if store, ok := s.stores[location]; ok {
		return store, nil
	}
	store, err := session.Open(location)
	if err != nil {
		return nil, err
	}
	if s.stores == nil {
		s.stores = make(map[string]session.Store)
	}
	s.stores[location] = store
	return store, nil
}

// sinks returns where the document of a run goes: the document file, the
// history database and the terminal.
func (s *scanner) sinks(target pipeline.Target, at time.Time) []pipeline.Sink {
	var sinks []pipeline.Sink

	if s.cfg.OutputPattern != "" {
		var opts []report.FileSinkOption
		if s.cfg.MarkdownFile != "" {
			opts = append(opts, report.WithMarkdownSummary(
				report.OutputPath(s.cfg.MarkdownFile, target.Name, at), s.table))
		}
		path := report.OutputPath(s.cfg.OutputPattern, target.Name, at)
		sinks = append(sinks, pipeline.SinkFunc(func(ctx context.Context, doc *model.Document) error {
			if err := report.NewFileSink(path, opts...).Persist(ctx, doc); err != nil {
				return err
			}
			fmt.Fprintf(s.errOut, "Document written to %s\n", path)
			return nil
		}))
	}

	if s.db != nil {
		sinks = append(sinks, s.db)
	}

	sinks = append(sinks, report.WriterSink{Writer: s.stdoutWriter()})
	return sinks
}

// stdoutWriter returns the writer for the terminal report.
func (s *scanner) stdoutWriter() report.Writer {
	switch {
	case s.cfg.JSONReport:
		return report.NewJSONWriter(s.out)
	case s.cfg.MarkdownReport:
		return report.NewMarkdownWriter(s.out, report.WithSpecTable(s.table))
	default:
		return report.NewSimpleWriter(s.out, report.WithVerbose(s.cfg.Verbose))
	}
}

// promptLogin asks the user to log in through the browser window and
// waits for Enter.
func (s *scanner) promptLogin(ctx context.Context, req crawler.AuthRequest) error {
	s.promptMu.Lock()
	defer s.promptMu.Unlock()

	name := req.Surface
	if name == "" {
		name = req.TargetURL
	}
	fmt.Fprintf(s.errOut, "\nLogin required for %s\n", name)
	fmt.Fprintf(s.errOut, "The browser was sent to %s\n", req.Location)
	fmt.Fprintln(s.errOut, "Log in in the browser window, then press Enter to continue...")

	done := make(chan error, 1)
	go func() {
		_, err := s.in.ReadString('\n')
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("waiting for login confirmation: %w", err)
		}
		return nil
	}
}

func browserOptions(set config.Settings, chromePath string) browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = set.Headless
	opts.Stealth = set.Stealth
	if set.UserAgent != "" {
		opts.UserAgent = set.UserAgent
	}
	opts.ExecPath = chromePath
	return opts
}

func engineOptions(set config.Settings, logger *slog.Logger, recorder *metrics.Recorder, resume crawler.ResumeFunc) []crawler.Option {
	opts := []crawler.Option{
		crawler.WithSurface(set.Name),
		crawler.WithWarmupURL(set.WarmupURL),
		crawler.WithContainerSelector(set.ContainerSelector),
		crawler.WithLoginMarkers(set.LoginMarkers),
		crawler.WithIterations(set.Iterations),
		crawler.WithDelay(set.MinDelay, set.MaxDelay),
		crawler.WithScrollDistance(set.ScrollMin, set.ScrollMax),
		crawler.WithSettleDelay(set.SettleDelay),
		crawler.WithOperationTimeout(set.OperationTimeout),
		crawler.WithLogger(logger),
		crawler.WithMetrics(recorder),
	}
	if set.ManualLogin && resume != nil {
		opts = append(opts, crawler.WithResume(resume))
	}
	return opts
}

func targetLabel(t pipeline.Target) string {
	if t.Name != "" {
		return t.Name
	}
	return t.URL
}

// lockedWriter serializes writes from concurrent runs.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
