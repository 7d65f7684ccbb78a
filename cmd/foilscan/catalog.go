package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/nao1215/foilscan/internal/catalog"
	"github.com/nao1215/foilscan/internal/log"
	"github.com/nao1215/foilscan/internal/model"
	"github.com/nao1215/foilscan/internal/report"
	"github.com/nao1215/foilscan/internal/specs"
)

const (
	defaultCatalogFile        = "axis-catalog.json"
	defaultCatalogConcurrency = 2
)

// NewCatalogCmd creates the catalog command.
func NewCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Fetch the manufacturer product catalog",
		Long: `Catalog downloads the product listings of the storefront collections,
parses series, area, mast length and material from the titles, and adds
aspect ratio and wingspan to front wings from the built-in spec table.

Requests are limited to one per second by default.

Examples:
  # Fetch the default collections
  foilscan catalog

  # Fetch only front wings and the Spitfire collection
  foilscan catalog --collections front-wings,spitfire -o wings.json

  # Also write the spec table used for enrichment
  foilscan catalog --spec-table foil-specs.json`,
		Args: cobra.NoArgs,
		RunE: runCatalogCmd,
	}

	cmd.Flags().StringP("output", "o", defaultCatalogFile,
		"Catalog output file")
	cmd.Flags().StringSlice("collections", defaultHandles(),
		"Collection handles to fetch")
	cmd.Flags().String("base-url", catalog.DefaultBaseURL,
		"Storefront base URL")
	cmd.Flags().Int("concurrency", defaultCatalogConcurrency,
		"Collections fetched at once")
	cmd.Flags().Float64("rate", 1,
		"Maximum requests per second")
	cmd.Flags().Bool("no-specs", false,
		"Do not enrich front wings from the spec table")
	cmd.Flags().String("spec-table", "",
		"Also write the spec table as JSON to this file")

	return cmd
}

func defaultHandles() []string {
	cols := catalog.DefaultCollections()
	handles := make([]string, len(cols))
	for i, c := range cols {
		handles[i] = c.Handle
	}
	return handles
}

// catalogOptions holds the parsed catalog flags.
type catalogOptions struct {
	output      string
	handles     []string
	baseURL     string
	concurrency int
	rate        float64
	noSpecs     bool
	specTable   string
}

func parseCatalogOptions(cmd *cobra.Command) (catalogOptions, error) {
	var o catalogOptions
	var err error
	flags := cmd.Flags()
	if o.output, err = flags.GetString("output"); err != nil {
		return o, err
	}
	if o.handles, err = flags.GetStringSlice("collections"); err != nil {
		return o, err
	}
	if o.baseURL, err = flags.GetString("base-url"); err != nil {
		return o, err
	}
	if o.concurrency, err = flags.GetInt("concurrency"); err != nil {
		return o, err
	}
	if o.rate, err = flags.GetFloat64("rate"); err != nil {
		return o, err
	}
	if o.noSpecs, err = flags.GetBool("no-specs"); err != nil {
		return o, err
	}
	if o.specTable, err = flags.GetString("spec-table"); err != nil {
		return o, err
	}
	if len(o.handles) == 0 {
		return o, fmt.Errorf("no collections specified")
	}
	if o.rate <= 0 {
		return o, fmt.Errorf("invalid rate %v: must be positive", o.rate)
	}
	return o, nil
}

// runCatalogCmd executes the catalog command.
func runCatalogCmd(cmd *cobra.Command, _ []string) error {
	opts, err := parseCatalogOptions(cmd)
	if err != nil {
		return err
	}

	logger := log.NewSecureLogger(os.Stderr, getVerboseFlag(cmd))
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := catalog.NewClient(
		catalog.WithBaseURL(opts.baseURL),
		catalog.WithRateLimit(rate.Limit(opts.rate), 1),
		catalog.WithLogger(logger),
	)
	return fetchCatalog(ctx, client, opts, specs.Default(), cmd.OutOrStdout(), logger)
}

// fetchCatalog fetches, enriches and writes the catalog. A partial catalog
// is still written when some collections failed; the fetch error is
// returned afterwards.
func fetchCatalog(ctx context.Context, client *catalog.Client, opts catalogOptions, table *specs.Table, out io.Writer, logger *slog.Logger) error {
	cols := make([]catalog.Collection, 0, len(opts.handles))
	for _, handle := range opts.handles {
		col, ok := catalog.LookupCollection(handle)
		if !ok {
			col = catalog.Collection{Handle: handle, Name: handle}
		}
		cols = append(cols, col)
	}

	fmt.Fprintf(out, "Fetching %d collection(s) from %s...\n", len(cols), opts.baseURL)
	cat, fetchErr := client.FetchAll(ctx, cols, opts.concurrency)
	if cat == nil {
		return fetchErr
	}

	if !opts.noSpecs {
		res := table.Merge(cat)
		fmt.Fprintf(out, "Spec table: %d front wings enriched, %d without specs\n",
			len(res.Matched), len(res.Unmatched))
		for _, title := range res.Unmatched {
			logger.Debug("no spec table entry", "title", title)
		}
	}

	if err := writeJSONFile(opts.output, func(w *report.JSONWriter) error {
		_, err := w.WriteCatalog(cat)
		return err
	}); err != nil {
		return err
	}
	printCatalogSummary(out, cat, cols)
	fmt.Fprintf(out, "Catalog written to %s\n", opts.output)

	if opts.specTable != "" {
		if err := writeJSONFile(opts.specTable, func(w *report.JSONWriter) error {
			_, err := w.WriteSpecTable(table.Records())
			return err
		}); err != nil {
			return err
		}
		fmt.Fprintf(out, "Spec table written to %s\n", opts.specTable)
	}

	return fetchErr
}

func writeJSONFile(path string, write func(*report.JSONWriter) error) error {
	var buf bytes.Buffer
	if err := write(report.NewJSONWriter(&buf)); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := report.WriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func printCatalogSummary(out io.Writer, cat *model.Catalog, cols []catalog.Collection) {
	for _, col := range cols {
		data, ok := cat.Collections[col.Handle]
		if !ok {
			continue
		}
		fmt.Fprintf(out, "  %-16s %4d products\n", col.Name, data.Count)
	}
	fmt.Fprintf(out, "  %-16s %4d products\n", "Total", cat.TotalProducts())
}
