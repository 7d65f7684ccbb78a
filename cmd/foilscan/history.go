package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/foilscan/internal/config"
	"github.com/nao1215/foilscan/internal/database"
	"github.com/nao1215/foilscan/internal/model"
	"github.com/nao1215/foilscan/internal/report"
)

const (
	defaultHistoryLimit = 20
	historyTimeLayout   = "2006-01-02 15:04:05"
)

// NewHistoryCmd creates the history command.
// Its subcommands read the runs recorded by scan.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded runs",
		Long: `History reads the runs recorded by 'foilscan scan' in the local database.

Examples:
  # List the latest runs of every surface
  foilscan history list

  # List the runs of one surface
  foilscan history list axis-riders

  # Print a stored run document (a unique ID prefix is enough)
  foilscan history show 3f2a9c

  # Print the latest run of a surface
  foilscan history show axis-riders

  # Compare the foil mentions of the latest two runs
  foilscan history compare axis-riders

  # How often a foil was mentioned per run
  foilscan history trend axis-riders "ART 999"`,
	}

	cmd.PersistentFlags().String("db-dir", "",
		"History database directory (default: "+config.XDGDataDir()+")")

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryCompareCmd())
	cmd.AddCommand(newHistoryTrendCmd())

	return cmd
}

func newHistoryListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [surface]",
		Short: "List recorded runs, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := cmd.Flags().GetInt("limit")
			if err != nil {
				return err
			}
			opts := database.ListOptions{Limit: limit}
			if len(args) == 1 {
				opts.Surface = args[0]
			}
			return withHistoryDB(cmd, func(ctx context.Context, db *database.RunDB) error {
				return listRuns(ctx, cmd.OutOrStdout(), db, opts)
			})
		},
	}
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "Maximum number of runs (0 lists all)")
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id|surface>",
		Short: "Print a recorded run, or the latest run of a surface",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOutput, err := cmd.Flags().GetBool("json")
			if err != nil {
				return err
			}
			markdownOutput, err := cmd.Flags().GetBool("markdown")
			if err != nil {
				return err
			}
			if jsonOutput && markdownOutput {
				return config.ErrConflictingReportFormats
			}
			return withHistoryDB(cmd, func(ctx context.Context, db *database.RunDB) error {
				doc, err := lookupRun(ctx, db, args[0])
				if err != nil {
					return err
				}
				var w report.Writer
				switch {
				case jsonOutput:
					w = report.NewJSONWriter(cmd.OutOrStdout())
				case markdownOutput:
					w = report.NewMarkdownWriter(cmd.OutOrStdout())
				default:
					w = report.NewSimpleWriter(cmd.OutOrStdout(), report.WithVerbose(true))
				}
				_, err = w.Write(doc)
				return err
			})
		},
	}
	cmd.Flags().BoolP("json", "j", false, "Print the stored JSON document")
	cmd.Flags().BoolP("markdown", "m", false, "Print a Markdown summary")
	return cmd
}

func newHistoryCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <surface>",
		Short: "Compare the foil mentions of two runs",
		Long: `Compare shows how foil mentions changed between two runs of a surface.

By default the latest run is compared with the one before it. Use --with
to compare the latest run with a specific earlier run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			withID, err := cmd.Flags().GetString("with")
			if err != nil {
				return err
			}
			jsonOutput, err := cmd.Flags().GetBool("json")
			if err != nil {
				return err
			}
			markdownOutput, err := cmd.Flags().GetBool("markdown")
			if err != nil {
				return err
			}
			return withHistoryDB(cmd, func(ctx context.Context, db *database.RunDB) error {
				prev, cur, err := runsToCompare(ctx, db, args[0], withID)
				if err != nil {
					return err
				}
				result := compareRuns(prev, cur)
				out := cmd.OutOrStdout()
				switch {
				case jsonOutput:
					return outputComparisonJSON(out, result)
				case markdownOutput:
					return outputComparisonMarkdown(out, result)
				default:
					return outputComparisonText(out, result)
				}
			})
		},
	}
	cmd.Flags().StringP("with", "w", "", "Run ID (or unique prefix) to compare the latest run with")
	cmd.Flags().BoolP("json", "j", false, "Output the comparison as JSON")
	cmd.Flags().BoolP("markdown", "m", false, "Output the comparison as Markdown")
	return cmd
}

func newHistoryTrendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trend <surface> <foil>",
		Short: "Show how many posts mentioned a foil in each run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistoryDB(cmd, func(ctx context.Context, db *database.RunDB) error {
				points, err := db.FoilMentionsOverTime(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				printTrend(cmd.OutOrStdout(), args[0], args[1], points)
				return nil
			})
		},
	}
}

// withHistoryDB opens the history database for fn. The database must
// already exist; history never creates one.
func withHistoryDB(cmd *cobra.Command, fn func(ctx context.Context, db *database.RunDB) error) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return fn(cmd.Context(), db)
}

// listRuns prints run summaries.
func listRuns(ctx context.Context, out io.Writer, db *database.RunDB, opts database.ListOptions) error {
	runs, err := db.ListRuns(ctx, opts)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		if opts.Surface != "" {
			fmt.Fprintf(out, "No runs found for %s\n", opts.Surface)
		} else {
			fmt.Fprintln(out, "No runs found in the database.")
		}
		fmt.Fprintln(out, "\nUse 'foilscan scan <surface>' to record a run.")
		return nil
	}

	fmt.Fprintf(out, "Runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-8s  %-19s  %-16s  %-11s  %5s\n", "ID", "Started", "Surface", "Status", "Posts")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 67))
	for _, r := range runs {
		surface := r.Surface
		if surface == "" {
			surface = "-"
		}
		fmt.Fprintf(out, "  %-8s  %-19s  %-16s  %-11s  %5d\n",
			shortID(r.ID),
			r.StartedAt.Local().Format(historyTimeLayout),
			surface,
			r.Status,
			r.PostCount,
		)
	}
	fmt.Fprintln(out, "\nUse 'foilscan history show <id>' to print a run.")
	return nil
}

func printTrend(out io.Writer, surface, foil string, points []database.FoilMentionPoint) {
	if len(points) == 0 {
		fmt.Fprintf(out, "No runs of %s mentioned %s\n", surface, foil)
		return
	}
	fmt.Fprintf(out, "%s mentions on %s (%d runs):\n\n", foil, surface, len(points))
	for _, p := range points {
		fmt.Fprintf(out, "  %-19s  %-8s  %3d  %s\n",
			p.StartedAt.Local().Format(historyTimeLayout),
			shortID(p.RunID),
			p.Posts,
			strings.Repeat("#", p.Posts),
		)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// lookupRun resolves ref as a run ID prefix first and as a surface name
// second.
func lookupRun(ctx context.Context, db *database.RunDB, ref string) (*model.Document, error) {
	doc, err := db.GetRun(ctx, ref)
	if !errors.Is(err, database.ErrRunNotFound) {
		return doc, err
	}
	latest, lerr := db.LatestRun(ctx, ref)
	if errors.Is(lerr, database.ErrRunNotFound) {
		return nil, fmt.Errorf("%w: no run ID or surface matches %q", database.ErrRunNotFound, ref)
	}
	return latest, lerr
}

// runsToCompare returns the previous and current documents of surface.
func runsToCompare(ctx context.Context, db *database.RunDB, surface, withID string) (*model.Document, *model.Document, error) {
	runs, err := db.ListRuns(ctx, database.ListOptions{Surface: surface, Limit: 2})
	if err != nil {
		return nil, nil, err
	}
	if len(runs) == 0 {
		return nil, nil, fmt.Errorf("no runs found for %s", surface)
	}

	cur, err := db.LatestRun(ctx, surface)
	if err != nil {
		return nil, nil, err
	}

	var prevID string
	switch {
	case withID != "":
		prevID = withID
	case len(runs) < 2:
		return nil, nil, fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(runs))
	default:
		prevID = runs[1].ID
	}

	prev, err := db.GetRun(ctx, prevID)
	if err != nil {
		return nil, nil, err
	}
	if prev.Meta.Surface != surface {
		return nil, nil, fmt.Errorf("run %s belongs to %q, not %q", shortID(prev.Meta.RunID), prev.Meta.Surface, surface)
	}
	if prev.Meta.RunID == cur.Meta.RunID {
		return nil, nil, fmt.Errorf("run %s is the latest run; choose an earlier one", shortID(prev.Meta.RunID))
	}
	return prev, cur, nil
}

// RunComparison holds the mention changes between two runs.
type RunComparison struct {
	Surface      string      `json:"surface"`
	Previous     RunMetadata `json:"previous_run"`
	Current      RunMetadata `json:"current_run"`
	Foils        []FoilDelta `json:"foils"`
	NewFoils     []string    `json:"new_foils"`
	DroppedFoils []string    `json:"dropped_foils"`
}

// RunMetadata summarises one side of a comparison.
type RunMetadata struct {
	RunID      string          `json:"run_id"`
	CapturedAt time.Time       `json:"captured_at"`
	Status     model.RunStatus `json:"status"`
	Posts      int             `json:"posts"`
	Weights    int             `json:"weight_reports"`
}

// FoilDelta is the change in mentions of one foil.
type FoilDelta struct {
	Foil     string `json:"foil"`
	Previous int    `json:"previous"`
	Current  int    `json:"current"`
	Delta    int    `json:"delta"`
}

// compareRuns compares the foil mentions of two documents. Foils are
// ordered by current mentions, then by name.
func compareRuns(prev, cur *model.Document) *RunComparison {
	prevMentions := mentions(prev)
	curMentions := mentions(cur)

	result := &RunComparison{
		Surface:      cur.Meta.Surface,
		Previous:     runMetadata(prev),
		Current:      runMetadata(cur),
		Foils:        []FoilDelta{},
		NewFoils:     []string{},
		DroppedFoils: []string{},
	}

	seen := make(map[string]bool)
	for foil := range curMentions {
		seen[foil] = true
	}
	for foil := range prevMentions {
		seen[foil] = true
	}
	for foil := range seen {
		p, c := prevMentions[foil], curMentions[foil]
		result.Foils = append(result.Foils, FoilDelta{Foil: foil, Previous: p, Current: c, Delta: c - p})
		switch {
		case p == 0 && c > 0:
			result.NewFoils = append(result.NewFoils, foil)
		case p > 0 && c == 0:
			result.DroppedFoils = append(result.DroppedFoils, foil)
		}
	}

	sort.Slice(result.Foils, func(i, j int) bool {
		a, b := result.Foils[i], result.Foils[j]
		if a.Current != b.Current {
			return a.Current > b.Current
		}
		return a.Foil < b.Foil
	})
	sort.Strings(result.NewFoils)
	sort.Strings(result.DroppedFoils)
	return result
}

func mentions(doc *model.Document) map[string]int {
	if doc.Statistics == nil {
		return map[string]int{}
	}
	return doc.Statistics.FoilMentions
}

func runMetadata(doc *model.Document) RunMetadata {
	m := RunMetadata{
		RunID:      doc.Meta.RunID,
		CapturedAt: doc.Meta.CapturedAt,
		Status:     doc.Meta.Status,
		Posts:      len(doc.Posts),
	}
	if doc.Statistics != nil {
		m.Weights = len(doc.Statistics.WeightRecommendations)
	}
	return m
}

// formatDelta formats a change with an explicit sign.
func formatDelta(delta int) string {
	switch {
	case delta > 0:
		return "+" + strconv.Itoa(delta)
	case delta < 0:
		return strconv.Itoa(delta)
	default:
		return "0"
	}
}

func outputComparisonJSON(out io.Writer, result *RunComparison) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputComparisonText(out io.Writer, result *RunComparison) error {
	fmt.Fprintf(out, "Run Comparison: %s\n", result.Surface)
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, "\nPrevious run: %s  %s  %d posts\n",
		shortID(result.Previous.RunID), result.Previous.CapturedAt.Local().Format(historyTimeLayout), result.Previous.Posts)
	fmt.Fprintf(out, "Current run:  %s  %s  %d posts\n",
		shortID(result.Current.RunID), result.Current.CapturedAt.Local().Format(historyTimeLayout), result.Current.Posts)

	if len(result.Foils) == 0 {
		fmt.Fprintln(out, "\nNeither run mentioned a foil.")
		return nil
	}

	fmt.Fprintln(out, "\nFoil Mentions:")
	fmt.Fprintf(out, "  %-24s  %-8s  %-8s  %-6s\n", "Foil", "Previous", "Current", "Change")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 52))
	for _, f := range result.Foils {
		fmt.Fprintf(out, "  %-24s  %-8d  %-8d  %-6s\n", f.Foil, f.Previous, f.Current, formatDelta(f.Delta))
	}

	if len(result.NewFoils) > 0 {
		fmt.Fprintf(out, "\nNew (%d):\n", len(result.NewFoils))
		for _, foil := range result.NewFoils {
			fmt.Fprintf(out, "  [+] %s\n", foil)
		}
	}
	if len(result.DroppedFoils) > 0 {
		fmt.Fprintf(out, "\nNo longer mentioned (%d):\n", len(result.DroppedFoils))
		for _, foil := range result.DroppedFoils {
			fmt.Fprintf(out, "  [-] %s\n", foil)
		}
	}
	return nil
}

func outputComparisonMarkdown(out io.Writer, result *RunComparison) error {
	md := markdown.NewMarkdown(out)
	md.H1("Run Comparison: " + result.Surface)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Run", "`" + shortID(result.Previous.RunID) + "`", "`" + shortID(result.Current.RunID) + "`", "-"},
			{"Date", result.Previous.CapturedAt.Format("2006-01-02 15:04"), result.Current.CapturedAt.Format("2006-01-02 15:04"), "-"},
			{"Posts", strconv.Itoa(result.Previous.Posts), strconv.Itoa(result.Current.Posts), formatDelta(result.Current.Posts - result.Previous.Posts)},
			{"Weight reports", strconv.Itoa(result.Previous.Weights), strconv.Itoa(result.Current.Weights), formatDelta(result.Current.Weights - result.Previous.Weights)},
		},
	})
	md.PlainText("")

	if len(result.Foils) > 0 {
		md.H2("Foil Mentions")
		md.PlainText("")
		rows := make([][]string, 0, len(result.Foils))
		for _, f := range result.Foils {
			rows = append(rows, []string{f.Foil, strconv.Itoa(f.Previous), strconv.Itoa(f.Current), formatDelta(f.Delta)})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Foil", "Previous", "Current", "Change"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if len(result.NewFoils) > 0 {
		md.H2(fmt.Sprintf("New (%d)", len(result.NewFoils)))
		md.BulletList(result.NewFoils...)
		md.PlainText("")
	}
	if len(result.DroppedFoils) > 0 {
		md.H2(fmt.Sprintf("No Longer Mentioned (%d)", len(result.DroppedFoils)))
		md.BulletList(result.DroppedFoils...)
		md.PlainText("")
	}

	return md.Build()
}
