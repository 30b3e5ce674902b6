// Command importer runs one CSV import end to end from the terminal,
// applying the default action for every pair. It talks straight to
// Postgres and is meant for operators and local testing; the HTTP API is
// the interactive surface.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"example.com/reconcile/internal/apply"
	"example.com/reconcile/internal/config"
	"example.com/reconcile/internal/domain"
	"example.com/reconcile/internal/match"
	"example.com/reconcile/internal/normalize"
	persistence "example.com/reconcile/internal/persistence/postgres"
	"example.com/reconcile/internal/resolve"
	"example.com/reconcile/internal/schema"
	"example.com/reconcile/internal/source"
)

var (
	flagFile         string
	flagVendor       string
	flagProfilePath  string
	flagUser         string
	flagDistanceTol  float64
	flagElevationTol float64
	flagDryRun       bool
)

var rootCmd = &cobra.Command{
	Use:   "importer",
	Short: "Reconcile a fitness CSV export against stored records",
	Long: `Reads a vendor CSV export, normalizes it to canonical records,
matches each row against the user's existing records within tolerance,
and applies the default action per pair: replace when a duplicate was
found, insert otherwise.`,
	Example: `  importer --file activities.csv --vendor garmin --user u-123
  importer --file export.csv --profile ./profiles/polar.yaml --user u-123 --dry-run`,
	RunE: runImport,
}

func init() {
	rootCmd.Flags().StringVar(&flagFile, "file", "", "path to the CSV export (required)")
	rootCmd.Flags().StringVar(&flagVendor, "vendor", "generic", "built-in vendor profile: garmin, strava, generic")
	rootCmd.Flags().StringVar(&flagProfilePath, "profile", "", "path to a YAML vendor profile, overrides --vendor")
	rootCmd.Flags().StringVar(&flagUser, "user", "", "user whose records the import reconciles against (required)")
	rootCmd.Flags().Float64Var(&flagDistanceTol, "distance-tolerance", 0.3, "distance tolerance in kilometres")
	rootCmd.Flags().Float64Var(&flagElevationTol, "elevation-tolerance", 40, "elevation tolerance in metres")
	rootCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "preview decisions without writing anything")
	_ = rootCmd.MarkFlagRequired("file")
	_ = rootCmd.MarkFlagRequired("user")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("import failed: %v", err)
		os.Exit(1)
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	profile, err := loadProfile()
	if err != nil {
		return err
	}

	file, err := os.Open(flagFile)
	if err != nil {
		return fmt.Errorf("open %s: %w", flagFile, err)
	}
	defer file.Close()

	table, err := source.ReadCSV(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", flagFile, err)
	}

	result, err := normalize.New(profile).Normalize(table)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := config.Load()
	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	repo := persistence.NewRepository(pool)
	tolerances := domain.ToleranceConfig{
		DistanceTolKM: flagDistanceTol,
		ElevationTolM: flagElevationTol,
	}

	candidates, err := match.New(repo, tolerances).Match(ctx, flagUser, result.Accepted)
	if err != nil {
		return fmt.Errorf("match against existing records: %w", err)
	}

	session := resolve.NewSession(flagUser, profile.Name, tolerances, candidates, result.Rejected, result.Skipped)
	decisions, err := session.Decisions()
	if err != nil {
		return err
	}

	printPreview(profile.Name, result, decisions)
	if flagDryRun {
		color.Cyan("dry run, nothing written")
		return nil
	}

	outcome := apply.New(repo).Apply(ctx, flagUser, decisions)
	printOutcome(outcome)
	if outcome.Failed() > 0 {
		return fmt.Errorf("%d of %d pairs failed to apply", outcome.Failed(), len(decisions))
	}
	return nil
}

func loadProfile() (*schema.Profile, error) {
	if flagProfilePath != "" {
		return schema.LoadProfile(flagProfilePath)
	}
	profile, ok := schema.BuiltinProfile(flagVendor)
	if !ok {
		return nil, fmt.Errorf("unknown vendor %q, expected garmin, strava, or generic", flagVendor)
	}
	return profile, nil
}

func printPreview(vendor string, result normalize.Result, decisions []resolve.Decision) {
	fmt.Printf("profile %s: %d rows accepted, %d rejected, %d skipped by kind filter\n",
		vendor, len(result.Accepted), len(result.Rejected), result.Skipped)

	for _, row := range result.Rejected {
		color.Yellow("  row %d rejected: %s", row.RowIndex, row.Reason)
	}

	for _, d := range decisions {
		record := d.Candidate.Record
		label := fmt.Sprintf("%s %s", record.Day(), orUntitled(record.Title))
		switch {
		case d.Candidate.Matched():
			delta := ""
			if d.Candidate.DeltaKM != nil {
				delta = fmt.Sprintf(" (Δ%.2f km)", *d.Candidate.DeltaKM)
			}
			fmt.Printf("  %s %s matches existing record%s\n", color.YellowString(string(d.Action)), label, delta)
		default:
			fmt.Printf("  %s %s\n", color.GreenString(string(d.Action)), label)
		}
	}
}

func printOutcome(outcome apply.Outcome) {
	color.Green("inserted: %d", outcome.Inserted)
	color.Yellow("replaced: %d  combined: %d  ignored: %d", outcome.Replaced, outcome.Combined, outcome.Ignored)
	for _, failure := range outcome.Failures {
		color.Red("  pair %d: %s", failure.Ref, failure.Reason)
	}
}

func orUntitled(title string) string {
	if title == "" {
		return "(untitled)"
	}
	return title
}
