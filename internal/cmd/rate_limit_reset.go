package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/aptoseidon/aptoseidon/internal/core/store"
	"github.com/aptoseidon/aptoseidon/internal/output"
)

var (
	rateLimitResetAll      bool
	rateLimitResetEndpoint string
	rateLimitResetPrefix   string
	rateLimitResetYes      bool
	rateLimitResetDryRun   bool
)

var rateLimitResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear stored source throttle state",
	Long: `Delete persisted throttle state so a source is retried immediately.
Select entries with exactly one of --endpoint, --prefix or --all; --all also
needs --yes unless --dry-run is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := resolveOutput(cmd, output.FormatTable, output.FormatJSON)
		if err != nil {
			return err
		}

		query := store.RateLimitQuery{
			All:      rateLimitResetAll,
			Endpoint: strings.TrimSpace(rateLimitResetEndpoint),
			Prefix:   strings.TrimSpace(rateLimitResetPrefix),
		}
		if err := query.Validate(); err != nil {
			return err
		}
		if query.All && !rateLimitResetYes && !rateLimitResetDryRun {
			return errors.New("--all requires --yes (or use --dry-run)")
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		result := resetResult{DryRun: rateLimitResetDryRun}
		if result.Matched, err = db.CountRateLimits(cmd.Context(), query); err != nil {
			return err
		}
		if !result.DryRun {
			if result.Deleted, err = db.ResetRateLimits(cmd.Context(), query); err != nil {
				return err
			}
		}

		sink, err := target.open(cmd.OutOrStdout(), "rate-limit.reset")
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		rendered, err := result.render(target.Format)
		if err != nil {
			return err
		}
		return sink.write(rendered)
	},
}

type resetResult struct {
	Matched int   `json:"matched"`
	Deleted int64 `json:"deleted"`
	DryRun  bool  `json:"dry_run"`
}

func (r resetResult) render(format output.Format) (string, error) {
	if format == output.FormatJSON {
		payload, err := json.MarshalIndent(r, "", "  ")
		return string(payload), err
	}

	summary := fmt.Sprintf("Deleted %d of %d stored entr(ies)", r.Deleted, r.Matched)
	if r.DryRun {
		summary = fmt.Sprintf("Would delete %d stored entr(ies)", r.Matched)
	}
	return ascii.DrawBox(strings.Join([]string{"Rate Limit Reset", "", summary}, "\n"), 0), nil
}

func init() {
	addOutputFlags(rateLimitResetCmd, output.FormatTable, output.FormatJSON)
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetAll, "all", false, "Reset all endpoints")
	rateLimitResetCmd.Flags().StringVar(&rateLimitResetEndpoint, "endpoint", "", "Reset a single endpoint (exact match)")
	rateLimitResetCmd.Flags().StringVar(&rateLimitResetPrefix, "prefix", "", "Reset endpoints with matching prefix")
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetYes, "yes", false, "Confirm destructive reset")
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetDryRun, "dry-run", false, "Show what would be deleted")
}
