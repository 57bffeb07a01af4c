package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/aptoseidon/aptoseidon/internal/core/store"
	"github.com/aptoseidon/aptoseidon/internal/output"
)

var (
	rateLimitListAll    bool
	rateLimitListPrefix string
)

var rateLimitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored source throttle state",
	Long: `List the persisted per-endpoint throttle state of the evidence sources
keyed by host (api.coingecko.com, fullnode.testnet.aptoslabs.com, rdap.*).
Without --prefix every entry is listed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := resolveOutput(cmd, output.FormatTable, output.FormatJSON, output.FormatMarkdown)
		if err != nil {
			return err
		}

		query := store.RateLimitQuery{
			All:    rateLimitListAll,
			Prefix: strings.TrimSpace(rateLimitListPrefix),
		}
		if query.Prefix == "" {
			query.All = true
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		entries, err := db.ListRateLimits(cmd.Context(), query)
		if err != nil {
			return err
		}

		rendered, err := output.NewFormatter(target.Format).FormatRateLimits(entries)
		if err != nil {
			return err
		}

		sink, err := target.open(cmd.OutOrStdout(), "rate-limit.list")
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()
		return sink.write(rendered)
	},
}

func init() {
	addOutputFlags(rateLimitListCmd, output.FormatTable, output.FormatJSON, output.FormatMarkdown)
	rateLimitListCmd.Flags().BoolVar(&rateLimitListAll, "all", false, "List all endpoints")
	rateLimitListCmd.Flags().StringVar(&rateLimitListPrefix, "prefix", "", "List endpoints with matching prefix")
}
