package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aptoseidon/aptoseidon/internal/config"
	"github.com/aptoseidon/aptoseidon/internal/core"
	"github.com/aptoseidon/aptoseidon/internal/core/engine"
	"github.com/aptoseidon/aptoseidon/internal/core/store"
	"github.com/aptoseidon/aptoseidon/internal/observability"
	"github.com/aptoseidon/aptoseidon/internal/output"
)

var (
	analyzeType         string
	analyzeMode         string
	analyzeTx           string
	analyzeWallet       string
	analyzeEvidenceOnly bool
	analyzeNoStore      bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url|address|name>",
	Short: "Assess a crypto project",
	Long: `Collect market, chain, web and social evidence for a project and score it.

The default pre-check is free. A full report needs --tx with the hash of a
payment transfer to the configured recipient; --tx alone implies --mode full.
A full request without a valid payment prints the payment instructions and
exits non-zero.

Examples:
  aptoseidon analyze https://example.xyz --mode pre_check
  aptoseidon analyze 0x1a2b... --type Token --tx 0xfeed... --output-format markdown`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mode, err := parseMode(analyzeMode)
		if err != nil {
			return err
		}
		if strings.TrimSpace(analyzeTx) != "" && !cmd.Flags().Changed("mode") {
			mode = core.ModeFull
		}
		target, err := resolveOutput(cmd)
		if err != nil {
			return err
		}

		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		logger := observability.Active()

		if mode == core.ModeFull {
			showAgentGuidance(cfg.AILink, cmd.ErrOrStderr())
		}

		db := openOptionalStore(ctx, cfg, analyzeNoStore, logger)
		if db != nil {
			defer db.Close() // nolint:errcheck // best-effort cleanup
		}

		svc, err := buildService(cfg, db, logger)
		if err != nil {
			return err
		}

		req := core.AnalyzeRequest{
			Input:         args[0],
			ProjectType:   analyzeType,
			WalletAddress: analyzeWallet,
			PaymentTxRef:  analyzeTx,
			Mode:          mode,
			EvidenceOnly:  analyzeEvidenceOnly,
		}
		resp, err := svc.Analyze(ctx, req)
		if err != nil {
			var payment *engine.PaymentRequiredError
			if stderrors.As(err, &payment) {
				_, _ = fmt.Fprint(cmd.ErrOrStderr(), paymentInstructions(payment))
			}
			return err
		}

		rendered, err := output.NewFormatter(target.Format).FormatAnalysis(resp)
		if err != nil {
			return err
		}

		sink, err := target.open(cmd.OutOrStdout(), core.Normalize(args[0])+"."+mode)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		if err := sink.write(rendered); err != nil {
			return err
		}
		if !sink.isStdout() {
			logger.Info("Report written", zap.String("path", sink.path), zap.String("job_id", resp.JobID))
		}
		return nil
	},
}

// parseMode accepts the request modes with "-" or "_" separators.
func parseMode(value string) (string, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_")
	switch normalized {
	case "", core.ModePreCheck, "precheck":
		return core.ModePreCheck, nil
	case core.ModeFull:
		return core.ModeFull, nil
	default:
		return "", fmt.Errorf("unsupported mode %q (use %s or %s)", value, core.ModePreCheck, core.ModeFull)
	}
}

// paymentInstructions tells the user how to pay for a full report.
func paymentInstructions(e *engine.PaymentRequiredError) string {
	var b strings.Builder
	b.WriteString("\nPayment required for a full report.\n")
	if e.Reason != "" {
		fmt.Fprintf(&b, "  Reason:    %s\n", e.Reason)
	}
	fmt.Fprintf(&b, "  Send:      %g APT (%d octas)\n", e.AmountAPT, e.AmountOctas)
	fmt.Fprintf(&b, "  To:        %s\n", e.Recipient)
	b.WriteString("  Then rerun with --tx <transaction hash>.\n\n")
	return b.String()
}

// openOptionalStore opens the report store for caching and persistence. A
// failure is logged and the analysis runs without it.
func openOptionalStore(ctx context.Context, cfg *config.Config, disabled bool, logger observability.Logger) *store.Store {
	if disabled {
		return nil
	}
	db, err := openConfiguredStore(ctx, cfg.Store)
	if err != nil {
		logger.Warn("Report store unavailable; results will not be cached", zap.Error(err))
		return nil
	}
	return db
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeType, "type", "", "project type (e.g. Token, DeFi, Layer 1)")
	analyzeCmd.Flags().StringVar(&analyzeMode, "mode", core.ModePreCheck, "request mode: pre_check|full")
	analyzeCmd.Flags().StringVar(&analyzeTx, "tx", "", "payment transaction hash for a full report")
	analyzeCmd.Flags().StringVar(&analyzeWallet, "wallet", "", "requesting wallet address")
	analyzeCmd.Flags().BoolVar(&analyzeEvidenceOnly, "evidence-only", false, "skip the language-model agents and use rule fallbacks")
	analyzeCmd.Flags().BoolVar(&analyzeNoStore, "no-store", false, "do not read or write the report store")
	addOutputFlags(analyzeCmd, output.FormatTable, output.FormatJSON, output.FormatMarkdown)
}
