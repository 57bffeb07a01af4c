package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aptoseidon/aptoseidon/internal/core/payment"
	"github.com/aptoseidon/aptoseidon/internal/observability"
	"github.com/aptoseidon/aptoseidon/internal/output"
)

var verifyPaymentOutput string

var verifyPaymentCmd = &cobra.Command{
	Use:   "verify-payment <tx-hash>",
	Short: "Check whether a transaction pays for a full report",
	Long: `Look up a transaction on the payment node and apply the payment policy:
a successful transfer of at least the minimum amount to the configured
recipient. Exits non-zero when the payment is rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(verifyPaymentOutput)
		if err != nil {
			return err
		}
		if format == output.FormatMarkdown {
			return fmt.Errorf("unsupported output format: %s", format)
		}

		ctx := cmd.Context()
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}

		gate := newPaymentGate(cfg, newRateLimiter(cfg, nil), observability.Active())
		verdict := gate.Verify(ctx, args[0])
		if err := writeVerdict(cmd.OutOrStdout(), format, verdict, gate.Config()); err != nil {
			return err
		}
		if !verdict.Authorized() {
			return fmt.Errorf("payment %s: %s", verdict.State, verdict.Reason)
		}
		return nil
	},
}

func writeVerdict(w io.Writer, format output.Format, v payment.Verdict, policy payment.Config) error {
	if format == output.FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	if _, err := fmt.Fprintf(w, "State:     %s\n", v.State); err != nil {
		return err
	}
	if v.Reason != "" {
		_, _ = fmt.Fprintf(w, "Reason:    %s\n", v.Reason)
	}
	if v.TxHash != "" {
		_, _ = fmt.Fprintf(w, "Tx:        %s\n", v.TxHash)
	}
	if v.AmountOctas > 0 {
		_, _ = fmt.Fprintf(w, "Amount:    %d octas\n", v.AmountOctas)
	}
	_, err := fmt.Fprintf(w, "Required:  %g APT to %s\n", policy.AmountAPT(), policy.Recipient)
	return err
}

func init() {
	rootCmd.AddCommand(verifyPaymentCmd)
	verifyPaymentCmd.Flags().StringVar(&verifyPaymentOutput, "output-format", string(output.FormatTable), "Output format: table|json")
}
