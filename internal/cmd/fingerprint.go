package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aptoseidon/aptoseidon/internal/core"
)

var (
	fingerprintExtra string
	fingerprintJSON  bool
)

// fingerprintResult is what "fingerprint" prints.
type fingerprintResult struct {
	Input       string         `json:"input"`
	Kind        core.InputKind `json:"kind"`
	Normalized  string         `json:"normalized"`
	Fingerprint string         `json:"fingerprint"`
}

func fingerprintOf(input, extra string) fingerprintResult {
	return fingerprintResult{
		Input:       input,
		Kind:        core.Classify(input),
		Normalized:  core.Normalize(input),
		Fingerprint: core.Fingerprint(input, extra),
	}
}

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint <input>",
	Short: "Show how an input is classified and keyed",
	Long: `Print the input kind, its normalized form and the fingerprint used as the
report cache key. Equivalent inputs (scheme, www. prefix, case, trailing
slash) share a fingerprint.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result := fingerprintOf(args[0], fingerprintExtra)
		w := cmd.OutOrStdout()
		if fingerprintJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		_, err := fmt.Fprintf(w, "Kind:        %s\nNormalized:  %s\nFingerprint: %s\n",
			result.Kind, result.Normalized, result.Fingerprint)
		return err
	},
}

func init() {
	rootCmd.AddCommand(fingerprintCmd)
	fingerprintCmd.Flags().StringVar(&fingerprintExtra, "extra", "", "extra key material appended before hashing")
	fingerprintCmd.Flags().BoolVar(&fingerprintJSON, "json", false, "print as JSON")
}
