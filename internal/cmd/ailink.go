package cmd

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/aptoseidon/aptoseidon/internal/ailink"
	"github.com/aptoseidon/aptoseidon/internal/ailink/prompt"
)

var ailinkCmd = &cobra.Command{
	Use:   "ailink",
	Short: "Inspect agent prompts and provider routing",
}

var ailinkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List agent prompts with the provider and model each resolves to",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			return err
		}
		prompts, err := prompt.DefaultRegistry(cfg.AILink.PromptsDir)
		if err != nil {
			return err
		}
		return writePromptTable(cmd.OutOrStdout(), prompts.List(), ailink.NewRegistry(cfg.AILink))
	},
}

var ailinkShowCmd = &cobra.Command{
	Use:   "show <slug>",
	Short: "Print a prompt's system template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			return err
		}
		prompts, err := prompt.DefaultRegistry(cfg.AILink.PromptsDir)
		if err != nil {
			return err
		}
		p, err := prompts.Get(args[0])
		if err != nil {
			return err
		}
		format := p.Config.Response.Format
		if format == "" {
			format = "text"
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "# %s (%s, %s)\n\n%s\n", p.Config.Slug, format, p.Source, p.Config.SystemTemplate)
		return err
	},
}

// writePromptTable renders one row per prompt. Routing errors are shown in
// place of the provider so a partly configured backend is still listed.
func writePromptTable(w io.Writer, prompts []*prompt.Prompt, providers *ailink.Registry) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Slug", "Format", "Source", "Provider", "Model"})
	for _, p := range prompts {
		if p == nil {
			continue
		}
		provider, model := "-", "-"
		if resolved, err := providers.Resolve(p.Config.Slug, p, ""); err != nil {
			provider = "unrouted: " + err.Error()
		} else {
			provider, model = resolved.ProviderID, resolved.Model
		}
		t.AppendRow(table.Row{p.Config.Slug, p.Config.Response.Format, p.Source, provider, model})
	}
	t.Render()
	return nil
}

func init() {
	rootCmd.AddCommand(ailinkCmd)
	ailinkCmd.AddCommand(ailinkListCmd, ailinkShowCmd)
}
