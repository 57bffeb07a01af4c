package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aptoseidon/aptoseidon/internal/core/engine"
	"github.com/aptoseidon/aptoseidon/internal/output"
)

var voteCmd = &cobra.Command{
	Use:   "vote <job-id> <up|down>",
	Short: "Rate a stored report",
	Long:  "Record an up or down community vote for a report job id (agent-xxxxxxxx).",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeStore, err := openVoteService(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		rating := strings.ToLower(strings.TrimSpace(args[1]))
		if err := svc.RecordVote(cmd.Context(), args[0], rating); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s vote for %s\n", rating, args[0])
		return err
	},
}

var votesCmd = &cobra.Command{
	Use:   "votes <job-id>",
	Short: "Show the vote tally of a stored report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := resolveOutput(cmd)
		if err != nil {
			return err
		}

		svc, closeStore, err := openVoteService(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		tally, err := svc.Votes(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		rendered, err := output.NewFormatter(target.Format).FormatVotes(tally)
		if err != nil {
			return err
		}
		sink, err := target.open(cmd.OutOrStdout(), args[0]+".votes")
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()
		return sink.write(rendered)
	},
}

// openVoteService returns a store-backed service for the vote commands; no
// sources or agents are wired.
func openVoteService(cmd *cobra.Command) (*engine.Service, func(), error) {
	db, err := openStore(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	svc := &engine.Service{Store: db}
	return svc, func() { _ = db.Close() }, nil
}

func init() {
	rootCmd.AddCommand(voteCmd)
	rootCmd.AddCommand(votesCmd)
	addOutputFlags(votesCmd, output.FormatTable, output.FormatJSON, output.FormatMarkdown)
}
