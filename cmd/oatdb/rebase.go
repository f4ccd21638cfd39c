package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ourstudio-se/oatdb-go"
)

var rebaseCmd = &cobra.Command{
	Use:     "rebase <database-id> <branch> <onto>",
	GroupID: "sync",
	Short:   "Replay a branch's changes onto another branch's current head",
	Long: `rebase replays branch's changes since its common base with onto on
top of onto's current head, then advances branch to the result. This
rewrites branch's history, so the advance is forced: branch's previous
head is expected to no longer be an ancestor of the replayed commit.
Unresolved conflicts default to favoring branch's own (incoming) changes.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		message, _ := cmd.Flags().GetString("message")
		dbId, branch, onto := oatdb.Id(args[0]), args[1], args[2]

		if err := cctx.Engine.ValidateRebase(cctx.RootCtx, dbId, branch, onto); err != nil {
			return err
		}

		commit, conflicts, err := cctx.Engine.Rebase(cctx.RootCtx, dbId, branch, onto, cctx.Author, message, nil)
		if err != nil {
			return err
		}

		if cctx.JSONOutput {
			return outputJSON(map[string]any{"commit": commit, "conflicts": conflicts})
		}

		fmt.Printf("%s rebased onto %s at %s\n", branch, onto, commit.Hash)
		printConflicts(conflicts)
		return nil
	},
}

func init() {
	rebaseCmd.Flags().StringP("message", "m", "", "commit message for the rebase result")
	rootCmd.AddCommand(rebaseCmd)
}
