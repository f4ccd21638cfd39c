package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ourstudio-se/oatdb-go"
)

var mergeCmd = &cobra.Command{
	Use:     "merge <database-id> <source-branch> <target-branch>",
	GroupID: "sync",
	Short:   "Three-way merge source-branch into target-branch",
	Long: `merge replays source-branch's changes (relative to its common base with
target-branch) onto target-branch, creating a merge commit. Overlapping
field-path changes are conflicts; without an explicit resolution they
default to favoring source-branch (the side passed as Merge's left
operand), consistent with the rest of this database's merge semantics.

Without --force, a merge that leaves any conflict unresolved, or whose
result fails schema/instance validation, is rejected and nothing is
written: no merge commit, no head advance, no branch status change.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		message, _ := cmd.Flags().GetString("message")
		force, _ := cmd.Flags().GetBool("force")
		dbId, source, target := oatdb.Id(args[0]), args[1], args[2]

		commit, conflicts, err := cctx.Engine.Merge(cctx.RootCtx, dbId, source, target, cctx.Author, message, nil, force)
		if err != nil {
			return err
		}

		if cctx.JSONOutput {
			return outputJSON(map[string]any{"commit": commit, "conflicts": conflicts})
		}

		fmt.Printf("%s merged into %s at %s\n", source, target, commit.Hash)
		printConflicts(conflicts)
		return nil
	},
}

func printConflicts(conflicts []oatdb.Conflict) {
	if len(conflicts) == 0 {
		fmt.Println(styleResolved.Render("no conflicts"))
		return
	}
	fmt.Printf("%d conflict(s), resolved in favor of the source branch:\n", len(conflicts))
	for _, c := range conflicts {
		fmt.Printf("  %s %s %s -> %s\n",
			styleConflictPath.Render(c.Path),
			styleConflictKind.Render(string(c.Kind)),
			styleMuted.Render(fmt.Sprintf("%v", c.Right)),
			fmt.Sprintf("%v", c.Left))
	}
}

func init() {
	mergeCmd.Flags().StringP("message", "m", "", "commit message for the merge commit")
	mergeCmd.Flags().Bool("force", false, "commit despite unresolved conflicts or validation failures")
	rootCmd.AddCommand(mergeCmd)
}
