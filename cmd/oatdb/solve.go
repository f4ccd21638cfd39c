package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ourstudio-se/oatdb-go"
)

var solveCmd = &cobra.Command{
	Use:     "solve <database-id> <branch> <target-id>",
	GroupID: "solve",
	Short:   "Resolve a target instance's configuration against a branch's current commit",
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		includeMetadata, _ := cmd.Flags().GetBool("metadata")
		dbId, branch, targetId := oatdb.Id(args[0]), args[1], oatdb.Id(args[2])

		artifact, err := cctx.Engine.Solve(cctx.RootCtx, dbId, branch, targetId, nil, includeMetadata)
		if err != nil {
			return err
		}
		if cctx.JSONOutput {
			return outputJSON(artifact)
		}
		fmt.Printf("resolved %d instance(s) for %s\n", len(artifact.Configuration), targetId)
		for _, issue := range artifact.SolveMetadata.Issues {
			fmt.Printf("  [%s/%s] %s\n", issue.Phase, issue.Severity, issue.Message)
		}
		return nil
	},
}

func init() {
	solveCmd.Flags().Bool("metadata", false, "include per-phase timings and solver statistics")
	rootCmd.AddCommand(solveCmd)
}
