package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ourstudio-se/oatdb-go"
)

var branchCmd = &cobra.Command{
	Use:     "branch",
	GroupID: "core",
	Short:   "Manage branches",
}

var branchCreateCmd = &cobra.Command{
	Use:   "create <database-id> <name> <from-branch>",
	Short: "Branch off an existing branch's current head",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := cctx.Engine.CreateBranch(cctx.RootCtx, oatdb.Id(args[0]), args[1], args[2], cctx.Author)
		if err != nil {
			return err
		}
		if cctx.JSONOutput {
			return outputJSON(b)
		}
		fmt.Printf("created branch %q from %q at %s\n", b.Name, b.ParentBranchName, b.CurrentCommitHash)
		return nil
	},
}

var branchListCmd = &cobra.Command{
	Use:   "list <database-id>",
	Short: "List a database's branches",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		branches, err := cctx.Engine.ListBranches(cctx.RootCtx, oatdb.Id(args[0]))
		if err != nil {
			return err
		}
		if cctx.JSONOutput {
			return outputJSON(branches)
		}
		for _, b := range branches {
			fmt.Printf("%s\t%s\t%s\n", b.Name, b.Status, b.CurrentCommitHash)
		}
		return nil
	},
}

var branchArchiveCmd = &cobra.Command{
	Use:   "archive <database-id> <name>",
	Short: "Archive a branch, making it eligible for deletion without --force",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cctx.Engine.ArchiveBranch(cctx.RootCtx, oatdb.Id(args[0]), args[1])
	},
}

var branchDeleteCmd = &cobra.Command{
	Use:   "delete <database-id> <name>",
	Short: "Delete a branch",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		return cctx.Engine.DeleteBranch(cctx.RootCtx, oatdb.Id(args[0]), args[1], force)
	},
}

func init() {
	branchDeleteCmd.Flags().Bool("force", false, "delete even if the branch is still active")
	branchCmd.AddCommand(branchCreateCmd, branchListCmd, branchArchiveCmd, branchDeleteCmd)
	rootCmd.AddCommand(branchCmd)
}
