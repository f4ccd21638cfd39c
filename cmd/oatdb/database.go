package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ourstudio-se/oatdb-go"
)

var databaseCmd = &cobra.Command{
	Use:     "database",
	GroupID: "core",
	Short:   "Manage databases",
}

var databaseCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a database with an empty initial commit on its default branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		branch, _ := cmd.Flags().GetString("default-branch")
		db, err := cctx.Engine.CreateDatabase(cctx.RootCtx, args[0], branch, cctx.Author)
		if err != nil {
			return err
		}
		if cctx.JSONOutput {
			return outputJSON(db)
		}
		fmt.Printf("created database %s (%s), default branch %q\n", db.Id, db.Name, db.DefaultBranchName)
		return nil
	},
}

var databaseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List databases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbs, err := cctx.Engine.ListDatabases(cctx.RootCtx)
		if err != nil {
			return err
		}
		if cctx.JSONOutput {
			return outputJSON(dbs)
		}
		for _, db := range dbs {
			fmt.Printf("%s\t%s\t%s\n", db.Id, db.Name, db.DefaultBranchName)
		}
		return nil
	},
}

var databaseShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := cctx.Engine.GetDatabase(cctx.RootCtx, oatdb.Id(args[0]))
		if err != nil {
			return err
		}
		return outputJSON(db)
	},
}

func init() {
	databaseCreateCmd.Flags().String("default-branch", "main", "name of the initial branch")
	databaseCmd.AddCommand(databaseCreateCmd, databaseListCmd, databaseShowCmd)
	rootCmd.AddCommand(databaseCmd)
}
