package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ourstudio-se/oatdb-go/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "oatdb",
	Short: "Versioned configuration database and ILP configuration solver",
	Long: `oatdb manages a branching, git-like configuration database: schemas
and instances are staged in working commits, committed into an
immutable commit DAG, merged and rebased across branches, and resolved
into concrete configurations by an integer-linear solver.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cctx.DBPath == "" {
			cctx.DBPath = config.DatabaseURL()
		}
		if cctx.Author == "" {
			cctx.Author = os.Getenv("OATDB_AUTHOR")
		}
		if cctx.Author == "" {
			cctx.Author = "cli"
		}
		cctx.RootCtx = context.Background()

		engine, err := openEngine(cctx.RootCtx, cctx.DBPath)
		if err != nil {
			return fmt.Errorf("open database %s: %w", cctx.DBPath, err)
		}
		cctx.Engine = engine
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if cctx.Engine == nil {
			return nil
		}
		err := cctx.Engine.Close(cctx.RootCtx)
		cctx.Engine = nil
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cctx.DBPath, "db", "", "database file path (defaults to config database-url)")
	rootCmd.PersistentFlags().StringVar(&cctx.Author, "author", "", "author recorded on commits created by this invocation")
	rootCmd.PersistentFlags().BoolVar(&cctx.JSONOutput, "json", false, "emit machine-readable JSON output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Core:"},
		&cobra.Group{ID: "sync", Title: "Merge & rebase:"},
		&cobra.Group{ID: "solve", Title: "Solving:"},
	)
}

// Execute runs the oatdb CLI; called from main().
func Execute() error {
	return rootCmd.Execute()
}
