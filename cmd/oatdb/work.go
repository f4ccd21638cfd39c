package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ourstudio-se/oatdb-go"
)

var workCmd = &cobra.Command{
	Use:     "work",
	GroupID: "core",
	Short:   "Stage edits in a branch's working commit",
}

var workBeginCmd = &cobra.Command{
	Use:   "begin <database-id> <branch>",
	Short: "Open (or resume) the active working commit for a branch",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		wc, err := cctx.Engine.BeginWork(cctx.RootCtx, oatdb.Id(args[0]), args[1], cctx.Author)
		if err != nil {
			return err
		}
		if cctx.JSONOutput {
			return outputJSON(wc)
		}
		fmt.Printf("working commit %s on %q (based on %s)\n", wc.Id, wc.BranchName, wc.BasedOnHash)
		return nil
	},
}

var workShowCmd = &cobra.Command{
	Use:   "show <working-commit-id>",
	Short: "Show a working commit's staged schema and instances",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wc, err := cctx.Engine.GetWorkingCommit(cctx.RootCtx, oatdb.Id(args[0]))
		if err != nil {
			return err
		}
		return outputJSON(wc)
	},
}

var workAddClassCmd = &cobra.Command{
	Use:   "add-class <working-commit-id> <class.json>",
	Short: "Append a class definition read from a JSON file to a working commit's schema",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		wc, err := cctx.Engine.GetWorkingCommit(cctx.RootCtx, oatdb.Id(args[0]))
		if err != nil {
			return err
		}
		raw, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		var class oatdb.Schema
		// A single class definition is decoded via the one-element
		// Classes slice so callers can reuse schema-shaped JSON tooling.
		if err := json.Unmarshal(raw, &class); err != nil {
			return fmt.Errorf("decode class json: %w", err)
		}
		now := time.Now().UTC()
		for i := range class.Classes {
			class.Classes[i].Audit.CreatedBy = cctx.Author
			class.Classes[i].Audit.UpdatedBy = cctx.Author
			class.Classes[i].Audit.CreatedAt = now
			class.Classes[i].Audit.UpdatedAt = now
		}
		wc.SchemaData.Classes = append(wc.SchemaData.Classes, class.Classes...)
		return cctx.Engine.UpdateWorkingCommit(cctx.RootCtx, wc)
	},
}

var workAddInstanceCmd = &cobra.Command{
	Use:   "add-instance <working-commit-id> <instance.json>",
	Short: "Append an instance read from a JSON file to a working commit",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		wc, err := cctx.Engine.GetWorkingCommit(cctx.RootCtx, oatdb.Id(args[0]))
		if err != nil {
			return err
		}
		raw, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		var in oatdb.Instance
		if err := json.Unmarshal(raw, &in); err != nil {
			return fmt.Errorf("decode instance json: %w", err)
		}
		now := time.Now().UTC()
		in.Audit.CreatedBy = cctx.Author
		in.Audit.UpdatedBy = cctx.Author
		in.Audit.CreatedAt = now
		in.Audit.UpdatedAt = now
		wc.InstancesData = append(wc.InstancesData, in)
		return cctx.Engine.UpdateWorkingCommit(cctx.RootCtx, wc)
	},
}

var workValidateCmd = &cobra.Command{
	Use:   "validate <working-commit-id>",
	Short: "Run static schema/instance validation without committing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := cctx.Engine.ValidateWorkingCommit(cctx.RootCtx, oatdb.Id(args[0]))
		if err != nil {
			return err
		}
		if cctx.JSONOutput {
			return outputJSON(report)
		}
		for _, e := range report.Errors {
			fmt.Printf("error [%s] %s: %s\n", e.Category, e.InstanceId, e.Message)
		}
		for _, w := range report.Warnings {
			fmt.Printf("warning [%s] %s: %s\n", w.Category, w.InstanceId, w.Message)
		}
		if report.Valid {
			fmt.Println("valid")
		}
		return nil
	},
}

var workCommitCmd = &cobra.Command{
	Use:   "commit <working-commit-id> <message>",
	Short: "Validate and commit a working commit, advancing its branch",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		commit, err := cctx.Engine.Commit(cctx.RootCtx, oatdb.Id(args[0]), args[1])
		if err != nil {
			return err
		}
		if cctx.JSONOutput {
			return outputJSON(commit)
		}
		fmt.Println(commit.Hash)
		return nil
	},
}

var workAbandonCmd = &cobra.Command{
	Use:   "abandon <working-commit-id>",
	Short: "Discard a working commit without committing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cctx.Engine.AbandonWorkingCommit(cctx.RootCtx, oatdb.Id(args[0]))
	},
}

func init() {
	workCmd.AddCommand(workBeginCmd, workShowCmd, workAddClassCmd, workAddInstanceCmd, workValidateCmd, workCommitCmd, workAbandonCmd)
	rootCmd.AddCommand(workCmd)
}
