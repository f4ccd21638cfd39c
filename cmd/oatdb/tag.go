package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ourstudio-se/oatdb-go"
)

var tagCmd = &cobra.Command{
	Use:     "tag",
	GroupID: "core",
	Short:   "Manage commit tags (version/release/milestone/custom)",
}

var tagCreateCmd = &cobra.Command{
	Use:   "create <commit-hash> <type> <name>",
	Short: "Tag a commit",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		t, err := parseTagType(args[1])
		if err != nil {
			return err
		}
		created, err := cctx.Engine.TagCommit(cctx.RootCtx, oatdb.CommitTag{
			CommitHash:     args[0],
			TagType:        t,
			TagName:        args[2],
			TagDescription: description,
			CreatedBy:      cctx.Author,
		})
		if err != nil {
			return err
		}
		if cctx.JSONOutput {
			return outputJSON(created)
		}
		fmt.Printf("tagged %s as %s:%s (id %d)\n", args[0], created.TagType, created.TagName, created.Id)
		return nil
	},
}

var tagListCmd = &cobra.Command{
	Use:   "list <commit-hash>",
	Short: "List tags on a commit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := cctx.Engine.ListTags(cctx.RootCtx, args[0])
		if err != nil {
			return err
		}
		if cctx.JSONOutput {
			return outputJSON(list)
		}
		for _, t := range list {
			fmt.Printf("%d\t%s\t%s\n", t.Id, t.TagType, t.TagName)
		}
		return nil
	},
}

var tagDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a tag by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid tag id %q: %w", args[0], err)
		}
		return cctx.Engine.DeleteTag(cctx.RootCtx, id)
	},
}

var tagSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search tags by type and/or name",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		typeFlag, _ := cmd.Flags().GetString("type")
		name, _ := cmd.Flags().GetString("name")
		limit, _ := cmd.Flags().GetInt("limit")

		q := oatdb.TagQuery{TagName: name, Limit: limit}
		if typeFlag != "" {
			t, err := parseTagType(typeFlag)
			if err != nil {
				return err
			}
			q.TagType = t
		}

		results, err := cctx.Engine.SearchTags(cctx.RootCtx, q)
		if err != nil {
			return err
		}
		if cctx.JSONOutput {
			return outputJSON(results)
		}
		for _, t := range results {
			fmt.Printf("%d\t%s\t%s\t%s\n", t.Id, t.CommitHash, t.TagType, t.TagName)
		}
		return nil
	},
}

func parseTagType(s string) (oatdb.TagType, error) {
	return oatdb.ParseTagType(s)
}

func init() {
	tagCreateCmd.Flags().String("description", "", "free-form tag description")
	tagSearchCmd.Flags().String("type", "", "filter by tag type")
	tagSearchCmd.Flags().String("name", "", "filter by tag name")
	tagSearchCmd.Flags().Int("limit", 0, "maximum number of results")
	tagCmd.AddCommand(tagCreateCmd, tagListCmd, tagDeleteCmd, tagSearchCmd)
	rootCmd.AddCommand(tagCmd)
}
