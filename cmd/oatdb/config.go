package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ourstudio-se/oatdb-go/internal/config"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "core",
	Short:   "Inspect or initialize the layered oatdb configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print every resolved configuration setting",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cctx.JSONOutput {
			return outputJSON(config.AllSettings())
		}
		for k, v := range config.AllSettings() {
			fmt.Printf("%s=%v\n", k, v)
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter .oatdb/config.yaml in the current directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(".oatdb", "config.yaml")
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}
