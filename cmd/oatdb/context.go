// Package main is the oatdb CLI: a thin Cobra wrapper around the
// top-level oatdb.Engine exercising every versioning-engine and solver
// operation from a terminal.
//
// Grounded on BeadsLog cmd/bd/context.go's CommandContext, which
// consolidates what would otherwise be scattered global command state
// (db handle, actor, output mode) into one struct for testability.
package main

import (
	"context"
	"time"

	"github.com/ourstudio-se/oatdb-go"
)

// CommandContext holds the runtime state every subcommand needs:
// the open engine, the acting author, and output formatting flags.
type CommandContext struct {
	DBPath     string
	Author     string
	JSONOutput bool

	Engine  *oatdb.Engine
	RootCtx context.Context
}

var cctx CommandContext

func openEngine(ctx context.Context, dbPath string) (*oatdb.Engine, error) {
	return oatdb.Open(ctx, dbPath, oatdb.Options{
		WorkingCommitTTL:  time.Hour,
		CrossBranchPolicy: oatdb.PolicyAllowWithWarnings,
	})
}
