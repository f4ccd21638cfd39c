package main

import (
	"encoding/json"
	"fmt"
)

// outputJSON prints v as indented JSON, the convention BeadsLog's CLI
// commands use for --json mode (cmd/bd/audit.go's outputJSON calls).
func outputJSON(v any) error {
	enc, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(enc))
	return nil
}
