package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get a noun by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := eng.Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("get noun: %w", err)
		}
		out, _ := json.MarshalIndent(dtoFromNoun(n), "", "  ")
		fmt.Println(string(out))
		return nil
	},
}
