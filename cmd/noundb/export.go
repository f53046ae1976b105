package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/noundb/pkg/nountype"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump every live noun to a JSON array",
	Example: `  noundb export -o all.json
  noundb export -o people.json --type Person --type Organization`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "output file (defaults to stdout)")
	exportCmd.Flags().StringArray("type", nil, "restrict export to these noun types")
}

func runExport(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	typeFlags, _ := cmd.Flags().GetStringArray("type")

	types := make([]nountype.Type, len(typeFlags))
	for i, t := range typeFlags {
		types[i] = nounTypeOf(t)
	}

	nouns, err := eng.ListNouns(cmd.Context(), types)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	dtos := make([]nounDTO, len(nouns))
	for i, n := range nouns {
		dtos[i] = dtoFromNoun(n)
	}
	data, err := json.MarshalIndent(dtos, "", "  ")
	if err != nil {
		return err
	}

	if output == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Printf("✓ exported %d nouns to %s\n", len(dtos), output)
	return nil
}
