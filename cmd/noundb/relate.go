package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/noundb/pkg/graph"
	"github.com/cuemby/noundb/pkg/model"
)

var relateCmd = &cobra.Command{
	Use:   "relate",
	Short: "Create a verb between two existing nouns",
	Example: `  noundb relate --source alice-id --target bob-id --type Knows
  noundb relate --source alice-id --target acme-id --type WorksFor --field since=2020`,
	RunE: runRelate,
}

func init() {
	relateCmd.Flags().String("source", "", "source noun ID (required)")
	relateCmd.Flags().String("target", "", "target noun ID (required)")
	relateCmd.Flags().String("type", "", "verb type (required)")
	relateCmd.Flags().StringArray("field", nil, "metadata field as key=value, repeatable")
	_ = relateCmd.MarkFlagRequired("source")
	_ = relateCmd.MarkFlagRequired("target")
	_ = relateCmd.MarkFlagRequired("type")

	relateCmd.AddCommand(relateNeighborsCmd)
}

func runRelate(cmd *cobra.Command, args []string) error {
	source, _ := cmd.Flags().GetString("source")
	target, _ := cmd.Flags().GetString("target")
	verbType, _ := cmd.Flags().GetString("type")
	fieldFlags, _ := cmd.Flags().GetStringArray("field")

	fields, err := parseFieldFlags(fieldFlags)
	if err != nil {
		return err
	}

	v, err := eng.Relate(cmd.Context(), model.Verb{
		Source:   source,
		Target:   target,
		Type:     verbTypeOf(verbType),
		Metadata: model.Metadata{Fields: fields},
	})
	if err != nil {
		return fmt.Errorf("relate: %w", err)
	}

	fmt.Printf("✓ related %s -[%s]-> %s (verb %s)\n", source, verbType, target, v.ID)
	return nil
}

var relateNeighborsCmd = &cobra.Command{
	Use:   "neighbors <id>",
	Short: "List a noun's outgoing neighbors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		neighbors, err := eng.GetRelations(cmd.Context(), args[0], graph.DirOut, limit, 0)
		if err != nil {
			return fmt.Errorf("neighbors: %w", err)
		}
		out, _ := json.MarshalIndent(neighbors, "", "  ")
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	relateNeighborsCmd.Flags().Int("limit", 100, "maximum neighbors to return")
}
