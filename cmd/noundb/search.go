package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/noundb/pkg/model"
	"github.com/cuemby/noundb/pkg/nountype"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search for nouns by free text, raw vector, or an exact metadata field",
	Long: `Search routes to one of three lookups depending on the flags given:

  --text "..."       planner-routed, fusion-scored free-text search
  --vector "0.1,..." raw HNSW nearest-neighbor search, optionally scoped by --type
  --field key=value   exact metadata postings lookup

At least one of --text, --vector, --field is required. When several are
given, --text wins over --vector, and --vector over --field.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("text", "", "free-text query")
	searchCmd.Flags().String("vector", "", "comma-separated query vector")
	searchCmd.Flags().String("field", "", "exact metadata field lookup, as key=value")
	searchCmd.Flags().StringArray("type", nil, "restrict --vector search to these noun types")
	searchCmd.Flags().Int("k", 10, "number of results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	text, _ := cmd.Flags().GetString("text")
	vectorRaw, _ := cmd.Flags().GetString("vector")
	fieldRaw, _ := cmd.Flags().GetString("field")
	typeFlags, _ := cmd.Flags().GetStringArray("type")
	k, _ := cmd.Flags().GetInt("k")

	switch {
	case text != "":
		scores, plan, err := eng.Query(cmd.Context(), text, k)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		fmt.Printf("strategy=%s partitions=%v confidence=%.2f (%s)\n",
			plan.Strategy, plan.Partitions, plan.TopConfidence, plan.Reasoning)
		out, _ := json.MarshalIndent(scores, "", "  ")
		fmt.Println(string(out))
		return nil

	case vectorRaw != "":
		vec, err := parseVectorFlag(vectorRaw)
		if err != nil {
			return err
		}
		types := make([]nountype.Type, len(typeFlags))
		for i, t := range typeFlags {
			types[i] = nounTypeOf(t)
		}
		hits, err := eng.Similar(cmd.Context(), types, vec, k)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		out, _ := json.MarshalIndent(hits, "", "  ")
		fmt.Println(string(out))
		return nil

	case fieldRaw != "":
		fields, err := parseFieldFlags([]string{fieldRaw})
		if err != nil {
			return err
		}
		var field string
		var value model.Value
		for k, v := range fields {
			field, value = k, v
		}
		nouns, err := eng.Find(cmd.Context(), field, value)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		dtos := make([]nounDTO, len(nouns))
		for i, n := range nouns {
			dtos[i] = dtoFromNoun(n)
		}
		out, _ := json.MarshalIndent(dtos, "", "  ")
		fmt.Println(string(out))
		return nil

	default:
		return fmt.Errorf("one of --text, --vector, or --field is required")
	}
}
