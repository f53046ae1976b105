package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/noundb/pkg/model"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new noun",
	Long: `Add a new typed entity to the store.

Examples:
  # Add a person with a field and a vector
  noundb add --type Person --field name=Alice --field age=34 --vector 0.1,0.2,0.3

  # Add a noun with no vector (metadata-only, retrievable by field)
  noundb add --type Document --field title="Q3 Report"`,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().String("type", "", "noun type (required)")
	addCmd.Flags().String("vector", "", "comma-separated embedding vector")
	addCmd.Flags().StringArray("field", nil, "metadata field as key=value, repeatable")
	_ = addCmd.MarkFlagRequired("type")
}

func runAdd(cmd *cobra.Command, args []string) error {
	nounType, _ := cmd.Flags().GetString("type")
	vectorRaw, _ := cmd.Flags().GetString("vector")
	fieldFlags, _ := cmd.Flags().GetStringArray("field")

	vec, err := parseVectorFlag(vectorRaw)
	if err != nil {
		return err
	}
	fields, err := parseFieldFlags(fieldFlags)
	if err != nil {
		return err
	}

	n, err := eng.Add(cmd.Context(), model.Noun{
		Type:     nounTypeOf(nounType),
		Vector:   vec,
		Metadata: model.Metadata{Fields: fields},
	})
	if err != nil {
		return fmt.Errorf("add noun: %w", err)
	}

	out, _ := json.MarshalIndent(dtoFromNoun(n), "", "  ")
	fmt.Println(string(out))
	return nil
}
