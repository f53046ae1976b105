package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk-load nouns and verbs from JSON files",
	Long: `Import reads a JSON array of nouns (and, optionally, a second file of
verbs referencing their IDs) and adds them one at a time.

Examples:
  noundb import --nouns people.json
  noundb import --nouns people.json --verbs relationships.json`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().String("nouns", "", "path to a JSON array of nouns")
	importCmd.Flags().String("verbs", "", "path to a JSON array of verbs")
}

func runImport(cmd *cobra.Command, args []string) error {
	nounsPath, _ := cmd.Flags().GetString("nouns")
	verbsPath, _ := cmd.Flags().GetString("verbs")
	if nounsPath == "" && verbsPath == "" {
		return fmt.Errorf("at least one of --nouns or --verbs is required")
	}

	idRemap := map[string]string{}

	if nounsPath != "" {
		data, err := os.ReadFile(nounsPath)
		if err != nil {
			return fmt.Errorf("read nouns file: %w", err)
		}
		var dtos []nounDTO
		if err := json.Unmarshal(data, &dtos); err != nil {
			return fmt.Errorf("parse nouns file: %w", err)
		}
		for _, d := range dtos {
			n, err := eng.Add(cmd.Context(), nounFromDTO(d))
			if err != nil {
				fmt.Fprintf(os.Stderr, "✗ noun %q: %v\n", d.ID, err)
				continue
			}
			if d.ID != "" {
				idRemap[d.ID] = n.ID
			}
			fmt.Printf("✓ noun %s (%s)\n", n.ID, n.Type)
		}
	}

	if verbsPath != "" {
		data, err := os.ReadFile(verbsPath)
		if err != nil {
			return fmt.Errorf("read verbs file: %w", err)
		}
		var dtos []verbDTO
		if err := json.Unmarshal(data, &dtos); err != nil {
			return fmt.Errorf("parse verbs file: %w", err)
		}
		for _, d := range dtos {
			if remapped, ok := idRemap[d.Source]; ok {
				d.Source = remapped
			}
			if remapped, ok := idRemap[d.Target]; ok {
				d.Target = remapped
			}
			v, err := eng.Relate(cmd.Context(), verbFromDTO(d))
			if err != nil {
				fmt.Fprintf(os.Stderr, "✗ verb %s->%s: %v\n", d.Source, d.Target, err)
				continue
			}
			fmt.Printf("✓ verb %s (%s -[%s]-> %s)\n", v.ID, v.Source, v.Type, v.Target)
		}
	}

	return nil
}
