// Command noundb is a thin CLI shell over pkg/engine: every subcommand
// opens the engine against --data-dir, performs one operation, and closes
// it again. It is not a server — there is no long-running process or wire
// protocol here, only a local library opened once per invocation.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/noundb/pkg/engine"
	"github.com/cuemby/noundb/pkg/hnsw"
	"github.com/cuemby/noundb/pkg/log"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

var eng *engine.Engine

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "noundb",
	Short:         "noundb - a vector, graph, and metadata store for typed entities",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "noundb" {
			return nil
		}
		return openEngine(cmd)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if eng == nil {
			return nil
		}
		return eng.Close()
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("noundb version %s (%s)\n", Version, Commit))

	rootCmd.PersistentFlags().String("data-dir", "./noundb-data", "data directory")
	rootCmd.PersistentFlags().String("node-id", "node-1", "node identifier for the local commit log")
	rootCmd.PersistentFlags().Int("dimension", 64, "embedding dimension (must match across opens of the same data dir)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(relateCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
}

func openEngine(cmd *cobra.Command) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	nodeID, _ := cmd.Flags().GetString("node-id")
	dimension, _ := cmd.Flags().GetInt("dimension")

	e, err := engine.Open(engine.Config{
		DataDir:   dataDir,
		NodeID:    nodeID,
		Dimension: dimension,
		Distance:  hnsw.Cosine,
	})
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	eng = e
	return nil
}
