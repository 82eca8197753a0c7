// Command goreldb is the server and interactive client entrypoint. No
// wire protocol is implemented yet, so "serve" and "repl" both load the
// same on-disk engine; repl is the exercised entry point for now.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"goreldb/internal/config"
	"goreldb/internal/log"
)

var (
	Version = "dev"
	cfgPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "goreldb",
	Short:   "goreldb is a small relational database server",
	Long:    "goreldb is a small relational database server: a page-slotted heap, a segmented write-ahead log, and a SQL planner/executor, fronted by a REPL.",
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to a JWCC config file")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

func loadConfig() (config.Config, error) {
	return config.Load(cfgPath)
}
