package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// Exit codes.
const (
	ExitSuccess      = 0
	ExitBlocked      = 1
	ExitUsageError   = 2
	ExitRuntimeError = 4
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "flowgate",
	Short: "Resilience and integrity gateway for LLM text transformation",
	Long: "Flowgate sits between callers and an external LLM: it masks PII before " +
		"transmission, caches results for outage fallback, queues failed work for " +
		"retry, and records every transformation in a tamper-evident audit ledger.",
}

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "flowgate.yaml", "path to config file")

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(vocabCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}
	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print flowgate version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "flowgate version %s\n", version)
	},
}

// printJSON renders v indented on stdout.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
