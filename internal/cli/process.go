package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	processIntensity int
	processUser      string
)

var processCmd = &cobra.Command{
	Use:   "process [text]",
	Short: "Transform text through the masked LLM pipeline",
	Long: "Process masks sensitive spans, routes to a model by intensity and " +
		"length, calls the generation API, and restores the masked spans in the " +
		"result. With no argument the text is read from stdin.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := textFromArgsOrStdin(args)
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		result, failure := a.processor.Process(cmd.Context(), text, processIntensity, processUser)
		if failure != nil {
			exitCode = ExitBlocked
			return printJSON(failure)
		}
		return printJSON(result)
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan [text]",
	Short: "Detect sensitive content without calling the LLM",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := textFromArgsOrStdin(args)
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		result := a.scanner.Scan(text)
		if result.HasRisks {
			exitCode = ExitBlocked
		}
		return printJSON(result)
	},
}

func init() {
	processCmd.Flags().IntVar(&processIntensity, "intensity", 30, "transformation intensity (0-100)")
	processCmd.Flags().StringVar(&processUser, "user", "", "caller identity recorded in the audit ledger")
}

func textFromArgsOrStdin(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("no input text: pass an argument or pipe to stdin")
	}
	return text, nil
}
