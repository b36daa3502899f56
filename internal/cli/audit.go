package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	auditLimit  int
	auditOffset int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the tamper-evident audit ledger",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit records, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		logs, err := a.ledger.List(cmd.Context(), auditLimit, auditOffset)
		if err != nil {
			return fmt.Errorf("listing audit records: %w", err)
		}
		return printJSON(logs)
	},
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the integrity of the whole hash chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		result, err := a.ledger.VerifyAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("verifying audit ledger: %w", err)
		}
		if !result.IsValid {
			exitCode = ExitBlocked
		}
		return printJSON(result)
	},
}

func init() {
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 100, "maximum records to return")
	auditListCmd.Flags().IntVar(&auditOffset, "offset", 0, "records to skip")

	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditVerifyCmd)
}
