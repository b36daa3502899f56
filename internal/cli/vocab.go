package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var vocabCategory string

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Manage user-defined sensitive terms",
	Long: "Terms added here are masked like detected PII whenever they appear " +
		"in processed text, so project codenames and internal names never reach " +
		"the external API.",
}

var vocabAddCmd = &cobra.Command{
	Use:   "add <term>",
	Short: "Add a sensitive term",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		added, err := a.terms.Add(cmd.Context(), args[0], vocabCategory)
		if err != nil {
			return fmt.Errorf("adding term: %w", err)
		}
		if !added {
			fmt.Fprintln(os.Stdout, "Term already present.")
			return nil
		}
		fmt.Fprintln(os.Stdout, "Term added.")
		return nil
	},
}

var vocabRemoveCmd = &cobra.Command{
	Use:   "remove <term>",
	Short: "Remove a sensitive term",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.terms.Remove(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("removing term: %w", err)
		}
		fmt.Fprintln(os.Stdout, "Term removed.")
		return nil
	},
}

var vocabListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sensitive terms",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		terms, err := a.terms.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing terms: %w", err)
		}
		return printJSON(terms)
	},
}

func init() {
	vocabAddCmd.Flags().StringVar(&vocabCategory, "category", "custom", "term category")

	vocabCmd.AddCommand(vocabAddCmd)
	vocabCmd.AddCommand(vocabRemoveCmd)
	vocabCmd.AddCommand(vocabListCmd)
}
