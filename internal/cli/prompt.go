package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"qabot/internal/adapter/llm"
	"qabot/internal/usecase"
)

var (
	promptQuery  string
	promptAnswer string
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the rephrasing prompt for a question",
	Long: `Print the exact prompt the language model would receive for a question,
for manual orchestration or debugging the persona.

Without --answer the answer is retrieved from the knowledge base first.

Examples:
  qabot prompt -q "What's your name?"
  qabot prompt -q "What's your name?" --answer "Madhuri"`,
	RunE: runPrompt,
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.Flags().StringVarP(&promptQuery, "query", "q", "", "question (required)")
	promptCmd.Flags().StringVar(&promptAnswer, "answer", "", "use this retrieved answer instead of searching")
	promptCmd.MarkFlagRequired("query")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	answer := promptAnswer

	if answer == "" {
		a, err := newApp(cmd.Context(), appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		var ok bool
		answer, ok, err = a.retrieve.Retrieve(cmd.Context(), promptQuery)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("the knowledge base is empty, nothing to rephrase")
		}
	}

	// rendering needs no model
	rephraser := usecase.NewRephraseUseCase(llm.EchoCompleter{}, personaFromConfig(GetConfig().Persona))
	fmt.Println(rephraser.Prompt(promptQuery, answer))
	return nil
}
