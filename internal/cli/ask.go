package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"qabot/internal/adapter/memstore"
	"qabot/internal/usecase"
)

var (
	askText string
	askJSON bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a single question",
	Long: `Answer one question and exit. With --json the output also shows which
entry matched and its L2 distance.

Examples:
  qabot ask -q "What's your name?"
  qabot ask -q "What do you study?" --json`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askText, "query", "q", "", "question to ask (required)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.MarkFlagRequired("query")
}

type askResult struct {
	Query    string  `json:"query"`
	Reply    string  `json:"reply"`
	Matched  bool    `json:"matched"`
	Position int     `json:"position"`
	Distance float32 `json:"distance"`
	Question string  `json:"question,omitempty"`
	Answer   string  `json:"answer,omitempty"`
	Error    string  `json:"error,omitempty"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	rephraser, err := a.rephraser(ctx)
	if err != nil {
		return err
	}

	chat := usecase.NewChatUseCase(a.retrieve, rephraser, memstore.NewMemoryStore())
	res, err := chat.Turn(ctx, usecase.NewSession(), askText)
	if err != nil {
		return err
	}

	if !askJSON {
		fmt.Println(res.Reply.Content)
		return nil
	}

	out := askResult{Query: askText, Reply: res.Reply.Content}
	if m := res.Match; m != nil {
		out.Matched = true
		out.Position = m.Position
		out.Distance = m.Distance
		out.Question = m.Entry.Question
		out.Answer = m.Entry.Answer
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(data))
	return nil
}
