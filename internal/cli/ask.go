package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question",
		Long:  "Ask one question with memory and URL context and print the model's answer.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAsk,
	}

	cmd.Flags().Bool("dry-run", false, "Print the assembled prompt instead of calling the model")

	RootCmd.AddCommand(cmd)
}

func runAsk(cmd *cobra.Command, args []string) {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	question := strings.Join(args, " ")

	ctx := cmd.Context()
	s := mustStack(ctx)
	defer s.close()

	a, err := s.agent(ctx)
	if err != nil {
		exitErr("ask", err)
	}

	if dryRun {
		turn, err := a.Prepare(ctx, question)
		if err != nil {
			exitErr("ask", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), turn.Prompt)
		return
	}

	turn, err := a.Respond(ctx, question)
	if err != nil {
		exitErr("ask", err)
	}

	if formatFlag == "json" {
		out := map[string]any{
			"question": turn.Message,
			"memories": turn.Memories,
			"response": turn.Response,
		}
		if turn.Fetched != nil {
			out["url"] = turn.Fetched.Source.Raw
			out["fetch_status"] = turn.Fetched.Status.String()
		}
		b, _ := json.MarshalIndent(out, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), turn.Response)
}
