package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/easeaico/context-agent/internal/service"
)

func init() {
	cmd := &cobra.Command{
		Use:   "recall [query]",
		Short: "Search saved memories",
		Long:  "Search saved memories by semantic similarity, most similar first.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runRecall,
	}

	cmd.Flags().IntP("limit", "l", service.MemoryLimit, "Max results")

	RootCmd.AddCommand(cmd)
}

func runRecall(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	ctx := cmd.Context()
	s := mustStack(ctx)
	defer s.close()

	if formatFlag == "json" {
		hits, err := s.memory.Recall(ctx, query, limit)
		if err != nil {
			exitErr("recall", err)
		}
		b, _ := json.MarshalIndent(hits, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return
	}

	msg, err := service.SearchMemories(ctx, s.memory, query, limit)
	if err != nil {
		exitErr("recall", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
}
