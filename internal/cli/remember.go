package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/easeaico/context-agent/internal/service"
)

func init() {
	cmd := &cobra.Command{
		Use:   "remember [text]",
		Short: "Save a memory",
		Long:  "Save a memory. Text can be a positional arg or piped via stdin.",
		Run:   runRemember,
	}

	cmd.Flags().StringArrayP("meta", "m", nil, "Metadata as key=value (repeatable)")

	RootCmd.AddCommand(cmd)
}

func runRemember(cmd *cobra.Command, args []string) {
	metaFlags, _ := cmd.Flags().GetStringArray("meta")

	var text string
	if len(args) > 0 {
		text = strings.Join(args, " ")
	} else {
		if piped(os.Stdin) {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			text = strings.TrimSpace(string(b))
		}
	}

	meta, err := parseMeta(metaFlags)
	if err != nil {
		exitErr("remember", err)
	}

	ctx := cmd.Context()
	s := mustStack(ctx)
	defer s.close()

	if len(meta) == 0 {
		msg, err := service.SaveMemory(ctx, s.memory, text)
		if err != nil {
			exitErr("remember", errors.New(msg))
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return
	}

	id, err := s.memory.Insert(ctx, text, meta)
	if err != nil {
		exitErr("remember", err)
	}
	if formatFlag == "json" {
		b, _ := json.Marshal(map[string]any{"id": id, "text": text, "metadata": meta})
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Memory saved: %s\n", id)
}

// parseMeta turns key=value pairs into scalar metadata. Values that parse
// as numbers or booleans are stored as such.
func parseMeta(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	meta := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("metadata must be key=value, got %q", p)
		}
		v = strings.TrimSpace(v)
		switch {
		case v == "true" || v == "false":
			meta[k] = v == "true"
		default:
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				meta[k] = n
			} else {
				meta[k] = v
			}
		}
	}
	return meta, nil
}
