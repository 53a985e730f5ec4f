package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/easeaico/context-agent/internal/service"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: "Start an interactive chat. Each message is sent with up to three related memories and the text\n" +
			"of the first URL it contains.\n\n" +
			"Commands inside the session:\n" +
			"  /remember <text>   save a memory\n" +
			"  /recall <query>    show matching memories\n" +
			"  /clear             clear the transcript\n" +
			"  /quit              leave",
		Args: cobra.NoArgs,
		Run:  runChat,
	}

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	s := mustStack(ctx)
	defer s.close()

	a, err := s.agent(ctx)
	if err != nil {
		exitErr("chat", err)
	}

	sess := service.NewSession(a)
	runREPL(ctx, os.Stdin, cmd.OutOrStdout(), sess, s.memory)
}

// runREPL reads messages line by line until EOF or /quit.
func runREPL(ctx context.Context, in io.Reader, out io.Writer, sess *service.Session, mem service.Memory) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	fmt.Fprintln(out, "Local LLM chat with memory and web access. Type /quit to leave.")
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return
		case line == "/clear":
			sess.Clear()
			fmt.Fprintln(out, "Transcript cleared.")
		case strings.HasPrefix(line, "/remember"):
			msg, _ := service.SaveMemory(ctx, mem, strings.TrimSpace(strings.TrimPrefix(line, "/remember")))
			fmt.Fprintln(out, msg)
		case strings.HasPrefix(line, "/recall"):
			msg, _ := service.SearchMemories(ctx, mem, strings.TrimSpace(strings.TrimPrefix(line, "/recall")), service.MemoryLimit)
			fmt.Fprintln(out, msg)
		default:
			ex, _ := sess.Send(ctx, line)
			fmt.Fprintln(out, ex.Bot)
		}
	}
}
