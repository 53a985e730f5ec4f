package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/easeaico/context-agent/internal/service"
)

func init() {
	branch := &cobra.Command{
		Use:   "branch <repo-url> <new-branch>",
		Short: "Create a branch",
		Long:  "Create a branch from --from, or from the repository's default branch.",
		Args:  cobra.ExactArgs(2),
		Run:   runBranch,
	}
	branch.Flags().String("from", "", "Source branch (default: repository default branch)")

	commit := &cobra.Command{
		Use:   "commit <repo-url> <branch> <path>",
		Short: "Create or update a file",
		Long: "Commit one file to a branch. The content comes from --content, --file or stdin.\n" +
			"An existing file is replaced only if it has not changed since it was read.",
		Args: cobra.ExactArgs(3),
		Run:  runCommit,
	}
	commit.Flags().String("content", "", "File content")
	commit.Flags().String("file", "", "Read file content from this local path")
	commit.Flags().StringP("message", "m", "", "Commit message (default: \"Update <path>\")")

	pr := &cobra.Command{
		Use:   "pr <repo-url> <head-branch>",
		Short: "Open a pull request",
		Args:  cobra.ExactArgs(2),
		Run:   runPR,
	}
	pr.Flags().String("base", "", "Base branch (default: repository default branch)")
	pr.Flags().StringP("title", "t", "", "Pull request title (required)")
	pr.Flags().StringP("body", "b", "", "Pull request description")

	RootCmd.AddCommand(branch, commit, pr)
}

// mustCommands loads configuration and builds the write commands.
func mustCommands() *service.Commands {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("config", err)
	}
	return newCommands(cfg, newLogger(cfg))
}

// report prints the command's message and exits non-zero on failure.
func report(cmd *cobra.Command, msg string, err error) {
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), msg)
		os.Exit(1)
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
}

func runBranch(cmd *cobra.Command, args []string) {
	from, _ := cmd.Flags().GetString("from")

	msg, err := mustCommands().CreateBranch(cmd.Context(), service.BranchForm{
		RepoURL:    args[0],
		NewBranch:  args[1],
		FromBranch: from,
	})
	report(cmd, msg, err)
}

func runCommit(cmd *cobra.Command, args []string) {
	content, _ := cmd.Flags().GetString("content")
	file, _ := cmd.Flags().GetString("file")
	message, _ := cmd.Flags().GetString("message")

	switch {
	case content != "" && file != "":
		exitErr("commit", errors.New("use only one of --content and --file"))
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			exitErr("read file", err)
		}
		content = string(b)
	case content == "":
		if piped(os.Stdin) {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			content = string(b)
		}
	}

	msg, err := mustCommands().CommitFile(cmd.Context(), service.CommitForm{
		RepoURL: args[0],
		Branch:  args[1],
		Path:    args[2],
		Content: content,
		Message: message,
	})
	report(cmd, msg, err)
}

func runPR(cmd *cobra.Command, args []string) {
	base, _ := cmd.Flags().GetString("base")
	title, _ := cmd.Flags().GetString("title")
	body, _ := cmd.Flags().GetString("body")

	msg, err := mustCommands().CreatePullRequest(cmd.Context(), service.PullRequestForm{
		RepoURL: args[0],
		Head:    args[1],
		Base:    base,
		Title:   title,
		Body:    body,
	})
	report(cmd, msg, err)
}
