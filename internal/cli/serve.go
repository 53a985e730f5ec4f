package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"text/template"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/cmd/launcher"
	"google.golang.org/adk/cmd/launcher/full"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"

	"github.com/easeaico/context-agent/internal/tools"
)

// defaultServeModel is used when the configured provider is not gemini.
const defaultServeModel = "gemini-2.0-flash"

func init() {
	cmd := &cobra.Command{
		Use:   "serve [launcher args]",
		Short: "Run the agent under the ADK launcher",
		Long: "Run the agent as an ADK agent (console, web UI or API, depending on the launcher arguments).\n" +
			"The agent can fetch URLs and search memories through tools; it never writes memories or\n" +
			"repository changes. Requires GOOGLE_API_KEY. Flags after 'serve' are passed to the launcher,\n" +
			"so use AGENT_CONFIG and LOG_LEVEL instead of --config and --log-level.",
		DisableFlagParsing: true,
		Run:                runServe,
	}

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	s := mustStack(ctx)
	defer s.close()

	llmAgent, err := buildADKAgent(ctx, s)
	if err != nil {
		exitErr("serve", err)
	}

	config := &launcher.Config{
		AgentLoader:   agent.NewSingleLoader(llmAgent),
		MemoryService: s.memory,
	}
	l := full.NewLauncher()
	if err := l.Execute(ctx, config, args); err != nil {
		s.logger.Error("launcher failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "error: serve: %v\n\n%s\n", err, l.CommandLineSyntax())
		os.Exit(1)
	}
}

// buildADKAgent creates the gemini-backed LLM agent with the read-only tools.
func buildADKAgent(ctx context.Context, s *stack) (agent.Agent, error) {
	if s.cfg.APIKey == "" {
		return nil, errors.New("GOOGLE_API_KEY environment variable is required for serve")
	}

	agentTools, err := tools.BuildTools(tools.ToolsConfig{
		Memory:   s.memory,
		Resolver: s.resolver,
		Fetcher:  s.fetcher,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build tools: %w", err)
	}

	modelName := defaultServeModel
	if s.cfg.LLMProvider == "gemini" && s.cfg.Model != "" {
		modelName = s.cfg.Model
	}
	llmModel, err := gemini.NewModel(ctx, modelName, &genai.ClientConfig{
		APIKey:  s.cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM model: %w", err)
	}

	count, err := s.memory.Count(ctx)
	if err != nil {
		s.logger.Warn("failed to count memories", zap.Error(err))
	}

	llmAgent, err := llmagent.New(llmagent.Config{
		Name:        "context_agent",
		Description: "Answers engineering questions using saved notes and the contents of linked pages",
		Model:       llmModel,
		Instruction: buildInstruction(count),
		Tools:       agentTools,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	s.logger.Info("agent initialized", zap.String("model", modelName), zap.Int("memories", count))
	return llmAgent, nil
}

var instructionTmpl = template.Must(template.New("instruction").Parse(`
You are an engineering assistant for a single user.

You can:
1. search the user's saved notes with search_memory
2. read web pages and files on the source-hosting site with fetch_url
{{- if .HasMemories }}

The user has {{ .Memories }} saved notes. Search them before answering questions about their projects.
{{- end }}

When answering:
- If the question contains a URL, fetch it first and cite it.
- Prefer facts from saved notes over general knowledge, and say which note you used.
- You cannot save notes or change repositories; tell the user to use the remember, branch, commit or pr commands.
`))

// buildInstruction renders the system instruction.
func buildInstruction(memories int) string {
	data := struct {
		Memories    int
		HasMemories bool
	}{
		Memories:    memories,
		HasMemories: memories > 0,
	}

	var buf bytes.Buffer
	_ = instructionTmpl.Execute(&buf, data)
	return buf.String()
}
