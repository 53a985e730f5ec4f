// Package tools exposes the agent's read-only capabilities as ADK function
// tools: fetching the text behind a URL and searching saved memories.
// Writing memories and repository changes stay behind explicit commands.
package tools

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"github.com/easeaico/context-agent/internal/fetch"
	"github.com/easeaico/context-agent/internal/resolve"
)

// defaultSearchLimit is used when search_memory is called without a limit.
const defaultSearchLimit = 3

// maxSearchLimit bounds the limit a model may request.
const maxSearchLimit = 10

// Memory is the query side of the memory service.
type Memory interface {
	Query(ctx context.Context, text string, k int) ([]string, error)
}

// ToolsConfig holds dependencies for creating tools.
type ToolsConfig struct {
	Memory   Memory
	Resolver *resolve.Resolver
	Fetcher  *fetch.Fetcher
}

// --- Tool Input/Output Structs ---

// FetchURLArgs is the input for fetch_url tool.
type FetchURLArgs struct {
	URL string `json:"url" jsonschema:"The http or https URL to read"`
}

// FetchURLResult is the output for fetch_url tool.
type FetchURLResult struct {
	Success        bool   `json:"success"`
	Classification string `json:"classification,omitempty"`
	Content        string `json:"content,omitempty"`
	Truncated      bool   `json:"truncated,omitempty"`
	Error          string `json:"error,omitempty"`
}

// SearchMemoryArgs is the input for search_memory tool.
type SearchMemoryArgs struct {
	Query string `json:"query" jsonschema:"What to look for in the saved notes"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of notes to return (default 3)"`
}

// SearchMemoryResult is the output for search_memory tool.
type SearchMemoryResult struct {
	Success  bool     `json:"success"`
	Memories []string `json:"memories,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// --- Tool Handlers ---

type handlers struct {
	cfg ToolsConfig
}

func (h handlers) fetchURL(ctx context.Context, args FetchURLArgs) FetchURLResult {
	u, ok := h.cfg.Resolver.Resolve(args.URL)
	if !ok {
		return FetchURLResult{Success: false, Error: "url must be an http or https URL"}
	}

	c := h.cfg.Fetcher.Fetch(ctx, u)
	res := FetchURLResult{
		Success:        c.OK(),
		Classification: u.Classification.String(),
		Truncated:      c.Truncated,
	}
	if c.OK() {
		res.Content = c.Text
	} else {
		res.Error = c.Text
	}
	return res
}

func (h handlers) searchMemory(ctx context.Context, args SearchMemoryArgs) SearchMemoryResult {
	if strings.TrimSpace(args.Query) == "" {
		return SearchMemoryResult{Success: false, Error: "query is required"}
	}
	limit := args.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	limit = min(limit, maxSearchLimit)

	found, err := h.cfg.Memory.Query(ctx, args.Query, limit)
	if err != nil {
		return SearchMemoryResult{Success: false, Error: fmt.Sprintf("failed to search memories: %v", err)}
	}
	return SearchMemoryResult{Success: true, Memories: found}
}

func createFetchURLTool(h handlers) (tool.Tool, error) {
	handler := func(ctx tool.Context, args FetchURLArgs) (FetchURLResult, error) {
		return h.fetchURL(ctx, args), nil
	}

	return functiontool.New(functiontool.Config{
		Name:        "fetch_url",
		Description: "Read the visible text of a web page, or the raw contents of a file or README on the source-hosting site.",
	}, handler)
}

func createSearchMemoryTool(h handlers) (tool.Tool, error) {
	handler := func(ctx tool.Context, args SearchMemoryArgs) (SearchMemoryResult, error) {
		return h.searchMemory(ctx, args), nil
	}

	return functiontool.New(functiontool.Config{
		Name:        "search_memory",
		Description: "Search the user's saved engineering notes for facts relevant to the question. Results are ordered most relevant first.",
	}, handler)
}

// BuildTools creates all agent tools with the given configuration.
func BuildTools(cfg ToolsConfig) ([]tool.Tool, error) {
	if cfg.Memory == nil || cfg.Resolver == nil || cfg.Fetcher == nil {
		return nil, fmt.Errorf("tools: memory, resolver and fetcher are required")
	}
	h := handlers{cfg: cfg}

	var tools []tool.Tool

	fetchTool, err := createFetchURLTool(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetch_url tool: %w", err)
	}
	tools = append(tools, fetchTool)

	searchTool, err := createSearchMemoryTool(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create search_memory tool: %w", err)
	}
	tools = append(tools, searchTool)

	return tools, nil
}
