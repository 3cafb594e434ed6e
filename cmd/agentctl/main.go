// Command agentctl runs a single agent against a goal given on the command
// line, printing every Update Stream event to stdout as it arrives.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/pocketomega/agentrt/agentcore"
	"github.com/pocketomega/agentrt/internal/config"
	"github.com/pocketomega/agentrt/internal/engine"
	"github.com/pocketomega/agentrt/internal/llm"
	"github.com/pocketomega/agentrt/internal/llmclient"
	"github.com/pocketomega/agentrt/internal/mcp"
	"github.com/pocketomega/agentrt/internal/memory"
	"github.com/pocketomega/agentrt/internal/planner"
	"github.com/pocketomega/agentrt/internal/replanner"
	"github.com/pocketomega/agentrt/internal/stream"
	"github.com/pocketomega/agentrt/internal/tool"
	"github.com/pocketomega/agentrt/internal/tool/builtin"
	"github.com/pocketomega/agentrt/internal/toolspec"
)

func main() {
	goal := flag.String("goal", "", "task goal for the agent to accomplish")
	workspace := flag.String("workspace", "", "agent workspace directory (default: current directory)")
	autonomous := flag.Bool("autonomous", false, "run without a human available to answer clarification requests")
	flag.Parse()

	if *goal == "" {
		fmt.Fprintln(os.Stderr, "agentctl: -goal is required")
		os.Exit(2)
	}

	config.LoadEnv()
	settings := config.FromEnv()

	workspaceDir := *workspace
	if workspaceDir == "" {
		var err error
		workspaceDir, err = os.Getwd()
		if err != nil {
			log.Fatalf("agentctl: resolve working directory: %v", err)
		}
	}

	provider, err := llmclient.NewClientFromEnv()
	if err != nil {
		log.Fatalf("agentctl: initialize LLM client: %v", err)
	}
	log.Printf("agentctl: using provider %s", provider.Name())

	registry := tool.NewRegistry()
	registry.Register(builtin.NewReadFileTool())
	registry.Register(builtin.NewWriteFileTool())
	registry.Register(builtin.NewListFilesTool())
	registry.Register(builtin.NewShellExecTool())
	registry.Register(builtin.NewHTTPFetchTool())
	registry.Register(builtin.NewWebReaderTool())
	registry.Register(builtin.NewGitInfoTool())
	registry.Register(builtin.NewCurrentTimeTool())
	// Search tools are optional and their Init rejects a missing API key, so
	// only register the ones actually configured for this run.
	if key := os.Getenv("BRAVE_API_KEY"); key != "" {
		registry.Register(builtin.NewBraveSearchTool(key))
	}
	if key := os.Getenv("TAVILY_API_KEY"); key != "" {
		registry.Register(builtin.NewTavilySearchTool(key))
	}
	if err := registry.InitAll(context.Background()); err != nil {
		log.Fatalf("agentctl: initialize tools: %v", err)
	}
	defer registry.CloseAll()

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()
	watcher, err := toolspec.NewWatcher(registry, workspaceDir)
	if err != nil {
		log.Fatalf("agentctl: initialize tool manifest watcher: %v", err)
	}
	if err := watcher.Start(runCtx); err != nil {
		log.Fatalf("agentctl: start tool manifest watcher: %v", err)
	}

	// MCP is an optional registrar: a workspace with no mcp.json runs with
	// no change in behavior.
	var mcpManager *mcp.Manager
	mcpConfigPath := filepath.Join(workspaceDir, "mcp.json")
	if _, err := os.Stat(mcpConfigPath); err == nil {
		mcpManager = mcp.NewManager(mcpConfigPath)
		if errs := mcpManager.ConnectAndRegister(runCtx, registry); len(errs) > 0 {
			for _, e := range errs {
				log.Printf("agentctl: mcp: %v", e)
			}
		}
		defer mcpManager.Close(registry)
	}

	eng := engine.New(settings.ApplyTunables(engine.Config{
		Provider:  provider,
		Registry:  registry,
		Planner:   planner.New(provider, registry),
		Replanner: replanner.New(provider),
		Memory:    memory.New(memory.NewInMemoryBackend(50)),
		Prices:    llm.PriceTable{InputPricePerToken: 0.000001, OutputPricePerToken: 0.000002},
	}))

	producer := stream.NewProducer(64)
	go printEvents(producer)

	res, err := eng.Run(runCtx, engine.RunOptions{
		Task:          agentcore.NewTask(*goal),
		WorkspacePath: workspaceDir,
		Limits:        settings.Limits(),
		Autonomous:    *autonomous,
		Producer:      producer,
		ExportMetrics: true,
	})
	producer.Close()
	if err != nil {
		log.Fatalf("agentctl: run failed: %v", err)
	}

	fmt.Printf("\nfinal phase: %s\n", res.State.Phase)
	if len(res.State.Errors) > 0 {
		fmt.Printf("errors: %v\n", res.State.Errors)
	}
}

func printEvents(producer *stream.Producer) {
	for event := range producer.Events() {
		payload, err := json.Marshal(event)
		if err != nil {
			log.Printf("agentctl: marshal event: %v", err)
			continue
		}
		fmt.Println(string(payload))
	}
}
