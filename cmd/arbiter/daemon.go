package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arbiter-dev/arbiter/internal/agent"
	"github.com/arbiter-dev/arbiter/internal/audit"
	"github.com/arbiter-dev/arbiter/internal/clients"
	"github.com/arbiter-dev/arbiter/internal/config"
	"github.com/arbiter-dev/arbiter/internal/conflict"
	"github.com/arbiter-dev/arbiter/internal/controlplane"
	"github.com/arbiter-dev/arbiter/internal/lockmgr"
	"github.com/arbiter-dev/arbiter/internal/router"
	"github.com/arbiter-dev/arbiter/internal/store"
	"github.com/arbiter-dev/arbiter/internal/workflow"
	"github.com/spf13/cobra"
)

var (
	listenAddr string
	dbPath     string
	configPath string
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the Arbiter daemon",
	Long:  `Starts the Arbiter daemon which provides the HTTP API for agent coordination.`,
	RunE:  runDaemon,
}

func init() {
	daemonCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address for the API server (overrides config)")
	daemonCmd.Flags().StringVar(&dbPath, "db", "", "Path to SQLite database (overrides config)")
	daemonCmd.Flags().StringVar(&configPath, "config", "", "Path to config file (default ~/.arbiter/config.yaml)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	log.Println("Starting Arbiter daemon...")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadFromHome()
	}
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	// Shared store and audit log
	s, err := store.New(cfg.DBPath)
	if err != nil {
		return err
	}
	aud := audit.NewWriter(s)

	// Lock manager and conflict resolver
	ttl := time.Duration(cfg.DefaultLockTTLSec) * time.Second
	var locks *lockmgr.Manager
	if len(cfg.Protection) > 0 {
		locks = lockmgr.NewWithRules(s, ttl, cfg.Protection)
	} else {
		locks = lockmgr.New(s, ttl)
	}
	resolver := conflict.New(locks.IsProtected)

	// Intent router
	routerCfg := cfg.Router
	if routerCfg == nil {
		routerCfg = router.DefaultConfig()
	}
	rt := router.NewRouter(routerCfg)

	// Agent registry, executor, runner
	registry := agent.NewRegistry()
	registry.RegisterBuiltins()
	log.Printf("Agent registry initialized with %d agents", registry.Count())

	var executor agent.Executor
	if cfg.AgentBackendURL != "" {
		executor = agent.NewHTTPExecutor(cfg.AgentBackendURL)
	} else {
		log.Println("Warning: no agent backend configured, using echo executor")
		executor = agent.NewEchoExecutor()
	}
	runner := agent.NewRunner(registry, executor)

	// Workflow engine
	engine := workflow.NewEngine(runner, registry, resolver, locks, cfg.Workspace)
	engine.RegisterHook(workflow.HookBeforeStep, func(id string, i int, agentName string) {
		log.Printf("execution %s: step %d (%s) starting", id, i+1, agentName)
	})
	engine.RegisterHook(workflow.HookAfterStep, func(id string, i int, agentName string) {
		log.Printf("execution %s: step %d (%s) done", id, i+1, agentName)
	})

	// Collaborators
	var kb *clients.Knowledge
	if cfg.KnowledgeURL != "" {
		kb = clients.NewKnowledge(cfg.KnowledgeURL)
	}
	var cg *clients.Codegen
	if cfg.CodegenURL != "" {
		cg = clients.NewCodegen(cfg.CodegenURL)
	}

	// Service and server
	service := controlplane.NewService(s, aud, locks, resolver, rt, engine, kb, cg)
	server := controlplane.NewServer(service, cfg.Listen)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case sig := <-sigCh:
		log.Printf("Received %v, shutting down...", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	return s.Close()
}
