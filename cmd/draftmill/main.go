// Package main provides the draftmill binary entry point.
// Draftmill turns raw project requirements into a structured document
// pack and backlog, optionally publishing both to Confluence and Jira.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	// Register LLM providers via init()
	_ "github.com/draftmill/draftmill/llm/providers"

	"github.com/spf13/cobra"

	"github.com/draftmill/draftmill/automation"
	"github.com/draftmill/draftmill/config"
	"github.com/draftmill/draftmill/docgen"
	"github.com/draftmill/draftmill/events"
	"github.com/draftmill/draftmill/llm"
	"github.com/draftmill/draftmill/mailer"
	"github.com/draftmill/draftmill/server"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "draftmill"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Requirements-to-delivery document automation server",
		Long: `Draftmill is an HTTP service that turns raw project requirements into
a structured delivery document pack (BRD, FRS, SOW, RAID log) plus an
epic and user-story backlog, using an LLM for the heavy lifting.

It can render DOCX and XLSX artifacts, email documents, and publish
the full pack to Confluence and Jira in one run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, logLevel)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func run(configPath, logLevel string) error {
	logger := newLogger(logLevel)
	slog.SetDefault(logger)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	completer := buildCompleter(cfg, logger)

	orchestratorOpts := []automation.OrchestratorOption{
		automation.WithLogger(logger),
	}

	publisher, err := events.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix, logger)
	if err != nil {
		// Event publishing is best-effort; the pipeline works without it.
		logger.Warn("event publisher unavailable", "error", err)
	}
	if publisher != nil {
		defer publisher.Close()
		orchestratorOpts = append(orchestratorOpts, automation.WithRunPublisher(publisher))
	}

	orchestrator := automation.NewOrchestrator(completer, cfg.Atlassian, cfg.LLM.Temperature, orchestratorOpts...)

	serverOpts := []server.Option{
		server.WithLogger(logger),
		server.WithMailer(mailer.New(cfg.SMTP)),
	}
	if cfg.Server.TemplateDir != "" {
		store, err := docgen.NewTemplateStore(cfg.Server.TemplateDir, logger)
		if err != nil {
			return fmt.Errorf("load template store: %w", err)
		}
		defer store.Close()
		serverOpts = append(serverOpts, server.WithTemplateStore(store))
		logger.Info("template store loaded", "dir", cfg.Server.TemplateDir, "templates", len(store.Names()))
	}

	srv := server.New(orchestrator, cfg.Server, serverOpts...)

	logger.Info("draftmill ready", "version", Version, "addr", cfg.Server.Addr)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("draftmill shutdown complete")
	return nil
}

func newLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadConfig(configPath string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg.Merge(loaded)
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func buildCompleter(cfg *config.Config, logger *slog.Logger) *llm.Client {
	endpoints := make([]llm.Endpoint, 0, len(cfg.LLM.Endpoints))
	for _, ep := range cfg.LLM.Endpoints {
		endpoints = append(endpoints, llm.Endpoint{
			Provider:  ep.Provider,
			Model:     ep.Model,
			URL:       ep.URL,
			APIKey:    ep.APIKey,
			MaxTokens: ep.MaxTokens,
		})
	}

	opts := []llm.Option{llm.WithLogger(logger)}
	if cfg.LLM.Timeout > 0 {
		opts = append(opts, llm.WithHTTPClient(&http.Client{Timeout: cfg.LLM.Timeout}))
	}
	return llm.NewClient(endpoints, opts...)
}
