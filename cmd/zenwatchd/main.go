package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/zenwatch-io/zenwatch/internal/analyzer"
	apiPkg "github.com/zenwatch-io/zenwatch/internal/api"
	"github.com/zenwatch-io/zenwatch/internal/config"
	"github.com/zenwatch-io/zenwatch/internal/logbuf"
	"github.com/zenwatch-io/zenwatch/internal/notify"
	"github.com/zenwatch-io/zenwatch/internal/orchestrator"
	"github.com/zenwatch-io/zenwatch/internal/provider"
	"github.com/zenwatch-io/zenwatch/internal/scheduler"
	"github.com/zenwatch-io/zenwatch/internal/store"
	"github.com/zenwatch-io/zenwatch/internal/zendesk"
)

func main() {
	configPath := flag.String("config", "", "Path to config JSON file")
	envFile := flag.String("env-file", "", "Path to .env file to load before reading config")
	once := flag.Bool("once", false, "Run one clustering pass and exit")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	// Optional .env, then a plain ./.env if present
	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *envFile, err)
			os.Exit(1)
		}
	} else {
		godotenv.Load()
	}

	// Set up logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logBuf := logbuf.New(2000)
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logbuf.NewHandler(jsonHandler, logBuf))

	// Load config (2 modes: file, env)
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("zenwatchd starting", "zendesk", cfg.Zendesk.URL)

	// 1. Initialize providers
	providers := make(map[string]provider.Provider)
	for name, pcfg := range cfg.Providers {
		switch pcfg.Type {
		case "anthropic":
			var opts []provider.AnthropicOption
			if pcfg.BaseURL != "" {
				opts = append(opts, provider.WithAnthropicBaseURL(pcfg.BaseURL))
			}
			if pcfg.Model != "" {
				opts = append(opts, provider.WithAnthropicModel(pcfg.Model))
			}
			providers[name] = provider.NewAnthropic(pcfg.APIKey, opts...)
		default: // "openai" or empty
			var opts []provider.OpenAIOption
			if pcfg.BaseURL != "" {
				opts = append(opts, provider.WithBaseURL(pcfg.BaseURL))
			}
			if pcfg.Model != "" {
				opts = append(opts, provider.WithModel(pcfg.Model))
			}
			providers[name] = provider.NewOpenAI(pcfg.APIKey, opts...)
		}
		logger.Info("provider initialized", "name", name, "type", pcfg.Type, "model", pcfg.Model)
	}

	defaultProv, ok := providers["default"]
	if !ok {
		logger.Error("no 'default' provider configured")
		os.Exit(1)
	}

	// 2. Ticket source
	zd, err := zendesk.New(cfg.Zendesk.URL, cfg.Zendesk.Email, cfg.Zendesk.Token, logger.With("component", "zendesk"))
	if err != nil {
		logger.Error("failed to init zendesk client", "error", err)
		os.Exit(1)
	}

	// 3. Run store
	os.MkdirAll(cfg.DataDir, 0o755)
	dbPath := cfg.DataDir + "/zenwatch.db"
	st, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Error("failed to open run store", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// 4. Notification sinks
	var sinks []notify.Sink
	if cfg.Notify.SlackWebhookURL != "" {
		slackSink, err := notify.NewSlack(cfg.Notify.SlackWebhookURL, logger.With("sink", "slack"))
		if err != nil {
			logger.Error("failed to init slack sink", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, slackSink)
	}
	if cfg.Notify.Telegram != nil {
		tgSink, err := notify.NewTelegram(cfg.Notify.Telegram.Token, cfg.Notify.Telegram.ChatID, logger.With("sink", "telegram"))
		if err != nil {
			logger.Error("failed to init telegram sink", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, tgSink)
	}
	logger.Info("notification sinks ready", "count", len(sinks))

	// 5. Orchestrator
	an := analyzer.New(defaultProv, cfg.Analysis.MinGroupSize, logger.With("component", "analyzer"))
	orch := orchestrator.New(zd, an, sinks, st, orchestrator.Config{
		MinGroupSize:         cfg.Analysis.MinGroupSize,
		LargeResultThreshold: cfg.Analysis.LargeResultThreshold,
		FetchHours:           cfg.Analysis.FetchHours,
		TicketBaseURL:        cfg.Zendesk.URL + "/agent/tickets",
	}, logger.With("component", "orchestrator"))

	if *once {
		rec, err := orch.RunClustering(context.Background())
		if err != nil {
			os.Exit(1)
		}
		logger.Info("single run finished", "state", rec.State, "note", rec.Note)
		return
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 6. Scheduler
	sched := scheduler.New(logger.With("component", "scheduler"))
	if err := sched.AddJob("clustering", cfg.Analysis.Schedule, func(ctx context.Context) {
		if _, err := orch.RunClustering(ctx); err != nil {
			logger.Error("scheduled clustering run failed", "error", err)
		}
	}); err != nil {
		logger.Error("failed to register clustering job", "error", err)
		os.Exit(1)
	}
	go safeGo(logger, "scheduler", func() { sched.Start(ctx) })

	// 7. API server
	apiSrv := apiPkg.NewServer(orch, st, apiPkg.Config{
		Host: cfg.API.Host,
		Port: cfg.API.Port,
		Key:  cfg.API.Key,
	}, logger.With("component", "api"), logBuf)

	go safeGo(logger, "api-server", func() { apiSrv.Start(ctx) })
	logger.Info("api server started", "port", cfg.API.Port)

	// 8. Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()
	logger.Info("zenwatchd stopped")
}

// safeGo runs fn with panic recovery.
func safeGo(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("goroutine panicked", "name", name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	fn()
}
