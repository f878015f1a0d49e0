package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/zenwatch-io/zenwatch/internal/config"
	"github.com/zenwatch-io/zenwatch/internal/notify"
	"github.com/zenwatch-io/zenwatch/internal/provider"
	"github.com/zenwatch-io/zenwatch/internal/zendesk"
	"github.com/zenwatch-io/zenwatch/pkg/protocol"
)

func main() {
	godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "check":
		cmdCheck(os.Args[2:])
	case "health":
		cmdHealth()
	case "runs":
		cmdRuns(os.Args[2:])
	case "logs":
		cmdLogs(os.Args[2:])
	case "run":
		cmdRun()
	case "query":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: zenwatchctl query <text>")
			os.Exit(1)
		}
		cmdQuery(os.Args[2])
	case "config":
		if len(os.Args) < 4 || os.Args[2] != "validate" {
			fmt.Fprintln(os.Stderr, "usage: zenwatchctl config validate <path>")
			os.Exit(1)
		}
		cmdConfigValidate(os.Args[3])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// --- check command ---

// cmdCheck verifies the configured integrations end to end: config loads,
// Zendesk authenticates, the LLM provider answers, and (with --notify) the
// sinks accept a test message.
func cmdCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config JSON file")
	sendNotify := fs.Bool("notify", false, "Also post a test message to the configured sinks")
	fs.Parse(args)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if !report("config", err) {
		os.Exit(1)
	}

	failed := false

	zd, err := zendesk.New(cfg.Zendesk.URL, cfg.Zendesk.Email, cfg.Zendesk.Token, logger)
	if err == nil {
		_, err = zd.FetchRecent(ctx, 1)
	}
	failed = !report("zendesk", err) || failed

	pcfg := cfg.Providers["default"]
	var prov provider.Provider
	switch pcfg.Type {
	case "anthropic":
		prov = provider.NewAnthropic(pcfg.APIKey, provider.WithAnthropicModel(pcfg.Model))
	default:
		prov = provider.NewOpenAI(pcfg.APIKey, provider.WithModel(pcfg.Model))
	}
	_, err = prov.Chat(ctx, protocol.ChatRequest{
		Messages:  []protocol.ChatMessage{{Role: "user", Content: "Reply with OK."}},
		MaxTokens: 10,
	})
	failed = !report("provider ("+pcfg.Model+")", err) || failed

	if *sendNotify {
		msg := notify.Message{
			Title:  "zenwatch connectivity check",
			Body:   "This is a test message from zenwatchctl check.",
			Footer: fmt.Sprintf("Sent at %s", time.Now().Format("2006-01-02 15:04:05")),
		}
		if cfg.Notify.SlackWebhookURL != "" {
			sink, err := notify.NewSlack(cfg.Notify.SlackWebhookURL, logger)
			if err == nil {
				err = sink.Send(ctx, msg)
			}
			failed = !report("slack", err) || failed
		}
		if cfg.Notify.Telegram != nil {
			sink, err := notify.NewTelegram(cfg.Notify.Telegram.Token, cfg.Notify.Telegram.ChatID, logger)
			if err == nil {
				err = sink.Send(ctx, msg)
			}
			failed = !report("telegram", err) || failed
		}
	}

	if failed {
		os.Exit(1)
	}
	fmt.Println("all checks passed")
}

func report(name string, err error) bool {
	if err != nil {
		fmt.Printf("%-24s FAIL  %v\n", name, err)
		return false
	}
	fmt.Printf("%-24s OK\n", name)
	return true
}

// --- API client commands ---

func cmdHealth() {
	body, err := apiGet("/api/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(body))
}

func cmdRuns(args []string) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Max results")
	fs.Parse(args)

	body, err := apiGet(fmt.Sprintf("/api/runs?limit=%d", *limit))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var runs []protocol.RunRecord
	json.Unmarshal(body, &runs)
	for _, r := range runs {
		note := r.Note
		if r.Kind == protocol.RunQuery && note == "" {
			note = r.Query
		}
		fmt.Printf("%-36s %-10s %-8s %4d tickets %3d alerted  %s\n",
			r.ID, r.Kind, r.State, r.TicketCount, r.AlertedCount, note)
	}
}

func cmdLogs(args []string) {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	level := fs.String("level", "", "Minimum level (info|warn|error)")
	limit := fs.Int("limit", 50, "Max entries")
	fs.Parse(args)

	query := fmt.Sprintf("?limit=%d", *limit)
	if *level != "" {
		query += "&level=" + *level
	}
	body, err := apiGet("/api/logs" + query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var entries []map[string]any
	json.Unmarshal(body, &entries)
	for _, e := range entries {
		fmt.Printf("%s %-5s %s\n", e["time"], e["level"], e["message"])
	}
}

func cmdRun() {
	body, err := apiPost("/api/run", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(body))
}

func cmdQuery(query string) {
	payload, _ := json.Marshal(map[string]string{"query": query})
	body, err := apiPost("/api/query", payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(body))
}

func cmdConfigValidate(path string) {
	_, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("config is valid")
}

// --- Helpers ---

func apiGet(path string) ([]byte, error) {
	return apiDo("GET", path, nil)
}

func apiPost(path string, body []byte) ([]byte, error) {
	return apiDo("POST", path, body)
}

func apiDo(method, path string, body []byte) ([]byte, error) {
	base := envOr("ZENWATCH_API_URL", "http://localhost:8080")

	req, err := http.NewRequest(method, base+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key := os.Getenv("ZENWATCH_API_KEY"); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	// Query runs hold the connection open while the daemon works.
	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

func prettyJSON(data []byte) string {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	out, _ := json.MarshalIndent(v, "", "  ")
	return string(out)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printUsage() {
	fmt.Println("zenwatchctl - ticket watch management CLI")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  check                Verify Zendesk, provider, and sink connectivity (--notify)")
	fmt.Println("  health               Check daemon health")
	fmt.Println("  runs                 List recent runs (--limit)")
	fmt.Println("  logs                 Show recent daemon logs (--level, --limit)")
	fmt.Println("  run                  Trigger a clustering run now")
	fmt.Println("  query <text>         Run a natural-language ticket query")
	fmt.Println("  config validate <p>  Validate config file")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  ZENWATCH_API_URL   Daemon URL (default: http://localhost:8080)")
	fmt.Println("  ZENWATCH_API_KEY   API key for authentication")
}
