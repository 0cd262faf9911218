package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/openclaw/prefixproxy/internal/config"
	"github.com/openclaw/prefixproxy/internal/inspect"
	"github.com/openclaw/prefixproxy/internal/replay"
	"github.com/openclaw/prefixproxy/internal/server"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: prefixproxy <command> [flags]")
		fmt.Fprintln(os.Stderr, "Commands: serve, inspect, replay, info")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		os.Exit(cmdServe())
	case "inspect":
		os.Exit(cmdInspect())
	case "replay":
		os.Exit(cmdReplay())
	case "info":
		os.Exit(cmdInfo())
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		fmt.Fprintln(os.Stderr, "Commands: serve, inspect, replay, info")
		os.Exit(1)
	}
}

// loadConfig resolves settings in layers: defaults, optional YAML file,
// PREFIXPROXY_* env vars, then the flags the caller binds afterward.
func loadConfig(args []string) (*config.Config, error) {
	godotenv.Load()

	cfg := config.Default()
	if path := configPathFromArgs(args); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// configPathFromArgs pre-scans for -config so the file can be layered under
// env vars and flags before the flag set parses.
func configPathFromArgs(args []string) string {
	for i, a := range args {
		name := strings.TrimLeft(a, "-")
		if name == "config" && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(name, "config="); ok {
			return v
		}
	}
	return ""
}

func bindFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.String("config", "", "Path to YAML config file") // consumed by configPathFromArgs
	fs.StringVar(&cfg.Host, "host", cfg.Host, "Address to bind")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "Port to listen on")
	fs.StringVar(&cfg.BackendURL, "backend", cfg.BackendURL, "Backend base URL (llama-server)")
	fs.StringVar(&cfg.BackendAPIKey, "backend-api-key", cfg.BackendAPIKey, "Bearer token for the backend")
	fs.DurationVar(&cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "Per-request timeout, stream included")
	fs.BoolVar(&cfg.StripTimestamps, "strip-timestamps", cfg.StripTimestamps, "Strip bracketed timestamps from input text")
	fs.BoolVar(&cfg.StripMessageIDs, "strip-message-ids", cfg.StripMessageIDs, "Strip message_id lines from input text")
	fs.StringVar(&cfg.CaptureLog, "capture-log", cfg.CaptureLog, "Append captured requests to this file")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Enable verbose logging")
}

func cmdServe() int {
	cfg, err := loadConfig(os.Args[2:])
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return 1
	}

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	bindFlags(fs, cfg)
	fs.Parse(os.Args[2:])

	if cfg.Verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	srv, err := server.New(cfg)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		return 1
	}

	slog.Info("starting proxy",
		"addr", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		"backend", cfg.BackendURL,
		"strip_timestamps", cfg.StripTimestamps,
		"strip_message_ids", cfg.StripMessageIDs,
	)
	if cfg.CaptureLog != "" {
		slog.Info("capture log enabled", "path", cfg.CaptureLog)
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-done
		slog.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		return 1
	}
	return 0
}

func cmdInspect() int {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	logPath := fs.String("log", "proxy_capture.log", "Capture log to inspect")
	fs.Parse(os.Args[2:])

	if err := inspect.Run(os.Stdout, *logPath); err != nil {
		slog.Error("inspect failed", "error", err)
		return 1
	}
	return 0
}

func cmdReplay() int {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	logPath := fs.String("log", "proxy_capture.log", "Capture log to replay")
	url := fs.String("url", "http://127.0.0.1:1234/v1/responses", "Proxy endpoint to replay against")
	delay := fs.Duration("delay", time.Second, "Pause between replayed requests")
	fs.Parse(os.Args[2:])

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := replay.Run(ctx, os.Stdout, *logPath, *url, *delay); err != nil {
		slog.Error("replay failed", "error", err)
		return 1
	}
	return 0
}

func cmdInfo() int {
	cfg, err := loadConfig(os.Args[2:])
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return 1
	}

	fs := flag.NewFlagSet("info", flag.ExitOnError)
	bindFlags(fs, cfg)
	fs.Parse(os.Args[2:])

	out := map[string]any{
		"host":              cfg.Host,
		"port":              cfg.Port,
		"backend_url":       cfg.BackendURL,
		"backend_api_key":   cfg.BackendAPIKey != "",
		"request_timeout":   cfg.RequestTimeout.String(),
		"strip_timestamps":  cfg.StripTimestamps,
		"strip_message_ids": cfg.StripMessageIDs,
		"capture_log":       cfg.CaptureLog,
		"verbose":           cfg.Verbose,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(out)
	return 0
}
