package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/verdant/internal/agent"
	"github.com/kalambet/verdant/internal/api"
	"github.com/kalambet/verdant/internal/config"
	"github.com/kalambet/verdant/internal/monitor"
	"github.com/kalambet/verdant/internal/state"
	"github.com/kalambet/verdant/internal/storage"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the monitoring daemon (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon()
	},
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Execute a single monitoring cycle and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSingleCycle()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running verdant daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopDaemon()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show verdant system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "verdant.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func setupLogging(level string) {
	logLevel := slog.LevelInfo
	if strings.EqualFold(level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

// parseDurationOr parses a config duration string, warning and falling back
// to the supplied default on malformed input.
func parseDurationOr(key, value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("invalid duration in config, using default", "key", key, "value", value, "default", fallback)
		return fallback
	}
	return d
}

func openStores(cfg config.Config) (*storage.Store, *state.SessionStore, *state.ContextStore, error) {
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening storage: %w", err)
	}
	sessions := state.NewSessionStore(cfg.Storage.SessionPath)
	contexts := state.NewContextStore(cfg.Storage.ContextPath)
	return store, sessions, contexts, nil
}

func buildCoordinator(cfg config.Config, store *storage.Store, sessions *state.SessionStore, contexts *state.ContextStore) *monitor.Coordinator {
	agentClient := agent.New(
		cfg.Agent.BaseURL,
		cfg.Agent.AppName,
		cfg.Agent.UserID,
		parseDurationOr("agent.timeout", cfg.Agent.Timeout, 20*time.Minute),
	)

	quiet := monitor.QuietPolicy{
		StartHour:   cfg.Schedule.QuietStartHour,
		EndHour:     cfg.Schedule.QuietEndHour,
		MinInterval: parseDurationOr("schedule.quiet_interval", cfg.Schedule.QuietInterval, 2*time.Hour),
	}

	return monitor.New(monitor.Deps{
		Agent:         agentClient,
		Sessions:      sessions,
		Contexts:      contexts,
		Sink:          store,
		Quiet:         quiet,
		Interval:      parseDurationOr("schedule.interval", cfg.Schedule.Interval, 30*time.Minute),
		MaxSessionAge: parseDurationOr("session.max_age", cfg.Session.MaxAge, 72*time.Hour),
	})
}

func runDaemon() error {
	fmt.Fprintf(os.Stderr, "verdant version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	// Check if a daemon is already serving the configured port before
	// claiming the PID file.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("verdant is already running (PID %d)", pid)
			return fmt.Errorf("daemon already running (PID %d)", pid)
		}
		printWarning("verdant is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("daemon already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, sessions, contexts, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	coord := buildCoordinator(cfg, store, sessions, contexts)

	handler := api.NewHandler(api.Deps{
		Store:    store,
		Sessions: sessions,
		Contexts: contexts,
		Version:  version,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		coord.Run(gctx)
		return nil
	})

	g.Go(func() error {
		slog.Info("api listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func runSingleCycle() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, sessions, contexts, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	coord := buildCoordinator(cfg, store, sessions, contexts)
	if err := coord.RunOnce(ctx); err != nil {
		return fmt.Errorf("monitoring cycle: %w", err)
	}
	printSuccess("Cycle complete")
	return nil
}

func stopDaemon() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("verdant is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop verdant (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to verdant (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client := newAPIClient(cfg)

	resp, err := client.get(context.Background(), "/health")
	running := false
	if err != nil {
		printStatus("Daemon", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			running = true
			printStatus("Daemon", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Daemon", "error (HTTP %d)", resp.StatusCode)
		}
	}

	probe := &http.Client{Timeout: 2 * time.Second}
	if agentResp, err := probe.Get(cfg.Agent.BaseURL); err != nil {
		printStatus("Agent", "unreachable at %s", cfg.Agent.BaseURL)
	} else {
		agentResp.Body.Close()
		printStatus("Agent", "%s (app %s, user %s)", cfg.Agent.BaseURL, cfg.Agent.AppName, cfg.Agent.UserID)
	}
	printStatus("Interval", "%s", cfg.Schedule.Interval)
	printStatus("Quiet hours", "%02d:00-%02d:00 (min gap %s)",
		cfg.Schedule.QuietStartHour, cfg.Schedule.QuietEndHour, cfg.Schedule.QuietInterval)

	if running {
		runsResp, err := client.get(context.Background(), "/runs?limit=1")
		if err == nil {
			var runs []struct {
				Timestamp string `json:"timestamp"`
			}
			if decodeJSON(runsResp, &runs) == nil && len(runs) > 0 {
				printStatus("Last run", "%s", runs[0].Timestamp)
			}
		}
		sessResp, err := client.get(context.Background(), "/session")
		if err == nil {
			var rec struct {
				SessionID string `json:"session_id"`
			}
			if decodeJSON(sessResp, &rec) == nil && rec.SessionID != "" {
				printStatus("Session", "%s", rec.SessionID)
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
