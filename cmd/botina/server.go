package main

import (
	"context"
	"errors"
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

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/botinahealth/botina/internal/api"
	"github.com/botinahealth/botina/internal/config"
	"github.com/botinahealth/botina/internal/content"
	"github.com/botinahealth/botina/internal/model"
	"github.com/botinahealth/botina/internal/reminder"
	"github.com/botinahealth/botina/internal/router"
	"github.com/botinahealth/botina/internal/schedule"
	"github.com/botinahealth/botina/internal/storage"
	"github.com/botinahealth/botina/internal/transport"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the botina server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running botina server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show botina system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "botina.pid")
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

func runServer() error {
	fmt.Fprintf(os.Stderr, "botina version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	apiToken := cfg.Server.Token
	if apiToken == "" {
		apiToken = uuid.New().String()
		slog.Warn("no server token configured, generated an ephemeral one", "token", apiToken)
	}

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("botina is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("botina is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open storage, falling back to in-memory when the data dir is
	// unusable. State is then lost on restart but the bot stays up.
	var store storage.UserStore
	sqlStore, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		slog.Warn("could not open database, using in-memory store", "data_dir", cfg.Storage.DataDir, "error", err)
		store = storage.NewMemStore()
	} else {
		store = sqlStore
		defer func() {
			if err := sqlStore.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
			}
		}()
	}

	// Load static content and the vaccine schedule.
	table, err := content.Load()
	if err != nil {
		return fmt.Errorf("loading content: %w", err)
	}
	vaccines, err := schedule.Load()
	if err != nil {
		return fmt.Errorf("loading vaccine schedule: %w", err)
	}

	// Connect to the messaging gateway; fatal if it never comes up.
	gateway := transport.NewGateway(cfg.Gateway.BaseURL, cfg.Gateway.Token)
	if err := gateway.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to gateway: %w", err)
	}

	// Build the conversation router.
	modelClient := model.NewClient(model.Config{
		BaseURL: cfg.Model.BaseURL,
		APIKey:  cfg.Model.APIKey,
		Name:    cfg.Model.Name,
	})
	entry := router.EntryFreeForm
	if cfg.Bot.EntryMode == "menu" {
		entry = router.EntryMenu
	}
	rt := router.New(store, table, modelClient, gateway, router.Options{
		Entry:         entry,
		HistoryCap:    cfg.Bot.HistoryCap,
		LookbackYears: cfg.Bot.LookbackYears,
	})

	// Reminder engine and its daily scheduler.
	engine := reminder.NewEngine(store, vaccines, table, gateway, nil)
	sched, err := reminder.NewScheduler(engine, cfg.Reminder.Hour, cfg.Reminder.Timezone, nil)
	if err != nil {
		return fmt.Errorf("building reminder scheduler: %w", err)
	}

	// Compose top-level router: inbound webhook + operational API.
	topRouter := chi.NewRouter()
	topRouter.Mount("/webhook", transport.NewWebhookHandler(cfg.Gateway.Token, rt))
	topRouter.Mount("/", api.NewOpsHandler(api.OpsDeps{
		Store:   store,
		Sweeper: engine,
		Token:   apiToken,
	}))

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: topRouter,
	}

	// MCP server over stdio.
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Store:    store,
		Vaccines: vaccines,
		Clock:    sysClock{},
	})
	stdioSrv := server.NewStdioServer(mcpSrv)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sched.Run(gctx)
		return nil
	})
	g.Go(func() error {
		if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "botina listening on %s\n", addr)
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

type sysClock struct{}

func (sysClock) Now() time.Time { return time.Now() }

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("botina is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop botina (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to botina (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	gwResp, err := client.Get(strings.TrimRight(cfg.Gateway.BaseURL, "/") + "/health")
	if err != nil {
		printStatus("Gateway", "not reachable")
	} else {
		gwResp.Body.Close()
		printStatus("Gateway", "running at %s", cfg.Gateway.BaseURL)
	}

	printStatus("Model", "%s", cfg.Model.Name)
	printStatus("Entry mode", "%s", cfg.Bot.EntryMode)
	printStatus("Reminder sweep", "%02d:00 %s", cfg.Reminder.Hour, cfg.Reminder.Timezone)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
