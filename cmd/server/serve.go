package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rpggio/diyassist/internal/agent"
	"github.com/rpggio/diyassist/internal/config"
	"github.com/rpggio/diyassist/internal/domain/conversation"
	"github.com/rpggio/diyassist/internal/domain/project"
	"github.com/rpggio/diyassist/internal/domain/step"
	"github.com/rpggio/diyassist/internal/mcp"
	"github.com/rpggio/diyassist/internal/mongostore"
	"github.com/rpggio/diyassist/internal/observability"
	"github.com/rpggio/diyassist/internal/sqlite"
	"github.com/rpggio/diyassist/internal/storage"
	"github.com/rpggio/diyassist/internal/transport"
)

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	logger, closeLog := newLogger(cfg)
	defer closeLog()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		ServiceName:    "diyassist",
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdownWithTimeout(logger, "tracer", shutdownTracer, cfg.Server.ShutdownTimeout)

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		return err
	}
	defer shutdownWithTimeout(logger, "store", store.Close, cfg.Server.ShutdownTimeout)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	chatAgent, images := buildAgents(cfg, logger)

	projectSvc := project.NewService(store.Projects, logger)
	stepSvc := step.NewService(store.Steps, store.Projects, logger)
	conversationSvc := conversation.NewService(store.Conversations, store.Projects, store.Steps, chatAgent, logger,
		conversation.WithObserver(metrics))

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Conversations: conversationSvc,
			Projects:      projectSvc,
			Steps:         stepSvc,
		},
		Resolver:      store.APIKeys,
		AuthEnabled:   cfg.Auth.Enabled,
		DefaultTenant: cfg.Auth.DefaultTenant,
		TransportMode: cfg.Transport.Mode,
		Version:       version,
		Logger:        logger,
	})

	if cfg.Transport.Mode == "stdio" {
		return runStdio(ctx, logger, mcpServer)
	}

	deps := transport.Deps{
		Conversations:  conversationSvc,
		Projects:       projectSvc,
		Steps:          stepSvc,
		Detector:       agent.NewStaticDetector(nil),
		DefaultTenant:  cfg.Auth.DefaultTenant,
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
		Metrics:        metrics,
		MetricsPage:    metrics.Handler(),
		MCP:            mcp.NewHTTPHandler(mcpServer, logger),
		ServiceName:    "diyassist",
		Logger:         logger,
	}
	if images != nil {
		deps.Images = images
	}
	if cfg.Auth.Enabled {
		deps.Resolver = store.APIKeys
	}
	return runHTTP(ctx, cfg, logger, transport.NewRouter(deps))
}

func runStdio(ctx context.Context, logger *slog.Logger, server *sdkmcp.Server) error {
	logger.Info("starting stdio transport", "auth", "disabled")
	// Run blocks until stdin closes or ctx is canceled.
	if err := server.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("stdio server error", "error", err)
		return err
	}
	return nil
}

func runHTTP(ctx context.Context, cfg config.Config, logger *slog.Logger, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Addr(), "store", cfg.Store.Driver, "agent", cfg.Agent.Provider, "auth", cfg.Auth.Enabled)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}
	return nil
}

func runMigrate(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	logger, closeLog := newLogger(cfg)
	defer closeLog()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdownWithTimeout(logger, "store", store.Close, cfg.Server.ShutdownTimeout)

	logger.Info("schema up to date", "driver", cfg.Store.Driver)
	return nil
}

func runCreateAPIKey(ctx context.Context, tenantID, description string) (string, error) {
	if strings.TrimSpace(tenantID) == "" {
		return "", errors.New("--tenant is required")
	}
	cfg, err := config.Load()
	if err != nil {
		return "", fmt.Errorf("config error: %w", err)
	}
	logger, closeLog := newLogger(cfg)
	defer closeLog()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return "", err
	}
	defer shutdownWithTimeout(logger, "store", store.Close, cfg.Server.ShutdownTimeout)

	token, err := newToken()
	if err != nil {
		return "", err
	}
	if err := store.APIKeys.Create(ctx, tenantID, token, description); err != nil {
		return "", fmt.Errorf("create api key: %w", err)
	}
	logger.Info("api key created", "tenant_id", tenantID)
	return token, nil
}

// openStore opens the configured backend and brings its tables or indexes
// up to date.
func openStore(ctx context.Context, cfg config.Config) (*storage.Store, error) {
	switch cfg.Store.Driver {
	case "mongo":
		client, err := mongostore.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.ConnectTimeout)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.Mongo.Database)
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return mongostore.NewStore(client, db), nil
	default:
		if err := ensureDBDir(cfg.DB.Path); err != nil {
			return nil, fmt.Errorf("prepare database path: %w", err)
		}
		db, err := sqlite.New(cfg.DB.Path)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.RunMigrations(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		return sqlite.NewStore(db), nil
	}
}

// buildAgents returns the chat agent and, when an OpenAI key is present, the
// image generator.
func buildAgents(cfg config.Config, logger *slog.Logger) (conversation.Agent, *agent.ImageGenerator) {
	if cfg.Agent.APIKey == "" {
		return agent.NewEchoAgent(), nil
	}
	client := agent.NewOpenAIClient(cfg.Agent.APIKey, cfg.Agent.BaseURL)
	images := agent.NewImageGenerator(client, cfg.Images.Model, cfg.Images.Size, logger)
	if cfg.Agent.Provider == "openai" {
		return agent.NewOpenAIAgent(client, cfg.Agent.Model, logger), images
	}
	return agent.NewEchoAgent(), images
}

func newToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return "diy_" + hex.EncodeToString(buf), nil
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func shutdownWithTimeout(logger *slog.Logger, name string, fn func(context.Context) error, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Error("shutdown error", "component", name, "error", err)
	}
}

// newLogger builds the process logger. Stdio mode logs to stderr to keep
// stdout clean for JSON-RPC; DIYASSIST_LOG_PATH redirects logs to a
// size-capped file.
func newLogger(cfg config.Config) (*slog.Logger, func()) {
	if cfg.Transport.Mode != "stdio" {
		gin.SetMode(gin.ReleaseMode)
	}

	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == "stdio" {
		logWriter = os.Stderr
	}
	closeFn := func() {}
	if logPath := os.Getenv("DIYASSIST_LOG_PATH"); logPath != "" {
		fileWriter, file, err := newLogFileWriter(logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			logWriter = fileWriter
			closeFn = func() { _ = file.Close() }
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)
	return logger, closeFn
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
