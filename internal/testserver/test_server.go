// Package testserver runs the whole HTTP stack over in-memory SQLite for
// end-to-end tests.
package testserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/diyassist/internal/agent"
	"github.com/rpggio/diyassist/internal/domain/conversation"
	"github.com/rpggio/diyassist/internal/domain/project"
	"github.com/rpggio/diyassist/internal/domain/step"
	"github.com/rpggio/diyassist/internal/mcp"
	"github.com/rpggio/diyassist/internal/observability"
	"github.com/rpggio/diyassist/internal/sqlite"
	"github.com/rpggio/diyassist/internal/storage"
	"github.com/rpggio/diyassist/internal/transport"
)

// TestServer is a running server plus handles on its internals.
type TestServer struct {
	Server   *httptest.Server
	DB       *sqlite.DB
	Store    *storage.Store
	Metrics  *observability.Metrics
	Token    string
	TenantID string
}

type options struct {
	agent conversation.Agent
}

// Option customizes a TestServer.
type Option func(*options)

// WithAgent replaces the default echo agent.
func WithAgent(a conversation.Agent) Option {
	return func(o *options) { o.agent = a }
}

// New starts a server that authenticates token as tenantID.
func New(t *testing.T, token, tenantID string, opts ...Option) *TestServer {
	t.Helper()

	o := options{agent: agent.NewEchoAgent()}
	for _, opt := range opts {
		opt(&o)
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	store := sqlite.NewStore(db)

	logger := slog.New(slog.DiscardHandler)
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	projectSvc := project.NewService(store.Projects, logger)
	stepSvc := step.NewService(store.Steps, store.Projects, logger)
	conversationSvc := conversation.NewService(store.Conversations, store.Projects, store.Steps, o.agent, logger,
		conversation.WithObserver(metrics))

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Conversations: conversationSvc,
			Projects:      projectSvc,
			Steps:         stepSvc,
		},
		Resolver:      store.APIKeys,
		AuthEnabled:   true,
		TransportMode: "http",
		Logger:        logger,
	})

	router := transport.NewRouter(transport.Deps{
		Conversations: conversationSvc,
		Projects:      projectSvc,
		Steps:         stepSvc,
		Detector:      agent.NewStaticDetector(nil),
		Resolver:      store.APIKeys,
		Metrics:       metrics,
		MetricsPage:   metrics.Handler(),
		MCP:           mcp.NewHTTPHandler(mcpServer, logger),
		Logger:        logger,
	})
	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:   server,
		DB:       db,
		Store:    store,
		Metrics:  metrics,
		Token:    token,
		TenantID: tenantID,
	}

	require.NoError(t, ts.AddAPIKey(token, tenantID))

	t.Cleanup(func() {
		server.Close()
		_ = store.Close(context.Background())
	})

	return ts
}

// AddAPIKey authorizes another token.
func (ts *TestServer) AddAPIKey(token, tenantID string) error {
	return ts.Store.APIKeys.Create(context.Background(), tenantID, token, "test key")
}
