package daemon

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/v4ex/minex/internal/api"
	"github.com/v4ex/minex/internal/auth"
	_ "github.com/v4ex/minex/internal/infra/metrics" // Register Prometheus metrics
	"github.com/v4ex/minex/internal/infra/schema"
	"github.com/v4ex/minex/internal/infra/sqlite"
	"github.com/v4ex/minex/internal/mining"
)

// Daemon is the core minex runtime. It wires together all services.
type Daemon struct {
	Config     Config
	Store      *sqlite.Store
	Dispatcher *mining.Dispatcher
	Server     *api.Server
	cancel     context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	dir := cfg.Storage.Dir
	if dir == "" {
		dir = minexHome()
	}

	store, err := sqlite.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	dispatcher := mining.NewDispatcher(store, schema.NewService())

	authenticator := &auth.StaticAuthenticator{Tokens: cfg.Auth.Tokens}
	roles := &auth.StaticRoles{Roles: roleTable(cfg.Auth.Roles)}

	server := api.NewServer(dispatcher, authenticator, roles, cfg.RoleCacheTTL())
	if cfg.Telemetry.Prometheus {
		server.EnableMetrics()
	}

	return &Daemon{
		Config:     cfg,
		Store:      store,
		Dispatcher: dispatcher,
		Server:     server,
	}, nil
}

func roleTable(raw map[string][]string) map[string][]auth.Role {
	table := make(map[string][]auth.Role, len(raw))
	for sub, names := range raw {
		roles := make([]auth.Role, 0, len(names))
		for _, n := range names {
			roles = append(roles, auth.Role(n))
		}
		table[sub] = roles
	}
	return table
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		_ = httpServer.Shutdown(shutdownCtx)
		_ = d.Store.Close()
	}()

	fmt.Printf("minex serving on http://%s\n", addr)
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close stops the daemon.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
}
