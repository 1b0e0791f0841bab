// Package server wires the chat server together: stores, realm registry,
// dispatcher, the chat listener and the admin endpoints, and runs them until
// a signal arrives.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/realmchat/internal/logging"
	"github.com/dmitrijs2005/realmchat/internal/server/admin"
	"github.com/dmitrijs2005/realmchat/internal/server/config"
	"github.com/dmitrijs2005/realmchat/internal/server/dispatch"
	"github.com/dmitrijs2005/realmchat/internal/server/identity"
	"github.com/dmitrijs2005/realmchat/internal/server/mailbox"
	"github.com/dmitrijs2005/realmchat/internal/server/metrics"
	"github.com/dmitrijs2005/realmchat/internal/server/realms"
	"github.com/dmitrijs2005/realmchat/internal/server/storage"
	"github.com/dmitrijs2005/realmchat/internal/server/tcp"

	gs "github.com/dmitrijs2005/realmchat/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	registry *prometheus.Registry

	users    *identity.Store
	realms   *realms.Registry
	chat     *tcp.Server
	health   *gs.HealthServer
	adminWeb *admin.HTTPServer
}

// NewApp builds every component from c. Logs go to w.
func NewApp(ctx context.Context, c *config.Config, w io.Writer) (*App, error) {
	logger, err := logging.New(w, logging.Options{Backend: c.LogBackend, Format: c.LogFormat, Level: c.LogLevel})
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	files, err := newFileStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("file storage init error: %w", err)
	}

	users := identity.NewStore([]byte(c.SecretKey))
	if c.SeedUsers {
		if err := users.Seed(ctx, identity.DefaultSeeds()...); err != nil {
			return nil, fmt.Errorf("seed users: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	app := &App{config: c, logger: logger, registry: reg, users: users}

	opts := []realms.Option{realms.WithMetrics(collector)}
	if c.AdminGRPCAddr != "" {
		app.health = gs.NewHealthServer(c.AdminGRPCAddr, logger)
		opts = append(opts, realms.WithStatusReporter(app.health))
	}
	app.realms = realms.NewRegistry(realms.Config{
		LocalName:      c.RealmName,
		DialTimeout:    c.RealmDialTimeout,
		RequestTimeout: c.RealmRequestTimeout,
	}, logger.With("module", "realms"), opts...)

	mail := mailbox.NewStore(users, files)
	d := dispatch.New(users, mail, app.realms, logger.With("module", "dispatch"), collector)

	app.chat = tcp.NewServer(tcp.Config{
		Address:       c.ListenAddr,
		MaxFrameBytes: c.MaxFrameBytes,
		RateLimit:     c.RateLimit,
		RateBurst:     c.RateBurst,
	}, d, logger, collector)

	if c.AdminHTTPAddr != "" {
		app.adminWeb = admin.NewHTTPServer(c.AdminHTTPAddr, reg, logger)
	}

	return app, nil
}

func newFileStore(ctx context.Context, c *config.Config) (storage.Store, error) {
	switch c.FileStorage {
	case config.StorageDisk, "":
		return storage.NewDiskStore(c.FilesDir)
	case config.StorageS3:
		return storage.NewS3Store(ctx, storage.S3Config{
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		})
	case config.StorageMemory:
		return storage.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown file storage %q", c.FileStorage)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) func() {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigs:
			cancelFunc()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

// Run serves until ctx is cancelled, a signal arrives, or one of the
// listeners fails. Realm links are stopped before it returns.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "users", app.users.Count())

	stopSignals := app.initSignalHandler(cancelFunc)
	defer stopSignals()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return app.chat.Run(gctx) })
	if app.health != nil {
		g.Go(func() error { return app.health.Run(gctx) })
	}
	if app.adminWeb != nil {
		g.Go(func() error { return app.adminWeb.Run(gctx) })
	}

	err := g.Wait()
	app.realms.Close(context.Background())

	if err != nil {
		app.logger.Error(ctx, "app stopped with error", "error", err)
		return err
	}
	app.logger.Info(ctx, "App stopped")
	return nil
}
