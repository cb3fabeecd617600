package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/grpc"

	"github.com/lcalzada-xor/floodctl/internal/adapters/pubsub"
	"github.com/lcalzada-xor/floodctl/internal/adapters/reporting"
	"github.com/lcalzada-xor/floodctl/internal/adapters/statsfile"
	"github.com/lcalzada-xor/floodctl/internal/adapters/storage"
	"github.com/lcalzada-xor/floodctl/internal/adapters/web/handlers"
	"github.com/lcalzada-xor/floodctl/internal/adapters/web/middleware"
	webserver "github.com/lcalzada-xor/floodctl/internal/adapters/web/server"
	"github.com/lcalzada-xor/floodctl/internal/adapters/web/websocket"
	"github.com/lcalzada-xor/floodctl/internal/adapters/webhook"
	"github.com/lcalzada-xor/floodctl/internal/config"
	"github.com/lcalzada-xor/floodctl/internal/core/domain"
	"github.com/lcalzada-xor/floodctl/internal/core/ports"
	"github.com/lcalzada-xor/floodctl/internal/core/services/controller"
	grpcserver "github.com/lcalzada-xor/floodctl/internal/core/services/grpc"
	"github.com/lcalzada-xor/floodctl/internal/core/services/persistence"
	"github.com/lcalzada-xor/floodctl/internal/telemetry"
)

// Application holds the core components of the controller process and
// orchestrates their lifecycle.
type Application struct {
	Config             *config.Config
	Controller         *controller.Controller
	WebServer          *webserver.Server
	GrpcServer         *grpc.Server
	Publisher          *pubsub.Publisher
	Storage            *storage.SQLiteAdapter
	PersistenceManager *persistence.PersistenceManager

	logger *slog.Logger
}

// New creates a new Application instance and bootstraps its components.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &Application{
		Config: cfg,
		logger: logger,
	}

	if err := app.bootstrap(); err != nil {
		app.cleanup()
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}

	return app, nil
}

// bootstrap orchestrates the initialization sequence.
func (app *Application) bootstrap() error {
	// 1. Foundation & Infrastructure
	telemetry.InitMetrics()

	if err := app.initStorage(); err != nil {
		return err
	}
	sink, err := app.initStatsSink()
	if err != nil {
		return err
	}
	if err := app.initPublisher(); err != nil {
		return err
	}

	// 2. Controller and its observers
	var repo ports.VerdictRepository
	if app.Storage != nil {
		repo = app.Storage
	}
	app.PersistenceManager = persistence.NewPersistenceManager(repo, 1000, app.logger)
	if repo == nil {
		app.PersistenceManager.SetEnabled(false)
	}

	// the websocket snapshot reads the controller built right below
	var ctrl *controller.Controller
	ws := websocket.NewWSManager(func() domain.NameSet { return ctrl.Verdict() }, app.Config.AllowedOrigins, app.logger)

	opts := []controller.Option{
		controller.WithLogger(app.logger),
		controller.WithVerdictObserver(ws),
		controller.WithVerdictObserver(app.PersistenceManager),
		controller.WithStatsObserver(ws),
	}
	if app.Publisher != nil {
		opts = append(opts, controller.WithTargetResolver(app.Publisher))
	}

	ctrl, err = controller.New(controller.Config{
		Detection:   app.Config.Detection(),
		StatsPeriod: app.Config.StatsPeriod,
		NodeTag:     app.Config.NodeTag,
	}, sink, opts...)
	if err != nil {
		if sink != nil {
			sink.Close()
		}
		return err
	}
	app.Controller = ctrl

	// 3. Servers
	app.initServers(ws, repo)
	return nil
}

func (app *Application) initStorage() error {
	if app.Config.DBPath == "" {
		app.logger.Info("Verdict history disabled")
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(app.Config.DBPath), 0755); err != nil {
		return fmt.Errorf("failed to create DB directory: %w", err)
	}

	store, err := storage.NewSQLiteAdapter(app.Config.DBPath)
	if err != nil {
		return fmt.Errorf("failed to init verdict storage: %w", err)
	}
	app.Storage = store
	return nil
}

func (app *Application) initStatsSink() (ports.StatsSink, error) {
	if app.Config.StatsFile == "" {
		app.logger.Warn("No statistics file configured, statistics will be dropped")
		return nil, nil
	}
	sink, err := statsfile.Open(app.Config.StatsFile)
	if err != nil {
		app.logger.Warn("Statistics file unavailable, statistics will be dropped", "path", app.Config.StatsFile, "error", err)
		return nil, nil
	}
	app.logger.Info("Writing statistics", "path", sink.Path(), "period", app.Config.StatsPeriod)
	return sink, nil
}

func (app *Application) initPublisher() error {
	if app.Config.PubSubURL == "" {
		return nil
	}
	pub, err := pubsub.NewPublisher(app.Config.PubSubURL, app.logger)
	if err != nil {
		return fmt.Errorf("failed to start notification publisher: %w", err)
	}
	app.Publisher = pub
	return nil
}

func (app *Application) initServers(ws *websocket.WSManager, repo ports.VerdictRepository) {
	targets := func(id domain.MonitorID, callbackURL string) (ports.NotificationTarget, error) {
		return webhook.NewTarget(id, callbackURL, nil)
	}

	app.WebServer = webserver.NewServer(webserver.Options{
		Addr:            app.Config.Addr,
		Verifier:        middleware.NewBcryptVerifier(app.Config.TokenHash),
		ReportRateLimit: app.Config.ReportRateLimit,
	},
		ws,
		handlers.NewControllerHandler(app.Controller, targets, app.logger),
		handlers.NewHistoryHandler(repo, app.Controller, reporting.NewPDFExporter(), app.Config.NodeTag, app.logger),
		app.logger)

	if app.Config.TokenHash == "" {
		app.logger.Warn("API authentication disabled")
	}

	if app.Config.GRPCPort > 0 {
		app.GrpcServer = grpcserver.NewGrpcServer(app.Controller, app.logger)
	}
}

// Run starts the application components and blocks until ctx is cancelled
// or a server fails.
func (app *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app.logger.Info("Starting floodctl components...")

	// history outlives the servers so the last verdicts still get saved
	persistCtx, stopPersistence := context.WithCancel(context.Background())
	defer stopPersistence()
	app.PersistenceManager.Start(persistCtx)

	errChan := make(chan error, 2)

	go func() {
		if err := app.WebServer.Run(ctx); err != nil {
			errChan <- fmt.Errorf("web server error: %w", err)
		}
	}()

	if app.GrpcServer != nil {
		go func() {
			lis, err := net.Listen("tcp", fmt.Sprintf(":%d", app.Config.GRPCPort))
			if err != nil {
				errChan <- fmt.Errorf("grpc listen error: %w", err)
				return
			}
			app.logger.Info("gRPC Server listening", "port", app.Config.GRPCPort)

			go func() {
				<-ctx.Done()
				app.GrpcServer.GracefulStop()
			}()

			if err := app.GrpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errChan <- fmt.Errorf("grpc server error: %w", err)
			}
		}()
	}

	app.logger.Info("floodctl ready. Press Ctrl+C to terminate.")

	var runErr error
	select {
	case <-ctx.Done():
		app.logger.Info("Termination signal received")
	case runErr = <-errChan:
		cancel()
	}

	var shutdownErr error
	if app.Controller != nil {
		shutdownErr = app.Controller.Shutdown()
	}
	stopPersistence()
	select {
	case <-app.PersistenceManager.Done():
	case <-time.After(15 * time.Second):
		app.logger.Warn("Timed out waiting for verdict history flush")
	}

	if err := errors.Join(shutdownErr, app.cleanup()); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func (app *Application) cleanup() error {
	app.logger.Info("Cleaning up resources...")

	var errs []error
	if app.Controller != nil {
		errs = append(errs, app.Controller.Shutdown())
	}
	if app.Publisher != nil {
		errs = append(errs, app.Publisher.Close())
	}
	if app.Storage != nil {
		errs = append(errs, app.Storage.Close())
	}
	return errors.Join(errs...)
}
