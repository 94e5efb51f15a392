// Package server initializes and runs the cheat-sheet server.
// It opens the ledger database, selects the storage backend, wires the
// verification pipeline into the HTTP API and runs the gRPC health endpoint
// until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kwarc/cheatsheets/internal/common"
	"github.com/kwarc/cheatsheets/internal/compose"
	"github.com/kwarc/cheatsheets/internal/identity"
	"github.com/kwarc/cheatsheets/internal/logging"
	"github.com/kwarc/cheatsheets/internal/qr"
	"github.com/kwarc/cheatsheets/internal/server/config"
	"github.com/kwarc/cheatsheets/internal/server/repositories/repomanager"
	"github.com/kwarc/cheatsheets/internal/server/rest"
	"github.com/kwarc/cheatsheets/internal/server/services"
	"github.com/kwarc/cheatsheets/internal/storage"
	"github.com/kwarc/cheatsheets/internal/verify"
	"github.com/kwarc/cheatsheets/internal/window"

	gs "github.com/kwarc/cheatsheets/internal/server/grpc"
)

var (
	openDB               = sql.Open
	newRepositoryManager = repomanager.NewPostgresRepositoryManager
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	rest   *rest.RESTServer
	health *gs.HealthServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	db, err := openDB("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := newRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	store, err := newStore(ctx, c, logger)
	if err != nil {
		if !errors.Is(err, common.ErrorStorageNotConfigured) {
			_ = db.Close()
			return nil, fmt.Errorf("storage init error: %w", err)
		}
		// uploads are refused with 500 until storage is configured
		logger.Error(ctx, "storage is not configured", "backend", c.StorageBackend)
		store = nil
	}

	signer, err := newSigner(c)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if signer == nil {
		logger.Warn(ctx, "QR secret is empty, issued sheets carry no QR code and signatures are not checked")
	}

	extractor := verify.NewExtractor(qr.NewDecoder(signer), verify.Limits{
		MaxBytes: c.MaxUploadBytes,
		MaxPages: c.MaxPages,
		Timeout:  c.ExtractionTimeout,
	}, logger)
	gate := window.NewGate(window.Policy{
		StartDay: time.Weekday(c.UploadStartDay),
		EndDay:   time.Weekday(c.UploadEndDay),
	}, nil)
	composer := compose.New(qr.NewEncoder(), logger)

	ss := services.NewSubmissionService(db, rm, store, extractor, gate, logger)
	is := services.NewIssueService(composer, signer, c.SemesterStartTime(), nil, logger)
	as := services.NewArchiveService(db, rm, store, logger)

	rs := rest.NewRESTServer(rest.Options{
		Address:               c.HTTPAddr,
		JWTSecret:             c.JWTSecret,
		TrustInstructorHeader: c.TrustInstructorHeader,
		MaxUploadBytes:        c.MaxUploadBytes,
	}, logger, ss, is, as)

	return &App{
		config: c,
		logger: logger,
		db:     db,
		rest:   rs,
		health: gs.NewHealthServer(c.HealthAddrGRPC, logger),
	}, nil
}

// newStore selects the storage backend.
func newStore(ctx context.Context, c *config.Config, l logging.Logger) (storage.Store, error) {
	switch c.StorageBackend {
	case config.StorageS3:
		return storage.NewS3Store(ctx, storage.S3Config{
			Region:       c.S3Region,
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
			BaseEndpoint: c.S3BaseEndpoint,
			Bucket:       c.S3Bucket,
			KeyPrefix:    c.S3KeyPrefix,
		}, l)
	default:
		return storage.NewLocalStore(c.CheatsheetsDir, l)
	}
}

// newSigner returns nil when no QR secret is configured.
func newSigner(c *config.Config) (*identity.Signer, error) {
	if c.QRSecret == "" {
		return nil, nil
	}
	s, err := identity.NewSigner(c.QRSecret)
	if err != nil {
		return nil, fmt.Errorf("qr signer: %w", err)
	}
	return s, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startRESTServer(ctx context.Context, cancelFunc context.CancelFunc) {
	app.health.SetServing(true)
	defer app.health.SetServing(false)

	if err := app.rest.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.health.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startRESTServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
