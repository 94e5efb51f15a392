// Package rest exposes the cheat-sheet API over HTTP.
package rest

import (
	"context"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/kwarc/cheatsheets/internal/logging"
	"github.com/kwarc/cheatsheets/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

// multipart framing and form fields on top of the document itself
const bodySlack = 1 << 20

// Options configures the HTTP API.
type Options struct {
	Address               string
	JWTSecret             string
	TrustInstructorHeader bool
	MaxUploadBytes        int64
}

type RESTServer struct {
	opts        Options
	app         *fiber.App
	submissions *services.SubmissionService
	issue       *services.IssueService
	archive     *services.ArchiveService
	logger      logging.Logger
	jwtSecret   []byte
}

func NewRESTServer(opts Options, l logging.Logger, ss *services.SubmissionService, is *services.IssueService, as *services.ArchiveService) *RESTServer {
	s := &RESTServer{
		opts:        opts,
		submissions: ss,
		issue:       is,
		archive:     as,
		logger:      l.With("module", "rest_server"),
		jwtSecret:   []byte(opts.JWTSecret),
	}

	bodyLimit := int(opts.MaxUploadBytes)*2 + bodySlack
	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit,
		ErrorHandler:          s.errorHandler,
	})

	s.app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	s.app.Use(requestID())
	s.app.Use(s.accessLog())

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := s.app.Group("/api/cheatsheet", s.authenticate)
	api.Post("/upload", s.handleUpload)
	api.Post("/create", s.handleCreate)
	api.Get("/list", s.handleList)
	api.Get("/file/:checksum", s.handleFile)

	return s
}

// App returns the underlying fiber application.
func (s *RESTServer) App() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled.
func (s *RESTServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *RESTServer) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.app.ShutdownWithContext(sctx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown", "error", err)
		}
		// Listener may not have been handed to the server yet
		_ = ln.Close()
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", ln.Addr().String())
	return s.app.Listener(ln)
}
