package receiver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"prefsurvey/internal/logging"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/errgroup"
)

// Config configures the HTTP server.
type Config struct {
	Addr         string
	AllowOrigins string
	BodyLimit    int
	Routing      SheetRouting
	// ShutdownTimeout bounds graceful shutdown once the context ends.
	ShutdownTimeout time.Duration
}

// Server is the receiver HTTP server.
type Server struct {
	app *fiber.App
	cfg Config
	log *logging.Logger
}

// New builds the fiber app around st.
func New(cfg Config, st Appender) *Server {
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = 4 * 1024 * 1024
	}
	if cfg.AllowOrigins == "" {
		cfg.AllowOrigins = "*"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}

	app := fiber.New(fiber.Config{
		BodyLimit:             cfg.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	NewHandler(st, cfg.Routing).RegisterRoutes(app)

	return &Server{
		app: app,
		cfg: cfg,
		log: logging.Get(logging.CategoryReceiver),
	}
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens on cfg.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the app on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("receiver listening on http://%s", ln.Addr())
		return s.app.Listener(ln)
	})
	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("receiver shutting down")
		return s.app.ShutdownWithTimeout(s.cfg.ShutdownTimeout)
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(Reply{Error: err.Error()})
}
