package application

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eugenenazirov/table-seating/internal/allocation"
	"github.com/eugenenazirov/table-seating/internal/api"
	"github.com/eugenenazirov/table-seating/internal/config"
	"github.com/eugenenazirov/table-seating/internal/console"
	"github.com/eugenenazirov/table-seating/internal/eventstate"
	"github.com/eugenenazirov/table-seating/internal/invoice"
	"github.com/eugenenazirov/table-seating/internal/registry"
	"github.com/eugenenazirov/table-seating/internal/report"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	registry  *registry.Registry
	allocator allocation.Allocator
	handler   *api.Handler
	router    http.Handler
	logger    *zap.Logger
	server    *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	reg, err := registry.New(cfg.TableCapacities)
	if err != nil {
		return nil, fmt.Errorf("failed to seed table registry: %w", err)
	}

	alloc := allocation.New(allocation.WithLogger(logger.Named("allocation")))
	handler := api.NewHandler(alloc, reg,
		api.WithEventState(eventstate.New(cfg.TableCapacities)),
		api.WithInvoiceStore(invoice.NewStore(cfg.InvoiceDir)),
	)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithMutationRateLimit(cfg.MutationRateLimitRPS, cfg.MutationRateLimitBurst),
	)

	return &App{
		registry:  reg,
		allocator: alloc,
		handler:   handler,
		router:    apiRouter,
		logger:    logger,
		server:    NewServer(cfg, BuildRootHandler(apiRouter, reg)),
	}, nil
}

// NewConsole wires a registry and allocator seeded from cfg into an
// interactive console session. Shortfall warnings are already printed to the
// operator, so the allocator only logs errors while a console is attached.
func NewConsole(cfg config.Config, logger *zap.Logger, in io.Reader, out io.Writer) (*console.Session, error) {
	reg, err := registry.New(cfg.TableCapacities)
	if err != nil {
		return nil, fmt.Errorf("failed to seed table registry: %w", err)
	}
	quiet := logger.WithOptions(zap.IncreaseLevel(zapcore.ErrorLevel))
	alloc := allocation.New(allocation.WithLogger(quiet.Named("allocation")))
	return console.New(in, out, reg, alloc, logger.Named("console")), nil
}

// BuildRootHandler routes API requests and serves the plain-text table
// listing at the root path.
func BuildRootHandler(apiHandler http.Handler, tables report.Lister) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_ = report.Write(w, report.Render(tables))
	}))

	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening",
			zap.String("addr", a.server.Addr),
			zap.Int("tables", a.registry.Len()),
			zap.Int("capacity", a.registry.TotalCapacity()),
		)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}
