package gerzat

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server wraps the HTTP listener around an App.
type Server struct {
	app  *App
	http *http.Server
}

// NewServer builds the router and the listener. It does not start
// accepting connections until Start is called.
func NewServer(app *App) *Server {
	addr := fmt.Sprintf(":%d", app.Cfg.Server.Port)
	return &Server{
		app: app,
		http: &http.Server{
			Addr:              addr,
			Handler:           newRouter(app),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			// WriteTimeout stays unset: /api/stream holds its
			// connection open for the lifetime of the client.
			IdleTimeout: 60 * time.Second,
		},
	}
}

func newRouter(app *App) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: app.Cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/api/bus", app.handleBus)
	r.Get("/api/bus/trip/{tripID}", app.handleBusTrip)
	r.Get("/api/train", app.handleTrain)
	r.Get("/api/board/departures", app.handleBoardDepartures)
	r.Get("/api/board/arrivals", app.handleBoardArrivals)
	r.Get("/api/vehicles", app.handleVehicles)
	r.Get("/api/stream", app.handleStream)
	r.Get("/api/health", app.handleHealth)
	r.Handle("/metrics", app.Metrics.Handler())
	return r
}

// Start begins serving in a goroutine.
func (s *Server) Start() {
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[server] listen error: %v", err)
		}
	}()
	log.Printf("[server] listening on %s", s.http.Addr)
}

// HandleGracefulShutdown blocks until SIGINT or SIGTERM, then drains
// the listener with a 10s deadline.
func (s *Server) HandleGracefulShutdown() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Printf("[server] shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		log.Printf("[server] shutdown error: %v", err)
	} else {
		log.Printf("[server] shut down cleanly")
	}
}
