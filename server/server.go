// Package server wires the document store, the auth service and the HTTP
// routes into a runnable API server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"series-tracker/config"
	"series-tracker/handlers"
	"series-tracker/logging"
	"series-tracker/services"
	"series-tracker/store"
)

// Server is the series API
type Server struct {
	cfg     *config.Config
	store   store.Store
	tokens  services.TokenStore
	handler http.Handler
	logger  zerolog.Logger
}

// New opens the configured store and token store and builds the router
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	logger := logging.WithComponent("server")

	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var tokens services.TokenStore
	if cfg.RedisAddr != "" {
		rts, err := services.NewRedisTokenStore(ctx, services.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		logger.Info().Str("addr", cfg.RedisAddr).Int("db", cfg.RedisDB).Msg("using Redis token store")
		tokens = rts
	} else {
		tokens = services.NewMemoryTokenStore()
	}

	auth := services.NewAuthService(st, tokens, services.AuthConfig{
		TokenTTL:                cfg.TokenTTL,
		SignInAttemptsPerMinute: cfg.SignInAttemptsPerMinute,
	})
	series := services.NewSeriesService(st)

	return &Server{
		cfg:     cfg,
		store:   st,
		tokens:  tokens,
		handler: NewRouter(cfg, auth, series),
		logger:  logger,
	}, nil
}

// NewRouter builds the HTTP handler for the API
func NewRouter(cfg *config.Config, auth *services.AuthService, series *services.SeriesService) http.Handler {
	authHandler := handlers.NewAuthHandler(auth)
	seriesHandler := handlers.NewSeriesHandler(series)
	requireAuth := handlers.RequireAuth(auth)

	logRequests := handlers.Logging()
	r := mux.NewRouter()
	r.Use(logRequests)
	// mux skips Use middleware when no route matches
	r.NotFoundHandler = logRequests(http.HandlerFunc(handlers.NotFound))
	r.MethodNotAllowedHandler = logRequests(http.HandlerFunc(handlers.MethodNotAllowed))

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Account routes
	authRoutes := r.PathPrefix("/api/auth").Subrouter()
	authRoutes.Use(httprate.Limit(
		cfg.AuthRateLimit,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"too many requests","code":"rate_limited"}`))
		}),
	))
	authRoutes.HandleFunc("/signup", authHandler.SignUp).Methods(http.MethodPost)
	authRoutes.HandleFunc("/signin", authHandler.SignIn).Methods(http.MethodPost)
	authRoutes.Handle("/signout", requireAuth(http.HandlerFunc(authHandler.SignOut))).Methods(http.MethodPost)

	// Document routes
	docs := r.PathPrefix("/api/collections/{collection}/documents").Subrouter()
	docs.Use(requireAuth)
	docs.HandleFunc("", seriesHandler.List).Methods(http.MethodGet)
	docs.HandleFunc("", seriesHandler.Create).Methods(http.MethodPost)
	docs.HandleFunc("/{id}", seriesHandler.Get).Methods(http.MethodGet)
	docs.HandleFunc("/{id}", seriesHandler.Update).Methods(http.MethodPut)
	docs.HandleFunc("/{id}", seriesHandler.Delete).Methods(http.MethodDelete)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return corsHandler.Handler(r)
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on the configured port until ctx is cancelled, then shuts down
// gracefully and closes the stores.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info().
			Str("addr", httpServer.Addr).
			Str("backend", s.cfg.StoreBackend).
			Msg("starting server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info().Msg("shutting down server")
		return httpServer.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if closeErr := s.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// Close releases the store and token store
func (s *Server) Close() error {
	var errs []error
	if closer, ok := s.tokens.(interface{ Close() error }); ok {
		errs = append(errs, closer.Close())
	}
	errs = append(errs, s.store.Close())
	return errors.Join(errs...)
}
