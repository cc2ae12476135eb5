package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/castlemilk/pfinance/insights/internal/auth"
	"github.com/castlemilk/pfinance/insights/internal/config"
	"github.com/castlemilk/pfinance/insights/internal/digest"
	"github.com/castlemilk/pfinance/insights/internal/insights"
	"github.com/castlemilk/pfinance/insights/internal/logger"
	"github.com/castlemilk/pfinance/insights/internal/service"
	"github.com/castlemilk/pfinance/insights/internal/store"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("Server exited")
	}
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	opened, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer opened.Close()
	backend := opened.Store

	if cfg.SeedDemoData || cfg.UseMemoryStore {
		n, err := store.SeedDemoTransactions(ctx, backend, auth.LocalDevUserID, time.Now(),
			insights.NewSeededRandom(cfg.ProjectionSeed))
		if err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
		log.WithFields(logrus.Fields{"user_id": auth.LocalDevUserID, "transactions": n}).Info("Seeded demo transactions")
	}

	interceptors, err := buildInterceptors(ctx, cfg, log)
	if err != nil {
		return err
	}

	insightsService := service.NewInsightsService(backend,
		service.WithLookbackDays(cfg.LookbackDays),
		service.WithProjectionSeed(cfg.ProjectionSeed),
	)

	if cfg.DigestEnabled() {
		runner := digest.NewRunner(insightsService, digest.NewEmailNotifier(cfg.SMTP), cfg.AlertRecipients, log)
		scheduler, err := digest.NewScheduler(cfg.AlertSchedule, runner, log)
		if err != nil {
			return err
		}
		scheduler.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := scheduler.Stop(stopCtx); err != nil {
				log.WithError(err).Warn("Cash-flow digest did not stop cleanly")
			}
		}()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           h2c.NewHandler(newHandler(cfg, insightsService, interceptors), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Port, "env": cfg.Env}).Info("Starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore selects the transaction backend: memory, SQL, then Firestore.
func openStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*store.Opened, error) {
	opened, err := store.Open(ctx, store.OpenOptions{
		Memory:    cfg.UseMemoryStore,
		Driver:    cfg.DBDriver,
		DSN:       cfg.DBConn,
		ProjectID: cfg.ProjectID,
	})
	if err != nil {
		return nil, err
	}
	log.WithField("backend", opened.Backend).Info("Opened transaction store")
	return opened, nil
}

// buildInterceptors orders logging first so every request, including
// rejected ones, carries a request id.
func buildInterceptors(ctx context.Context, cfg *config.Config, log *logrus.Logger) ([]connect.Interceptor, error) {
	interceptors := []connect.Interceptor{
		logger.Interceptor(log),
		auth.DebugAuthInterceptor(cfg.SkipAuth),
	}

	switch {
	case cfg.SkipAuth || (cfg.UseMemoryStore && !cfg.IsProduction()):
		log.Warn("Using mock authentication for local development")
		interceptors = append(interceptors, auth.LocalDevInterceptor())

	case cfg.JWTSecret != "":
		verifier, err := auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer)
		if err != nil {
			return nil, err
		}
		log.Info("Verifying self-issued JWTs")
		interceptors = append(interceptors, auth.AuthInterceptor(verifier))

	default:
		firebaseAuth, err := auth.NewFirebaseAuth(ctx, auth.FirebaseOptions{ProjectID: cfg.ProjectID})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Firebase Auth: %w", err)
		}
		interceptors = append(interceptors, auth.AuthInterceptor(firebaseAuth))
	}
	return interceptors, nil
}

func newHandler(cfg *config.Config, svc *service.InsightsService, interceptors []connect.Interceptor) http.Handler {
	router := mux.NewRouter()

	path, handler := service.NewInsightsServiceHandler(svc, connect.WithInterceptors(interceptors...))
	router.PathPrefix(path).Handler(handler)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Connect-Protocol-Version",
			"Connect-Timeout-Ms",
			"Content-Type",
			"User-Agent",
			"X-User-Agent",
			logger.RequestIDHeader,
			auth.DebugImpersonateHeader,
		},
		ExposedHeaders: []string{
			logger.RequestIDHeader,
		},
		AllowCredentials: true,
	})

	return c.Handler(router)
}
