// Command seed writes demo transactions into the configured store and,
// when API_URL is set, checks that the running service finds patterns in
// them. RESET_USER=true deletes the user's records before seeding.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"connectrpc.com/connect"
	"github.com/castlemilk/pfinance/insights/internal/auth"
	"github.com/castlemilk/pfinance/insights/internal/config"
	"github.com/castlemilk/pfinance/insights/internal/insights"
	"github.com/castlemilk/pfinance/insights/internal/logger"
	"github.com/castlemilk/pfinance/insights/internal/service"
	"github.com/castlemilk/pfinance/insights/internal/store"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	log := logger.New(cfg.LogLevel)

	userID := os.Getenv("USER_ID")
	if userID == "" {
		userID = auth.LocalDevUserID
	}
	reset, err := strconv.ParseBool(getEnv("RESET_USER", "false"))
	if err != nil {
		log.WithError(err).Fatal("RESET_USER must be a boolean")
	}

	ctx := context.Background()
	opened, err := store.Open(ctx, store.OpenOptions{
		Driver:    cfg.DBDriver,
		DSN:       cfg.DBConn,
		ProjectID: cfg.ProjectID,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to open store")
	}
	defer opened.Close()

	n, err := seedUser(ctx, opened.Store, userID, reset, time.Now(), insights.NewSeededRandom(cfg.ProjectionSeed))
	if err != nil {
		log.WithError(err).Fatal("Failed to seed")
	}
	log.WithFields(logrus.Fields{
		"user_id":      userID,
		"backend":      opened.Backend,
		"reset":        reset,
		"transactions": n,
	}).Info("Seeded demo transactions")

	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		return
	}
	if err := verify(ctx, apiURL, os.Getenv("AUTH_TOKEN"), userID); err != nil {
		log.WithError(err).Fatal("Verification failed")
	}
	log.Info("Verified seeded data through the API")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// seedUser writes the demo ledger for userID. With reset, the user's
// existing records are deleted first.
func seedUser(ctx context.Context, w store.TransactionWriter, userID string, reset bool, now time.Time, rnd insights.RandomSource) (int, error) {
	if reset {
		if err := w.DeleteUser(ctx, userID); err != nil {
			return 0, fmt.Errorf("failed to reset user %s: %w", userID, err)
		}
	}
	return store.SeedDemoTransactions(ctx, w, userID, now, rnd)
}

// authInterceptor attaches a bearer token to every call.
func authInterceptor(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			req.Header().Set("Authorization", "Bearer "+token)
			return next(ctx, req)
		}
	}
}

// verify asks the service for the user's insights and fails when nothing
// recurring was found.
func verify(ctx context.Context, apiURL, token, userID string) error {
	var opts []connect.ClientOption
	if token != "" {
		opts = append(opts, connect.WithInterceptors(authInterceptor(token)))
	}
	client := service.NewInsightsClient(http.DefaultClient, apiURL, opts...)

	resp, err := client.GetInsights(ctx, connect.NewRequest(&service.GetInsightsRequest{
		Window: service.Window{UserID: userID},
	}))
	if err != nil {
		return fmt.Errorf("failed to get insights: %w", err)
	}
	if len(resp.Msg.Patterns) == 0 {
		return fmt.Errorf("no recurring patterns found for user %s", userID)
	}
	return nil
}
