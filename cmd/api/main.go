package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/auth"
	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/config"
	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/httpapi"
	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/market"
	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/obs"
	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/session"
	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/stream"
)

var (
	version = "2.0.0"
	commit  = "dev"
)

func main() {
	// Инициализация observability (регистрация метрик, JSON-логгер и т.п.)
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg := config.MustLoad()

	credentials := auth.NewCredentialStore()
	seedUsers(credentials, cfg.Auth)

	tokens, err := auth.NewTokenService(cfg.Auth.Secret,
		auth.WithIssuer(cfg.Auth.Issuer),
		auth.WithAccessTTL(cfg.Auth.AccessTTL),
		auth.WithRefreshTTL(cfg.Auth.RefreshTTL),
	)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	simCfg := market.SimConfig{
		MaxChangePercent:  cfg.Market.MaxChangePercent,
		DefaultVolatility: cfg.Market.DefaultVolatility,
	}

	var sessionOpts []session.Option
	if cfg.Market.Seed != 0 {
		sessionOpts = append(sessionOpts, session.WithSeed(cfg.Market.Seed))
	}

	sessions := session.NewManager(tokens, session.Config{
		MaxPerUser:      cfg.Session.MaxPerUser,
		ActivityTimeout: cfg.Session.ActivityTimeout,
	}, simCfg, sessionOpts...)

	sweeper := session.NewSweeper(sessions, cfg.Session.CleanupInterval)
	sweeper.Start()

	events := stream.New()
	simulator := market.NewSimulator(sessions, events.Publish, cfg.Market.BaseInterval)
	simulator.Start()

	api := httpapi.New(httpapi.Options{
		Credentials: credentials,
		Tokens:      tokens,
		Sessions:    sessions,
		Stream:      events,
		Version:     version,
		Production:  cfg.App.IsProduction(),
		RateBurst:   cfg.Server.RateBurst,
		RatePerSec:  cfg.Server.RatePerSecond,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           api.Handler(), // уже обёрнут метриками в httpapi
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	log.Printf("Starting %s %s on %s", cfg.App.Name, version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	_ = srv.Shutdown(ctx)
	simulator.Stop()
	sweeper.Stop()
	log.Println("Stopped")
}

func seedUsers(store *auth.CredentialStore, cfg config.AuthConfig) {
	seeds := []struct {
		username string
		password string
		role     auth.Role
	}{
		{"admin", cfg.AdminPassword, auth.RoleAdmin},
		{"controller", cfg.ControllerPassword, auth.RoleController},
		{"viewer", cfg.ViewerPassword, auth.RoleViewer},
	}
	for _, s := range seeds {
		if _, err := store.ProvisionPassword(s.username, s.password, s.role); err != nil {
			log.Fatalf("seed user %s: %v", s.username, err)
		}
	}
}
