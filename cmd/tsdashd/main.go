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

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"ts-dashboard/config"
	"ts-dashboard/internal/api"
	"ts-dashboard/internal/auth"
	"ts-dashboard/internal/db"
	"ts-dashboard/internal/gateway"
	"ts-dashboard/internal/logging"
	"ts-dashboard/internal/session"
	"ts-dashboard/internal/source"
	"ts-dashboard/internal/sweeper"
)

var version = "dev"

func main() {
	var (
		configPath  = pflag.StringP("config", "c", os.Getenv("CONFIG_PATH"), "Path to the YAML configuration file")
		demo        = pflag.Bool("demo", false, "Serve built-in demo data instead of the reporting backend")
		showVersion = pflag.BoolP("version", "v", false, "Print the version and exit")
	)
	pflag.Parse()

	if *showVersion {
		fmt.Println("tsdashd", version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %q: %v\n", *configPath, err)
		os.Exit(1)
	}
	if *demo {
		cfg.Source.Mode = config.ModeDemo
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("configuration loaded",
		zap.String("path", *configPath),
		zap.String("mode", cfg.Source.Mode),
		zap.String("version", version))

	loc, err := time.LoadLocation(cfg.Source.Timezone)
	if err != nil {
		logger.Fatal("invalid timezone", zap.String("timezone", cfg.Source.Timezone), zap.Error(err))
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	store := session.NewGormStore(gormDB)

	fixture := source.NewFixture(nil, loc)
	var (
		src    source.Source = fixture
		remote source.Verifier
	)
	if cfg.Source.Mode == config.ModeLive {
		live, err := newLiveSource(cfg.Backend, logger)
		if err != nil {
			logger.Fatal("failed to create backend client", zap.Error(err))
		}
		remote = live
		src = source.WithFallback(live, fixture, logger)
	}

	authn := auth.New(remote, fixture, store, auth.Options{
		DemoMode:     cfg.Source.Mode == config.ModeDemo,
		DemoFallback: cfg.Source.DemoFallback,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if purger, ok := store.(session.Purger); ok {
		sweep := sweeper.NewService(purger,
			time.Duration(cfg.Server.SessionMaxAgeHours)*time.Hour,
			time.Duration(cfg.Server.SessionSweepMinutes)*time.Minute,
			logger)
		go sweep.Run(ctx)
	}

	workspaces := api.NewWorkspaces(src, store, cfg.Backend.PageSize,
		time.Duration(cfg.Server.WorkspaceTTLMinutes)*time.Minute, logger)
	jar := api.NewCookieJar(cfg.Server.SessionKey, cfg.Server.SecureCookies, logger)
	handler := api.NewHandler(authn, src, workspaces, jar, cfg.Source.Mode == config.ModeDemo, logger)
	router := api.NewRouter(handler, api.RouterOptions{
		RateLimit:      rate.Limit(cfg.Server.RateLimitPerSec),
		RateBurst:      cfg.Server.RateLimitBurst,
		LoginRateLimit: rate.Limit(cfg.Server.LoginRateLimitPerSec),
		CacheTTL:       time.Duration(cfg.Server.CacheTTLSeconds) * time.Second,
	}, logger)

	server := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: router,
	}

	go func() {
		logger.Info("HTTP server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received, stopping services")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("HTTP server Shutdown", zap.Error(err))
	}
	logger.Info("server gracefully stopped")
}

func newLiveSource(cfg config.BackendConfig, logger *zap.Logger) (*source.Live, error) {
	httpClient := gateway.NewHTTPClient(cfg.Timeout, cfg.HTTPProxy, logger)

	var transport gateway.Transport
	switch cfg.Transport {
	case config.TransportJSONP:
		transport = gateway.NewJSONPTransport(httpClient, cfg.Timeout, logger)
	default:
		transport = gateway.NewFetchTransport(httpClient)
	}

	client, err := gateway.NewClient(cfg.BaseURL, transport, logger)
	if err != nil {
		return nil, err
	}
	return source.NewLive(client, logger), nil
}
