package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/datachat/console/internal/api"
	"github.com/datachat/console/internal/apiclient"
	"github.com/datachat/console/internal/config"
	"github.com/datachat/console/internal/logger"
	"github.com/datachat/console/internal/session"
	"github.com/datachat/console/internal/shell"
	"github.com/datachat/console/internal/storage"
	"github.com/datachat/console/internal/web"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	api.ShowErrorDetails = cfg.Log.Level == "debug" || cfg.Log.Level == "trace"

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Error("failed to create directories: ", err)
		os.Exit(1)
	}

	client := apiclient.New(apiclient.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.GetAPITimeout(),
	})
	probeAPI(client)

	stagedFiles, err := storage.NewLocalStore(cfg.Storage.UploadsDirectory)
	if err != nil {
		logger.Error("failed to initialize staging store: ", err)
		os.Exit(1)
	}

	sessions := session.NewManager(func() *shell.App {
		return shell.New(client, shell.Options{Suggestions: cfg.Chat.Suggestions})
	}, cfg.Session.MaxSessions)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionTimeout := time.Duration(cfg.Session.TimeoutMinutes) * time.Minute
	cleanupInterval := time.Duration(cfg.Session.CleanupIntervalMinutes) * time.Minute
	go sessions.RunCleanup(ctx, cleanupInterval, sessionTimeout)

	// Staged files outlive their session only if a release was missed.
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := stagedFiles.CleanupOlderThan(sessionTimeout); n > 0 {
					logger.WithFields(logrus.Fields{"count": n}).Info("removed stale staged files")
				}
			}
		}
	}()

	renderer, err := web.NewRenderer()
	if err != nil {
		logger.Error("failed to parse templates: ", err)
		os.Exit(1)
	}

	e := echo.New()
	e.HideBanner = true
	api.SetupMiddleware(e, renderer)

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.Server.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return strings.HasPrefix(path, "/static/") || path == "/health" || path == "/ws"
		},
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Warn("request")
			} else {
				entry.Info("request")
			}
			return nil
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	if cfg.Server.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: cfg.Server.CompressionLevel,
			Skipper: func(c echo.Context) bool {
				return c.Request().URL.Path == "/ws"
			},
		}))
	}

	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}

	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Sessions: sessions,
		Store:    stagedFiles,
		Remote:   client,
		Version:  Version,
	}))

	if web.HasEmbeddedFiles() {
		if err := web.RegisterStaticRoutes(e); err != nil {
			logger.Warn("failed to register static routes: ", err)
		}
	}

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Structured Data Chat Console                    ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", *configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  API:       %-46s║\n", cfg.API.BaseURL)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	go func() {
		if err := e.StartServer(s); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped: ", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown: ", err)
	}
	sessions.Close()
}

// defaultConfigPath puts the config next to the executable.
func defaultConfigPath() string {
	exePath, err := os.Executable()
	if err != nil {
		return "datachat.yaml"
	}
	return filepath.Join(filepath.Dir(exePath), "datachat.yaml")
}

// probeAPI logs the remote API's health. An unreachable API is not fatal.
func probeAPI(client *apiclient.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		logger.WithFields(logrus.Fields{"api": client.BaseURL, "error": err}).Warn("structured data API is not reachable")
		return
	}
	entry := logger.WithFields(logrus.Fields{
		"api":      client.BaseURL,
		"status":   health.Status,
		"database": health.Database,
		"groq_api": health.GroqAPI,
	})
	if !health.Healthy() {
		entry.Warn("structured data API reports degraded health")
		return
	}
	entry.Info("structured data API is healthy")
}
