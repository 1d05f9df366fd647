package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"teledash/internal/cache"
	"teledash/internal/config"
	"teledash/internal/database"
	"teledash/internal/handlers"
	"teledash/internal/metrics"
	"teledash/internal/stats"
)

// Version will be set at build time via -ldflags
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "teledash",
		Short: "Read-only dashboard API over an externally collected telemetry store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("teledash version %s\n", Version)
		},
	}

	root.AddCommand(serveCmd, versionCmd)

	if err := root.Execute(); err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	fmt.Printf("⚙️  Config file: %s\n", config.GetConfigPath())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := database.New(ctx, cfg)
	cancel()
	if err != nil {
		return fmt.Errorf("connect to store: %w", err)
	}
	defer db.Close()
	fmt.Printf("📦 Connected to telemetry store (pool max %d conns)\n", cfg.PoolMaxConns)

	metrics.Init()
	metrics.NewPoolCollector(db.Stat)

	// Redis memoization when configured, single in-process slot otherwise.
	var statsCache cache.Cache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer rc.Close()
		statsCache = rc
		fmt.Printf("🧰 Stats cache: redis (TTL %s)\n", cfg.CacheTTL)
	} else {
		statsCache = cache.NewMemoryCache(cfg.CacheTTL)
		fmt.Printf("🧰 Stats cache: in-memory (TTL %s)\n", cfg.CacheTTL)
	}

	agg := stats.New(db, statsCache, cfg)
	handlers.Version = Version
	h := handlers.New(agg, db)

	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()
	r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "*")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Request ID middleware
	r.Use(func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Header("X-Request-ID", id)
		c.Next()
	})

	r.Use(metrics.Middleware())

	r.GET("/health", h.HealthCheck)
	r.GET("/health/detailed", h.HealthCheckDetailed)
	r.GET("/metrics", metrics.Handler())
	r.GET("/api/stats", h.GetStats)
	r.GET("/api/history", h.GetHistory)

	addr := cfg.Host + ":" + cfg.Port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	if cfg.UseTLS() {
		if _, err := os.Stat(cfg.TLS.Cert); err != nil {
			return fmt.Errorf("TLS certificate file not found: %s", cfg.TLS.Cert)
		}
		if _, err := os.Stat(cfg.TLS.Key); err != nil {
			return fmt.Errorf("TLS private key file not found: %s", cfg.TLS.Key)
		}
		fmt.Printf("🔒 TLS enabled: cert=%s, key=%s\n", cfg.TLS.Cert, cfg.TLS.Key)
		fmt.Printf("🚀 Server running on https://%s\n", addr)
		return srv.ListenAndServeTLS(cfg.TLS.Cert, cfg.TLS.Key)
	}

	fmt.Printf("🚀 Server running on http://%s\n", addr)
	return srv.ListenAndServe()
}
