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

	rateli "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"cardami/internal/catalog"
	"cardami/internal/config"
	"cardami/internal/draw"
	"cardami/internal/handler"
	"cardami/internal/logger"
	"cardami/internal/middleware"
	"cardami/internal/service"
)

func main() {
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Encoding:    cfg.LogEncoding,
		Service:     "cardami",
		Env:         cfg.Env,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)
	zap.L().Info("Logger initialized", zap.String("logLevel", cfg.LogLevel))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		zap.L().Fatal("Failed to load card catalog", zap.String("path", cfg.CatalogPath), zap.Error(err))
	}
	profile, err := draw.Profile(cfg.AnimationProfile)
	if err != nil {
		zap.L().Fatal("Invalid animation profile", zap.Error(err))
	}
	engine := draw.NewEngine(cat, draw.Options{Count: cfg.DrawCount, Animation: profile}, nil)
	zap.L().Info("Catalog loaded", zap.Int("cards", cat.Len()), zap.Int("drawCount", cfg.DrawCount))

	deps, err := setupDependencies(ctx, cfg, log)
	if err != nil {
		zap.L().Fatal("Failed to set up dependencies", zap.Error(err))
	}
	defer deps.Close()

	cardsSvc := service.NewCardsService(engine, deps.claims, deps.views, deps.publisher, log)
	gallerySvc := service.NewGalleryService(cat, deps.claims, deps.views, log)
	h := handler.NewHandler(deps.provider, cardsSvc, gallerySvc, handler.Options{
		ResolveTimeout: 5 * time.Second,
		CookieSecure:   cfg.CookieSecure,
	}, log)

	var rateLimitStore rateli.Store
	if deps.redis != nil {
		rateLimitStore = rateli.RedisStore(&rateli.RedisOptions{
			RedisClient: deps.redis,
			Rate:        time.Minute,
			Limit:       cfg.AuthRateLimit,
		})
	} else {
		rateLimitStore = rateli.InMemoryStore(&rateli.InMemoryOptions{
			Rate:  time.Minute,
			Limit: cfg.AuthRateLimit,
		})
	}
	rateLimitMiddleware := rateli.RateLimiter(rateLimitStore, &rateli.Options{
		ErrorHandler: func(c *gin.Context, info rateli.Info) {
			zap.L().Warn("Rate limit exceeded",
				zap.String("clientIP", c.ClientIP()),
				zap.Time("resetTime", info.ResetTime),
				zap.String("path", c.Request.URL.Path),
			)
			c.String(http.StatusTooManyRequests, "Too many requests. Try again in "+time.Until(info.ResetTime).String())
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})

	gin.SetMode(gin.ReleaseMode)
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(middleware.GinZapLogger(log))
	router.Use(gin.Recovery())

	p := ginprometheus.NewPrometheus("gin")

	corsConfig := cors.DefaultConfig()
	if origins := cfg.GetAllowedOrigins(); len(origins) > 0 {
		corsConfig.AllowOrigins = origins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"Location", middleware.RequestIDHeader}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	h.RegisterRoutes(router, rateLimitMiddleware)

	p.Use(router)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zap.L().Info("Starting HTTP server", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("HTTP server listen error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP server forced to shutdown", zap.Error(err))
	}

	zap.L().Info("Server exiting")
}
