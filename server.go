package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lazypandaa/connect/api/middleware"
	"github.com/lazypandaa/connect/api/routes"
	"github.com/lazypandaa/connect/config"
	"github.com/lazypandaa/connect/db"
	"github.com/lazypandaa/connect/logger"
	"github.com/lazypandaa/connect/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	// .env необязателен
	_ = godotenv.Load()

	if err := config.LoadConfig(configPath); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}
	conf := config.AppConfig

	if err := logger.Init(conf.Logs.Level, conf.Logs.Encoding); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to init logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.L()

	if err := run(conf); err != nil {
		log.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(conf *config.ConfigSchema) error {
	log := logger.L()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.ConnectDB(); err != nil {
		return fmt.Errorf("failed to connect to the database: %w", err)
	}
	defer db.Close()

	services.InitTokens(conf.Auth.JWTSecret, conf.Auth.TokenTTL)

	if conf.Redis.Enabled {
		if err := services.InitRedis(); err != nil {
			// без Redis лента читается напрямую из базы
			log.Warn("feed cache disabled", zap.Error(err))
		} else {
			defer services.CloseRedis()
		}
	}

	if conf.RabbitMQ.URL != "" {
		rabbit, err := services.InitRabbitMQ(conf.RabbitMQ.URL, conf.RabbitMQ.Exchange)
		if err != nil {
			return err
		}
		defer rabbit.Close()

		hostname, _ := os.Hostname()
		queue := fmt.Sprintf("%s.%s.%d", conf.RabbitMQ.Queue, hostname, os.Getpid())
		if err = rabbit.StartConsumer(ctx, queue, services.GlobalWSConnManager); err != nil {
			return err
		}
		services.SetNotifier(rabbit)
	}

	if _, err := services.StartTokenCleanup(ctx, conf.Cleanup.Schedule, services.Tokens); err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(logger.GinLogger())
	router.Use(gin.Recovery())
	router.Use(middleware.PrometheusMiddleware("connekta"))
	router.Use(middleware.CORS(conf.CORS.AllowedOrigins))

	var limiter *middleware.IPRateLimiter
	if conf.Auth.RateLimit > 0 {
		limiter = middleware.NewIPRateLimiter(conf.Auth.RateLimit, conf.Auth.RateBurst)
	}
	routes.PublicApi(router, limiter)

	srv := &http.Server{
		Addr:              conf.ListenAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server...", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
