package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/aididalam/tasktrack/internal/broadcast"
	"github.com/aididalam/tasktrack/internal/config"
	v1 "github.com/aididalam/tasktrack/internal/delivery/http/v1"
	"github.com/aididalam/tasktrack/internal/services"
	"github.com/aididalam/tasktrack/internal/storage/postgres"
)

func MustListenAndServeHTTP() {
	cfg := config.Global()
	if cfg.Env != config.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	httpCfg := cfg.HTTP

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	registerRoutes(router)

	server := &http.Server{
		Addr:    net.JoinHostPort(httpCfg.Host, httpCfg.Port),
		Handler: router,
	}

	go func() {
		globalLogger.Info().
			Str("host", httpCfg.Host).
			Str("port", httpCfg.Port).
			Msg("setting up http server")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			globalLogger.Error().
				Err(err).
				Msg("failed to listen and serve http")
			panic(err)
		}
	}()

	// Wait for the interrupt signal to gracefully
	// shut down the server with a timeout.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	globalLogger.Info().
		Msg("shutting down http server")

	ctx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(ctx)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to shutdown http server")
		panic(err)
	}
	globalLogger.Info().Msg("shut down http server")
}

func registerRoutes(router gin.IRouter) {
	cfg := config.Global()

	authService := services.NewAuthService(
		globalLogger,
		globalPostgresPool,
		cfg.JWT.Issuer,
		[]byte(cfg.JWT.SigningKey),
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
	)
	sessionService := services.NewSessionService(globalLogger, globalPostgresPool)

	taskRepository := postgres.NewTaskRepository(globalLogger, globalPostgresPool)
	filterStore := postgres.NewFilterStore(globalLogger, globalPostgresPool)

	var redisClient broadcast.Client
	if globalRedisClient != nil {
		redisClient = globalRedisClient
	}
	broadcaster := broadcast.New(globalLogger, redisClient, cfg.Redis.Channel)

	taskService := services.NewTaskService(
		globalLogger,
		taskRepository,
		filterStore,
		broadcaster,
	)

	v1Handler := v1.New(
		globalLogger,
		authService,
		sessionService,
		taskService,
	)

	router = router.Group("/api/v1")
	router.POST("/register", v1Handler.HandleRegister)
	router.POST("/login", v1Handler.HandleLogin)
	router.POST("/refresh", v1Handler.HandleRefresh)

	authenticated := router.Group("/", v1Handler.HandleAuthMiddleware)
	authenticated.POST("/logout", v1Handler.HandleLogout)
	authenticated.GET("/me", v1Handler.HandleMe)

	tasks := authenticated.Group("/tasks")
	tasks.GET("", v1Handler.HandleListTasks)
	tasks.POST("", v1Handler.HandleCreateTask)
	tasks.PUT("/:id", v1Handler.HandleUpdateTask)
	tasks.DELETE("/:id", v1Handler.HandleDeleteTask)
}
