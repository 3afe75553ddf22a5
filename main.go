package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"civicreport/config"
	"civicreport/handlers"
	"civicreport/logging"
	"civicreport/metrics"
	"civicreport/middleware"
	"civicreport/photo"
	"civicreport/rabbitmq"
	"civicreport/service"
	ws "civicreport/websocket"

	"github.com/apex/log"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Infof("No .env file loaded, using system environment variables")
	}

	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	gin.SetMode(cfg.GinMode)
	metrics.Register()

	var normalizer service.PhotoNormalizer
	if cfg.PhotoNormalize {
		normalizer = photo.NewNormalizer(cfg.PhotoMaxDimension)
	}

	hub := ws.NewHub()
	svc := service.NewService(cfg.MaxPhotoBytes, normalizer, metrics.Sink{}, hub)

	var publisher *rabbitmq.Publisher
	if cfg.AMQPEnabled() {
		p, err := rabbitmq.NewPublisher(cfg.GetAMQPURL(), cfg.RabbitMQExchange)
		if err != nil {
			log.Warnf("Failed to initialize RabbitMQ publisher: %v", err)
			log.Warnf("Report events will not be published. Continuing without RabbitMQ...")
		} else {
			publisher = p
			svc.AddSink(publisher)
			log.Infof("RabbitMQ publisher initialized: exchange=%s", publisher.Exchange())
		}
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go hub.Run(ctx)

	h := handlers.NewHandlers(svc, hub)
	router := setupRouter(cfg, h)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Infof("Starting HTTP server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}
	stop()

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Errorf("Failed to close RabbitMQ publisher: %v", err)
		} else {
			log.Info("RabbitMQ publisher closed successfully")
		}
	}

	log.Info("Server exited")
}

func setupRouter(cfg *config.Config, h *handlers.Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/reports/listen"})))

	h.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
