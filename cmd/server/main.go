package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/swiftkart/storefront/internal/cache"
	"github.com/swiftkart/storefront/internal/config"
	"github.com/swiftkart/storefront/internal/docstore"
	"github.com/swiftkart/storefront/internal/handlers"
	"github.com/swiftkart/storefront/internal/httpserver"
	"github.com/swiftkart/storefront/internal/logging"
	"github.com/swiftkart/storefront/internal/models"
	"github.com/swiftkart/storefront/internal/notify"
	cartsvc "github.com/swiftkart/storefront/internal/service/cart"
	ordersvc "github.com/swiftkart/storefront/internal/service/order"
)

func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")

	logger := logging.New(cfg.LogLevel)

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	store, err := docstore.NewGormStore(db)
	if err != nil {
		log.Fatalf("init document store: %v", err)
	}

	var sink notify.Sink = notify.Nop{}
	var kafkaSink *notify.KafkaSink
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink = notify.NewKafkaSink(cfg.KafkaBrokers)
		sink = kafkaSink
	} else {
		logger.Warn("KAFKA_BROKERS not set, notifications disabled")
	}

	orders := ordersvc.NewService(
		store,
		cache.New[models.Order](cfg.CacheTTL),
		cache.New[[]models.Order](cfg.CacheTTL),
		sink,
	)
	carts := cartsvc.NewService(store)

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), httpserver.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		CartHandler:  &handlers.CartHandler{Svc: carts, JWTSecret: cfg.JWTSecret},
		OrderHandler: &handlers.OrderHandler{Svc: orders, JWTSecret: cfg.JWTSecret},
		JWTSecret:    cfg.JWTSecret,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.ServerPort, "service", cfg.ServiceName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if kafkaSink != nil {
		if err := kafkaSink.Close(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
