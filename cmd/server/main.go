package main

import (
	"context"

	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/linemk/digital-market/internal/app"
	"github.com/linemk/digital-market/internal/app/handlers"
	"github.com/linemk/digital-market/internal/config"
	"github.com/linemk/digital-market/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/digital-market/internal/lib/logger"
	"github.com/linemk/digital-market/internal/lib/logger/handlers/urllog"
	"github.com/linemk/digital-market/internal/payment"
	"github.com/linemk/digital-market/internal/service"
	"github.com/linemk/digital-market/internal/storage"
	"github.com/pkg/errors"
)

func main() {
	// загрузка конфигурации
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	// загружаем объект приложения, конфигом и подключением к БД
	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.DB.Close()

	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	// реализация слоев по работе с БД по каждому направлению
	userRepo := storage.NewUserRepository(application.DB)
	productRepo := storage.NewProductRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)
	itemRepo := storage.NewOrderItemRepository(application.DB)

	// решение об исходе оплаты: взвешенно-случайное, вероятность из конфига
	decider := payment.NewRandomDecider(application.Config.Payment.SuccessRate)

	authService := service.NewAuthService(application.Logger, userRepo, time.Duration(application.Config.JWT.TokenTTL)*time.Minute)
	settleService := service.NewSettleService(application.Logger, orderRepo, decider)
	orderService := service.NewOrderService(application.Logger, application.DB, userRepo, productRepo, orderRepo, itemRepo, settleService)
	downloadService := service.NewDownloadService(application.Logger, userRepo, orderRepo, itemRepo)
	productService := service.NewProductService(application.Logger, userRepo, productRepo)

	// эндпоинт для аутентификации
	router.Post("/api/auth", handlers.AuthHandler(application.Logger, authService))

	router.Group(func(r chi.Router) {
		jwtMW := jwtmiddleware.NewJWTMiddleware()
		r.Use(jwtMW)
		// заказы: создание со снимком цен и немедленным расчётом, просмотр, список
		r.Post("/api/orders", handlers.CreateOrderHandler(application.Logger, orderService))
		r.Get("/api/orders", handlers.ListOrdersHandler(application.Logger, orderService))
		r.Get("/api/orders/{orderID}", handlers.GetOrderHandler(application.Logger, orderService))
		// скачивание позиции заказа с учётом квоты
		r.Post("/api/orders/{orderID}/items/{itemID}/download", handlers.DownloadHandler(application.Logger, downloadService))
		// управление каталогом (доступ через предикаты auth)
		r.Post("/api/products", handlers.CreateProductHandler(application.Logger, productService))
		r.Get("/api/products/{productID}", handlers.GetProductHandler(application.Logger, productService))
		r.Put("/api/products/{productID}", handlers.UpdateProductHandler(application.Logger, productService))
		r.Delete("/api/products/{productID}", handlers.DeleteProductHandler(application.Logger, productService))
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}
