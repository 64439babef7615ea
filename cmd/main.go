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

	_ "paycore/docs"
	"paycore/internal/caching"
	"paycore/internal/config"
	"paycore/internal/handlers"
	"paycore/internal/jobs/background"
	"paycore/internal/middleware"
	"paycore/internal/repositories"
	"paycore/internal/services"
	"paycore/pkg/database"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"
)

const version = "1.0.0"

//go:generate swag init -g cmd/main.go -d ../ -o ../docs --parseInternal

//	@title						paycore API
//	@version					1.0.0
//	@description				Payment gateway integration, billing mirrors and webhooks for tenants.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerToken
//	@in							header
//	@name						Authorization
//	@description				"Bearer <jwt>" with sub and tenant_id claims.
func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	cacheSvc := caching.NewRedisCacheService(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)

	archive := services.NewNoopArchive()
	if cfg.MinioEnabled() {
		minioClient, err := services.NewMinioClient(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
		if err != nil {
			return fmt.Errorf("connect minio: %w", err)
		}
		if err := services.EnsureBucket(ctx, minioClient, cfg.MinioBucket); err != nil {
			logger.Warn("webhook archive bucket unavailable", zap.String("bucket", cfg.MinioBucket), zap.Error(err))
		}
		archive = services.NewWebhookArchive(minioClient, cfg.MinioBucket)
	}

	var verifier *middleware.TokenVerifier
	if cfg.JWKSURL != "" {
		verifier, err = middleware.NewJWKSVerifier(cfg.JWKSURL, logger)
		if err != nil {
			return fmt.Errorf("load jwks: %w", err)
		}
		defer verifier.Close()
	} else {
		verifier = middleware.NewHMACVerifier(cfg.JWTSecret)
	}

	// Repositories
	transactionRepo := repositories.NewTransactionRepo(pool)
	planRepo := repositories.NewPlanRepo(pool)
	subscriptionRepo := repositories.NewSubscriptionRepo(pool)
	invoiceRepo := repositories.NewInvoiceRepo(pool)
	gatewayConfigRepo := repositories.NewGatewayConfigRepo(pool)
	webhookConfigRepo := repositories.NewWebhookConfigRepo(pool)

	// Services
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout()}
	endpoints := services.GatewayEndpoints{SandboxURL: cfg.GatewaySandboxURL, ProductionURL: cfg.GatewayProductionURL}

	authClient := services.NewAuthClient(gatewayConfigRepo, endpoints, httpClient, logger)
	gatewayClient := services.NewGatewayClient(gatewayConfigRepo, authClient, endpoints, httpClient, logger)
	simulator := services.NewPaymentSimulator(cfg.SimulatorDelay(), cfg.SimulatorPaymentBaseURL)
	notifier := services.NewWebhookNotifier(webhookConfigRepo, httpClient, logger)

	paymentSvc := services.NewTransactionService(transactionRepo, gatewayClient, simulator, notifier, logger)
	planSvc := services.NewPlanService(planRepo, gatewayClient, logger)
	subscriptionSvc := services.NewSubscriptionService(subscriptionRepo, planRepo, gatewayClient, notifier, logger)
	invoiceSvc := services.NewInvoiceService(invoiceRepo, gatewayClient, notifier, logger)
	receiver := services.NewWebhookReceiver(transactionRepo, paymentSvc, invoiceSvc, notifier, logger)
	reconciler := services.NewReconciliationService(services.ReconciliationDeps{
		Gateway:             gatewayClient,
		Plans:               planRepo,
		Subscriptions:       subscriptionRepo,
		Transactions:        transactionRepo,
		Invoices:            invoiceRepo,
		Payments:            paymentSvc,
		SubscriptionService: subscriptionSvc,
		InvoiceService:      invoiceSvc,
		Notifier:            notifier,
	}, logger)

	// Background jobs
	scheduler, err := background.NewJobScheduler(gatewayConfigRepo, reconciler, cfg.ReconcileConcurrency, logger)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	if err := scheduler.RegisterReconciliation(cfg.ReconcileInterval()); err != nil {
		return fmt.Errorf("register reconciliation: %w", err)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			logger.Warn("scheduler shutdown", zap.Error(err))
		}
	}()

	// Handlers
	healthHandlers := handlers.NewHealthHandlers(pool, cacheSvc, version)
	paymentHandlers := handlers.NewPaymentHandlers(paymentSvc, logger)
	planHandlers := handlers.NewPlanHandlers(planSvc, logger)
	subscriptionHandlers := handlers.NewSubscriptionHandlers(subscriptionSvc, logger)
	invoiceHandlers := handlers.NewInvoiceHandlers(invoiceSvc, logger)
	reconcileHandlers := handlers.NewReconcileHandlers(reconciler, logger)
	webhookHandlers := handlers.NewWebhookHandlers(receiver, archive, cacheSvc, cfg.InboundWebhookSecret, cfg.WebhookLockTTL(), logger)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Global middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	// Health and metrics endpoints (no auth required)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if cfg.SwaggerEnabled {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	limiter := middleware.RateLimit(cacheSvc, cfg.RateLimitPerMinute, time.Minute, logger)

	// Provider callbacks carry no bearer token
	e.POST("/webhooks/:provider", webhookHandlers.ProviderWebhook, limiter)

	// API routes
	v1 := e.Group("/v1")
	v1.Use(middleware.JWTMiddleware(verifier, logger))
	v1.Use(limiter)

	v1.POST("/payments", paymentHandlers.CreatePayment)
	v1.GET("/payments", paymentHandlers.ListPayments)
	v1.GET("/payments/:id", paymentHandlers.GetPayment)
	v1.GET("/payments/:id/status", paymentHandlers.GetPaymentStatus)

	v1.POST("/plans", planHandlers.CreatePlan)
	v1.GET("/plans", planHandlers.ListPlans)
	v1.GET("/plans/:id", planHandlers.GetPlan)
	v1.PUT("/plans/:id/deactivate", planHandlers.DeactivatePlan)

	v1.POST("/subscriptions", subscriptionHandlers.CreateSubscription)
	v1.GET("/subscriptions", subscriptionHandlers.ListSubscriptions)
	v1.GET("/subscriptions/:id", subscriptionHandlers.GetSubscription)
	v1.PUT("/subscriptions/:id/cancel", subscriptionHandlers.CancelSubscription)

	v1.POST("/invoices", invoiceHandlers.CreateInvoice)
	v1.GET("/invoices", invoiceHandlers.ListInvoices)
	v1.GET("/invoices/:id", invoiceHandlers.GetInvoice)

	v1.POST("/reconcile", reconcileHandlers.Reconcile)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("paycore server starting", zap.String("version", version), zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return e.Shutdown(shutdownCtx)
}
