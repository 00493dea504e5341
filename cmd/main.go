package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"

	"invoiceflow/internal/caching"
	"invoiceflow/internal/config"
	"invoiceflow/internal/events"
	"invoiceflow/internal/handlers"
	"invoiceflow/internal/jobs/background"
	"invoiceflow/internal/middleware"
	"invoiceflow/internal/rendering"
	"invoiceflow/internal/repositories"
	"invoiceflow/internal/services"
	"invoiceflow/pkg/database"
	"invoiceflow/pkg/logger"
)

const version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.New(".env")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	l, err := logger.New(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = random.String(32)
		l.Warn("JWT_SECRET not set, using a generated development secret; tokens will not survive a restart")
	}

	// Database
	pool, err := database.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if cfg.Postgres.MigrateOnStart {
		if err := database.UpMigrations(cfg.Postgres.DSN); err != nil {
			return err
		}
		l.Info("database migrations applied")
	}

	// Redis
	redisClient, err := caching.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()
	cacheSvc := caching.NewRedisCacheService(redisClient)

	// Object storage
	storageSvc, err := services.NewMinioService(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.UseSSL)
	if err != nil {
		return fmt.Errorf("init minio: %w", err)
	}
	if err := storageSvc.EnsureBucketExists(ctx, cfg.Minio.Bucket); err != nil {
		// archiving fails until storage is reachable; everything else keeps working
		l.Warn("invoice bucket unavailable", "bucket", cfg.Minio.Bucket, "error", err)
	}

	// Mail
	mailSvc := services.NewDisabledMailService()
	if cfg.MailEnabled() {
		mailSvc = services.NewMailService(services.MailConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
		})
	} else {
		l.Info("SMTP_HOST not set, invoice email delivery disabled")
	}

	// Events
	var publisher events.Publisher = events.Nop{}
	if cfg.EventsEnabled() {
		publisher = events.NewProducer(l, cfg.Kafka.Brokers, cfg.Kafka.InvoiceTopic)
	}
	defer publisher.Close()

	renderer := rendering.NewRenderer(rendering.Options{
		BrandName:      cfg.Invoice.BrandName,
		CurrencyPrefix: cfg.Invoice.CurrencyPrefix,
	})

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	tenantRepo := repositories.NewTenantRepo(pool)
	invoiceRepo := repositories.NewInvoiceRepo(pool)

	// Services
	authSvc := services.NewAuthService(userRepo, tenantRepo, cacheSvc, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	invoiceSvc := services.NewInvoiceService(invoiceRepo, cacheSvc, renderer, storageSvc, mailSvc, publisher, services.InvoiceServiceConfig{
		BrandName: cfg.Invoice.BrandName,
		Bucket:    cfg.Minio.Bucket,
		URLExpiry: cfg.Minio.URLExpiry,
		StatsTTL:  cfg.Invoice.StatsCacheTTL,
	})

	// Background jobs
	scheduler, err := background.NewJobScheduler(invoiceSvc, tenantRepo, cfg.Scheduler.StatsRefreshInterval)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			l.Error("failed to stop scheduler", "error", err)
		}
	}()

	// Handlers
	healthHandlers := handlers.NewHealthHandlers(pool, cacheSvc, version)
	authHandlers := handlers.NewAuthHandlers(authSvc, cfg.HTTP.BehindTLS)
	invoiceHandlers := handlers.NewInvoiceHandlers(invoiceSvc)
	jobHandlers := handlers.NewJobHandlers(scheduler, invoiceSvc)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewRequestValidator()

	e.Pre(echoMiddleware.RemoveTrailingSlash())
	e.Use(middleware.RequestLogger())
	e.Use(echoMiddleware.Recover())
	e.Use(middleware.SecureHeaders(cfg.HTTP.BehindTLS))
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowCredentials: true,
		ExposeHeaders:    []string{echo.HeaderContentDisposition},
	}))

	// Version middleware
	versionMiddleware := middleware.NewVersionMiddleware()
	e.Use(versionMiddleware.APIVersionResolver())

	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)

	v1 := versionMiddleware.VersionRoute(e, "v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandlers.Register)
	auth.POST("/login", authHandlers.Login)

	protected := v1.Group("")
	protected.Use(middleware.JWT(authSvc))

	protected.POST("/auth/logout", authHandlers.Logout)
	protected.GET("/auth/me", authHandlers.Me)

	protected.GET("/invoices", invoiceHandlers.ListInvoices)
	protected.POST("/invoices", invoiceHandlers.CreateInvoice)
	protected.GET("/invoices/stats", invoiceHandlers.GetInvoiceStats)
	protected.GET("/invoices/:id", invoiceHandlers.GetInvoice)
	protected.PUT("/invoices/:id", invoiceHandlers.UpdateInvoice)
	protected.PATCH("/invoices/:id", invoiceHandlers.UpdateInvoice)
	protected.DELETE("/invoices/:id", invoiceHandlers.DeleteInvoice)
	protected.GET("/invoices/:id/pdf", invoiceHandlers.DownloadInvoicePDF)
	protected.POST("/invoices/:id/pdf/archive", invoiceHandlers.ArchiveInvoicePDF)
	protected.POST("/invoices/:id/send", invoiceHandlers.SendInvoice)

	protected.GET("/jobs", jobHandlers.ListJobs)
	protected.POST("/jobs/stats-refresh", jobHandlers.RefreshStats)

	errCh := make(chan error, 1)
	go func() {
		l.Info("invoiceflow server starting", "version", version, "port", cfg.HTTP.Port)
		if err := e.Start(fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	l.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	return e.Shutdown(shutdownCtx)
}
