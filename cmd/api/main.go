package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/sync/errgroup"

	_ "github.com/fkhayef/sharedexpenses/docs"
	"github.com/fkhayef/sharedexpenses/internal/balance"
	"github.com/fkhayef/sharedexpenses/internal/config"
	"github.com/fkhayef/sharedexpenses/internal/database"
	"github.com/fkhayef/sharedexpenses/internal/events"
	"github.com/fkhayef/sharedexpenses/internal/expense"
	"github.com/fkhayef/sharedexpenses/internal/group"
	"github.com/fkhayef/sharedexpenses/internal/invitation"
	"github.com/fkhayef/sharedexpenses/internal/invoice"
	"github.com/fkhayef/sharedexpenses/internal/metrics"
	"github.com/fkhayef/sharedexpenses/internal/notification"
	"github.com/fkhayef/sharedexpenses/internal/payment"
	"github.com/fkhayef/sharedexpenses/internal/report"
	"github.com/fkhayef/sharedexpenses/internal/user"
	"github.com/fkhayef/sharedexpenses/pkg/logger"
	mw "github.com/fkhayef/sharedexpenses/pkg/middleware"
)

// @title           Shared Expenses API
// @version         1.0
// @description     Groups, shared expenses, balances, invoices and payments.
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialect, err := database.ParseDialect(cfg.DatabaseDriver)
	if err != nil {
		return err
	}

	if cfg.AutoMigrate {
		if err := database.RunMigrations(dialect, cfg.DatabaseURL); err != nil {
			return err
		}
		log.Info("database migrations applied")
	}

	db, err := database.Open(ctx, dialect, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	log.WithField("driver", cfg.DatabaseDriver).Info("connected to database")

	publisher := events.Connect(cfg.AMQPURL, cfg.AMQPExchange, log)
	defer publisher.Close()

	appMetrics := metrics.New()

	var mailer notification.Mailer
	if cfg.MailEnabled() {
		mailer = notification.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	}

	// Repositories
	userRepo := user.NewRepository(db)
	groupRepo := group.NewRepository(db)
	expenseRepo := expense.NewRepository(db)
	invoiceRepo := invoice.NewRepository(db)
	paymentRepo := payment.NewRepository(db)
	notificationRepo := notification.NewRepository(db)
	invitationRepo := invitation.NewRepository(db)

	// Services
	notificationService := notification.NewService(notificationRepo, mailer, log)
	userService := user.NewService(userRepo, groupRepo, log)
	groupService := group.NewService(groupRepo, log).WithPublisher(publisher)
	invoiceService := invoice.NewService(invoiceRepo, log)
	paymentService := payment.NewService(paymentRepo, invoiceService, log)
	expenseService := expense.NewService(expenseRepo, groupRepo, paymentService, log,
		expense.WithNotifier(notificationService),
		expense.WithPublisher(publisher),
		expense.WithMetrics(appMetrics),
		expense.WithInvoiceChecker(invoiceService),
	)
	balanceService := balance.NewService(balance.NewRepository(db), groupRepo, log)
	invitationService := invitation.NewService(invitationRepo, groupRepo, userRepo, notificationService, publisher, log)
	reportService := report.NewService(report.NewRepository(db), userRepo, log)

	// Handlers
	userHandler := user.NewHandler(userService)
	groupHandler := group.NewHandler(groupService)
	expenseHandler := expense.NewHandler(expenseService)
	balanceHandler := balance.NewHandler(balanceService)
	invitationHandler := invitation.NewHandler(invitationService)
	invoiceHandler := invoice.NewHandler(invoiceService)
	paymentHandler := payment.NewHandler(paymentService)
	reportHandler := report.NewHandler(reportService)
	notificationHandler := notification.NewHandler(notificationService)

	var authenticate func(http.Handler) http.Handler
	switch cfg.AuthMode {
	case "dev":
		log.Warn("AUTH_MODE=dev: requests are authenticated by the X-Test-User-ID header")
		authenticate = mw.TestUserMiddleware(cfg.DevDefaultUserID)
	default:
		authenticate = mw.AuthMiddleware(mw.NewTokenVerifier(cfg.JWTSecret, cfg.JWTIssuer), userService)
	}

	limiter := mw.NewRateLimiter(cfg.RateLimitPerMinute)
	defer limiter.Stop()

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(appMetrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", appMetrics.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(limiter.Middleware)
		r.Use(authenticate)
		r.Use(mw.RequireUser)

		r.Mount("/users", userHandler.Routes())
		r.Route("/groups", func(r chi.Router) {
			groupHandler.Register(r)
			expenseHandler.Register(r)
			balanceHandler.Register(r)
			invitationHandler.Register(r)
		})
		r.Mount("/invitations", invitationHandler.Routes())
		r.Mount("/invoices", invoiceHandler.Routes())
		r.Mount("/payments", paymentHandler.Routes())
		r.Mount("/reports", reportHandler.Routes())
		r.Mount("/notifications", notificationHandler.Routes())
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}

		// Handlers may have queued e-mails right before the server stopped
		if err := notificationService.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("pending emails were not delivered")
		}
		return nil
	})

	return g.Wait()
}
