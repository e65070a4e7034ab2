package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/fkhayef/sharedexpenses/internal/config"
	"github.com/fkhayef/sharedexpenses/internal/database"
	"github.com/fkhayef/sharedexpenses/internal/events"
	"github.com/fkhayef/sharedexpenses/internal/expense"
	"github.com/fkhayef/sharedexpenses/internal/group"
	"github.com/fkhayef/sharedexpenses/internal/invoice"
	"github.com/fkhayef/sharedexpenses/internal/metrics"
	"github.com/fkhayef/sharedexpenses/internal/notification"
	"github.com/fkhayef/sharedexpenses/internal/payment"
	"github.com/fkhayef/sharedexpenses/pkg/logger"
)

func main() {
	// Load .env file for local development
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("recurring worker stopped")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialect, err := database.ParseDialect(cfg.DatabaseDriver)
	if err != nil {
		return err
	}

	db, err := database.Open(ctx, dialect, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	publisher := events.Connect(cfg.AMQPURL, cfg.AMQPExchange, log)
	defer publisher.Close()

	var mailer notification.Mailer
	if cfg.MailEnabled() {
		mailer = notification.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	}

	notificationService := notification.NewService(notification.NewRepository(db), mailer, log)

	groupRepo := group.NewRepository(db)
	invoiceService := invoice.NewService(invoice.NewRepository(db), log)
	paymentService := payment.NewService(payment.NewRepository(db), invoiceService, log)
	expenseService := expense.NewService(expense.NewRepository(db), groupRepo, paymentService, log,
		expense.WithNotifier(notificationService),
		expense.WithPublisher(publisher),
		expense.WithMetrics(metrics.New()),
	)
	processor := expense.NewRecurringProcessor(expenseService)

	process := func() {
		created, err := processor.ProcessDue(ctx, time.Now())
		if err != nil {
			log.WithError(err).Error("recurring expense processing failed")
			return
		}
		log.WithField("expenses_created", created).Info("recurring expense processing complete")
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.RecurringSchedule, process); err != nil {
		return err
	}

	log.WithField("schedule", cfg.RecurringSchedule).Info("recurring worker started")

	// Catch up on anything that fell due while the worker was down
	process()

	c.Start()
	<-ctx.Done()

	log.Info("shutting down recurring worker")
	<-c.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := notificationService.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("pending emails were not delivered")
	}
	return nil
}
