package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SviatoslavBeiar/Event-Planer/internal/app"
	"github.com/SviatoslavBeiar/Event-Planer/internal/clock"
	"github.com/SviatoslavBeiar/Event-Planer/internal/config"
	"github.com/SviatoslavBeiar/Event-Planer/internal/mail"
	stripepay "github.com/SviatoslavBeiar/Event-Planer/internal/payment/stripe"
	"github.com/SviatoslavBeiar/Event-Planer/internal/storage/postgres"
	transporthttp "github.com/SviatoslavBeiar/Event-Planer/internal/transport/http"
	"github.com/SviatoslavBeiar/Event-Planer/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}

	var mailer app.TicketMailer
	if cfg.MailEnabled() {
		mailer = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			From:     cfg.SMTPFrom,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		}, logger)
	} else {
		mailer = mail.NewNoopSender(logger)
	}

	clk := clock.NewSystem()
	ticketRepo := postgres.NewTicketRepository(pool)
	ticketSvc := app.NewTicketService(ticketRepo, mailer, clk)
	verifySvc := app.NewVerifyService(ticketRepo, clk)
	checkerRepo := postgres.NewCheckerRepository(pool)
	checkerSvc := app.NewCheckerService(checkerRepo, clk)

	provider := stripepay.NewProvider(cfg.StripeSecretKey, cfg.FrontendBaseURL, logger)
	paymentRepo := postgres.NewPaymentRepository(pool)
	paymentSvc := app.NewPaymentService(paymentRepo, provider, ticketSvc, clk,
		app.WithSessionTTL(cfg.SessionTTL))

	parseWebhook := func(payload []byte, sig string) (stripepay.Confirmation, bool, error) {
		return stripepay.ParseWebhook(payload, sig, cfg.StripeWebhookSecret)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/tickets/availability/", transporthttp.HandleAvailability(ticketSvc))
	mux.Handle("/payments/webhook", transporthttp.HandlePaymentWebhook(parseWebhook, paymentSvc, logger))

	authed := http.NewServeMux()
	authed.Handle("/tickets/register/", transporthttp.HandleRegister(ticketSvc))
	authed.Handle("/tickets/my/", transporthttp.HandleMyTicket(ticketSvc))
	authed.Handle("/tickets/mine", transporthttp.HandleMyTickets(ticketSvc))
	authed.Handle("/tickets/cancel/", transporthttp.HandleCancelTicket(ticketSvc))
	authed.Handle("/tickets/verify/validate", transporthttp.HandleValidate(verifySvc))
	authed.Handle("/tickets/verify/consume", transporthttp.HandleConsume(verifySvc))
	authed.Handle("/payments/checkout-session/", transporthttp.HandleCheckoutSession(paymentSvc))
	authed.Handle("/payments/confirm/", transporthttp.HandleConfirmPayment(paymentSvc))
	authed.Handle("/event-checkers/assign-by-email/", transporthttp.HandleAssignChecker(checkerSvc))
	authed.Handle("/event-checkers/revoke-by-email/", transporthttp.HandleRevokeChecker(checkerSvc))
	authed.Handle("/event-checkers/by-event/", transporthttp.HandleCheckersByEvent(checkerSvc))
	authed.Handle("/event-checkers/am-i-checker/", transporthttp.HandleAmIChecker(checkerSvc))
	authed.Handle("/event-checkers/mine", transporthttp.HandleMyCheckerGrants(checkerSvc))

	mux.Handle("/tickets/", transporthttp.RequireIdentity(cfg.JWTSecret, authed))
	mux.Handle("/payments/", transporthttp.RequireIdentity(cfg.JWTSecret, authed))
	mux.Handle("/event-checkers/", transporthttp.RequireIdentity(cfg.JWTSecret, authed))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, mux), logger)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go runSessionSweep(sweepCtx, paymentSvc, cfg.SessionSweepInterval, logger)

	logger.Info("api listening", zap.String("port", cfg.Port))

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}

// runSessionSweep periodically expires abandoned checkouts. The sweep never
// releases seats; a pending session holds no reservation.
func runSessionSweep(ctx context.Context, svc *app.PaymentService, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := svc.ExpireStale(ctx)
			if err != nil {
				logger.Warn("session sweep failed", zap.Error(err))
				continue
			}
			if expired > 0 {
				logger.Info("expired stale payment sessions", zap.Int64("count", expired))
			}
		}
	}
}
