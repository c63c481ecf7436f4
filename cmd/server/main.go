package main // Entry point package

import (
	"context"
	"log" // Logging library for startup failures before zap is ready

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4" // Echo web framework
	"go.uber.org/zap"

	"github.com/coordenador-app/booking-api/internal/app"
	"github.com/coordenador-app/booking-api/internal/config" // Internal config loader
	"github.com/coordenador-app/booking-api/internal/database"
	"github.com/coordenador-app/booking-api/internal/handler"
	"github.com/coordenador-app/booking-api/internal/mailer"
	"github.com/coordenador-app/booking-api/internal/metrics"
	"github.com/coordenador-app/booking-api/internal/queue"
	"github.com/coordenador-app/booking-api/internal/repository"
	"github.com/coordenador-app/booking-api/internal/router" // Internal router setup
	"github.com/coordenador-app/booking-api/internal/service"
)

func main() {
	_ = godotenv.Load() // Load .env if present; real env vars win

	cfg := config.Load() // Load environment config
	logger := app.NewLogger(cfg.Env)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open MySQL and bring the schema up to date before serving traffic.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer func() { _ = db.Close() }()
	if err := database.Migrate(ctx, db, "migrations"); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	if v, err := database.MigrationVersion(ctx, db); err == nil {
		logger.Info("schema ready", zap.Int64("migration_version", v))
	}

	metrics.Register()

	// Redis backs the response cache and the rate limiter.  The client is
	// optional: without REDIS_ADDR those middlewares are not installed.
	rdb := config.NewRedisClient()

	slots := repository.NewAvailabilityRepo(db)
	bookings := repository.NewBookingRepo(db)
	users := repository.NewUserRepo(db)

	clock := service.NewClock(cfg.Timezone)
	engine := service.NewSchedulingService(slots, bookings, clock, logger)

	sender := mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom, logger)

	// Cancellation notifications ride through RabbitMQ; the consumer mails
	// the counterparty.  It reconnects on its own until ctx is canceled.
	consumer := &queue.CancellationConsumer{
		URL:    queue.BrokerURL(),
		Users:  users,
		Mailer: sender,
		Log:    logger,
	}
	go consumer.Start(ctx)

	// The daily digest mails each professor their agenda for the day.
	digest := app.NewDigest(engine, users, users, sender, clock, cfg.DigestHour, logger)
	digest.Start(ctx)
	defer digest.Stop()

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	router.RegisterRoutes(e) // Health check and metrics
	router.RegisterAPI(e,
		handler.NewAvailabilityHandler(engine),
		handler.NewBookingHandler(engine, logger),
		handler.NewUserHandler(users),
		cfg.JWTSecret, rdb)

	addr := ":" + cfg.Port // Address string with port
	logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))

	if err := e.Start(addr); err != nil { // Start HTTP server
		logger.Fatal("server stopped", zap.Error(err))
	}
}
