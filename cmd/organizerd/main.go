package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Freeeeeet/organizer/internal/app"
	"github.com/Freeeeeet/organizer/internal/calendar"
	"github.com/Freeeeeet/organizer/internal/config"
	"github.com/Freeeeeet/organizer/internal/consumer"
	"github.com/Freeeeeet/organizer/internal/gradebook"
	"github.com/Freeeeeet/organizer/internal/notify"
	"github.com/Freeeeeet/organizer/internal/repository"
	"github.com/Freeeeeet/organizer/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting organizer daemon",
		zap.String("environment", cfg.Environment),
		zap.Duration("scan_interval", cfg.ScanInterval))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}
	logger.Info("Database connected successfully")

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	organizerRepo := repository.NewOrganizerRepository(pool)
	slotRepo := repository.NewSlotRepository(pool)
	appointmentRepo := repository.NewAppointmentRepository(pool)
	scaleRepo := repository.NewScaleRepository(pool)
	stateRepo := repository.NewSchedulerStateRepository(pool)
	directory := repository.NewDirectoryRepository(pool)
	calendarService := calendar.NewPostgresService(pool)

	// Уведомления уходят либо напрямую в Telegram, либо во внешний
	// брокер, откуда их разбирает платформа
	var sink notify.Sink
	if cfg.AMQPURL != "" {
		amqpSink, err := notify.NewAMQPSink(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Fatal("Failed to create notification sink", zap.Error(err))
		}
		defer amqpSink.Close()
		sink = amqpSink
	} else {
		telegramSink, err := notify.NewTelegramSink(cfg.TelegramToken, logger)
		if err != nil {
			logger.Fatal("Failed to create telegram sink", zap.Error(err))
		}
		sink = telegramSink
	}

	var gradeSink service.GradeSink = gradebook.NopSink{}
	if cfg.AMQPURL != "" {
		amqpGrades, err := gradebook.NewAMQPSink(cfg.AMQPURL, cfg.GradebookQueue, logger)
		if err != nil {
			logger.Fatal("Failed to create gradebook sink", zap.Error(err))
		}
		defer amqpGrades.Close()
		gradeSink = amqpGrades
	} else {
		logger.Warn("AMQP_URL not set, grade updates will be dropped")
	}

	registrations := service.NewRegistrationService(
		organizerRepo, slotRepo, appointmentRepo,
		calendarService, directory, sink, gradeSink,
		cfg.TeacherDigestOnly, logger)

	grades := service.NewGradeService(
		organizerRepo, slotRepo, appointmentRepo, scaleRepo,
		directory, gradeSink, sink, logger)

	organizers := service.NewOrganizerService(
		organizerRepo, slotRepo, appointmentRepo,
		calendarService, directory, gradeSink, logger)

	reminders := service.NewReminderService(
		slotRepo, appointmentRepo, stateRepo,
		directory, sink,
		cfg.SendTimeout, cfg.DigestTime, logger)

	// Команды платформы приходят через брокер, если он настроен
	var commands *consumer.Reader
	if cfg.AMQPURL != "" {
		commands, err = consumer.NewReader(cfg.AMQPURL, cfg.CommandQueue,
			registrations, grades, organizers, logger)
		if err != nil {
			logger.Fatal("Failed to create command reader", zap.Error(err))
		}
		if err := commands.Start(ctx); err != nil {
			logger.Fatal("Failed to start command reader", zap.Error(err))
		}
	}

	scheduler := app.NewScheduler(reminders, cfg.ScanInterval, logger)
	scheduler.Start(ctx)

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	sig := <-signalChan
	logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	scheduler.Stop()
	if commands != nil {
		commands.Stop()
	}
	cancel()

	logger.Info("Shutdown complete")
}
