package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medisync/teleclinic/api"
	"github.com/medisync/teleclinic/config"
	"github.com/medisync/teleclinic/internal/auth"
	"github.com/medisync/teleclinic/internal/bootstrap"
	"github.com/medisync/teleclinic/internal/cache"
	"github.com/medisync/teleclinic/internal/kafka"
	"github.com/medisync/teleclinic/internal/repository"
	"github.com/medisync/teleclinic/internal/service/booking"
	"github.com/medisync/teleclinic/internal/service/scheduling"
	"github.com/medisync/teleclinic/internal/session"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	clinicTZ, err := time.LoadLocation(cfg.Scheduling.ClinicTimezone)
	if err != nil {
		log.Fatalf("load clinic timezone: %v", err)
	}

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Scheduling.SlotsCacheTTLSeconds)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	tokens := auth.NewJWTManager(cfg.Auth.JWTSecret)

	appointmentRepo := repository.NewAppointmentRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	schedulerService := scheduling.NewSchedulerService(
		appointmentRepo,
		userRepo,
		redisCache,
		producer,
		cfg.Kafka.AppointmentTopic,
		clinicTZ,
	)
	bookingService := booking.NewBookingService(
		paymentRepo,
		notificationRepo,
		appointmentRepo,
		userRepo,
		schedulerService,
		redisCache,
		producer,
		cfg.Kafka.NotificationsTopic,
		time.Duration(cfg.Scheduling.BookingLockTTLSeconds)*time.Second,
		booking.WithClinicTimezone(clinicTZ),
	)
	rooms := session.NewManager(tokens, appointmentRepo)

	handlers := bootstrap.Handlers{
		Doctor:    api.NewDoctorHandler(schedulerService, notificationRepo),
		Patient:   api.NewPatientHandler(bookingService, schedulerService),
		Admin:     api.NewAdminHandler(userRepo),
		Signaling: api.NewSignalingHandler(rooms),
	}

	if err := bootstrap.Run(ctx, cfg, tokens, handlers); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
