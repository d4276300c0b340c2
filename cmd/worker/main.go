package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medisync/teleclinic/config"
	"github.com/medisync/teleclinic/internal/email"
	"github.com/medisync/teleclinic/internal/kafka"
	"github.com/medisync/teleclinic/internal/repository"
	"github.com/medisync/teleclinic/internal/service/booking"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	clinicTZ, err := time.LoadLocation(cfg.Scheduling.ClinicTimezone)
	if err != nil {
		log.Fatalf("load clinic timezone: %v", err)
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	appointmentRepo := repository.NewAppointmentRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	bookingService := booking.NewBookingService(
		paymentRepo,
		notificationRepo,
		appointmentRepo,
		userRepo,
		nil, // the worker never books; it only sweeps reminders
		nil,
		producer,
		cfg.Kafka.NotificationsTopic,
		0,
		booking.WithClinicTimezone(clinicTZ),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	emailSender := email.NewSender()

	go func() {
		if err := consumer.Consume(ctx, emailSender.Send); err != nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	sweepTicker := time.NewTicker(time.Duration(cfg.Worker.ReminderSweepMinutes) * time.Minute)
	defer sweepTicker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sweepTicker.C:
			reminded, err := bookingService.SweepReminders(ctx)
			if err != nil {
				log.Printf("reminder sweep error: %v", err)
				continue
			}
			if len(reminded) > 0 {
				log.Printf("sent %d appointment reminders", len(reminded))
			}
		case s := <-sig:
			log.Printf("received signal %v, shutting down", s)
			return
		}
	}
}
