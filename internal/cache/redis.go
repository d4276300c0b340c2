package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/medisync/teleclinic/config"
	"github.com/medisync/teleclinic/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client   *redis.Client
	slotsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, slotsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:   redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		slotsTTL: slotsTTL,
	}
}

func (c *RedisCache) GetSlots(ctx context.Context, doctorID int64, date string) ([]domain.Appointment, error) {
	data, err := c.client.Get(ctx, slotsKey(doctorID, date)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var slots []domain.Appointment
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func (c *RedisCache) SetSlots(ctx context.Context, doctorID int64, date string, slots []domain.Appointment) error {
	payload, err := json.Marshal(slots)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, slotsKey(doctorID, date), payload, c.slotsTTL).Err()
}

// InvalidateSlots drops every cached day for a doctor. Called after a slot is
// created or booked so stale availability is never served past one write.
func (c *RedisCache) InvalidateSlots(ctx context.Context, doctorID int64) error {
	iter := c.client.Scan(ctx, 0, fmt.Sprintf("cache:slots:%d:*", doctorID), 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (c *RedisCache) AcquireBookingLock(ctx context.Context, appointmentID int64, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, bookingLockKey(appointmentID), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseBookingLock(ctx context.Context, appointmentID int64) error {
	return c.client.Del(ctx, bookingLockKey(appointmentID)).Err()
}

func slotsKey(doctorID int64, date string) string {
	return fmt.Sprintf("cache:slots:%d:%s", doctorID, date)
}

func bookingLockKey(appointmentID int64) string {
	return fmt.Sprintf("lock:appointment:%d", appointmentID)
}
