package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// IngestLockRepository 定义了按用户串行化写入的锁操作。
// 同一用户同一时刻只允许一个在途的写入批次，否则两个批次的边界检测
// 可能读到同一条"最近消息"，造成漏判或重复触发摘要。
type IngestLockRepository interface {
	Acquire(ctx context.Context, userID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, userID string) error
}

type redisIngestLockRepository struct {
	redisClient *redis.Client
}

// NewIngestLockRepository 创建一个新的 IngestLockRepository 实例。
func NewIngestLockRepository(redisClient *redis.Client) IngestLockRepository {
	return &redisIngestLockRepository{redisClient: redisClient}
}

func lockKey(userID string) string {
	return fmt.Sprintf("ingest:lock:%s", userID)
}

// Acquire 尝试获取用户写入锁，返回是否成功。TTL 防止持有方崩溃后死锁。
func (r *redisIngestLockRepository) Acquire(ctx context.Context, userID string, ttl time.Duration) (bool, error) {
	ok, err := r.redisClient.SetNX(ctx, lockKey(userID), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire ingest lock: %w", err)
	}
	return ok, nil
}

// Release 释放用户写入锁。
func (r *redisIngestLockRepository) Release(ctx context.Context, userID string) error {
	if err := r.redisClient.Del(ctx, lockKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to release ingest lock: %w", err)
	}
	return nil
}
