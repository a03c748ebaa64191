package service

import (
	"context"
	"fmt"
	"time"

	"chat-memory-go/internal/model"
	"chat-memory-go/internal/repository"
	"chat-memory-go/pkg/kafka"
	"chat-memory-go/pkg/log"
	"chat-memory-go/pkg/tasks"
)

// TaskQueue 抽象了摘要任务队列的生产端。
type TaskQueue interface {
	Enqueue(task tasks.SummarizeTask) error
}

type kafkaTaskQueue struct{}

// NewKafkaTaskQueue 创建一个基于 Kafka 生产者的 TaskQueue 实例。
func NewKafkaTaskQueue() TaskQueue {
	return &kafkaTaskQueue{}
}

func (q *kafkaTaskQueue) Enqueue(task tasks.SummarizeTask) error {
	return kafka.ProduceSummarizeTask(task)
}

// 用户写入锁的参数：TTL 防崩溃死锁，等待上限之后降级放行（可用性优先）。
const (
	ingestLockTTL         = 30 * time.Second
	ingestLockMaxAttempts = 20
	ingestLockRetryDelay  = 100 * time.Millisecond
)

// IngestService 编排消息写入：边界检测、摘要任务入队、批量落库。
type IngestService interface {
	// SubmitTurns 处理一批按序到达的消息。批内以首条消息的用户和对话做边界判定。
	// 摘要侧路径的任何失败都不会阻止消息落库；落库失败则整批失败并上抛。
	SubmitTurns(ctx context.Context, batch []model.MessageDTO) error
	// GetTurns 按对话标识查询消息，查不到任何记录时返回 ErrNotFound。
	GetTurns(ctx context.Context, conversationID string, limit int) ([]model.Turn, error)
}

type ingestService struct {
	turnRepo repository.TurnRepository
	lockRepo repository.IngestLockRepository
	boundary BoundaryDetector
	queue    TaskQueue
}

// NewIngestService 创建一个新的 IngestService 实例。
func NewIngestService(
	turnRepo repository.TurnRepository,
	lockRepo repository.IngestLockRepository,
	boundary BoundaryDetector,
	queue TaskQueue,
) IngestService {
	return &ingestService{
		turnRepo: turnRepo,
		lockRepo: lockRepo,
		boundary: boundary,
		queue:    queue,
	}
}

// SubmitTurns 是写入热路径。边界检测必须发生在本批次落库之前，
// 否则"最近一条消息"已经属于新对话，切换事件会被漏掉。
func (s *ingestService) SubmitTurns(ctx context.Context, batch []model.MessageDTO) error {
	if len(batch) == 0 {
		return fmt.Errorf("%w: 消息批次不能为空", ErrValidation)
	}

	first := batch[0]
	if first.ConversationID == "" || first.UserID == "" {
		return fmt.Errorf("%w: conversation_id 和 user_id 不能为空", ErrValidation)
	}

	// 先整批解析时间戳，落库前把非法输入拦下来
	turns := make([]*model.Turn, 0, len(batch))
	for i, m := range batch {
		if m.ConversationID == "" || m.UserID == "" {
			return fmt.Errorf("%w: 第 %d 条消息缺少 conversation_id 或 user_id", ErrValidation, i)
		}
		createdAt, err := model.ParseTimestamp(m.CreatedAt)
		if err != nil {
			return fmt.Errorf("%w: 第 %d 条消息时间戳非法: %v", ErrValidation, i, err)
		}
		turns = append(turns, &model.Turn{
			ConversationID: m.ConversationID,
			UserID:         m.UserID,
			Query:          m.Query,
			Answer:         m.Answer,
			CreatedAt:      createdAt,
		})
	}

	// 按用户串行化：并发批次会读到同一条"最近消息"，导致切换漏判或重复触发
	locked := s.acquireLock(ctx, first.UserID)
	if locked {
		defer func() {
			if err := s.lockRepo.Release(context.Background(), first.UserID); err != nil {
				log.Warnf("[Ingest] 释放用户写入锁失败, UserID: %s, Error: %v", first.UserID, err)
			}
		}()
	}

	// 边界检测（读取本批次写入之前的状态）
	decision, err := s.boundary.Detect(ctx, first.UserID, first.ConversationID)
	if err != nil {
		// 检测失败按"未检测到切换"降级：漏掉一条摘要，不拒绝写入
		log.Errorf("[Ingest] 边界检测失败, UserID: %s, Error: %v", first.UserID, err)
	} else if decision.Kind == ConversationSwitch {
		prev := decision.PrevTurn
		log.Infof("[Ingest] 检测到对话切换, UserID: %s, 旧对话: %s, 新对话: %s",
			first.UserID, prev.ConversationID, first.ConversationID)
		task := tasks.SummarizeTask{
			ConversationID: prev.ConversationID,
			UserID:         prev.UserID,
			CreatedAt:      model.FormatTimestamp(prev.CreatedAt),
		}
		// 入队失败只记录日志：丢一条摘要是降级，拒绝写入才是事故
		if err := s.queue.Enqueue(task); err != nil {
			log.Errorf("[Ingest] 摘要任务入队失败, ConversationID: %s, Error: %v", prev.ConversationID, err)
		}
	}

	// 批量落库（事务内，整批原子）
	if err := s.turnRepo.BatchCreate(turns); err != nil {
		return fmt.Errorf("写入对话日志失败: %w", err)
	}

	log.Infof("[Ingest] 写入完成, UserID: %s, ConversationID: %s, 消息数: %d",
		first.UserID, first.ConversationID, len(turns))
	return nil
}

// GetTurns 按对话标识查询消息记录。
func (s *ingestService) GetTurns(ctx context.Context, conversationID string, limit int) ([]model.Turn, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("%w: conversation_id 不能为空", ErrValidation)
	}
	if limit <= 0 {
		limit = 100
	}

	turns, err := s.turnRepo.FindByFilter(model.TurnFilter{ConversationID: conversationID}, limit, false)
	if err != nil {
		return nil, fmt.Errorf("查询对话消息失败: %w", err)
	}
	if len(turns) == 0 {
		return nil, fmt.Errorf("%w: 对话 '%s' 没有任何消息", ErrNotFound, conversationID)
	}
	return turns, nil
}

// acquireLock 在有限次重试内获取用户写入锁。超过等待上限后放行并告警：
// 串行化是尽力保证，不能反过来卡死写入。
func (s *ingestService) acquireLock(ctx context.Context, userID string) bool {
	for attempt := 0; attempt < ingestLockMaxAttempts; attempt++ {
		ok, err := s.lockRepo.Acquire(ctx, userID, ingestLockTTL)
		if err != nil {
			log.Warnf("[Ingest] 获取用户写入锁出错, UserID: %s, Error: %v", userID, err)
			return false
		}
		if ok {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(ingestLockRetryDelay):
		}
	}
	log.Warnf("[Ingest] 等待用户写入锁超时，降级放行, UserID: %s", userID)
	return false
}
