// Package pipeline 定义了摘要任务的后台处理流程。
package pipeline

import (
	"context"
	"errors"

	"chat-memory-go/internal/config"
	"chat-memory-go/internal/model"
	"chat-memory-go/internal/repository"
	"chat-memory-go/internal/service"
	"chat-memory-go/pkg/log"
	"chat-memory-go/pkg/tasks"
)

// Processor 封装了摘要任务处理的所有依赖和逻辑，实现 kafka.TaskProcessor。
type Processor struct {
	turnRepo   repository.TurnRepository
	summarizer service.SummarizerService
	summaryCfg config.SummaryConfig
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	turnRepo repository.TurnRepository,
	summarizer service.SummarizerService,
	summaryCfg config.SummaryConfig,
) *Processor {
	return &Processor{
		turnRepo:   turnRepo,
		summarizer: summarizer,
		summaryCfg: summaryCfg,
	}
}

// Process 是摘要任务的主函数：拉取旧对话的全部消息并交给 Summarizer。
// 返回非 nil 错误时消费者会按有限次数重试；不可恢复的情况返回 nil 终止任务。
func (p *Processor) Process(ctx context.Context, task tasks.SummarizeTask) error {
	log.Infof("[Processor] 开始处理摘要任务, ConversationID: %s, UserID: %s", task.ConversationID, task.UserID)

	// 1. 拉取被关闭对话的消息（受上限约束，按写入顺序）
	turns, err := p.turnRepo.FindByFilter(
		model.TurnFilter{ConversationID: task.ConversationID},
		p.summaryCfg.MaxTurnsOrDefault(),
		false,
	)
	if err != nil {
		log.Errorf("[Processor] 查询对话消息失败, ConversationID: %s, Error: %v", task.ConversationID, err)
		return err
	}
	if len(turns) == 0 {
		// 队列里的任务指向了不存在的对话：重试也不会有结果，直接终止
		log.Warnf("[Processor] 对话 '%s' 没有任何消息, 跳过摘要", task.ConversationID)
		return nil
	}

	// 2. 生成并持久化摘要
	result, err := p.summarizer.SummarizeTurns(ctx, turns)
	if err != nil {
		if errors.Is(err, service.ErrGenerationFailure) {
			// 生成服务故障通常是瞬时的，交给消费者的有限重试
			log.Errorf("[Processor] 生成摘要失败, ConversationID: %s, Error: %v", task.ConversationID, err)
			return err
		}
		log.Errorf("[Processor] 摘要任务失败, ConversationID: %s, Error: %v", task.ConversationID, err)
		return err
	}

	log.Infof("[Processor] 摘要任务完成, ConversationID: %s, 摘要长度: %d", task.ConversationID, len(result.Summary))
	return nil
}
