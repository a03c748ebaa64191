package service

import (
	"context"
	"fmt"
	"strings"

	"chat-memory-go/internal/config"
	"chat-memory-go/internal/model"
	"chat-memory-go/internal/repository"
	"chat-memory-go/pkg/embedding"
	"chat-memory-go/pkg/llm"
	"chat-memory-go/pkg/log"
	"chat-memory-go/pkg/storage"
)

// TranscriptArchiver 抽象了对话转录的归档存储。归档是尽力而为的旁路：
// 失败只记录日志，绝不影响摘要流程本身。
type TranscriptArchiver interface {
	Archive(ctx context.Context, conversationID, transcript string) error
}

type minioTranscriptArchiver struct {
	minioCfg config.MinIOConfig
}

// NewMinioTranscriptArchiver 创建一个基于 MinIO 的 TranscriptArchiver 实例。
func NewMinioTranscriptArchiver(minioCfg config.MinIOConfig) TranscriptArchiver {
	return &minioTranscriptArchiver{minioCfg: minioCfg}
}

func (a *minioTranscriptArchiver) Archive(ctx context.Context, conversationID, transcript string) error {
	return storage.ArchiveTranscript(ctx, a.minioCfg.BucketName, conversationID, transcript)
}

// SummarizerService 将一个已结束的对话压缩为一条可检索的摘要并持久化。
type SummarizerService interface {
	// SummarizeConversation 拉取指定对话的全部消息（受上限约束）并生成摘要。
	// 不经过边界检测，对话未关闭也照常执行（按需摘要路径）。
	SummarizeConversation(ctx context.Context, conversationID string) (*model.SummaryResult, error)
	// SummarizeTurns 对已经拿到的消息序列生成摘要，消息需按写入顺序升序排列。
	SummarizeTurns(ctx context.Context, turns []model.Turn) (*model.SummaryResult, error)
}

type summarizerService struct {
	turnRepo        repository.TurnRepository
	index           SummaryIndex
	llmClient       llm.Client
	embeddingClient embedding.Client
	archiver        TranscriptArchiver
	summaryCfg      config.SummaryConfig
	embeddingModel  string
}

// NewSummarizerService 创建一个新的 SummarizerService 实例。
func NewSummarizerService(
	turnRepo repository.TurnRepository,
	index SummaryIndex,
	llmClient llm.Client,
	embeddingClient embedding.Client,
	archiver TranscriptArchiver,
	summaryCfg config.SummaryConfig,
	embeddingModel string,
) SummarizerService {
	return &summarizerService{
		turnRepo:        turnRepo,
		index:           index,
		llmClient:       llmClient,
		embeddingClient: embeddingClient,
		archiver:        archiver,
		summaryCfg:      summaryCfg,
		embeddingModel:  embeddingModel,
	}
}

// SummarizeConversation 按对话标识拉取消息并生成摘要。
func (s *summarizerService) SummarizeConversation(ctx context.Context, conversationID string) (*model.SummaryResult, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("%w: conversation_id 不能为空", ErrValidation)
	}

	turns, err := s.turnRepo.FindByFilter(
		model.TurnFilter{ConversationID: conversationID},
		s.summaryCfg.MaxTurnsOrDefault(),
		false,
	)
	if err != nil {
		return nil, fmt.Errorf("查询对话消息失败: %w", err)
	}
	if len(turns) == 0 {
		return nil, fmt.Errorf("%w: 对话 '%s' 没有任何消息", ErrNotFound, conversationID)
	}

	return s.SummarizeTurns(ctx, turns)
}

// SummarizeTurns 渲染转录、调用生成服务并将摘要写入向量索引。
// 生成失败或返回空内容时不落任何数据——索引中绝不出现半成品摘要。
func (s *summarizerService) SummarizeTurns(ctx context.Context, turns []model.Turn) (*model.SummaryResult, error) {
	if len(turns) == 0 {
		return nil, fmt.Errorf("%w: 没有可摘要的消息", ErrNotFound)
	}

	conversationID := turns[0].ConversationID
	userID := turns[0].UserID
	// 摘要的 created_at 取被摘要对话首条消息的时间，用于溯源与排序
	createdAt := model.FormatTimestamp(turns[0].CreatedAt)

	log.Infof("[Summarizer] 开始摘要对话, ConversationID: %s, UserID: %s, 消息数: %d", conversationID, userID, len(turns))

	transcript := RenderTranscript(turns)

	// 归档原始转录（尽力而为）
	if err := s.archiver.Archive(ctx, conversationID, transcript); err != nil {
		log.Warnf("[Summarizer] 归档转录失败, ConversationID: %s, Error: %v", conversationID, err)
	}

	summaryText, err := s.llmClient.Summarize(ctx, s.buildSystemPrompt(), transcript)
	if err != nil {
		log.Errorf("[Summarizer] 生成摘要失败, ConversationID: %s, Error: %v", conversationID, err)
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailure, err)
	}
	if strings.TrimSpace(summaryText) == "" {
		log.Errorf("[Summarizer] 生成服务返回空摘要, ConversationID: %s", conversationID)
		return nil, fmt.Errorf("%w: 返回了空内容", ErrGenerationFailure)
	}

	vector, err := s.embeddingClient.CreateEmbedding(ctx, summaryText)
	if err != nil {
		log.Errorf("[Summarizer] 摘要向量化失败, ConversationID: %s, Error: %v", conversationID, err)
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailure, err)
	}

	doc := model.SummaryDocument{
		ConversationID: conversationID,
		UserID:         userID,
		CreatedAt:      createdAt,
		SummaryText:    summaryText,
		Vector:         vector,
		ModelVersion:   s.embeddingModel,
	}
	if err := s.index.Upsert(ctx, doc); err != nil {
		log.Errorf("[Summarizer] 写入摘要索引失败, ConversationID: %s, Error: %v", conversationID, err)
		return nil, fmt.Errorf("写入摘要索引失败: %w", err)
	}

	log.Infof("[Summarizer] 摘要完成, ConversationID: %s, 摘要长度: %d", conversationID, len(summaryText))
	return &model.SummaryResult{
		ConversationID: conversationID,
		UserID:         userID,
		CreatedAt:      createdAt,
		Summary:        summaryText,
	}, nil
}

// buildSystemPrompt 构建摘要的系统指令：压缩为面向检索的记忆笔记，保留关键词。
func (s *summarizerService) buildSystemPrompt() string {
	if s.summaryCfg.SystemPrompt != "" {
		return s.summaryCfg.SystemPrompt
	}
	locale := s.summaryCfg.Locale
	if locale == "" {
		locale = "Japanese"
	}
	return fmt.Sprintf(
		"Summarize given conversation in %s. The summary will be used as the data for long-term memory system. If you find remarkable keywords in the conversation, put it in the summary to improve search results.",
		locale,
	)
}

// RenderTranscript 将消息序列渲染为"说话人: 内容"形式的对话转录。
func RenderTranscript(turns []model.Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, fmt.Sprintf("User: %s\nAI: %s", t.Query, t.Answer))
	}
	return strings.Join(lines, "\n")
}
