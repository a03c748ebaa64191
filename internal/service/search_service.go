// Package service 提供了记忆检索相关的业务逻辑。
package service

import (
	"context"
	"fmt"

	"chat-memory-go/internal/config"
	"chat-memory-go/internal/model"
	"chat-memory-go/pkg/embedding"
	"chat-memory-go/pkg/log"
)

// SearchService 接口定义了记忆检索操作。
type SearchService interface {
	// SearchMemories 回答"该用户的哪些历史摘要与这个问题相关"。
	// 空结果返回空切片而非错误，由接口层决定如何上报。
	SearchMemories(ctx context.Context, query, userID string, limit int) ([]model.SummaryHit, error)
}

type searchService struct {
	embeddingClient embedding.Client
	index           SummaryIndex
	summaryCfg      config.SummaryConfig
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(embeddingClient embedding.Client, index SummaryIndex, summaryCfg config.SummaryConfig) SearchService {
	return &searchService{
		embeddingClient: embeddingClient,
		index:           index,
		summaryCfg:      summaryCfg,
	}
}

// SearchMemories 将查询向量化后在该用户的摘要中做相似度检索。
func (s *searchService) SearchMemories(ctx context.Context, query, userID string, limit int) ([]model.SummaryHit, error) {
	if query == "" || userID == "" {
		return nil, fmt.Errorf("%w: query 和 user_id 不能为空", ErrValidation)
	}
	if limit <= 0 {
		limit = s.summaryCfg.DefaultSearchLimitOrDefault()
	}

	log.Infof("[SearchService] 开始记忆检索, query: '%s', userID: %s, limit: %d", query, userID, limit)

	queryVector, err := s.embeddingClient.CreateEmbedding(ctx, query)
	if err != nil {
		log.Errorf("[SearchService] 向量化查询失败: %v", err)
		return nil, fmt.Errorf("failed to create query embedding: %w", err)
	}

	hits, err := s.index.Search(ctx, queryVector, userID, limit)
	if err != nil {
		log.Errorf("[SearchService] 摘要索引检索失败: %v", err)
		return nil, err
	}

	log.Infof("[SearchService] 记忆检索完成, userID: %s, 命中 %d 条", userID, len(hits))
	return hits, nil
}
