package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"chat-memory-go/internal/config"
	"chat-memory-go/internal/model"
	"chat-memory-go/pkg/es"
	"chat-memory-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
)

// SummaryIndex 抽象了摘要向量索引的写入与检索。
// 替换底层引擎时必须保留"元数据精确过滤 + 相似度排序"的组合能力，
// 纯全文检索或纯最近邻检索都不满足要求。
type SummaryIndex interface {
	// Upsert 以 conversation_id 为文档主键写入摘要，重复写入覆盖而非新增。
	Upsert(ctx context.Context, doc model.SummaryDocument) error
	// Search 在指定用户的摘要中做向量相似度检索，按得分从高到低返回。
	Search(ctx context.Context, vector []float32, userID string, limit int) ([]model.SummaryHit, error)
}

type esSummaryIndex struct {
	esClient *elasticsearch.Client
	esCfg    config.ElasticsearchConfig
}

// NewESSummaryIndex 创建一个基于 Elasticsearch 的 SummaryIndex 实例。
func NewESSummaryIndex(esClient *elasticsearch.Client, esCfg config.ElasticsearchConfig) SummaryIndex {
	return &esSummaryIndex{esClient: esClient, esCfg: esCfg}
}

// Upsert 将摘要文档写入 Elasticsearch。
func (i *esSummaryIndex) Upsert(ctx context.Context, doc model.SummaryDocument) error {
	return es.UpsertSummary(ctx, i.esCfg.IndexName, doc)
}

// Search 执行带 user_id 过滤的 kNN 检索。
func (i *esSummaryIndex) Search(ctx context.Context, vector []float32, userID string, limit int) ([]model.SummaryHit, error) {
	var buf bytes.Buffer
	esQuery := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   vector,
			"k":              limit,
			"num_candidates": limit * 10,
			"filter": map[string]interface{}{
				"term": map[string]interface{}{"user_id": userID},
			},
		},
		"size": limit,
	}
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := i.esClient.Search(
		i.esClient.Search.WithContext(ctx),
		i.esClient.Search.WithIndex(i.esCfg.IndexName),
		i.esClient.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		log.Errorf("[SummaryIndex] Elasticsearch 返回错误, status: %s, body: %s", res.Status(), string(bodyBytes))
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.String())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source model.SummaryDocument `json:"_source"`
				Score  float64               `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	hits := make([]model.SummaryHit, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		hits = append(hits, model.SummaryHit{
			SummaryResult: model.SummaryResult{
				ConversationID: hit.Source.ConversationID,
				UserID:         hit.Source.UserID,
				CreatedAt:      hit.Source.CreatedAt,
				Summary:        hit.Source.SummaryText,
			},
			Score: hit.Score,
		})
	}
	return hits, nil
}
