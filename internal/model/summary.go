// Package model 定义了与存储结构对应的 Go 结构体。
package model

// SummaryDocument 代表存储在 Elasticsearch 中的摘要文档结构。
// 文档 ID 使用 conversation_id，重复摘要同一对话时覆盖旧文档而不是新增。
type SummaryDocument struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	CreatedAt      string    `json:"created_at"` // 被摘要对话首条消息的时间（ISO-8601）
	SummaryText    string    `json:"summary_text"`
	Vector         []float32 `json:"vector"` // 摘要文本的向量表示
	ModelVersion   string    `json:"model_version"`
}

// SummaryResult 定义了返回给调用方的单条摘要结构。
type SummaryResult struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	CreatedAt      string `json:"created_at"`
	Summary        string `json:"summary"`
}

// SummaryHit 是记忆检索返回的单条命中，附带相似度得分。
type SummaryHit struct {
	SummaryResult
	Score float64 `json:"score"`
}
