package model

// MessageDTO 是对话消息在 HTTP 接口上的序列化形式，created_at 为 ISO-8601 字符串。
type MessageDTO struct {
	ID             uint   `json:"id,omitempty"`
	ConversationID string `json:"conversation_id" binding:"required"`
	UserID         string `json:"user_id" binding:"required"`
	CreatedAt      string `json:"created_at" binding:"required"`
	Query          string `json:"query"`
	Answer         string `json:"answer"`
}

// MessageRequest 是批量提交对话消息的请求体。
type MessageRequest struct {
	Data []MessageDTO `json:"data" binding:"required"`
}

// MessageResponse 是对话消息查询的响应体。
type MessageResponse struct {
	Data []MessageDTO `json:"data"`
}

// SearchResponse 是记忆检索的响应体，按相似度从高到低排列。
type SearchResponse struct {
	Results []SummaryHit `json:"results"`
}

// TurnToDTO 将存储层的 Turn 转换为接口层的 MessageDTO。
func TurnToDTO(t Turn) MessageDTO {
	return MessageDTO{
		ID:             t.ID,
		ConversationID: t.ConversationID,
		UserID:         t.UserID,
		CreatedAt:      FormatTimestamp(t.CreatedAt),
		Query:          t.Query,
		Answer:         t.Answer,
	}
}
