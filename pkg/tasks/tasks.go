// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// SummarizeTask represents the data structure for a conversation summarization job.
// CreatedAt 是被摘要对话首条消息的时间（ISO-8601），作为摘要元数据透传。
type SummarizeTask struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	CreatedAt      string `json:"created_at"`
}
