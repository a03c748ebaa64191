// Package model 包含了应用的数据模型定义。
package model

import "time"

// Turn 代表一次用户提问与助手回答的交互，是对话日志的最小单元。
// 自增主键 ID 为同一用户的消息提供了与墙上时钟无关的全序，
// 边界检测依赖它来确定"最近一条消息"。
type Turn struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID string    `gorm:"index;size:64;not null" json:"conversationId"`
	UserID         string    `gorm:"index;size:64;not null" json:"userId"`
	Query          string    `gorm:"type:text;not null" json:"query"`
	Answer         string    `gorm:"type:text;not null" json:"answer"`
	CreatedAt      time.Time `gorm:"index;not null" json:"createdAt"`
}

func (Turn) TableName() string {
	return "turns"
}

// TurnFilter 描述对话日志的查询条件，conversation_id 与 user_id 至少需要一个。
type TurnFilter struct {
	ConversationID string
	UserID         string
	Since          *time.Time
	Until          *time.Time
}
