package service

import (
	"context"

	"chat-memory-go/internal/model"
	"chat-memory-go/internal/repository"
)

// BoundaryKind 枚举了边界检测的三种结论。
type BoundaryKind int

const (
	// NoPriorTurn 该用户此前没有任何消息，无需任何动作。
	NoPriorTurn BoundaryKind = iota
	// SameConversation 新消息仍属于当前对话，无需任何动作。
	SameConversation
	// ConversationSwitch 新消息开启了新对话，上一个对话就此关闭，需要触发摘要。
	ConversationSwitch
)

// BoundaryDecision 是边界检测的结果。发生切换时 PrevTurn 携带上一个对话的
// 最近一条消息，供调用方取出旧对话的标识。
type BoundaryDecision struct {
	Kind     BoundaryKind
	PrevTurn *model.Turn
}

// BoundaryDetector 判断新到达的消息是否意味着该用户上一个对话已经结束。
// 只比较该用户最近一条消息的 conversation_id，不回溯完整历史：
// 用户绕了一圈后复用旧的 conversation_id 不会被识别为"重新打开"。
type BoundaryDetector interface {
	Detect(ctx context.Context, userID, conversationID string) (BoundaryDecision, error)
}

type boundaryDetector struct {
	turnRepo repository.TurnRepository
}

// NewBoundaryDetector 创建一个新的 BoundaryDetector 实例。
func NewBoundaryDetector(turnRepo repository.TurnRepository) BoundaryDetector {
	return &boundaryDetector{turnRepo: turnRepo}
}

// Detect 读取该用户最近一条消息（按自增主键倒序）并与新消息的对话标识比较。
// 必须在新批次落库之前调用，否则"最近一条消息"已经是新对话的了。
func (d *boundaryDetector) Detect(ctx context.Context, userID, conversationID string) (BoundaryDecision, error) {
	latest, err := d.turnRepo.FindLatestByUser(userID)
	if err != nil {
		return BoundaryDecision{}, err
	}
	if latest == nil {
		return BoundaryDecision{Kind: NoPriorTurn}, nil
	}
	if latest.ConversationID == conversationID {
		return BoundaryDecision{Kind: SameConversation, PrevTurn: latest}, nil
	}
	return BoundaryDecision{Kind: ConversationSwitch, PrevTurn: latest}, nil
}
