// Package repository 提供了数据访问层的实现。
package repository

import (
	"errors"

	"chat-memory-go/internal/model"

	"gorm.io/gorm"
)

// TurnRepository 接口定义了对话日志的持久化操作。
type TurnRepository interface {
	// BatchCreate 在单个事务中写入一批消息：要么全部落库，要么全部失败。
	BatchCreate(turns []*model.Turn) error
	// FindLatestByUser 返回该用户最近一条消息；没有任何记录时返回 (nil, nil)。
	// 按自增主键倒序取最新，而不是按 created_at，避免时钟偏移导致的乱序。
	FindLatestByUser(userID string) (*model.Turn, error)
	// FindByFilter 按条件查询消息，conversation_id 与 user_id 至少需要一个。
	FindByFilter(filter model.TurnFilter, limit int, desc bool) ([]model.Turn, error)
}

// turnRepository 是 TurnRepository 接口的 GORM 实现。
type turnRepository struct {
	db *gorm.DB
}

// NewTurnRepository 创建一个新的 TurnRepository 实例。
func NewTurnRepository(db *gorm.DB) TurnRepository {
	return &turnRepository{db: db}
}

// ErrMissingScope 表示查询缺少必需的范围字段。
var ErrMissingScope = errors.New("conversation_id or user_id is required")

// BatchCreate 在事务中批量写入消息记录。
func (r *turnRepository) BatchCreate(turns []*model.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(turns).Error
	})
}

// FindLatestByUser 查找该用户最近写入的一条消息。
func (r *turnRepository) FindLatestByUser(userID string) (*model.Turn, error) {
	var turn model.Turn
	err := r.db.Where("user_id = ?", userID).Order("id DESC").First(&turn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &turn, nil
}

// FindByFilter 按条件查询消息记录，默认按写入顺序升序返回。
func (r *turnRepository) FindByFilter(filter model.TurnFilter, limit int, desc bool) ([]model.Turn, error) {
	if filter.ConversationID == "" && filter.UserID == "" {
		return nil, ErrMissingScope
	}

	db := r.db.Model(&model.Turn{})
	if filter.ConversationID != "" {
		db = db.Where("conversation_id = ?", filter.ConversationID)
	}
	if filter.UserID != "" {
		db = db.Where("user_id = ?", filter.UserID)
	}
	if filter.Since != nil {
		db = db.Where("created_at >= ?", *filter.Since)
	}
	if filter.Until != nil {
		db = db.Where("created_at <= ?", *filter.Until)
	}
	if desc {
		db = db.Order("id DESC")
	} else {
		db = db.Order("id ASC")
	}

	var turns []model.Turn
	err := db.Limit(limit).Find(&turns).Error
	return turns, err
}
