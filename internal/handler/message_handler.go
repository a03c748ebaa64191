// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"chat-memory-go/internal/model"
	"chat-memory-go/internal/service"
	"chat-memory-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// MessageHandler 处理对话消息写入与查询的 API 请求。
type MessageHandler struct {
	ingestService service.IngestService
}

// NewMessageHandler 创建一个新的 MessageHandler。
func NewMessageHandler(ingestService service.IngestService) *MessageHandler {
	return &MessageHandler{ingestService: ingestService}
}

// PostMessages 处理批量提交对话消息的请求。
// 摘要在后台队列中异步进行，这里只等待消息落库。
func (h *MessageHandler) PostMessages(c *gin.Context) {
	var req model.MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("[MessageHandler] 请求体解析失败: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体"})
		return
	}

	if err := h.ingestService.SubmitTurns(c.Request.Context(), req.Data); err != nil {
		if errors.Is(err, service.ErrValidation) {
			log.Warnf("[MessageHandler] 消息批次校验失败: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Errorf("[MessageHandler] 消息写入失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "消息写入失败"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"result": "accepted"})
}

// GetMessages 处理按对话标识查询消息的请求。
func (h *MessageHandler) GetMessages(c *gin.Context) {
	conversationID := c.Query("conversation_id")
	limitStr := c.DefaultQuery("limit", "100")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 100
	}

	turns, err := h.ingestService.GetTurns(c.Request.Context(), conversationID, limit)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "没有找到任何消息"})
			return
		}
		log.Errorf("[MessageHandler] 查询消息失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询消息失败"})
		return
	}

	data := make([]model.MessageDTO, 0, len(turns))
	for _, t := range turns {
		data = append(data, model.TurnToDTO(t))
	}
	c.JSON(http.StatusOK, model.MessageResponse{Data: data})
}
