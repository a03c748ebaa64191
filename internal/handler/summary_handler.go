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

// SummaryHandler 处理按需摘要与记忆检索的 API 请求。
type SummaryHandler struct {
	summarizer    service.SummarizerService
	searchService service.SearchService
}

// NewSummaryHandler 创建一个新的 SummaryHandler 实例。
func NewSummaryHandler(summarizer service.SummarizerService, searchService service.SearchService) *SummaryHandler {
	return &SummaryHandler{
		summarizer:    summarizer,
		searchService: searchService,
	}
}

// CreateSummary 处理按需摘要请求：同步生成指定对话的摘要，不经过边界检测。
func (h *SummaryHandler) CreateSummary(c *gin.Context) {
	conversationID := c.Query("conversation_id")
	log.Infof("[SummaryHandler] 收到按需摘要请求, conversation_id: %s", conversationID)

	result, err := h.summarizer.SummarizeConversation(c.Request.Context(), conversationID)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "该对话没有任何消息"})
			return
		}
		if errors.Is(err, service.ErrGenerationFailure) {
			log.Errorf("[SummaryHandler] 生成服务失败: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "摘要生成失败"})
			return
		}
		log.Errorf("[SummaryHandler] 按需摘要失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "摘要失败"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// SearchSummaries 是处理记忆检索请求的 Gin 处理函数。
func (h *SummaryHandler) SearchSummaries(c *gin.Context) {
	query := c.Query("query")
	userID := c.Query("user_id")
	limitStr := c.DefaultQuery("limit", "0")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 0 {
		limit = 0 // 交给服务层使用默认值
	}

	hits, err := h.searchService.SearchMemories(c.Request.Context(), query, userID, limit)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			log.Warnf("[SummaryHandler] 检索请求校验失败: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Errorf("[SummaryHandler] 记忆检索失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "检索失败"})
		return
	}

	// 空结果是明确的"未找到"信号，不是错误
	if len(hits) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "没有找到匹配的记忆"})
		return
	}

	c.JSON(http.StatusOK, model.SearchResponse{Results: hits})
}
