package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"chat-memory-go/internal/model"
	"chat-memory-go/internal/service"
	"chat-memory-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	log.Init("error", "console", "")
	os.Exit(m.Run())
}

type stubIngestService struct {
	submitErr error
	submitted []model.MessageDTO

	turns  []model.Turn
	getErr error
}

func (s *stubIngestService) SubmitTurns(ctx context.Context, batch []model.MessageDTO) error {
	if s.submitErr != nil {
		return s.submitErr
	}
	s.submitted = append(s.submitted, batch...)
	return nil
}

func (s *stubIngestService) GetTurns(ctx context.Context, conversationID string, limit int) ([]model.Turn, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if len(s.turns) > limit {
		return s.turns[:limit], nil
	}
	return s.turns, nil
}

func messageRouter(svc service.IngestService) *gin.Engine {
	r := gin.New()
	h := NewMessageHandler(svc)
	r.POST("/api/v1/messages", h.PostMessages)
	r.GET("/api/v1/messages", h.GetMessages)
	return r
}

func TestPostMessagesAccepted(t *testing.T) {
	svc := &stubIngestService{}
	r := messageRouter(svc)

	body := `{"data":[{"id":0,"conversation_id":"conv_1","user_id":"user_1","created_at":"2024-05-01T12:00:00Z","query":"q","answer":"a"}]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"result":"accepted"}`, w.Body.String())
	require.Len(t, svc.submitted, 1)
	assert.Equal(t, "conv_1", svc.submitted[0].ConversationID)
}

func TestPostMessagesMalformedBody(t *testing.T) {
	r := messageRouter(&stubIngestService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostMessagesValidationError(t *testing.T) {
	svc := &stubIngestService{submitErr: service.ErrValidation}
	r := messageRouter(svc)

	body := `{"data":[{"id":0,"conversation_id":"conv_1","user_id":"user_1","created_at":"yesterday","query":"q","answer":"a"}]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostMessagesStoreFailure(t *testing.T) {
	svc := &stubIngestService{submitErr: errors.New("mysql down")}
	r := messageRouter(svc)

	body := `{"data":[{"id":0,"conversation_id":"conv_1","user_id":"user_1","created_at":"2024-05-01T12:00:00Z","query":"q","answer":"a"}]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetMessages(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := &stubIngestService{turns: []model.Turn{
		{ID: 1, ConversationID: "conv_1", UserID: "user_1", Query: "q1", Answer: "a1", CreatedAt: created},
		{ID: 2, ConversationID: "conv_1", UserID: "user_1", Query: "q2", Answer: "a2", CreatedAt: created.Add(time.Minute)},
	}}
	r := messageRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/messages?conversation_id=conv_1", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp model.MessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, uint(1), resp.Data[0].ID)
	assert.Equal(t, "2024-05-01T12:00:00Z", resp.Data[0].CreatedAt)
	assert.Equal(t, "q2", resp.Data[1].Query)
}

func TestGetMessagesLimit(t *testing.T) {
	svc := &stubIngestService{turns: []model.Turn{
		{ID: 1, ConversationID: "conv_1", UserID: "user_1"},
		{ID: 2, ConversationID: "conv_1", UserID: "user_1"},
		{ID: 3, ConversationID: "conv_1", UserID: "user_1"},
	}}
	r := messageRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/messages?conversation_id=conv_1&limit=2", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp model.MessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
}

func TestGetMessagesMissingID(t *testing.T) {
	svc := &stubIngestService{getErr: service.ErrValidation}
	r := messageRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/messages", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMessagesNotFound(t *testing.T) {
	svc := &stubIngestService{getErr: service.ErrNotFound}
	r := messageRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/messages?conversation_id=conv_ghost", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
