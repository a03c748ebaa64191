package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"chat-memory-go/internal/config"
	"chat-memory-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summarizerForTest(repo *fakeTurnRepo, index *fakeSummaryIndex, llm *fakeLLM, emb *fakeEmbedding, arch *fakeArchiver) SummarizerService {
	return NewSummarizerService(repo, index, llm, emb, arch, config.SummaryConfig{Locale: "Japanese"}, "text-embedding-3-small")
}

func seedConversation(t *testing.T, repo *fakeTurnRepo, convID, userID string, n int) []model.Turn {
	t.Helper()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	batch := make([]*model.Turn, 0, n)
	for i := 0; i < n; i++ {
		batch = append(batch, &model.Turn{
			ConversationID: convID,
			UserID:         userID,
			Query:          "q",
			Answer:         "a",
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		})
	}
	require.NoError(t, repo.BatchCreate(batch))
	turns := make([]model.Turn, 0, n)
	for _, b := range batch {
		turns = append(turns, *b)
	}
	return turns
}

func TestSummarizeConversationSuccess(t *testing.T) {
	repo := newFakeTurnRepo()
	seedConversation(t, repo, "conv_1", "user_1", 3)
	index := newFakeSummaryIndex()
	llm := &fakeLLM{summary: "ユーザーは天気について質問した。"}
	arch := newFakeArchiver()
	s := summarizerForTest(repo, index, llm, &fakeEmbedding{}, arch)

	result, err := s.SummarizeConversation(context.Background(), "conv_1")
	require.NoError(t, err)
	assert.Equal(t, "conv_1", result.ConversationID)
	assert.Equal(t, "user_1", result.UserID)
	// created_at 取首条消息的时间
	assert.Equal(t, "2024-05-01T12:00:00Z", result.CreatedAt)
	assert.Equal(t, "ユーザーは天気について質問した。", result.Summary)

	doc, ok := index.docs["conv_1"]
	require.True(t, ok)
	assert.Equal(t, "user_1", doc.UserID)
	assert.Equal(t, "2024-05-01T12:00:00Z", doc.CreatedAt)
	assert.Equal(t, result.Summary, doc.SummaryText)
	assert.NotEmpty(t, doc.Vector)
	assert.Equal(t, "text-embedding-3-small", doc.ModelVersion)

	// 转录已归档且传给了生成服务
	assert.Equal(t, llm.lastTranscript, arch.archived["conv_1"])
	assert.Contains(t, llm.lastSystem, "Japanese")
}

func TestSummarizeConversationNotFound(t *testing.T) {
	repo := newFakeTurnRepo()
	index := newFakeSummaryIndex()
	s := summarizerForTest(repo, index, &fakeLLM{summary: "x"}, &fakeEmbedding{}, newFakeArchiver())

	_, err := s.SummarizeConversation(context.Background(), "conv_missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrGenerationFailure)
	assert.Empty(t, index.docs)
}

func TestSummarizeConversationMissingID(t *testing.T) {
	s := summarizerForTest(newFakeTurnRepo(), newFakeSummaryIndex(), &fakeLLM{}, &fakeEmbedding{}, newFakeArchiver())
	_, err := s.SummarizeConversation(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSummarizeGenerationFailurePersistsNothing(t *testing.T) {
	repo := newFakeTurnRepo()
	seedConversation(t, repo, "conv_1", "user_1", 2)
	index := newFakeSummaryIndex()
	llm := &fakeLLM{err: errors.New("provider timeout")}
	s := summarizerForTest(repo, index, llm, &fakeEmbedding{}, newFakeArchiver())

	_, err := s.SummarizeConversation(context.Background(), "conv_1")
	assert.ErrorIs(t, err, ErrGenerationFailure)
	assert.Empty(t, index.docs, "生成失败时索引必须保持不变")
}

func TestSummarizeEmptyContentPersistsNothing(t *testing.T) {
	repo := newFakeTurnRepo()
	seedConversation(t, repo, "conv_1", "user_1", 2)
	index := newFakeSummaryIndex()
	s := summarizerForTest(repo, index, &fakeLLM{summary: "   "}, &fakeEmbedding{}, newFakeArchiver())

	_, err := s.SummarizeConversation(context.Background(), "conv_1")
	assert.ErrorIs(t, err, ErrGenerationFailure)
	assert.Empty(t, index.docs)
}

func TestSummarizeEmbeddingFailurePersistsNothing(t *testing.T) {
	repo := newFakeTurnRepo()
	seedConversation(t, repo, "conv_1", "user_1", 2)
	index := newFakeSummaryIndex()
	emb := &fakeEmbedding{err: errors.New("embedding down")}
	s := summarizerForTest(repo, index, &fakeLLM{summary: "要約"}, emb, newFakeArchiver())

	_, err := s.SummarizeConversation(context.Background(), "conv_1")
	assert.ErrorIs(t, err, ErrGenerationFailure)
	assert.Empty(t, index.docs)
}

func TestSummarizeIdempotent(t *testing.T) {
	repo := newFakeTurnRepo()
	seedConversation(t, repo, "conv_1", "user_1", 2)
	index := newFakeSummaryIndex()
	llm := &fakeLLM{summary: "第一版の要約"}
	s := summarizerForTest(repo, index, llm, &fakeEmbedding{}, newFakeArchiver())

	_, err := s.SummarizeConversation(context.Background(), "conv_1")
	require.NoError(t, err)
	llm.summary = "第二版の要約"
	_, err = s.SummarizeConversation(context.Background(), "conv_1")
	require.NoError(t, err)

	// 重复摘要覆盖旧文档，不产生重复条目
	assert.Len(t, index.docs, 1)
	assert.Equal(t, "第二版の要約", index.docs["conv_1"].SummaryText)
}

func TestSummarizeArchiveFailureIsNonFatal(t *testing.T) {
	repo := newFakeTurnRepo()
	seedConversation(t, repo, "conv_1", "user_1", 1)
	index := newFakeSummaryIndex()
	arch := newFakeArchiver()
	arch.err = errors.New("minio down")
	s := summarizerForTest(repo, index, &fakeLLM{summary: "要約"}, &fakeEmbedding{}, arch)

	_, err := s.SummarizeConversation(context.Background(), "conv_1")
	require.NoError(t, err)
	assert.Len(t, index.docs, 1)
}

func TestSummarizeCustomSystemPrompt(t *testing.T) {
	repo := newFakeTurnRepo()
	seedConversation(t, repo, "conv_1", "user_1", 1)
	llm := &fakeLLM{summary: "要約"}
	s := NewSummarizerService(repo, newFakeSummaryIndex(), llm, &fakeEmbedding{}, newFakeArchiver(),
		config.SummaryConfig{SystemPrompt: "カスタム指示"}, "m")

	_, err := s.SummarizeConversation(context.Background(), "conv_1")
	require.NoError(t, err)
	assert.Equal(t, "カスタム指示", llm.lastSystem)
}

func TestRenderTranscript(t *testing.T) {
	turns := []model.Turn{
		{Query: "こんにちは", Answer: "こんにちは！"},
		{Query: "天気は？", Answer: "晴れです。"},
	}
	want := "User: こんにちは\nAI: こんにちは！\nUser: 天気は？\nAI: 晴れです。"
	assert.Equal(t, want, RenderTranscript(turns))
}
