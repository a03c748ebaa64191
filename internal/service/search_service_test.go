package service

import (
	"context"
	"errors"
	"testing"

	"chat-memory-go/internal/config"
	"chat-memory-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchMemoriesValidation(t *testing.T) {
	s := NewSearchService(&fakeEmbedding{}, newFakeSummaryIndex(), config.SummaryConfig{})

	_, err := s.SearchMemories(context.Background(), "", "user_1", 5)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.SearchMemories(context.Background(), "天気", "", 5)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSearchMemoriesEmptyResultIsNotAnError(t *testing.T) {
	s := NewSearchService(&fakeEmbedding{}, newFakeSummaryIndex(), config.SummaryConfig{})

	hits, err := s.SearchMemories(context.Background(), "天気", "user_without_memories", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchMemoriesReturnsRankedHits(t *testing.T) {
	index := newFakeSummaryIndex()
	index.hits = []model.SummaryHit{
		{SummaryResult: model.SummaryResult{ConversationID: "conv_2", UserID: "user_1", Summary: "旅行の相談"}, Score: 0.92},
		{SummaryResult: model.SummaryResult{ConversationID: "conv_1", UserID: "user_1", Summary: "天気の話"}, Score: 0.81},
		{SummaryResult: model.SummaryResult{ConversationID: "conv_9", UserID: "user_2", Summary: "別ユーザー"}, Score: 0.99},
	}
	s := NewSearchService(&fakeEmbedding{}, index, config.SummaryConfig{})

	hits, err := s.SearchMemories(context.Background(), "旅行", "user_1", 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "conv_2", hits[0].ConversationID)
	assert.Equal(t, "conv_1", hits[1].ConversationID)
}

func TestSearchMemoriesDefaultLimit(t *testing.T) {
	index := newFakeSummaryIndex()
	s := NewSearchService(&fakeEmbedding{}, index, config.SummaryConfig{DefaultSearchLimit: 7})

	_, err := s.SearchMemories(context.Background(), "天気", "user_1", 0)
	require.NoError(t, err)
	assert.Equal(t, 7, index.lastLimit)
}

func TestSearchMemoriesEmbeddingFailure(t *testing.T) {
	emb := &fakeEmbedding{err: errors.New("embedding down")}
	s := NewSearchService(emb, newFakeSummaryIndex(), config.SummaryConfig{})

	_, err := s.SearchMemories(context.Background(), "天気", "user_1", 5)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrValidation)
}
