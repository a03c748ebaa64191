package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"chat-memory-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundaryDetectorNoPriorTurn(t *testing.T) {
	repo := newFakeTurnRepo()
	d := NewBoundaryDetector(repo)

	decision, err := d.Detect(context.Background(), "user_1", "conv_1")
	require.NoError(t, err)
	assert.Equal(t, NoPriorTurn, decision.Kind)
	assert.Nil(t, decision.PrevTurn)
}

func TestBoundaryDetectorSameConversation(t *testing.T) {
	repo := newFakeTurnRepo()
	require.NoError(t, repo.BatchCreate([]*model.Turn{
		{ConversationID: "conv_1", UserID: "user_1", Query: "q", Answer: "a", CreatedAt: time.Now().UTC()},
	}))
	d := NewBoundaryDetector(repo)

	decision, err := d.Detect(context.Background(), "user_1", "conv_1")
	require.NoError(t, err)
	assert.Equal(t, SameConversation, decision.Kind)
}

func TestBoundaryDetectorConversationSwitch(t *testing.T) {
	repo := newFakeTurnRepo()
	require.NoError(t, repo.BatchCreate([]*model.Turn{
		{ConversationID: "conv_1", UserID: "user_1", Query: "q1", Answer: "a1", CreatedAt: time.Now().UTC()},
		{ConversationID: "conv_2", UserID: "user_1", Query: "q2", Answer: "a2", CreatedAt: time.Now().UTC()},
	}))
	d := NewBoundaryDetector(repo)

	decision, err := d.Detect(context.Background(), "user_1", "conv_3")
	require.NoError(t, err)
	assert.Equal(t, ConversationSwitch, decision.Kind)
	require.NotNil(t, decision.PrevTurn)
	// 只看最近一条消息，所以旧对话是 conv_2 而不是 conv_1
	assert.Equal(t, "conv_2", decision.PrevTurn.ConversationID)
}

func TestBoundaryDetectorOtherUsersIgnored(t *testing.T) {
	repo := newFakeTurnRepo()
	require.NoError(t, repo.BatchCreate([]*model.Turn{
		{ConversationID: "conv_x", UserID: "user_2", Query: "q", Answer: "a", CreatedAt: time.Now().UTC()},
	}))
	d := NewBoundaryDetector(repo)

	decision, err := d.Detect(context.Background(), "user_1", "conv_1")
	require.NoError(t, err)
	assert.Equal(t, NoPriorTurn, decision.Kind)
}

func TestBoundaryDetectorRepoError(t *testing.T) {
	repo := newFakeTurnRepo()
	repo.findErr = errors.New("db down")
	d := NewBoundaryDetector(repo)

	_, err := d.Detect(context.Background(), "user_1", "conv_1")
	assert.Error(t, err)
}
