package service

import (
	"testing"
	"time"

	"quiz_bot_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAttemptLister struct {
	attempts []model.TestAttempt
}

func (f *fakeAttemptLister) ListByUser(userID uint) ([]model.TestAttempt, error) {
	return f.attempts, nil
}

func TestHistoryListAttempts(t *testing.T) {
	start := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	end := start.Add(5 * time.Minute)
	score := 3

	finished := model.TestAttempt{
		UserID:         7,
		StartTime:      start,
		EndTime:        &end,
		Score:          &score,
		TotalQuestions: 5,
	}
	finished.ID = 1

	abandoned := model.TestAttempt{
		UserID:         7,
		StartTime:      start,
		TotalQuestions: 10,
	}
	abandoned.ID = 2

	svc := NewHistoryService(&fakeAttemptLister{attempts: []model.TestAttempt{finished, abandoned}})

	views, err := svc.ListAttempts(7)
	require.NoError(t, err)
	require.Len(t, views, 2)

	// 已完成的测验：百分比按计划题数计算
	assert.True(t, views[0].Finished)
	require.NotNil(t, views[0].Score)
	assert.Equal(t, 3, *views[0].Score)
	assert.InDelta(t, 60.0, views[0].Percentage, 0.01)
	require.NotNil(t, views[0].EndTime)

	// 弃考的测验：无分数、无结束时间
	assert.False(t, views[1].Finished)
	assert.Nil(t, views[1].Score)
	assert.Nil(t, views[1].EndTime)
	assert.Equal(t, 0.0, views[1].Percentage)
}
