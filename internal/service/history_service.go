package service

import (
	"quiz_bot_backend/internal/model"
	"quiz_bot_backend/internal/util"
)

// AttemptLister 历史查询的只读入口
type AttemptLister interface {
	ListByUser(userID uint) ([]model.TestAttempt, error)
}

type HistoryService struct {
	Attempts AttemptLister
}

func NewHistoryService(attempts AttemptLister) *HistoryService {
	return &HistoryService{Attempts: attempts}
}

// AttemptView 历史记录条目。百分比以计划题数为分母，
// 与测验结束时汇总里的实答分母不同，便于看出弃考。
type AttemptView struct {
	ID             uint    `json:"id"`
	StartTime      string  `json:"startTime"`
	EndTime        *string `json:"endTime,omitempty"`
	Score          *int    `json:"score,omitempty"`
	TotalQuestions int     `json:"totalQuestions"`
	Percentage     float64 `json:"percentage"`
	Finished       bool    `json:"finished"`
}

func (s *HistoryService) ListAttempts(userID uint) ([]AttemptView, error) {
	attempts, err := s.Attempts.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	views := make([]AttemptView, 0, len(attempts))
	for _, a := range attempts {
		view := AttemptView{
			ID:             a.ID,
			StartTime:      a.StartTime.Format(util.TimeFormat),
			TotalQuestions: a.TotalQuestions,
			Finished:       a.EndTime != nil,
		}
		if a.EndTime != nil {
			end := a.EndTime.Format(util.TimeFormat)
			view.EndTime = &end
		}
		if a.Score != nil {
			view.Score = a.Score
			if a.TotalQuestions > 0 {
				view.Percentage = float64(*a.Score) / float64(a.TotalQuestions) * 100
			}
		}
		views = append(views, view)
	}
	return views, nil
}
