package model

import "time"

// TestAttempt 一次多题测试。EndTime 与 Score 在结算时同时写入；
// 两者为空表示测试进行中或已被放弃。TotalQuestions 固定为抽题数量。
// swagger:model TestAttempt
type TestAttempt struct {
	BaseModel
	UserID         uint       `gorm:"index;not null;type:bigint unsigned" json:"userId"`
	StartTime      time.Time  `gorm:"not null" json:"startTime"`
	EndTime        *time.Time `json:"endTime,omitempty"`
	Score          *int       `json:"score,omitempty"`
	TotalQuestions int        `gorm:"not null" json:"totalQuestions"`

	Answers []AttemptAnswer `gorm:"foreignKey:TestAttemptID" json:"answers,omitempty"`
}

func (TestAttempt) TableName() string {
	return "test_attempts"
}
