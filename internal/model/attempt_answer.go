package model

// AttemptAnswer 一次测试中单题的作答记录。
// 同一 (test_attempt_id, question_id) 至多一行。
// swagger:model AttemptAnswer
type AttemptAnswer struct {
	BaseModel
	TestAttemptID uint   `gorm:"uniqueIndex:idx_attempt_question;not null;type:bigint unsigned" json:"testAttemptId"`
	QuestionID    uint   `gorm:"uniqueIndex:idx_attempt_question;not null;type:bigint unsigned" json:"questionId"`
	GivenAnswer   string `gorm:"type:text" json:"givenAnswer,omitempty"`
	IsCorrect     *bool  `json:"isCorrect"`
}

func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}
