package model

// Question 题目。HasOptions 为 true 时答案由选项集合决定，
// 否则以 AnswerText 作为标准文本答案。
// swagger:model Question
type Question struct {
	BaseModel
	Text       string  `gorm:"type:text;not null" json:"text"`
	HasOptions bool    `gorm:"default:false" json:"hasOptions"`
	AnswerText *string `gorm:"type:text" json:"answerText,omitempty"`
	CreatedBy  *uint   `gorm:"index;type:bigint unsigned" json:"createdBy,omitempty"`

	Options []Option `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// CorrectOptionIDs 返回正确选项 ID 集合（可能为空）
func (q *Question) CorrectOptionIDs() []uint {
	var ids []uint
	for _, opt := range q.Options {
		if opt.IsCorrect {
			ids = append(ids, opt.ID)
		}
	}
	return ids
}
