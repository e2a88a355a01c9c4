package model

// swagger:model Option
type Option struct {
	BaseModel
	QuestionID uint   `gorm:"index;not null;type:bigint unsigned" json:"questionId"`
	OptionText string `gorm:"type:text;not null" json:"optionText"`
	IsCorrect  bool   `gorm:"default:false" json:"isCorrect"`
}

func (Option) TableName() string {
	return "options"
}
