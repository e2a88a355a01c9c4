package model

import (
	"time"
)

// swagger:model User
type User struct {
	BaseModel
	ChatID    int64     `gorm:"uniqueIndex;not null" json:"chatId"` // 聊天端用户标识
	Username  string    `gorm:"size:50" json:"username"`
	FirstName string    `gorm:"size:50" json:"firstName"`
	LastName  string    `gorm:"size:50" json:"lastName"`
	LastSeen  time.Time `gorm:"default:CURRENT_TIMESTAMP(3)" json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}
