package database

import (
	"fmt"
	"log"
	"quiz_bot_backend/internal/config"
	"quiz_bot_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	err = db.AutoMigrate(
		&model.User{},
		&model.Question{},
		&model.Option{},
		&model.TestAttempt{},
		&model.AttemptAnswer{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	// 空题库时写入示例题目，方便首测
	var count int64
	db.Model(&model.Question{}).Count(&count)
	if count == 0 {
		capital := "Paris"
		textQuestion := &model.Question{
			Text:       "What is the capital of France?",
			HasOptions: false,
			AnswerText: &capital,
		}
		db.Create(textQuestion)

		choiceQuestion := &model.Question{
			Text:       "Which of the following are even numbers?",
			HasOptions: true,
		}
		db.Create(choiceQuestion)
		for _, opt := range []model.Option{
			{QuestionID: choiceQuestion.ID, OptionText: "2", IsCorrect: true},
			{QuestionID: choiceQuestion.ID, OptionText: "3"},
			{QuestionID: choiceQuestion.ID, OptionText: "4", IsCorrect: true},
			{QuestionID: choiceQuestion.ID, OptionText: "5"},
		} {
			db.Create(&opt)
		}
	}

	return db, nil
}
