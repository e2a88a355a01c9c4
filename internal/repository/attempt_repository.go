package repository

import (
	"time"

	"quiz_bot_backend/internal/model"
	"quiz_bot_backend/internal/util"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) CreateAttempt(userID uint, totalQuestions int) (uint, error) {
	attempt := &model.TestAttempt{
		UserID:         userID,
		StartTime:      time.Now(),
		TotalQuestions: totalQuestions,
	}
	if err := r.DB.Create(attempt).Error; err != nil {
		return 0, err
	}
	return attempt.ID, nil
}

// RecordAnswer 追加一条作答记录。同一题目重复写入返回错误而不是覆盖，
// 正常流程中重复由会话层的 token 校验挡住，这里是最后一道防线。
func (r *AttemptRepository) RecordAnswer(attemptID, questionID uint, givenAnswer string, isCorrect bool) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&model.AttemptAnswer{}).
			Where("test_attempt_id = ? AND question_id = ?", attemptID, questionID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return util.ErrStaleAnswer
		}

		answer := &model.AttemptAnswer{
			TestAttemptID: attemptID,
			QuestionID:    questionID,
			GivenAnswer:   givenAnswer,
			IsCorrect:     &isCorrect,
		}
		return tx.Create(answer).Error
	})
}

// FinalizeAttempt 结算：统计正确数与作答数，同一事务内写入 end_time 与 score。
// 返回 (correct, answered)。
func (r *AttemptRepository) FinalizeAttempt(attemptID uint) (int, int, error) {
	var correct, answered int

	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var attempt model.TestAttempt
		if err := tx.First(&attempt, attemptID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return util.ErrAttemptNotFound
			}
			return err
		}

		var answeredCount, correctCount int64
		if err := tx.Model(&model.AttemptAnswer{}).
			Where("test_attempt_id = ?", attemptID).
			Count(&answeredCount).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.AttemptAnswer{}).
			Where("test_attempt_id = ? AND is_correct = ?", attemptID, true).
			Count(&correctCount).Error; err != nil {
			return err
		}

		now := time.Now()
		score := int(correctCount)
		attempt.EndTime = &now
		attempt.Score = &score
		if err := tx.Save(&attempt).Error; err != nil {
			return err
		}

		correct = int(correctCount)
		answered = int(answeredCount)
		return nil
	})

	return correct, answered, err
}

func (r *AttemptRepository) FindByID(id uint) (*model.TestAttempt, error) {
	var attempt model.TestAttempt
	err := r.DB.First(&attempt, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// ListByUser 按结束时间倒序列出某用户全部测试（未结束的排在最后）
func (r *AttemptRepository) ListByUser(userID uint) ([]model.TestAttempt, error) {
	var attempts []model.TestAttempt
	err := r.DB.Where("user_id = ?", userID).
		Order("end_time IS NULL, end_time desc").
		Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) CountAnswers(attemptID uint) (int64, error) {
	var total int64
	err := r.DB.Model(&model.AttemptAnswer{}).
		Where("test_attempt_id = ?", attemptID).
		Count(&total).Error
	return total, err
}
