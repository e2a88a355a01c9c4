package repository

import (
	"context"
	"strconv"
	"time"

	"quiz_bot_backend/internal/model"
	"quiz_bot_backend/internal/util"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const catalogCountKey = "quiz:catalog:count"

type QuestionRepository struct {
	DB       *gorm.DB
	RDB      *redis.Client
	CountTTL time.Duration
}

func NewQuestionRepository(db *gorm.DB, rdb *redis.Client, countTTL time.Duration) *QuestionRepository {
	if countTTL <= 0 {
		countTTL = 30 * time.Second
	}
	return &QuestionRepository{DB: db, RDB: rdb, CountTTL: countTTL}
}

// CountQuestions 题目总数，经 Redis 短暂缓存，写操作后失效
func (r *QuestionRepository) CountQuestions() (int64, error) {
	ctx := context.Background()

	if r.RDB != nil {
		if cached, err := r.RDB.Get(ctx, catalogCountKey).Result(); err == nil {
			if n, err := strconv.ParseInt(cached, 10, 64); err == nil {
				return n, nil
			}
		}
	}

	var total int64
	if err := r.DB.Model(&model.Question{}).Count(&total).Error; err != nil {
		return 0, err
	}

	if r.RDB != nil {
		r.RDB.Set(ctx, catalogCountKey, strconv.FormatInt(total, 10), r.CountTTL)
	}

	return total, nil
}

func (r *QuestionRepository) invalidateCountCache() {
	if r.RDB != nil {
		r.RDB.Del(context.Background(), catalogCountKey)
	}
}

// SampleQuestions 均匀随机抽取 n 道互不相同的题目，返回顺序即出题顺序
func (r *QuestionRepository) SampleQuestions(n int) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.Order("RAND()").Limit(n).Find(&qs).Error
	return qs, err
}

func (r *QuestionRepository) FindByID(id uint) (*model.Question, error) {
	var q model.Question
	err := r.DB.First(&q, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}
	return &q, nil
}

// FindWithOptions 加载题目及其全部选项
func (r *QuestionRepository) FindWithOptions(id uint) (*model.Question, error) {
	var q model.Question
	err := r.DB.Preload("Options").First(&q, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (r *QuestionRepository) ListQuestions(page, limit int) ([]model.Question, int64, error) {
	var qs []model.Question
	var total int64
	query := r.DB.Model(&model.Question{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&qs).Error
	return qs, total, err
}

// CreateWithOptions 在同一事务中写入题目与其选项
func (r *QuestionRepository) CreateWithOptions(q *model.Question, options []model.Option) error {
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(q).Error; err != nil {
			return err
		}
		for i := range options {
			options[i].QuestionID = q.ID
			if err := tx.Create(&options[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		r.invalidateCountCache()
	}
	return err
}

// ReplaceOptions 更新题目并整体替换其选项
func (r *QuestionRepository) ReplaceOptions(q *model.Question, options []model.Option) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(q).Error; err != nil {
			return err
		}
		if err := tx.Where("question_id = ?", q.ID).Delete(&model.Option{}).Error; err != nil {
			return err
		}
		for i := range options {
			options[i].ID = 0
			options[i].QuestionID = q.ID
			if err := tx.Create(&options[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *QuestionRepository) Update(q *model.Question) error {
	return r.DB.Save(q).Error
}

func (r *QuestionRepository) Delete(id uint) error {
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", id).Delete(&model.Option{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.Question{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return util.ErrQuestionNotFound
		}
		return nil
	})
	if err == nil {
		r.invalidateCountCache()
	}
	return err
}

// BulkCreate 批量导入，全部成功或全部回滚
func (r *QuestionRepository) BulkCreate(questions []model.Question, optionSets [][]model.Option) error {
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		for i := range questions {
			if err := tx.Create(&questions[i]).Error; err != nil {
				return err
			}
			for j := range optionSets[i] {
				optionSets[i][j].QuestionID = questions[i].ID
				if err := tx.Create(&optionSets[i][j]).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		r.invalidateCountCache()
	}
	return err
}
