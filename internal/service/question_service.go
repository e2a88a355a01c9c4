package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"quiz_bot_backend/internal/model"
	"quiz_bot_backend/internal/repository"
	"quiz_bot_backend/internal/util"
	"quiz_bot_backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type QuestionService struct {
	QuestionRepo *repository.QuestionRepository
	Storage      *StorageService
}

func NewQuestionService(questionRepo *repository.QuestionRepository, storage *StorageService) *QuestionService {
	return &QuestionService{QuestionRepo: questionRepo, Storage: storage}
}

// OptionInput 创建/更新题目时的选项载荷
type OptionInput struct {
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"isCorrect"`
}

type CreateQuestionInput struct {
	Text       string        `json:"text" binding:"required"`
	HasOptions bool          `json:"hasOptions"`
	AnswerText *string       `json:"answerText"`
	Options    []OptionInput `json:"options"`
}

type UpdateQuestionInput struct {
	Text       string        `json:"text" binding:"required"`
	HasOptions bool          `json:"hasOptions"`
	AnswerText *string       `json:"answerText"`
	Options    []OptionInput `json:"options"`
}

// QuestionSummary 列表项，题干过长时截断展示
type QuestionSummary struct {
	ID         uint   `json:"id"`
	Preview    string `json:"preview"`
	HasOptions bool   `json:"hasOptions"`
	CreatedAt  string `json:"createdAt"`
}

type QuestionDetail struct {
	ID         uint         `json:"id"`
	Text       string       `json:"text"`
	HasOptions bool         `json:"hasOptions"`
	AnswerText *string      `json:"answerText,omitempty"`
	Options    []OptionItem `json:"options,omitempty"`
}

type OptionItem struct {
	ID        uint   `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// ImportResult 批量导入结果
type ImportResult struct {
	Imported int    `json:"imported"`
	FileURL  string `json:"fileUrl,omitempty"`
}

// SolveResult 单题练习模式的判题结果
type SolveResult struct {
	QuestionID     uint     `json:"questionId"`
	Correct        bool     `json:"correct"`
	CorrectAnswers []string `json:"correctAnswers,omitempty"`
}

func validateQuestionInput(hasOptions bool, answerText *string, options []OptionInput) error {
	if hasOptions {
		if len(options) < 2 {
			return util.ErrDegenerateQuestion
		}
		hasCorrect := false
		for _, opt := range options {
			if opt.IsCorrect {
				hasCorrect = true
				break
			}
		}
		if !hasCorrect {
			return util.ErrNoCorrectOption
		}
		return nil
	}
	if answerText == nil || strings.TrimSpace(*answerText) == "" {
		return util.ErrNoCorrectOption
	}
	return nil
}

func (s *QuestionService) CreateQuestion(input CreateQuestionInput, createdBy *uint) (*QuestionDetail, error) {
	if err := validateQuestionInput(input.HasOptions, input.AnswerText, input.Options); err != nil {
		return nil, err
	}

	q := model.Question{
		Text:       input.Text,
		HasOptions: input.HasOptions,
		CreatedBy:  createdBy,
	}
	var options []model.Option
	if input.HasOptions {
		for _, opt := range input.Options {
			options = append(options, model.Option{OptionText: opt.Text, IsCorrect: opt.IsCorrect})
		}
	} else {
		q.AnswerText = input.AnswerText
	}

	if err := s.QuestionRepo.CreateWithOptions(&q, options); err != nil {
		return nil, err
	}

	logger.Log.Info("question created", zap.Uint("question_id", q.ID), zap.Bool("has_options", q.HasOptions))

	loaded, err := s.QuestionRepo.FindWithOptions(q.ID)
	if err != nil {
		return nil, err
	}
	return toDetail(loaded), nil
}

func (s *QuestionService) GetQuestion(id uint) (*QuestionDetail, error) {
	q, err := s.QuestionRepo.FindWithOptions(id)
	if err != nil {
		return nil, err
	}
	return toDetail(q), nil
}

func (s *QuestionService) ListQuestions(page, limit int) ([]QuestionSummary, int64, error) {
	qs, total, err := s.QuestionRepo.ListQuestions(page, limit)
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]QuestionSummary, 0, len(qs))
	for _, q := range qs {
		summaries = append(summaries, QuestionSummary{
			ID:         q.ID,
			Preview:    truncate(q.Text, 80),
			HasOptions: q.HasOptions,
			CreatedAt:  q.CreatedAt.Format(util.TimeFormat),
		})
	}
	return summaries, total, nil
}

func (s *QuestionService) UpdateQuestion(id uint, input UpdateQuestionInput) (*QuestionDetail, error) {
	if err := validateQuestionInput(input.HasOptions, input.AnswerText, input.Options); err != nil {
		return nil, err
	}

	q, err := s.QuestionRepo.FindByID(id)
	if err != nil {
		return nil, err
	}

	q.Text = input.Text
	q.HasOptions = input.HasOptions
	if input.HasOptions {
		q.AnswerText = nil
	} else {
		q.AnswerText = input.AnswerText
	}

	var options []model.Option
	for _, opt := range input.Options {
		options = append(options, model.Option{OptionText: opt.Text, IsCorrect: opt.IsCorrect})
	}
	if !input.HasOptions {
		options = nil
	}

	if err := s.QuestionRepo.ReplaceOptions(q, options); err != nil {
		return nil, err
	}

	loaded, err := s.QuestionRepo.FindWithOptions(id)
	if err != nil {
		return nil, err
	}
	return toDetail(loaded), nil
}

func (s *QuestionService) DeleteQuestion(id uint) error {
	return s.QuestionRepo.Delete(id)
}

// SolveQuestion 单题练习：直接判题，不落测验记录
func (s *QuestionService) SolveQuestion(id uint, selectedOptions []uint, textAnswer string) (*SolveResult, error) {
	q, err := s.QuestionRepo.FindWithOptions(id)
	if err != nil {
		return nil, err
	}

	result := &SolveResult{QuestionID: q.ID}

	if q.HasOptions {
		if textAnswer != "" && len(selectedOptions) == 0 {
			return nil, util.ErrChoiceAnswerExpected
		}
		result.Correct = JudgeSelection(selectedOptions, q.CorrectOptionIDs())
		if !result.Correct {
			for _, opt := range q.Options {
				if opt.IsCorrect {
					result.CorrectAnswers = append(result.CorrectAnswers, opt.OptionText)
				}
			}
		}
		return result, nil
	}

	if len(selectedOptions) > 0 {
		return nil, util.ErrTextAnswerExpected
	}
	result.Correct = JudgeText(textAnswer, q.AnswerText)
	if !result.Correct && q.AnswerText != nil {
		result.CorrectAnswers = []string{*q.AnswerText}
	}
	return result, nil
}

// ImportQuestions 从上传的文本文件批量导入题目。格式：
// 题目之间以空行分隔；块内首行为题干，其余行为选项，
// 以 "-" 开头的选项为正确答案；只有一行的块视为文本题，
// 该行同时是题干和标准答案。
func (s *QuestionService) ImportQuestions(ctx context.Context, file *multipart.FileHeader, createdBy *uint) (*ImportResult, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	questions, optionSets, err := ParseImportFile(src)
	if err != nil {
		return nil, err
	}
	for i := range questions {
		questions[i].CreatedBy = createdBy
	}

	if err := s.QuestionRepo.BulkCreate(questions, optionSets); err != nil {
		return nil, err
	}

	result := &ImportResult{Imported: len(questions)}

	// 原始文件归档，失败不影响导入结果
	if s.Storage != nil {
		if _, err := src.Seek(0, io.SeekStart); err == nil {
			objectName := fmt.Sprintf("imports/%s_%s", uuid.New().String(), file.Filename)
			url, err := s.Storage.Upload(ctx, objectName, src, file.Size, util.MimeTextPlain)
			if err != nil {
				logger.Log.Warn("failed to archive import file", zap.String("filename", file.Filename), zap.Error(err))
			} else {
				result.FileURL = url
			}
		}
	}

	logger.Log.Info("questions imported", zap.Int("count", result.Imported), zap.String("filename", file.Filename))
	return result, nil
}

// ParseImportFile 解析导入文本，返回题目与对应选项集
func ParseImportFile(r io.Reader) ([]model.Question, [][]model.Option, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var questions []model.Question
	var optionSets [][]model.Option
	var block []string

	flush := func() error {
		if len(block) == 0 {
			return nil
		}
		q, opts, err := parseBlock(block)
		if err != nil {
			return err
		}
		questions = append(questions, q)
		optionSets = append(optionSets, opts)
		block = nil
		return nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			if err := flush(); err != nil {
				return nil, nil, err
			}
			continue
		}
		block = append(block, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	if err := flush(); err != nil {
		return nil, nil, err
	}

	if len(questions) == 0 {
		return nil, nil, util.ErrEmptyImportFile
	}
	return questions, optionSets, nil
}

func parseBlock(lines []string) (model.Question, []model.Option, error) {
	// 单行块：文本题，题干即标准答案
	if len(lines) == 1 {
		answer := lines[0]
		return model.Question{Text: lines[0], AnswerText: &answer}, nil, nil
	}

	q := model.Question{Text: lines[0], HasOptions: true}
	var opts []model.Option
	hasCorrect := false
	for _, line := range lines[1:] {
		isCorrect := strings.HasPrefix(line, "-")
		text := strings.TrimSpace(strings.TrimPrefix(line, "-"))
		if text == "" {
			continue
		}
		if isCorrect {
			hasCorrect = true
		}
		opts = append(opts, model.Option{OptionText: text, IsCorrect: isCorrect})
	}

	if len(opts) < 2 {
		return model.Question{}, nil, fmt.Errorf("question %q: %w", truncate(q.Text, 40), util.ErrDegenerateQuestion)
	}
	if !hasCorrect {
		return model.Question{}, nil, fmt.Errorf("question %q: %w", truncate(q.Text, 40), util.ErrNoCorrectOption)
	}
	return q, opts, nil
}

func toDetail(q *model.Question) *QuestionDetail {
	detail := &QuestionDetail{
		ID:         q.ID,
		Text:       q.Text,
		HasOptions: q.HasOptions,
		AnswerText: q.AnswerText,
	}
	for _, opt := range q.Options {
		detail.Options = append(detail.Options, OptionItem{ID: opt.ID, Text: opt.OptionText, IsCorrect: opt.IsCorrect})
	}
	return detail
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
