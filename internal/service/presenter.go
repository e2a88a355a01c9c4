package service

import (
	"fmt"
	"time"

	"quiz_bot_backend/internal/model"

	"github.com/google/uuid"
)

// Presenter 负责把会话事件渲染成可下发的载荷。
// 选项题的提示由它铸造 poll token，后续作答必须携带同一 token。
type Presenter interface {
	CountPrompt(total int64) *Prompt
	OptionPrompt(userID uint, sequence, total int, q *model.Question) (*Prompt, string)
	TextPrompt(userID uint, sequence, total int, q *model.Question) *Prompt
	SkippedNotice(userID uint, sequence int) string
	Feedback(userID uint, correct bool, correctAnswers []string) *Feedback
	Summary(userID uint, correct, answered, planned int, duration time.Duration) *Summary
}

type OptionView struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

// Prompt 下一步需要用户回应的提示
type Prompt struct {
	Kind       string       `json:"kind"` // count / options / text
	Message    string       `json:"message"`
	Sequence   int          `json:"sequence,omitempty"` // 1-based 题号
	Total      int          `json:"total,omitempty"`
	QuestionID uint         `json:"questionId,omitempty"`
	Options    []OptionView `json:"options,omitempty"`
	PollToken  string       `json:"pollToken,omitempty"` // 仅选项题
}

type Feedback struct {
	Correct        bool     `json:"correct"`
	Message        string   `json:"message"`
	CorrectAnswers []string `json:"correctAnswers,omitempty"`
}

type Summary struct {
	Correct         int     `json:"correct"`
	Answered        int     `json:"answered"`
	TotalPlanned    int     `json:"totalPlanned"`
	Percentage      float64 `json:"percentage"`
	DurationSeconds int     `json:"durationSeconds"`
	Message         string  `json:"message"`
}

// DefaultPresenter 构造结构化载荷，并在用户有在线连接时经推送通道镜像一份
type DefaultPresenter struct {
	Hub *PushHub
}

func NewDefaultPresenter(hub *PushHub) *DefaultPresenter {
	return &DefaultPresenter{Hub: hub}
}

func (p *DefaultPresenter) push(userID uint, msgType string, data interface{}) {
	if p.Hub != nil {
		p.Hub.SendToUser(userID, WSMessage{Type: msgType, Data: data})
	}
}

func (p *DefaultPresenter) CountPrompt(total int64) *Prompt {
	return &Prompt{
		Kind:    "count",
		Message: fmt.Sprintf("How many questions would you like? (1 to %d)", total),
	}
}

func (p *DefaultPresenter) OptionPrompt(userID uint, sequence, total int, q *model.Question) (*Prompt, string) {
	token := uuid.New().String()

	options := make([]OptionView, len(q.Options))
	for i, opt := range q.Options {
		options[i] = OptionView{ID: opt.ID, Text: opt.OptionText}
	}

	prompt := &Prompt{
		Kind:       "options",
		Message:    fmt.Sprintf("%d. %s", sequence, q.Text),
		Sequence:   sequence,
		Total:      total,
		QuestionID: q.ID,
		Options:    options,
		PollToken:  token,
	}
	p.push(userID, "prompt", prompt)
	return prompt, token
}

func (p *DefaultPresenter) TextPrompt(userID uint, sequence, total int, q *model.Question) *Prompt {
	prompt := &Prompt{
		Kind:       "text",
		Message:    fmt.Sprintf("Question %d: %s", sequence, q.Text),
		Sequence:   sequence,
		Total:      total,
		QuestionID: q.ID,
	}
	p.push(userID, "prompt", prompt)
	return prompt
}

func (p *DefaultPresenter) SkippedNotice(userID uint, sequence int) string {
	notice := fmt.Sprintf("Question %d was skipped: it does not have enough answer options.", sequence)
	p.push(userID, "notice", notice)
	return notice
}

func (p *DefaultPresenter) Feedback(userID uint, correct bool, correctAnswers []string) *Feedback {
	fb := &Feedback{Correct: correct}
	if correct {
		fb.Message = "Correct!"
	} else {
		fb.Message = "Incorrect!"
		fb.CorrectAnswers = correctAnswers
	}
	p.push(userID, "feedback", fb)
	return fb
}

func (p *DefaultPresenter) Summary(userID uint, correct, answered, planned int, duration time.Duration) *Summary {
	percentage := 0.0
	if answered > 0 {
		percentage = float64(correct) / float64(answered) * 100
	}

	s := &Summary{
		Correct:         correct,
		Answered:        answered,
		TotalPlanned:    planned,
		Percentage:      percentage,
		DurationSeconds: int(duration.Seconds()),
		Message: fmt.Sprintf("Test finished! %d of %d correct (%.1f%%) in %d min %d sec.",
			correct, answered, percentage,
			int(duration.Seconds())/60, int(duration.Seconds())%60),
	}
	p.push(userID, "summary", s)
	return s
}
