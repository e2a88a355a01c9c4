package service

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"quiz_bot_backend/internal/model"
	"quiz_bot_backend/internal/util"
	"quiz_bot_backend/pkg/logger"
	"quiz_bot_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// CatalogReader 题库只读访问
type CatalogReader interface {
	CountQuestions() (int64, error)
	SampleQuestions(n int) ([]model.Question, error)
	FindWithOptions(id uint) (*model.Question, error)
}

// AttemptRecorder 测试结果持久化网关，三个操作都是原子的
type AttemptRecorder interface {
	CreateAttempt(userID uint, totalQuestions int) (uint, error)
	RecordAnswer(attemptID, questionID uint, givenAnswer string, isCorrect bool) error
	FinalizeAttempt(attemptID uint) (correct int, answered int, err error)
}

type SessionPhase int

const (
	PhaseAwaitingCount SessionPhase = iota
	PhaseAwaitingAnswer
)

// QuizSession 单个用户进行中的测试。只存在于内存，进程重启即消失；
// 已写入的 attempt_answers 行不受影响。
type QuizSession struct {
	mu          sync.Mutex
	UserID      uint
	Phase       SessionPhase
	AttemptID   uint
	QuestionIDs []uint
	Cursor      int
	StartTime   time.Time
	PollToken   string // 当前选项题的 poll 标识，文本题期间为空
}

// SessionEvent 一次事件处理后要回给用户的全部内容
type SessionEvent struct {
	Feedback *Feedback `json:"feedback,omitempty"`
	Skipped  []string  `json:"skipped,omitempty"`
	Prompt   *Prompt   `json:"prompt,omitempty"`
	Summary  *Summary  `json:"summary,omitempty"`
	Closed   bool      `json:"closed,omitempty"`
	Stale    bool      `json:"stale,omitempty"`
}

// SessionService 管理所有活动测试会话。
// 每个用户同一时刻至多一个会话；同一用户的事件串行处理（会话内互斥锁），
// 不同用户的事件互不影响。
type SessionService struct {
	Catalog   CatalogReader
	Recorder  AttemptRecorder
	Presenter Presenter

	mu       sync.RWMutex
	sessions map[uint]*QuizSession
}

func NewSessionService(catalog CatalogReader, recorder AttemptRecorder, presenter Presenter) *SessionService {
	return &SessionService{
		Catalog:   catalog,
		Recorder:  recorder,
		Presenter: presenter,
		sessions:  make(map[uint]*QuizSession),
	}
}

func (s *SessionService) lookup(userID uint) *QuizSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[userID]
}

// drop 移除会话。比较指针，避免并发 Start 替换后被旧事件误删
func (s *SessionService) drop(sess *QuizSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.sessions[sess.UserID]; ok && current == sess {
		delete(s.sessions, sess.UserID)
		monitoring.ActiveSessions.Dec()
	}
}

// Start 开始新测试：询问题目数量。
// 已有会话时直接顶掉（旧的 attempt 保持未结算，即被放弃）。
func (s *SessionService) Start(userID uint) (*SessionEvent, error) {
	total, err := s.Catalog.CountQuestions()
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, util.ErrEmptyCatalog
	}

	sess := &QuizSession{
		UserID: userID,
		Phase:  PhaseAwaitingCount,
	}

	s.mu.Lock()
	if old, ok := s.sessions[userID]; ok {
		logger.Log.Info("replacing active quiz session",
			zap.Uint("userId", userID), zap.Uint("attemptId", old.AttemptID))
	} else {
		monitoring.ActiveSessions.Inc()
	}
	s.sessions[userID] = sess
	s.mu.Unlock()

	return &SessionEvent{Prompt: s.Presenter.CountPrompt(total)}, nil
}

// SupplyCount 用户回答题目数量：抽题、建档、出第一题
func (s *SessionService) SupplyCount(userID uint, n int) (*SessionEvent, error) {
	sess := s.lookup(userID)
	if sess == nil {
		return nil, util.ErrNoActiveSession
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Phase != PhaseAwaitingCount {
		return nil, util.ErrNoActiveSession
	}

	total, err := s.Catalog.CountQuestions()
	if err != nil {
		return nil, err
	}
	if n < 1 || int64(n) > total {
		// 校验失败重新提问，状态不变
		return nil, util.ErrInvalidQuestionCount
	}

	questions, err := s.Catalog.SampleQuestions(n)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, util.ErrEmptyCatalog
	}

	attemptID, err := s.Recorder.CreateAttempt(userID, len(questions))
	if err != nil {
		return nil, err
	}

	ids := make([]uint, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}

	sess.AttemptID = attemptID
	sess.QuestionIDs = ids
	sess.Cursor = 0
	sess.StartTime = time.Now()

	ev := &SessionEvent{}
	if err := s.advance(sess, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// advance 呈现游标所指的题目；选项不足的题目跳过不占作答名额。
// 题目耗尽时进入结算。
func (s *SessionService) advance(sess *QuizSession, ev *SessionEvent) error {
	for {
		if sess.Cursor >= len(sess.QuestionIDs) {
			return s.finish(sess, ev)
		}

		qid := sess.QuestionIDs[sess.Cursor]
		q, err := s.Catalog.FindWithOptions(qid)
		if err != nil {
			// 题目在会话进行中消失，会话中止
			s.drop(sess)
			return err
		}

		sequence := sess.Cursor + 1
		total := len(sess.QuestionIDs)

		if q.HasOptions {
			if len(q.Options) < 2 {
				ev.Skipped = append(ev.Skipped, s.Presenter.SkippedNotice(sess.UserID, sequence))
				sess.Cursor++
				continue
			}
			prompt, token := s.Presenter.OptionPrompt(sess.UserID, sequence, total, q)
			sess.PollToken = token
			sess.Phase = PhaseAwaitingAnswer
			ev.Prompt = prompt
			return nil
		}

		prompt := s.Presenter.TextPrompt(sess.UserID, sequence, total, q)
		sess.PollToken = ""
		sess.Phase = PhaseAwaitingAnswer
		ev.Prompt = prompt
		return nil
	}
}

// SubmitSelection 选项题作答。token 与当前提示不符的事件视为过期，
// 静默丢弃：不判题、不落库、游标不动。
func (s *SessionService) SubmitSelection(userID uint, token string, optionIDs []uint) (*SessionEvent, error) {
	sess := s.lookup(userID)
	if sess == nil {
		return nil, util.ErrNoActiveSession
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	// 上次结算失败后游标已到末尾：重发的作答事件改为重试结算
	if sess.Phase == PhaseAwaitingAnswer && sess.Cursor >= len(sess.QuestionIDs) {
		ev := &SessionEvent{}
		if err := s.finish(sess, ev); err != nil {
			return nil, err
		}
		return ev, nil
	}

	if sess.Phase != PhaseAwaitingAnswer || sess.PollToken == "" || token != sess.PollToken {
		logger.Log.Debug("discarding stale selection",
			zap.Uint("userId", userID), zap.String("token", token))
		return &SessionEvent{Stale: true}, nil
	}

	qid := sess.QuestionIDs[sess.Cursor]
	q, err := s.Catalog.FindWithOptions(qid)
	if err != nil {
		s.drop(sess)
		return nil, err
	}

	correct := JudgeSelection(optionIDs, q.CorrectOptionIDs())

	if err := s.Recorder.RecordAnswer(sess.AttemptID, qid, joinIDs(optionIDs), correct); err != nil {
		if errors.Is(err, util.ErrStaleAnswer) {
			return &SessionEvent{Stale: true}, nil
		}
		// 写入失败：状态不变，同一事件可安全重试
		return nil, err
	}

	monitoring.AnswersJudged.WithLabelValues(verdictLabel(correct)).Inc()

	ev := &SessionEvent{
		Feedback: s.Presenter.Feedback(userID, correct, correctOptionTexts(q)),
	}

	sess.PollToken = ""
	sess.Cursor++

	if err := s.advance(sess, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// SubmitText 文本题作答：去空白、忽略大小写后与标准答案比对
func (s *SessionService) SubmitText(userID uint, text string) (*SessionEvent, error) {
	sess := s.lookup(userID)
	if sess == nil {
		return nil, util.ErrNoActiveSession
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Phase != PhaseAwaitingAnswer {
		return nil, util.ErrNoActiveSession
	}

	// 上次结算失败后游标已到末尾：重发的作答事件改为重试结算
	if sess.Cursor >= len(sess.QuestionIDs) {
		ev := &SessionEvent{}
		if err := s.finish(sess, ev); err != nil {
			return nil, err
		}
		return ev, nil
	}

	if sess.PollToken != "" {
		return nil, util.ErrChoiceAnswerExpected
	}

	qid := sess.QuestionIDs[sess.Cursor]
	q, err := s.Catalog.FindWithOptions(qid)
	if err != nil {
		s.drop(sess)
		return nil, err
	}
	if q.HasOptions {
		return nil, util.ErrChoiceAnswerExpected
	}

	correct := JudgeText(text, q.AnswerText)

	if err := s.Recorder.RecordAnswer(sess.AttemptID, qid, text, correct); err != nil {
		if errors.Is(err, util.ErrStaleAnswer) {
			return &SessionEvent{Stale: true}, nil
		}
		return nil, err
	}

	var canonical []string
	if q.AnswerText != nil {
		canonical = []string{*q.AnswerText}
	}

	monitoring.AnswersJudged.WithLabelValues(verdictLabel(correct)).Inc()

	ev := &SessionEvent{
		Feedback: s.Presenter.Feedback(userID, correct, canonical),
	}

	sess.Cursor++

	if err := s.advance(sess, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// Finish 主动收卷。还没抽过题时仅关闭会话，不留任何持久化痕迹。
func (s *SessionService) Finish(userID uint) (*SessionEvent, error) {
	sess := s.lookup(userID)
	if sess == nil {
		return nil, util.ErrNoActiveSession
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.AttemptID == 0 {
		s.drop(sess)
		return &SessionEvent{Closed: true}, nil
	}

	ev := &SessionEvent{}
	if err := s.finish(sess, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// finish 结算：按已作答数计分，end_time 与 score 同时写入。
// 结算失败时会话保留，用户可重试收卷。
func (s *SessionService) finish(sess *QuizSession, ev *SessionEvent) error {
	correct, answered, err := s.Recorder.FinalizeAttempt(sess.AttemptID)
	if err != nil {
		return err
	}

	duration := time.Since(sess.StartTime)
	ev.Summary = s.Presenter.Summary(sess.UserID, correct, answered, len(sess.QuestionIDs), duration)
	ev.Closed = true

	s.drop(sess)
	return nil
}

// ActiveSessionCount 当前活动会话数（诊断用）
func (s *SessionService) ActiveSessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func verdictLabel(correct bool) string {
	if correct {
		return "correct"
	}
	return "incorrect"
}

func joinIDs(ids []uint) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ",")
}

func correctOptionTexts(q *model.Question) []string {
	var texts []string
	for _, opt := range q.Options {
		if opt.IsCorrect {
			texts = append(texts, opt.OptionText)
		}
	}
	return texts
}
