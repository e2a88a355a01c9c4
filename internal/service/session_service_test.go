package service

import (
	"errors"
	"testing"
	"time"

	"quiz_bot_backend/internal/model"
	"quiz_bot_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCatalog 固定顺序返回题目，保证测试可重复
type fakeCatalog struct {
	order     []uint
	questions map[uint]*model.Question
}

func (f *fakeCatalog) CountQuestions() (int64, error) {
	return int64(len(f.order)), nil
}

func (f *fakeCatalog) SampleQuestions(n int) ([]model.Question, error) {
	var out []model.Question
	for _, id := range f.order {
		if len(out) >= n {
			break
		}
		out = append(out, *f.questions[id])
	}
	return out, nil
}

func (f *fakeCatalog) FindWithOptions(id uint) (*model.Question, error) {
	q, ok := f.questions[id]
	if !ok {
		return nil, util.ErrQuestionNotFound
	}
	return q, nil
}

type recordedAnswer struct {
	attemptID  uint
	questionID uint
	given      string
	correct    bool
}

type fakeRecorder struct {
	nextAttemptID uint
	attempts      map[uint]int // attemptID -> planned total
	finalized     map[uint]bool
	answers       []recordedAnswer

	failRecord   error
	failFinalize error
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		nextAttemptID: 100,
		attempts:      make(map[uint]int),
		finalized:     make(map[uint]bool),
	}
}

func (f *fakeRecorder) CreateAttempt(userID uint, totalQuestions int) (uint, error) {
	f.nextAttemptID++
	f.attempts[f.nextAttemptID] = totalQuestions
	return f.nextAttemptID, nil
}

func (f *fakeRecorder) RecordAnswer(attemptID, questionID uint, givenAnswer string, isCorrect bool) error {
	if f.failRecord != nil {
		return f.failRecord
	}
	for _, a := range f.answers {
		if a.attemptID == attemptID && a.questionID == questionID {
			return util.ErrStaleAnswer
		}
	}
	f.answers = append(f.answers, recordedAnswer{attemptID, questionID, givenAnswer, isCorrect})
	return nil
}

func (f *fakeRecorder) FinalizeAttempt(attemptID uint) (int, int, error) {
	if f.failFinalize != nil {
		return 0, 0, f.failFinalize
	}
	correct, answered := 0, 0
	for _, a := range f.answers {
		if a.attemptID == attemptID {
			answered++
			if a.correct {
				correct++
			}
		}
	}
	f.finalized[attemptID] = true
	return correct, answered, nil
}

func textQuestion(id uint, text, answer string) *model.Question {
	q := &model.Question{Text: text, AnswerText: &answer}
	q.ID = id
	return q
}

func choiceQuestion(id uint, text string, options ...model.Option) *model.Question {
	q := &model.Question{Text: text, HasOptions: true, Options: options}
	q.ID = id
	return q
}

func opt(id uint, text string, correct bool) model.Option {
	o := model.Option{OptionText: text, IsCorrect: correct}
	o.ID = id
	return o
}

func newTestSession(catalog *fakeCatalog, recorder *fakeRecorder) *SessionService {
	return NewSessionService(catalog, recorder, NewDefaultPresenter(nil))
}

func standardCatalog() *fakeCatalog {
	return &fakeCatalog{
		order: []uint{1, 2, 3},
		questions: map[uint]*model.Question{
			1: choiceQuestion(1, "Which are even?", opt(11, "2", true), opt(12, "3", false), opt(13, "4", true)),
			2: textQuestion(2, "Capital of France?", "Paris"),
			3: choiceQuestion(3, "Pick the vowel", opt(31, "a", true), opt(32, "b", false)),
		},
	}
}

func TestSessionFullRun(t *testing.T) {
	catalog := standardCatalog()
	recorder := newFakeRecorder()
	svc := newTestSession(catalog, recorder)

	ev, err := svc.Start(7)
	require.NoError(t, err)
	require.NotNil(t, ev.Prompt)
	assert.Equal(t, "count", ev.Prompt.Kind)
	assert.Equal(t, 1, svc.ActiveSessionCount())

	ev, err = svc.SupplyCount(7, 3)
	require.NoError(t, err)
	require.NotNil(t, ev.Prompt)
	assert.Equal(t, "options", ev.Prompt.Kind)
	assert.Equal(t, uint(1), ev.Prompt.QuestionID)
	assert.NotEmpty(t, ev.Prompt.PollToken)

	// 第一题：全对的选择
	ev, err = svc.SubmitSelection(7, ev.Prompt.PollToken, []uint{11, 13})
	require.NoError(t, err)
	require.NotNil(t, ev.Feedback)
	assert.True(t, ev.Feedback.Correct)
	require.NotNil(t, ev.Prompt)
	assert.Equal(t, "text", ev.Prompt.Kind)
	assert.Equal(t, uint(2), ev.Prompt.QuestionID)

	// 第二题：大小写与空白不影响判定
	ev, err = svc.SubmitText(7, "  paris ")
	require.NoError(t, err)
	assert.True(t, ev.Feedback.Correct)
	require.NotNil(t, ev.Prompt)
	assert.Equal(t, uint(3), ev.Prompt.QuestionID)

	// 第三题：答错，附正确答案并收卷
	ev, err = svc.SubmitSelection(7, ev.Prompt.PollToken, []uint{32})
	require.NoError(t, err)
	assert.False(t, ev.Feedback.Correct)
	assert.Equal(t, []string{"a"}, ev.Feedback.CorrectAnswers)

	require.NotNil(t, ev.Summary)
	assert.Equal(t, 2, ev.Summary.Correct)
	assert.Equal(t, 3, ev.Summary.Answered)
	assert.Equal(t, 3, ev.Summary.TotalPlanned)
	assert.InDelta(t, 66.7, ev.Summary.Percentage, 0.1)
	assert.True(t, ev.Closed)

	assert.Equal(t, 0, svc.ActiveSessionCount())
	assert.Len(t, recorder.answers, 3)
	assert.True(t, recorder.finalized[101])
}

func TestSessionEarlyFinish(t *testing.T) {
	catalog := &fakeCatalog{
		order: []uint{1, 2, 3, 4, 5},
		questions: map[uint]*model.Question{
			1: textQuestion(1, "q1", "a1"),
			2: textQuestion(2, "q2", "a2"),
			3: textQuestion(3, "q3", "a3"),
			4: textQuestion(4, "q4", "a4"),
			5: textQuestion(5, "q5", "a5"),
		},
	}
	recorder := newFakeRecorder()
	svc := newTestSession(catalog, recorder)

	_, err := svc.Start(7)
	require.NoError(t, err)
	_, err = svc.SupplyCount(7, 5)
	require.NoError(t, err)

	_, err = svc.SubmitText(7, "a1")
	require.NoError(t, err)
	_, err = svc.SubmitText(7, "wrong")
	require.NoError(t, err)

	ev, err := svc.Finish(7)
	require.NoError(t, err)
	require.NotNil(t, ev.Summary)
	assert.Equal(t, 1, ev.Summary.Correct)
	assert.Equal(t, 2, ev.Summary.Answered)
	assert.Equal(t, 5, ev.Summary.TotalPlanned)
	assert.InDelta(t, 50.0, ev.Summary.Percentage, 0.01)
	assert.Equal(t, 0, svc.ActiveSessionCount())
}

func TestSessionFinishWithoutAnswers(t *testing.T) {
	catalog := standardCatalog()
	recorder := newFakeRecorder()
	svc := newTestSession(catalog, recorder)

	_, err := svc.Start(7)
	require.NoError(t, err)
	_, err = svc.SupplyCount(7, 2)
	require.NoError(t, err)

	ev, err := svc.Finish(7)
	require.NoError(t, err)
	require.NotNil(t, ev.Summary)
	assert.Equal(t, 0, ev.Summary.Answered)
	assert.Equal(t, 0.0, ev.Summary.Percentage)
}

func TestSessionFinishBeforeCount(t *testing.T) {
	catalog := standardCatalog()
	recorder := newFakeRecorder()
	svc := newTestSession(catalog, recorder)

	_, err := svc.Start(7)
	require.NoError(t, err)

	// 还没抽题就收卷：只关闭会话，不产生任何记录
	ev, err := svc.Finish(7)
	require.NoError(t, err)
	assert.True(t, ev.Closed)
	assert.Nil(t, ev.Summary)
	assert.Empty(t, recorder.attempts)
	assert.Equal(t, 0, svc.ActiveSessionCount())
}

func TestSessionStaleToken(t *testing.T) {
	catalog := standardCatalog()
	recorder := newFakeRecorder()
	svc := newTestSession(catalog, recorder)

	_, err := svc.Start(7)
	require.NoError(t, err)
	ev, err := svc.SupplyCount(7, 3)
	require.NoError(t, err)
	token := ev.Prompt.PollToken

	// 过期 token：静默丢弃，不判题不前进
	stale, err := svc.SubmitSelection(7, "not-the-token", []uint{11, 13})
	require.NoError(t, err)
	assert.True(t, stale.Stale)
	assert.Nil(t, stale.Feedback)
	assert.Empty(t, recorder.answers)

	// 原 token 仍然有效
	ev, err = svc.SubmitSelection(7, token, []uint{11, 13})
	require.NoError(t, err)
	assert.True(t, ev.Feedback.Correct)

	// 已消费的 token 不能重放
	stale, err = svc.SubmitSelection(7, token, []uint{11, 13})
	require.NoError(t, err)
	assert.True(t, stale.Stale)
	assert.Len(t, recorder.answers, 1)
}

func TestSessionSkipsDegenerateQuestion(t *testing.T) {
	catalog := &fakeCatalog{
		order: []uint{1, 2},
		questions: map[uint]*model.Question{
			1: choiceQuestion(1, "broken", opt(11, "only one", true)),
			2: textQuestion(2, "q2", "a2"),
		},
	}
	recorder := newFakeRecorder()
	svc := newTestSession(catalog, recorder)

	_, err := svc.Start(7)
	require.NoError(t, err)
	ev, err := svc.SupplyCount(7, 2)
	require.NoError(t, err)

	// 坏题被跳过，直接出下一题
	assert.Len(t, ev.Skipped, 1)
	require.NotNil(t, ev.Prompt)
	assert.Equal(t, uint(2), ev.Prompt.QuestionID)

	// 跳过的题不计入分母
	ev, err = svc.SubmitText(7, "a2")
	require.NoError(t, err)
	require.NotNil(t, ev.Summary)
	assert.Equal(t, 1, ev.Summary.Answered)
	assert.Equal(t, 1, ev.Summary.Correct)
}

func TestSessionCountValidation(t *testing.T) {
	catalog := standardCatalog()
	recorder := newFakeRecorder()
	svc := newTestSession(catalog, recorder)

	_, err := svc.Start(7)
	require.NoError(t, err)

	_, err = svc.SupplyCount(7, 0)
	assert.ErrorIs(t, err, util.ErrInvalidQuestionCount)
	_, err = svc.SupplyCount(7, 99)
	assert.ErrorIs(t, err, util.ErrInvalidQuestionCount)

	// 校验失败后会话仍在等待数量
	ev, err := svc.SupplyCount(7, 2)
	require.NoError(t, err)
	assert.NotNil(t, ev.Prompt)
}

func TestSessionStartRequiresQuestions(t *testing.T) {
	catalog := &fakeCatalog{questions: map[uint]*model.Question{}}
	svc := newTestSession(catalog, newFakeRecorder())

	_, err := svc.Start(7)
	assert.ErrorIs(t, err, util.ErrEmptyCatalog)
	assert.Equal(t, 0, svc.ActiveSessionCount())
}

func TestSessionRestartReplacesActive(t *testing.T) {
	catalog := standardCatalog()
	recorder := newFakeRecorder()
	svc := newTestSession(catalog, recorder)

	_, err := svc.Start(7)
	require.NoError(t, err)
	_, err = svc.SupplyCount(7, 3)
	require.NoError(t, err)

	// 重新开始：旧会话被顶掉，旧 attempt 保持未结算
	ev, err := svc.Start(7)
	require.NoError(t, err)
	assert.Equal(t, "count", ev.Prompt.Kind)
	assert.Equal(t, 1, svc.ActiveSessionCount())
	assert.False(t, recorder.finalized[101])

	// 新会话照常可用
	ev, err = svc.SupplyCount(7, 1)
	require.NoError(t, err)
	assert.NotNil(t, ev.Prompt)
}

func TestSessionRecorderFailureKeepsState(t *testing.T) {
	catalog := standardCatalog()
	recorder := newFakeRecorder()
	svc := newTestSession(catalog, recorder)

	_, err := svc.Start(7)
	require.NoError(t, err)
	ev, err := svc.SupplyCount(7, 3)
	require.NoError(t, err)
	token := ev.Prompt.PollToken

	recorder.failRecord = errors.New("db down")
	_, err = svc.SubmitSelection(7, token, []uint{11, 13})
	require.Error(t, err)

	// 写入失败后重试同一事件成功
	recorder.failRecord = nil
	ev, err = svc.SubmitSelection(7, token, []uint{11, 13})
	require.NoError(t, err)
	assert.True(t, ev.Feedback.Correct)
}

func TestSessionFinalizeFailureKeepsSession(t *testing.T) {
	catalog := &fakeCatalog{
		order:     []uint{1},
		questions: map[uint]*model.Question{1: textQuestion(1, "q1", "a1")},
	}
	recorder := newFakeRecorder()
	svc := newTestSession(catalog, recorder)

	_, err := svc.Start(7)
	require.NoError(t, err)
	_, err = svc.SupplyCount(7, 1)
	require.NoError(t, err)

	recorder.failFinalize = errors.New("db down")
	_, err = svc.SubmitText(7, "a1")
	require.Error(t, err)
	assert.Equal(t, 1, svc.ActiveSessionCount())

	// 结算恢复后重试收卷
	recorder.failFinalize = nil
	ev, err := svc.Finish(7)
	require.NoError(t, err)
	require.NotNil(t, ev.Summary)
	assert.Equal(t, 1, ev.Summary.Correct)
	assert.Equal(t, 0, svc.ActiveSessionCount())
}

func TestSessionTextResubmitAfterFinalizeFailure(t *testing.T) {
	catalog := &fakeCatalog{
		order:     []uint{1},
		questions: map[uint]*model.Question{1: textQuestion(1, "q1", "a1")},
	}
	recorder := newFakeRecorder()
	svc := newTestSession(catalog, recorder)

	_, err := svc.Start(7)
	require.NoError(t, err)
	_, err = svc.SupplyCount(7, 1)
	require.NoError(t, err)

	recorder.failFinalize = errors.New("db down")
	_, err = svc.SubmitText(7, "a1")
	require.Error(t, err)

	// 结算仍失败时重发同一作答事件：报错而不是崩溃，会话保留
	_, err = svc.SubmitText(7, "a1")
	require.Error(t, err)
	assert.Equal(t, 1, svc.ActiveSessionCount())

	// 结算恢复后重发同一事件直接拿到总结
	recorder.failFinalize = nil
	ev, err := svc.SubmitText(7, "a1")
	require.NoError(t, err)
	require.NotNil(t, ev.Summary)
	assert.Equal(t, 1, ev.Summary.Correct)
	assert.Equal(t, 1, ev.Summary.Answered)
	assert.True(t, ev.Closed)
	assert.Equal(t, 0, svc.ActiveSessionCount())
}

func TestSessionSelectionResubmitAfterFinalizeFailure(t *testing.T) {
	catalog := &fakeCatalog{
		order: []uint{1},
		questions: map[uint]*model.Question{
			1: choiceQuestion(1, "pick", opt(11, "a", true), opt(12, "b", false)),
		},
	}
	recorder := newFakeRecorder()
	svc := newTestSession(catalog, recorder)

	_, err := svc.Start(7)
	require.NoError(t, err)
	ev, err := svc.SupplyCount(7, 1)
	require.NoError(t, err)
	token := ev.Prompt.PollToken

	recorder.failFinalize = errors.New("db down")
	_, err = svc.SubmitSelection(7, token, []uint{11})
	require.Error(t, err)

	// 结算恢复后重发同一选项作答事件完成结算
	recorder.failFinalize = nil
	ev, err = svc.SubmitSelection(7, token, []uint{11})
	require.NoError(t, err)
	require.NotNil(t, ev.Summary)
	assert.Equal(t, 1, ev.Summary.Correct)
	assert.Equal(t, 0, svc.ActiveSessionCount())

	// 判题与落库没有重复发生
	assert.Len(t, recorder.answers, 1)
}

func TestSessionAnswerKindMismatch(t *testing.T) {
	catalog := standardCatalog()
	recorder := newFakeRecorder()
	svc := newTestSession(catalog, recorder)

	_, err := svc.Start(7)
	require.NoError(t, err)
	_, err = svc.SupplyCount(7, 3)
	require.NoError(t, err)

	// 第一题是选项题，文本作答被拒绝且状态不变
	_, err = svc.SubmitText(7, "whatever")
	assert.ErrorIs(t, err, util.ErrChoiceAnswerExpected)
	assert.Empty(t, recorder.answers)
}

func TestSessionOperationsWithoutSession(t *testing.T) {
	svc := newTestSession(standardCatalog(), newFakeRecorder())

	_, err := svc.SupplyCount(7, 3)
	assert.ErrorIs(t, err, util.ErrNoActiveSession)
	_, err = svc.SubmitText(7, "x")
	assert.ErrorIs(t, err, util.ErrNoActiveSession)
	_, err = svc.Finish(7)
	assert.ErrorIs(t, err, util.ErrNoActiveSession)
}

func TestSessionsAreIndependentAcrossUsers(t *testing.T) {
	catalog := standardCatalog()
	recorder := newFakeRecorder()
	svc := newTestSession(catalog, recorder)

	_, err := svc.Start(1)
	require.NoError(t, err)
	_, err = svc.Start(2)
	require.NoError(t, err)

	ev1, err := svc.SupplyCount(1, 1)
	require.NoError(t, err)
	_, err = svc.SupplyCount(2, 3)
	require.NoError(t, err)

	// 用户 1 收卷不影响用户 2
	_, err = svc.SubmitSelection(1, ev1.Prompt.PollToken, []uint{11, 13})
	require.NoError(t, err)
	assert.Equal(t, 1, svc.ActiveSessionCount())

	_, err = svc.SubmitText(2, "irrelevant")
	assert.ErrorIs(t, err, util.ErrChoiceAnswerExpected)
}

func TestSummaryDuration(t *testing.T) {
	p := NewDefaultPresenter(nil)
	s := p.Summary(1, 3, 4, 5, 90*time.Second)
	assert.Equal(t, 90, s.DurationSeconds)
	assert.InDelta(t, 75.0, s.Percentage, 0.01)
}
