package controller

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"quiz_bot_backend/internal/model"
	"quiz_bot_backend/internal/service"
	"quiz_bot_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// vanishingCatalog 可在会话中途让题目消失
type vanishingCatalog struct {
	question *model.Question
	vanished bool
}

func (f *vanishingCatalog) CountQuestions() (int64, error) {
	return 1, nil
}

func (f *vanishingCatalog) SampleQuestions(n int) ([]model.Question, error) {
	return []model.Question{*f.question}, nil
}

func (f *vanishingCatalog) FindWithOptions(id uint) (*model.Question, error) {
	if f.vanished {
		return nil, util.ErrQuestionNotFound
	}
	return f.question, nil
}

type stubRecorder struct {
	finalizeErr error
}

func (f *stubRecorder) CreateAttempt(userID uint, totalQuestions int) (uint, error) {
	return 1, nil
}

func (f *stubRecorder) RecordAnswer(attemptID, questionID uint, givenAnswer string, isCorrect bool) error {
	return nil
}

func (f *stubRecorder) FinalizeAttempt(attemptID uint) (int, int, error) {
	if f.finalizeErr != nil {
		return 0, 0, f.finalizeErr
	}
	return 1, 1, nil
}

func performAuthed(handler gin.HandlerFunc, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	ctx.Request = req
	ctx.Set("user", &util.Claims{UserID: 7, ChatID: 1})
	handler(ctx)
	return w
}

func newSessionTestController(catalog service.CatalogReader, recorder service.AttemptRecorder) (*SessionController, *service.SessionService) {
	svc := service.NewSessionService(catalog, recorder, service.NewDefaultPresenter(nil))
	return NewSessionController(svc, nil), svc
}

func sampleTextQuestion() *model.Question {
	answer := "a1"
	q := &model.Question{Text: "q1", AnswerText: &answer}
	q.ID = 1
	return q
}

func TestSupplyCountQuestionVanishedReturnsNotFound(t *testing.T) {
	catalog := &vanishingCatalog{question: sampleTextQuestion(), vanished: true}
	ctrl, svc := newSessionTestController(catalog, &stubRecorder{})

	_, err := svc.Start(7)
	require.NoError(t, err)

	w := performAuthed(ctrl.SupplyCount, `{"count":1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitTextQuestionVanishedReturnsNotFound(t *testing.T) {
	catalog := &vanishingCatalog{question: sampleTextQuestion()}
	ctrl, svc := newSessionTestController(catalog, &stubRecorder{})

	_, err := svc.Start(7)
	require.NoError(t, err)
	_, err = svc.SupplyCount(7, 1)
	require.NoError(t, err)

	// 出题之后题目被删除
	catalog.vanished = true

	w := performAuthed(ctrl.SubmitText, `{"text":"a1"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFinishAttemptMissingReturnsNotFound(t *testing.T) {
	catalog := &vanishingCatalog{question: sampleTextQuestion()}
	ctrl, svc := newSessionTestController(catalog, &stubRecorder{finalizeErr: util.ErrAttemptNotFound})

	_, err := svc.Start(7)
	require.NoError(t, err)
	_, err = svc.SupplyCount(7, 1)
	require.NoError(t, err)

	w := performAuthed(ctrl.Finish, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
