package util

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrEmptyCatalog         = errors.New("question catalog is empty")
	ErrInvalidQuestionCount = errors.New("question count out of range")
	ErrNoActiveSession      = errors.New("no active test session")
	ErrStaleAnswer          = errors.New("answer does not match the current prompt")
	ErrDegenerateQuestion   = errors.New("question has fewer than two options")
	ErrTextAnswerExpected   = errors.New("current question expects a text answer")
	ErrChoiceAnswerExpected = errors.New("current question expects option selection")
	ErrNoCorrectOption      = errors.New("at least one option must be marked correct")
	ErrEmptyImportFile      = errors.New("import file contains no questions")
)
