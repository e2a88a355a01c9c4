package service

import (
	"strings"
	"testing"

	"quiz_bot_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseImportFile(t *testing.T) {
	input := strings.Join([]string{
		"Which numbers are even?",
		"- 2",
		"3",
		"- 4",
		"5",
		"",
		"Capital of France?",
		"",
		"Pick the vowel",
		"- a",
		"b",
	}, "\n")

	questions, optionSets, err := ParseImportFile(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, questions, 3)
	require.Len(t, optionSets, 3)

	// 多选题：以 "-" 开头的选项为正确答案
	assert.Equal(t, "Which numbers are even?", questions[0].Text)
	assert.True(t, questions[0].HasOptions)
	require.Len(t, optionSets[0], 4)
	assert.Equal(t, "2", optionSets[0][0].OptionText)
	assert.True(t, optionSets[0][0].IsCorrect)
	assert.False(t, optionSets[0][1].IsCorrect)
	assert.True(t, optionSets[0][2].IsCorrect)
	assert.False(t, optionSets[0][3].IsCorrect)

	// 单行块：文本题，题干即标准答案
	assert.Equal(t, "Capital of France?", questions[1].Text)
	assert.False(t, questions[1].HasOptions)
	require.NotNil(t, questions[1].AnswerText)
	assert.Equal(t, "Capital of France?", *questions[1].AnswerText)
	assert.Empty(t, optionSets[1])

	assert.True(t, questions[2].HasOptions)
	require.Len(t, optionSets[2], 2)
}

func TestParseImportFileBlankLinesBetweenBlocks(t *testing.T) {
	input := "q1\n- yes\nno\n\n\n\nq2\n- a\nb\n"

	questions, _, err := ParseImportFile(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, questions, 2)
}

func TestParseImportFileEmpty(t *testing.T) {
	_, _, err := ParseImportFile(strings.NewReader("\n\n  \n"))
	assert.ErrorIs(t, err, util.ErrEmptyImportFile)
}

func TestParseImportFileRejectsBlockWithoutCorrectOption(t *testing.T) {
	input := "q1\nfirst\nsecond\n"

	_, _, err := ParseImportFile(strings.NewReader(input))
	assert.ErrorIs(t, err, util.ErrNoCorrectOption)
}

func TestParseImportFileRejectsSingleOptionBlock(t *testing.T) {
	input := "q1\n- only\n"

	_, _, err := ParseImportFile(strings.NewReader(input))
	assert.ErrorIs(t, err, util.ErrDegenerateQuestion)
}

func TestValidateQuestionInput(t *testing.T) {
	answer := "yes"
	blank := "   "

	tests := []struct {
		name       string
		hasOptions bool
		answerText *string
		options    []OptionInput
		wantErr    error
	}{
		{"valid choice question", true, nil, []OptionInput{{Text: "a", IsCorrect: true}, {Text: "b"}}, nil},
		{"single option", true, nil, []OptionInput{{Text: "a", IsCorrect: true}}, util.ErrDegenerateQuestion},
		{"no correct option", true, nil, []OptionInput{{Text: "a"}, {Text: "b"}}, util.ErrNoCorrectOption},
		{"valid text question", false, &answer, nil, nil},
		{"text question without answer", false, nil, nil, util.ErrNoCorrectOption},
		{"text question with blank answer", false, &blank, nil, util.ErrNoCorrectOption},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateQuestionInput(tt.hasOptions, tt.answerText, tt.options)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcde...", truncate("abcdefgh", 5))
	// 截断按字符而不是字节
	assert.Equal(t, "一二三...", truncate("一二三四五", 3))
}
