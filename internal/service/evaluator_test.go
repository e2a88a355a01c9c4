package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJudgeSelection(t *testing.T) {
	tests := []struct {
		name     string
		selected []uint
		correct  []uint
		want     bool
	}{
		{"exact match single", []uint{1}, []uint{1}, true},
		{"exact match multiple", []uint{2, 4}, []uint{4, 2}, true},
		{"order does not matter", []uint{3, 1, 2}, []uint{1, 2, 3}, true},
		{"missing one", []uint{1}, []uint{1, 2}, false},
		{"extra one", []uint{1, 2, 3}, []uint{1, 2}, false},
		{"wrong option", []uint{5}, []uint{1}, false},
		{"partially wrong", []uint{1, 5}, []uint{1, 2}, false},
		{"empty selection, has correct", nil, []uint{1}, false},
		{"empty selection, empty correct", nil, nil, true},
		{"selection with duplicates", []uint{1, 1}, []uint{1, 2}, false},
		{"duplicates covering correct", []uint{1, 1, 2}, []uint{1, 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, JudgeSelection(tt.selected, tt.correct))
		})
	}
}

func TestJudgeText(t *testing.T) {
	paris := "Paris"
	padded := "  Paris  "
	empty := ""

	tests := []struct {
		name      string
		candidate string
		canonical *string
		want      bool
	}{
		{"exact match", "Paris", &paris, true},
		{"case insensitive", "pArIs", &paris, true},
		{"leading and trailing whitespace", "  paris\t", &paris, true},
		{"padded canonical", "paris", &padded, true},
		{"wrong answer", "London", &paris, false},
		{"substring is not a match", "Par", &paris, false},
		{"internal whitespace differs", "Pa ris", &paris, false},
		{"empty candidate", "", &paris, false},
		{"both empty", "", &empty, true},
		{"missing canonical", "Paris", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, JudgeText(tt.candidate, tt.canonical))
		})
	}
}
