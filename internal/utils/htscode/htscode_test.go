package htscode_test

import (
	"testing"

	"github.com/clearborder/duty_engine/internal/utils/htscode"
	"github.com/stretchr/testify/assert"
)

func TestDigits(t *testing.T) {
	assert.Equal(t, "0101210000", htscode.Digits("0101.21.0000"))
	assert.Equal(t, "8471300100", htscode.Digits("8471-30-01.00"))
	assert.Equal(t, "", htscode.Digits("n/a"))
}

func TestChapter(t *testing.T) {
	assert.Equal(t, "01", htscode.Chapter("0101.21.0000"))
	assert.Equal(t, "99", htscode.Chapter("9903.88.15"))
	assert.Equal(t, "", htscode.Chapter("9"))
}

func TestAncestorCandidates(t *testing.T) {
	tests := []struct {
		code     string
		expected []string
	}{
		{"0101.21.0000", []string{"0101210000", "01012100", "010121"}},
		{"0101.21.00", []string{"01012100", "010121"}},
		{"010121", []string{"010121"}},
		{"0101", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, htscode.AncestorCandidates(tt.code), "code %s", tt.code)
	}
}

func TestFormatHeading(t *testing.T) {
	assert.Equal(t, "9903.88.15", htscode.FormatHeading("99038815"))
	assert.Equal(t, "9903.88.15", htscode.FormatHeading("9903.88.15"))
	assert.Equal(t, "9903.88.15.20", htscode.FormatHeading("9903881520"))
	assert.Equal(t, "9903", htscode.FormatHeading("9903"))
	assert.Equal(t, "990", htscode.FormatHeading("990"))
}

func TestSameHeading(t *testing.T) {
	assert.True(t, htscode.SameHeading("99038815", "9903.88.15"))
	assert.False(t, htscode.SameHeading("9903.88.15", "9903.88.16"))
	assert.False(t, htscode.SameHeading("", ""))
}
