package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemberCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"ABC1", true},
		{"ABC12345", true},
		{"XYZ99999", true},
		{"ABC", false},
		{"abc123", false},
		{"AB123", false},
		{"ABCD123", false},
		{"ABC123456", false},
		{"", false},
		{"ABC 123", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, MemberCode(tt.code))
		})
	}
}

func TestISBN(t *testing.T) {
	tests := []struct {
		isbn string
		want bool
	}{
		{"9781234567890", true},
		{"0000000000000", true},
		{"978123456789", false},
		{"97812345678901", false},
		{"978-123456789", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.isbn, func(t *testing.T) {
			assert.Equal(t, tt.want, ISBN(tt.isbn))
		})
	}
}

func TestTextFields(t *testing.T) {
	longName := make([]byte, 26)
	for i := range longName {
		longName[i] = 'a'
	}

	assert.True(t, Name("Ada"))
	assert.True(t, Name("Mary Ann"))
	assert.False(t, Name(""))
	assert.False(t, Name("Ada2"))
	assert.False(t, Name(string(longName)))

	longTitle := make([]byte, 91)
	for i := range longTitle {
		longTitle[i] = 'a'
	}
	assert.True(t, Title("The Go Programming Language"))
	assert.False(t, Title(string(longTitle)))
	assert.False(t, Title("Catch 22"))

	longPublisher := make([]byte, 61)
	for i := range longPublisher {
		longPublisher[i] = 'a'
	}
	assert.True(t, Publisher("Addison Wesley"))
	assert.False(t, Publisher(string(longPublisher)))
	assert.False(t, Publisher("O'Reilly"))
}

func TestDate(t *testing.T) {
	parsed, ok := Date("1990-12-10")
	assert.True(t, ok)
	assert.Equal(t, time.Date(1990, time.December, 10, 0, 0, 0, 0, time.UTC), parsed)

	for _, bad := range []string{"10/12/1990", "1990-13-40", "1990-12", "", "yesterday"} {
		_, ok := Date(bad)
		assert.False(t, ok, "expected %q to be rejected", bad)
	}
}

func TestLoanYear(t *testing.T) {
	assert.True(t, LoanYear(1924))
	assert.True(t, LoanYear(2026))
	assert.True(t, LoanYear(2030))
	assert.False(t, LoanYear(1923))
	assert.False(t, LoanYear(2031))
	assert.False(t, LoanYear(0))
}
