package validate

import (
	"regexp"
	"time"
)

const (
	maxNameLength      = 25
	maxTitleLength     = 90
	maxPublisherLength = 60

	minLoanYear = 1924
	maxLoanYear = 2030
)

const DateLayout = "2006-01-02"

var (
	memberCodeRe = regexp.MustCompile(`^[A-Z]{3}\d{1,5}$`)
	isbnRe       = regexp.MustCompile(`^\d{13}$`)
	textRe       = regexp.MustCompile(`^[a-zA-Z ]+$`)
)

// MemberCode reports whether code is a valid member code, e.g. "ABC123".
func MemberCode(code string) bool {
	return memberCodeRe.MatchString(code)
}

// ISBN reports whether isbn is a 13-digit ISBN.
func ISBN(isbn string) bool {
	return isbnRe.MatchString(isbn)
}

func Name(name string) bool {
	return text(name, maxNameLength)
}

func Title(title string) bool {
	return text(title, maxTitleLength)
}

func Publisher(publisher string) bool {
	return text(publisher, maxPublisherLength)
}

func text(s string, maxLength int) bool {
	return len(s) >= 1 && len(s) <= maxLength && textRe.MatchString(s)
}

// Date parses a YYYY-MM-DD calendar date.
func Date(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// LoanYear reports whether year is inside the range the reporting queries accept.
func LoanYear(year int) bool {
	return year >= minLoanYear && year <= maxLoanYear
}
