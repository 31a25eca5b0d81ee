package challenge

import (
	"errors"
	"strings"
)

// AnswerLength is the number of characters in every issued answer.
const AnswerLength = 6

// Alphabet is the set of characters an answer is drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// ErrNotFound is returned by stores when an id has no live entry.
var ErrNotFound = errors.New("challenge not found")

// Result is the outcome of a verification.
type Result string

const (
	Correct Result = "Correct"
	Wrong   Result = "Wrong"
)

// Challenge is returned by Service.Create.
type Challenge struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Image string `json:"image"` // data:image/png;base64,...
}

// Normalize trims surrounding whitespace and upper-cases s.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Clean drops every rune outside [A-Za-z0-9] and truncates to AnswerLength.
// Case is preserved.
func Clean(s string) string {
	var b strings.Builder
	for _, r := range s {
		if b.Len() == AnswerLength {
			break
		}
		if isAlnum(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Sanitize is Clean followed by upper-casing. Solver guesses go through it.
func Sanitize(s string) string {
	return strings.ToUpper(Clean(s))
}

func isAlnum(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}
