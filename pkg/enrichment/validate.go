package enrichment

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Sternrassler/vocab-enricher/pkg/apierr"
)

// Input limits.
const (
	MinTermLength     = 2
	MaxTermLength     = 50
	MaxWordsInPhrase  = 5
	MaxSentenceLength = 500
)

var phrasePattern = regexp.MustCompile(`^[a-zA-Z\s'-]+$`)

// ValidateTerm checks a term and returns it trimmed and lowercased.
func ValidateTerm(term string) (string, error) {
	trimmed := strings.TrimSpace(term)
	if trimmed == "" {
		return "", apierr.Validation(apierr.CodeInvalidWord, "invalid word")
	}

	length := utf8.RuneCountInString(trimmed)
	if length < MinTermLength {
		return "", apierr.Validation(apierr.CodeWordTooShort, "word is too short (minimum %d characters)", MinTermLength)
	}
	if length > MaxTermLength {
		return "", apierr.Validation(apierr.CodeWordTooLong, "word is too long (maximum %d characters)", MaxTermLength)
	}
	if len(strings.Fields(trimmed)) > MaxWordsInPhrase {
		return "", apierr.Validation(apierr.CodeTooManyWords, "too many words (maximum %d)", MaxWordsInPhrase)
	}
	if !phrasePattern.MatchString(trimmed) {
		return "", apierr.Validation(apierr.CodeInvalidCharacters, "word contains invalid characters")
	}
	return strings.ToLower(trimmed), nil
}

// ValidateSentence trims the capture sentence. An empty sentence is valid.
func ValidateSentence(sentence string) (string, error) {
	trimmed := strings.TrimSpace(sentence)
	if utf8.RuneCountInString(trimmed) > MaxSentenceLength {
		return "", apierr.Validation(apierr.CodeSentenceTooLong, "sentence is too long (maximum %d characters)", MaxSentenceLength)
	}
	return trimmed, nil
}
