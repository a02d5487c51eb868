package quiz

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// NumOptions is the number of answer options every question carries.
const NumOptions = 4

var ErrNoQuestions = errors.New("question file contains no questions")
var ErrBadOptionCount = errors.New("question must have exactly four options")
var ErrBadCorrectIndex = errors.New("correct answer index out of range")

// Question is a single quiz question. Immutable once loaded; shared
// read-only between the session and all connection handlers.
type Question struct {
	Text    string
	Code    string // optional code snippet shown with the prompt
	Options [NumOptions]string
	Correct int // index into Options, 0-3
}

// Two question-file schemas exist in the wild: a flat array of
// questions, and an object wrapping the array under a "questions"
// key with different field names. Load accepts both.

type flatQuestion struct {
	Text    string   `json:"text"`
	Code    string   `json:"code"`
	Options []string `json:"options"`
	Correct *int     `json:"correct_answer"`
}

type wrappedFile struct {
	Questions []wrappedQuestion `json:"questions"`
}

type wrappedQuestion struct {
	Question string   `json:"question"`
	Code     string   `json:"code"`
	Options  []string `json:"options"`
	Correct  *int     `json:"correct"`
}

// Load reads a question file and returns the ordered question list.
// The schema is sniffed from the top-level JSON value: an array uses
// the text/options/correct_answer fields, an object the
// questions/question/correct fields.
func Load(path string) ([]Question, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	return parse(raw)
}

func parse(raw []byte) ([]Question, error) {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, ErrNoQuestions
	}

	switch trimmed[0] {
	case '[':
		var flat []flatQuestion
		if err := json.Unmarshal(raw, &flat); err != nil {
			return nil, fmt.Errorf("parse questions: %w", err)
		}
		questions := make([]Question, 0, len(flat))
		for i, fq := range flat {
			q, err := build(fq.Text, fq.Code, fq.Options, fq.Correct)
			if err != nil {
				return nil, fmt.Errorf("question %d: %w", i, err)
			}
			questions = append(questions, q)
		}
		return validateSet(questions)

	case '{':
		var wrapped wrappedFile
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, fmt.Errorf("parse questions: %w", err)
		}
		questions := make([]Question, 0, len(wrapped.Questions))
		for i, wq := range wrapped.Questions {
			q, err := build(wq.Question, wq.Code, wq.Options, wq.Correct)
			if err != nil {
				return nil, fmt.Errorf("question %d: %w", i, err)
			}
			questions = append(questions, q)
		}
		return validateSet(questions)

	default:
		return nil, fmt.Errorf("parse questions: top-level value must be an array or object")
	}
}

func build(text, code string, options []string, correct *int) (Question, error) {
	if len(options) != NumOptions {
		return Question{}, ErrBadOptionCount
	}
	if correct == nil || *correct < 0 || *correct >= NumOptions {
		return Question{}, ErrBadCorrectIndex
	}

	q := Question{Text: text, Code: code, Correct: *correct}
	copy(q.Options[:], options)
	return q, nil
}

func validateSet(questions []Question) ([]Question, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	return questions, nil
}
