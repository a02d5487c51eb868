package quiz

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFlatSchema(t *testing.T) {
	path := writeTemp(t, `[
		{"text": "What does 'go vet' do?", "options": ["Formats code", "Reports suspicious constructs", "Runs tests", "Builds binaries"], "correct_answer": 1},
		{"text": "Which keyword starts a goroutine?", "code": "___ doWork()", "options": ["go", "async", "spawn", "run"], "correct_answer": 0}
	]`)

	questions, err := Load(path)
	require.NoError(t, err)
	require.Len(t, questions, 2)

	assert.Equal(t, "What does 'go vet' do?", questions[0].Text)
	assert.Equal(t, 1, questions[0].Correct)
	assert.Empty(t, questions[0].Code)

	assert.Equal(t, "___ doWork()", questions[1].Code)
	assert.Equal(t, [4]string{"go", "async", "spawn", "run"}, questions[1].Options)
}

func TestLoadWrappedSchema(t *testing.T) {
	path := writeTemp(t, `{
		"questions": [
			{"question": "Zero value of a slice?", "options": ["empty slice", "nil", "panic", "undefined"], "correct": 1}
		]
	}`)

	questions, err := Load(path)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "Zero value of a slice?", questions[0].Text)
	assert.Equal(t, 1, questions[0].Correct)
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "empty array",
			content: `[]`,
			wantErr: ErrNoQuestions,
		},
		{
			name:    "empty object",
			content: `{"questions": []}`,
			wantErr: ErrNoQuestions,
		},
		{
			name:    "three options",
			content: `[{"text": "q", "options": ["a", "b", "c"], "correct_answer": 0}]`,
			wantErr: ErrBadOptionCount,
		},
		{
			name:    "correct index out of range",
			content: `[{"text": "q", "options": ["a", "b", "c", "d"], "correct_answer": 4}]`,
			wantErr: ErrBadCorrectIndex,
		},
		{
			name:    "missing correct index",
			content: `[{"text": "q", "options": ["a", "b", "c", "d"]}]`,
			wantErr: ErrBadCorrectIndex,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeTemp(t, tc.content))
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestLoadMalformedJSON(t *testing.T) {
	_, err := Load(writeTemp(t, `[{"text": "q",`))
	assert.Error(t, err)

	_, err = Load(writeTemp(t, `"just a string"`))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
