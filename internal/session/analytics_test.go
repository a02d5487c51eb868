package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tmorrow-dev/quizwire/internal/quiz"
)

func TestSortStandings(t *testing.T) {
	cases := []struct {
		name      string
		standings []*participant
		wantOrder []string
	}{
		{
			name: "descending score",
			standings: []*participant{
				{username: "low", score: 1},
				{username: "high", score: 3},
				{username: "mid", score: 2},
			},
			wantOrder: []string{"high", "mid", "low"},
		},
		{
			name: "tie broken by who reached the score first",
			standings: []*participant{
				{username: "late", score: 2, lastCorrectSeq: 9},
				{username: "early", score: 2, lastCorrectSeq: 4},
			},
			wantOrder: []string{"early", "late"},
		},
		{
			name: "zero scores fall back to username order",
			standings: []*participant{
				{username: "zoe", score: 0},
				{username: "amy", score: 0},
			},
			wantOrder: []string{"amy", "zoe"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sortStandings(tc.standings)
			got := make([]string, len(tc.standings))
			for i, p := range tc.standings {
				got[i] = p.username
			}
			assert.Equal(t, tc.wantOrder, got)
		})
	}
}

func TestFormatAccuracy(t *testing.T) {
	p := &participant{answers: []int{1, 0, unanswered}, score: 1}
	assert.Equal(t, "50%", formatAccuracy(p))

	empty := &participant{answers: newAnswers(3)}
	assert.Equal(t, "n/a", formatAccuracy(empty))
}

func TestFormatProgress(t *testing.T) {
	questions := threeQuestions()
	p := &participant{
		username: "alice",
		answers:  []int{1, 0, unanswered},
		score:    1,
	}

	out := formatProgress(p, questions, StateInProgress)
	assert.Contains(t, out, "User alice (Q3)")
	assert.Contains(t, out, "score 1/3")
	assert.Contains(t, out, "Q1: answered 2 (correct)")
	assert.Contains(t, out, "Q2: answered 1 (wrong)")
	assert.NotContains(t, out, "Q3: answered")
}

func TestStatusLabel(t *testing.T) {
	total := len(threeQuestions())

	assert.Equal(t, "lobby", statusLabel(&participant{}, total, StateLobby))
	assert.Equal(t, "disconnected", statusLabel(&participant{status: StatusDisconnected}, total, StateInProgress))
	assert.Equal(t, "Q1", statusLabel(&participant{answers: newAnswers(total)}, total, StateInProgress))
	assert.Equal(t, "done", statusLabel(&participant{answers: []int{1, 1, 1}}, total, StateInProgress))
}

func TestLeaderboardExcludesModerated(t *testing.T) {
	s := &Session{
		questions: []quiz.Question{{Correct: 0}},
		names: map[string]*participant{
			"alice": {username: "alice", score: 1, lastCorrectSeq: 1},
			"bob":   {username: "bob", score: 2, status: StatusKicked},
			"carol": {username: "carol", score: 3, status: StatusBanned},
		},
	}

	entries := s.leaderboard()
	assert.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].Username)
	assert.Equal(t, 1, entries[0].Rank)
}
