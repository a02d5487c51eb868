package session

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tmorrow-dev/quizwire/internal/protocol"
	"github.com/tmorrow-dev/quizwire/internal/quiz"
)

// Ranking and progress summaries are pure computation over the
// participant table; they never mutate state. They run inside the
// actor so they always see a consistent snapshot.

// leaderboard ranks named participants by descending score; equal
// scores are ordered by which participant reached the score first.
// Kicked and banned participants never appear.
func (s *Session) leaderboard() []protocol.LeaderboardEntry {
	ranked := make([]*participant, 0, len(s.names))
	for _, p := range s.names {
		if p.status == StatusKicked || p.status == StatusBanned {
			continue
		}
		ranked = append(ranked, p)
	}
	sortStandings(ranked)

	entries := make([]protocol.LeaderboardEntry, len(ranked))
	for i, p := range ranked {
		entries[i] = protocol.LeaderboardEntry{
			Rank:     i + 1,
			Username: p.username,
			Score:    p.score,
			Answered: p.answeredCount(),
		}
	}
	return entries
}

func sortStandings(ranked []*participant) {
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.lastCorrectSeq != b.lastCorrectSeq {
			return a.lastCorrectSeq < b.lastCorrectSeq
		}
		return a.username < b.username
	})
}

func (s *Session) viewUser(username string) HostReply {
	p := s.names[username]
	if p == nil {
		return HostReply{Err: fmt.Errorf("%w: %s", ErrUnknownUser, username)}
	}
	return HostReply{Message: formatProgress(p, s.questions, s.state)}
}

func (s *Session) viewAll() string {
	if len(s.names) == 0 {
		return "No participants."
	}

	ranked := make([]*participant, 0, len(s.names))
	for _, p := range s.names {
		ranked = append(ranked, p)
	}
	sortStandings(ranked)

	var b strings.Builder
	fmt.Fprintf(&b, "Session %s, %d question(s), %d participant(s):\n",
		s.state, len(s.questions), len(s.names))
	for _, p := range ranked {
		fmt.Fprintf(&b, "  %-16s  score %d/%d  answered %d  accuracy %s  [%s]\n",
			p.username, p.score, len(s.questions), p.answeredCount(),
			formatAccuracy(p), statusLabel(p, len(s.questions), s.state))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *Session) listUsers() string {
	if len(s.names) == 0 {
		return "No participants."
	}

	names := make([]string, 0, len(s.names))
	for name := range s.names {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		p := s.names[name]
		parts[i] = fmt.Sprintf("%s (%s)", name, statusLabel(p, len(s.questions), s.state))
	}
	return "Users: " + strings.Join(parts, ", ")
}

func (s *Session) listBans() string {
	entries := s.bans.All()
	if len(entries) == 0 {
		return "No banned IPs."
	}

	ips := make([]string, len(entries))
	for i, e := range entries {
		ips[i] = e.IP
	}
	return "Banned IPs: " + strings.Join(ips, ", ")
}

func (s *Session) view() View {
	connected := make([]string, 0, len(s.names))
	for _, p := range s.names {
		if p.status == StatusActive {
			connected = append(connected, p.username)
		}
	}
	sort.Strings(connected)

	entries := s.bans.All()
	banned := make([]string, len(entries))
	for i, e := range entries {
		banned[i] = e.IP
	}

	return View{
		State:        s.state,
		Participants: len(s.names),
		Connected:    connected,
		Banned:       banned,
		Leaderboard:  s.leaderboard(),
	}
}

func statusLabel(p *participant, totalQuestions int, state State) string {
	if p.status == StatusDisconnected {
		return "disconnected"
	}
	if state == StateLobby {
		return "lobby"
	}
	if next := p.nextQuestion(); next >= totalQuestions {
		return "done"
	} else {
		return fmt.Sprintf("Q%d", next+1)
	}
}

func formatAccuracy(p *participant) string {
	answered := p.answeredCount()
	if answered == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.0f%%", float64(p.score)/float64(answered)*100)
}

func formatProgress(p *participant, questions []quiz.Question, state State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User %s (%s)\n", p.username, statusLabel(p, len(questions), state))
	fmt.Fprintf(&b, "  score %d/%d, answered %d, accuracy %s\n",
		p.score, len(questions), p.answeredCount(), formatAccuracy(p))
	for i, q := range questions {
		if i >= len(p.answers) || p.answers[i] == unanswered {
			continue
		}
		mark := "wrong"
		if p.answers[i] == q.Correct {
			mark = "correct"
		}
		fmt.Fprintf(&b, "  Q%d: answered %d (%s)\n", i+1, p.answers[i]+1, mark)
	}
	return strings.TrimRight(b.String(), "\n")
}
