package session

import (
	"github.com/tmorrow-dev/quizwire/internal/command"
	"github.com/tmorrow-dev/quizwire/internal/protocol"
)

// Msg is a message for the session actor. Every external event (a
// connection, a wire message, a host command) is funnelled through
// the inbox so state mutations are applied one at a time.
type Msg interface{ isSessionMsg() }

// Connect registers a new network connection before the WebSocket
// handshake completes. Reply carries ErrBanned if the IP is banned.
type Connect struct {
	ConnID string
	IP     string
	Outbox chan protocol.ServerMessage
	Reply  chan error
}

// Join is a client's join request. The JoinResult (and, mid-quiz,
// the first question) is delivered through the connection's outbox
// so it cannot be reordered against later broadcasts.
type Join struct {
	ConnID   string
	Username string
}

// Answer is a client's answer submission for one question.
type Answer struct {
	ConnID        string
	QuestionIndex int
	OptionIndex   int
}

// Disconnect reports that a connection's read loop has ended.
type Disconnect struct{ ConnID string }

// HostCmd applies a parsed host command.
type HostCmd struct {
	Cmd   command.Command
	Reply chan HostReply
}

// HostReply is the console-facing outcome of a host command.
type HostReply struct {
	Message string
	Err     error
	Quit    bool // the host asked for process shutdown
}

// GetView returns a consistent snapshot of session state. Reads go
// through the inbox like every other event, so they never observe a
// partially-applied mutation.
type GetView struct{ Reply chan View }

// Shutdown stops the actor loop and closes all outboxes.
type Shutdown struct{}

func (Connect) isSessionMsg()    {}
func (Join) isSessionMsg()       {}
func (Answer) isSessionMsg()     {}
func (Disconnect) isSessionMsg() {}
func (HostCmd) isSessionMsg()    {}
func (GetView) isSessionMsg()    {}
func (Shutdown) isSessionMsg()   {}

// View is a read-only snapshot used by tests and inspection.
type View struct {
	State        State
	Participants int      // named participants still on record
	Connected    []string // usernames with a live connection, sorted
	Banned       []string // banned IPs, sorted
	Leaderboard  []protocol.LeaderboardEntry
}
