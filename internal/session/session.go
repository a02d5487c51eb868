// Package session implements the quiz session actor: a single
// goroutine that owns the session state machine, the participant
// table, and the ban registry. All mutation happens inside the actor
// loop, in the order events arrive at the inbox.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tmorrow-dev/quizwire/internal/banlist"
	"github.com/tmorrow-dev/quizwire/internal/command"
	"github.com/tmorrow-dev/quizwire/internal/protocol"
	"github.com/tmorrow-dev/quizwire/internal/quiz"
)

var ErrBanned = errors.New("ip is banned")
var ErrInvalidState = errors.New("invalid session state")
var ErrUnknownUser = errors.New("unknown user")

// State is the session lifecycle. Transitions are monotonic:
// Lobby -> InProgress -> Ended.
type State int

const (
	StateLobby State = iota
	StateInProgress
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateLobby:
		return "lobby"
	case StateInProgress:
		return "in progress"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Status is a participant's moderation/connection status.
type Status int

const (
	StatusActive Status = iota
	StatusDisconnected
	StatusKicked
	StatusBanned
)

const unanswered = -1

type participant struct {
	connID   string
	username string // empty until a Join is accepted
	ip       string
	outbox   chan protocol.ServerMessage // nil once the connection is dropped
	status   Status

	answers        []int // chosen option per question, unanswered until set
	score          int
	lastCorrectAt  time.Time
	lastCorrectSeq int64 // arrival order of the latest correct answer
	disconnectedAt time.Time
}

// nextQuestion is the index of the participant's next unanswered
// question. Answers are only accepted in order, so this is the
// length of the answered prefix.
func (p *participant) nextQuestion() int {
	for i, a := range p.answers {
		if a == unanswered {
			return i
		}
	}
	return len(p.answers)
}

func (p *participant) answeredCount() int {
	n := 0
	for _, a := range p.answers {
		if a != unanswered {
			n++
		}
	}
	return n
}

func newAnswers(n int) []int {
	answers := make([]int, n)
	for i := range answers {
		answers[i] = unanswered
	}
	return answers
}

type Config struct {
	Questions []quiz.Question
	Logger    *zap.Logger

	// DisconnectGrace is how long a disconnected participant's record
	// survives for reconnection before it is reaped.
	DisconnectGrace time.Duration
	SweepEvery      time.Duration
}

const (
	defaultDisconnectGrace = 2 * time.Minute
	defaultSweepEvery      = 30 * time.Second
)

// Session is the single authority over quiz state. Other components
// communicate intent through Inbox and never touch state directly.
type Session struct {
	inbox     chan Msg
	state     State
	questions []quiz.Question

	conns map[string]*participant // live connections, by connection ID
	names map[string]*participant // named participants, by username

	bans      *banlist.List
	log       *zap.Logger
	grace     time.Duration
	answerSeq int64
	startedAt time.Time
	endedAt   time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.DisconnectGrace <= 0 {
		cfg.DisconnectGrace = defaultDisconnectGrace
	}
	if cfg.SweepEvery <= 0 {
		cfg.SweepEvery = defaultSweepEvery
	}

	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		inbox:     make(chan Msg, 64),
		state:     StateLobby,
		questions: cfg.Questions,
		conns:     make(map[string]*participant),
		names:     make(map[string]*participant),
		bans:      banlist.New(),
		log:       cfg.Logger,
		grace:     cfg.DisconnectGrace,
		ctx:       ctx,
		cancel:    cancel,
	}
	go s.loop(cfg.SweepEvery)
	return s
}

func (s *Session) Inbox() chan<- Msg { return s.inbox }

// Close stops the actor without going through the inbox.
func (s *Session) Close() { s.cancel() }

func (s *Session) loop(sweepEvery time.Duration) {
	ticker := time.NewTicker(sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case <-ticker.C:
			s.reap(time.Now())

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Connect:
				s.handleConnect(msg)
			case Join:
				s.handleJoin(msg)
			case Answer:
				s.handleAnswer(msg)
			case Disconnect:
				s.handleDisconnect(msg)
			case HostCmd:
				msg.Reply <- s.applyHost(msg.Cmd)
			case GetView:
				msg.Reply <- s.view()
			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) handleConnect(msg Connect) {
	if s.bans.Contains(msg.IP) {
		msg.Reply <- ErrBanned
		return
	}
	s.conns[msg.ConnID] = &participant{
		connID: msg.ConnID,
		ip:     msg.IP,
		outbox: msg.Outbox,
		status: StatusActive,
	}
	msg.Reply <- nil
}

func joinRejected(reason string) protocol.ServerMessage {
	return protocol.ServerMessage{Type: protocol.TypeJoinResult, Accepted: false, Reason: reason}
}

func (s *Session) handleJoin(msg Join) {
	p := s.conns[msg.ConnID]
	if p == nil || p.username != "" {
		// unknown connection, or a second Join on the same one
		return
	}
	if s.state == StateEnded {
		s.send(p, joinRejected(protocol.ReasonSessionClosed))
		return
	}
	if s.bans.Contains(p.ip) {
		// banned between accept and join
		s.send(p, joinRejected(protocol.ReasonBanned))
		s.dropConnection(p)
		return
	}

	username := strings.TrimSpace(msg.Username)
	if err := protocol.ValidateUsername(username); err != nil {
		s.send(p, joinRejected(protocol.ReasonInvalidUsername))
		return
	}

	if existing := s.names[username]; existing != nil {
		if existing.status == StatusDisconnected && existing.ip == p.ip {
			s.resume(existing, p)
			return
		}
		s.send(p, joinRejected(protocol.ReasonDuplicateUsername))
		return
	}

	p.username = username
	s.names[username] = p
	s.send(p, protocol.ServerMessage{Type: protocol.TypeJoinResult, Accepted: true})

	if s.state == StateInProgress {
		// Late joiner: starts from the first question.
		p.answers = newAnswers(len(s.questions))
		s.send(p, s.questionMessage(0))
	}
	s.log.Info("participant joined",
		zap.String("username", username),
		zap.String("ip", p.ip),
		zap.Stringer("session", s.state))
}

// resume hands a fresh connection to a disconnected participant's
// record, keeping answers and score intact.
func (s *Session) resume(existing, pending *participant) {
	delete(s.conns, pending.connID)

	existing.connID = pending.connID
	existing.outbox = pending.outbox
	existing.status = StatusActive
	existing.disconnectedAt = time.Time{}
	s.conns[existing.connID] = existing

	next := existing.nextQuestion()
	s.send(existing, protocol.ServerMessage{
		Type:     protocol.TypeJoinResult,
		Accepted: true,
		Resumed:  true,
		Index:    next,
	})
	if s.state == StateInProgress && next < len(s.questions) {
		s.send(existing, s.questionMessage(next))
	}
	s.log.Info("participant reconnected", zap.String("username", existing.username))
}

func (s *Session) handleAnswer(msg Answer) {
	p := s.conns[msg.ConnID]
	if p == nil || p.username == "" || p.status != StatusActive {
		return
	}
	if s.state != StateInProgress {
		return
	}
	if msg.OptionIndex < 0 || msg.OptionIndex >= quiz.NumOptions {
		return
	}
	if msg.QuestionIndex >= len(s.questions) || msg.QuestionIndex != p.nextQuestion() {
		// Stale, duplicate, or out-of-order submission. The first
		// recorded answer wins; nothing is overwritten.
		return
	}

	q := s.questions[msg.QuestionIndex]
	p.answers[msg.QuestionIndex] = msg.OptionIndex
	correct := msg.OptionIndex == q.Correct
	if correct {
		p.score++
		p.lastCorrectAt = time.Now()
		s.answerSeq++
		p.lastCorrectSeq = s.answerSeq
	}

	s.send(p, protocol.ServerMessage{
		Type:          protocol.TypeAnswerResult,
		Index:         msg.QuestionIndex,
		Correct:       correct,
		CorrectOption: q.Correct,
	})
	if next := msg.QuestionIndex + 1; next < len(s.questions) {
		s.send(p, s.questionMessage(next))
	} else {
		s.log.Info("participant finished",
			zap.String("username", p.username),
			zap.Int("score", p.score),
			zap.Int("total", len(s.questions)))
	}

	s.broadcast(protocol.ServerMessage{Type: protocol.TypeLeaderboard, Entries: s.leaderboard()})
}

func (s *Session) handleDisconnect(msg Disconnect) {
	p := s.conns[msg.ConnID]
	if p == nil {
		return
	}
	s.dropConnection(p)
	if p.username == "" {
		return
	}
	if p.status == StatusActive {
		p.status = StatusDisconnected
		p.disconnectedAt = time.Now()
		s.log.Info("participant disconnected", zap.String("username", p.username))
	}
}

func (s *Session) applyHost(cmd command.Command) HostReply {
	switch cmd.Kind {
	case command.Start:
		return s.hostStart()
	case command.Stop:
		return s.hostStop()
	case command.Kick:
		return s.hostKick(cmd.Arg, false)
	case command.Ban:
		return s.hostKick(cmd.Arg, true)
	case command.Unban:
		return s.hostUnban(cmd.Arg)
	case command.View:
		if cmd.All {
			return HostReply{Message: s.viewAll()}
		}
		return s.viewUser(cmd.Arg)
	case command.List:
		if cmd.Target == command.ListBans {
			return HostReply{Message: s.listBans()}
		}
		return HostReply{Message: s.listUsers()}
	case command.Help:
		return HostReply{Message: command.HelpText()}
	case command.Quit:
		return s.hostQuit()
	default:
		return HostReply{Err: fmt.Errorf("unhandled command kind %d", cmd.Kind)}
	}
}

func (s *Session) hostStart() HostReply {
	if s.state != StateLobby {
		return HostReply{Err: fmt.Errorf("%w: quiz has already started", ErrInvalidState)}
	}
	if len(s.names) == 0 {
		return HostReply{Err: errors.New("no participants have joined yet")}
	}

	s.state = StateInProgress
	s.startedAt = time.Now()
	for _, p := range s.names {
		p.answers = newAnswers(len(s.questions))
	}
	s.broadcast(s.questionMessage(0))

	s.log.Info("quiz started",
		zap.Int("participants", len(s.names)),
		zap.Int("questions", len(s.questions)))
	return HostReply{Message: fmt.Sprintf("Quiz started with %d participant(s).", len(s.names))}
}

func (s *Session) hostStop() HostReply {
	if s.state == StateEnded {
		return HostReply{Err: fmt.Errorf("%w: quiz has already ended", ErrInvalidState)}
	}
	s.endQuiz()
	return HostReply{Message: "Quiz stopped. Final results sent to participants."}
}

func (s *Session) hostQuit() HostReply {
	if s.state != StateEnded {
		s.endQuiz()
	}
	return HostReply{Message: "Shutting down.", Quit: true}
}

// endQuiz broadcasts final results and releases every live
// connection. Records survive so view/list keep working afterwards.
func (s *Session) endQuiz() {
	s.state = StateEnded
	s.endedAt = time.Now()

	s.broadcast(protocol.ServerMessage{Type: protocol.TypeSessionEnded, Entries: s.leaderboard()})
	for _, p := range s.conns {
		s.dropConnection(p)
		if p.username != "" && p.status == StatusActive {
			p.status = StatusDisconnected
			p.disconnectedAt = s.endedAt
		}
	}
	s.log.Info("quiz ended", zap.Time("started_at", s.startedAt))
}

func (s *Session) hostKick(username string, ban bool) HostReply {
	p := s.names[username]
	if p == nil {
		return HostReply{Err: fmt.Errorf("%w: %s", ErrUnknownUser, username)}
	}

	kind := protocol.ModerationKicked
	if ban {
		kind = protocol.ModerationBanned
		s.bans.Add(p.ip, fmt.Sprintf("banned by host (user %s)", username))
	}
	s.send(p, protocol.ServerMessage{Type: protocol.TypeModeration, Kind: kind})
	s.dropConnection(p)
	if ban {
		p.status = StatusBanned
	} else {
		p.status = StatusKicked
	}
	delete(s.names, username)

	s.log.Info("participant removed",
		zap.String("username", username),
		zap.String("kind", kind))
	if ban {
		return HostReply{Message: fmt.Sprintf("Banned user: %s (IP: %s)", username, p.ip)}
	}
	return HostReply{Message: "Kicked user: " + username}
}

func (s *Session) hostUnban(ip string) HostReply {
	if err := s.bans.Remove(ip); err != nil {
		return HostReply{Err: fmt.Errorf("%w: %s", err, ip)}
	}
	return HostReply{Message: "Unbanned IP: " + ip}
}

// send queues a message on one participant's outbox. A full outbox
// means a slow or unresponsive client: that client alone is dropped,
// the session never blocks.
func (s *Session) send(p *participant, msg protocol.ServerMessage) {
	if p.outbox == nil {
		return
	}
	select {
	case p.outbox <- msg:
	default:
		s.log.Warn("outbox full, dropping client",
			zap.String("username", p.username),
			zap.String("ip", p.ip))
		s.dropConnection(p)
		if p.username != "" && p.status == StatusActive {
			p.status = StatusDisconnected
			p.disconnectedAt = time.Now()
		}
	}
}

func (s *Session) broadcast(msg protocol.ServerMessage) {
	for _, p := range s.conns {
		if p.username == "" {
			continue
		}
		s.send(p, msg)
	}
}

// dropConnection closes the participant's outbox, which tears the
// connection handler down, and forgets the routing entry.
func (s *Session) dropConnection(p *participant) {
	if p.outbox != nil {
		close(p.outbox)
		p.outbox = nil
	}
	delete(s.conns, p.connID)
}

func (s *Session) reap(now time.Time) {
	for name, p := range s.names {
		if p.status == StatusDisconnected && now.Sub(p.disconnectedAt) > s.grace {
			delete(s.names, name)
			s.log.Info("reaped disconnected participant", zap.String("username", name))
		}
	}
}

func (s *Session) shutdown() {
	for _, p := range s.conns {
		s.dropConnection(p)
	}
	s.cancel()
}

func (s *Session) questionMessage(index int) protocol.ServerMessage {
	q := s.questions[index]
	return protocol.ServerMessage{
		Type:    protocol.TypeQuestion,
		Index:   index,
		Text:    q.Text,
		Code:    q.Code,
		Options: q.Options[:],
	}
}
