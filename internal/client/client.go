// Package client implements a line-based quiz client speaking the
// server's wire protocol: it joins with a username, prints questions
// as they arrive, and submits answers read from stdin.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/coder/websocket"

	"github.com/tmorrow-dev/quizwire/internal/protocol"
)

var errSessionOver = errors.New("session over")

type Config struct {
	Host     string
	Port     int
	Username string // prompted for when empty
}

// Run connects to the server and drives the client loop until the
// session ends, the user is moderated out, or the connection drops.
func Run(ctx context.Context, cfg Config, in io.Reader, out io.Writer) error {
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/ws",
	}

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", u.Host, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	c := &client{conn: conn, in: bufio.NewScanner(in), out: out}
	return c.run(ctx, cfg.Username)
}

type client struct {
	conn *websocket.Conn
	in   *bufio.Scanner
	out  io.Writer

	question *protocol.ServerMessage // question awaiting an answer
}

func (c *client) run(ctx context.Context, username string) error {
	for username == "" {
		fmt.Fprint(c.out, "username: ")
		if !c.in.Scan() {
			return c.in.Err()
		}
		username = strings.TrimSpace(c.in.Text())
	}

	if err := c.write(ctx, protocol.ClientMessage{Type: protocol.TypeJoin, Username: username}); err != nil {
		return err
	}

	incoming := make(chan protocol.ServerMessage)
	readErr := make(chan error, 1)
	go func() {
		defer close(incoming)
		for {
			_, data, err := c.conn.Read(ctx)
			if err != nil {
				readErr <- err
				return
			}
			var msg protocol.ServerMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				readErr <- fmt.Errorf("bad frame from server: %w", err)
				return
			}
			select {
			case incoming <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		for c.in.Scan() {
			lines <- c.in.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-incoming:
			if !ok {
				select {
				case err := <-readErr:
					if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
						return nil
					}
					return err
				default:
					return nil
				}
			}
			if err := c.handle(msg); err != nil {
				if errors.Is(err, errSessionOver) {
					return nil
				}
				return err
			}

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := c.submit(ctx, line); err != nil {
				return err
			}
		}
	}
}

func (c *client) handle(msg protocol.ServerMessage) error {
	switch msg.Type {
	case protocol.TypeJoinResult:
		if !msg.Accepted {
			fmt.Fprintf(c.out, "join rejected: %s\n", msg.Reason)
			return errSessionOver
		}
		if msg.Resumed {
			fmt.Fprintf(c.out, "reconnected, resuming at question %d\n", msg.Index+1)
		} else {
			fmt.Fprintln(c.out, "joined, waiting for the quiz to start")
		}

	case protocol.TypeQuestion:
		c.question = &msg
		fmt.Fprintf(c.out, "\nQ%d: %s\n", msg.Index+1, msg.Text)
		if msg.Code != "" {
			fmt.Fprintf(c.out, "\n%s\n\n", msg.Code)
		}
		for i, option := range msg.Options {
			fmt.Fprintf(c.out, "  %d) %s\n", i+1, option)
		}
		fmt.Fprint(c.out, "answer (1-4): ")

	case protocol.TypeAnswerResult:
		if msg.Correct {
			fmt.Fprintln(c.out, "correct!")
		} else {
			fmt.Fprintf(c.out, "wrong, the answer was %d\n", msg.CorrectOption+1)
		}

	case protocol.TypeLeaderboard:
		fmt.Fprintln(c.out, "leaderboard:")
		printEntries(c.out, msg.Entries)

	case protocol.TypeModeration:
		fmt.Fprintf(c.out, "you have been %s by the host\n", msg.Kind)
		return errSessionOver

	case protocol.TypeSessionEnded:
		fmt.Fprintln(c.out, "\nquiz over! final standings:")
		printEntries(c.out, msg.Entries)
		return errSessionOver
	}
	return nil
}

// submit turns a typed line into an answer for the pending question.
func (c *client) submit(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if c.question == nil {
		fmt.Fprintln(c.out, "no question to answer yet")
		return nil
	}

	choice, err := strconv.Atoi(line)
	if err != nil || choice < 1 || choice > len(c.question.Options) {
		fmt.Fprintf(c.out, "enter a number between 1 and %d\n", len(c.question.Options))
		return nil
	}

	msg := protocol.ClientMessage{
		Type:          protocol.TypeAnswer,
		QuestionIndex: c.question.Index,
		OptionIndex:   choice - 1,
	}
	c.question = nil
	return c.write(ctx, msg)
}

func (c *client) write(ctx context.Context, msg protocol.ClientMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.conn.Write(ctx, websocket.MessageText, payload)
}

func printEntries(out io.Writer, entries []protocol.LeaderboardEntry) {
	for _, e := range entries {
		fmt.Fprintf(out, "  %2d. %-16s %d point(s), %d answered\n", e.Rank, e.Username, e.Score, e.Answered)
	}
}
