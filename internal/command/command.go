// Package command parses host console input into typed commands.
// Parsing is purely lexical; whether a command can be applied in the
// current session state is decided by the session.
package command

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

var ErrEmpty = errors.New("empty input")
var ErrUnknownCommand = errors.New("unknown command")

// Kind enumerates the closed set of host commands.
type Kind int

const (
	Start Kind = iota
	Stop
	Kick
	Ban
	Unban
	View
	List
	Help
	Quit
)

// ListTarget selects what a List command enumerates.
type ListTarget int

const (
	ListUsers ListTarget = iota
	ListBans
)

// Command is one parsed host command. Arg holds the username for
// Kick/Ban/View and the IP for Unban. All is set for "view all".
type Command struct {
	Kind   Kind
	Arg    string
	All    bool
	Target ListTarget
}

// Parse turns one whitespace-delimited console line into a Command.
// Keywords are case-sensitive. Errors are reported locally on the
// host console and never dispatched to the session.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, ErrEmpty
	}

	keyword, args := fields[0], fields[1:]

	switch keyword {
	case "start":
		return bare(Start, keyword, args)
	case "stop":
		return bare(Stop, keyword, args)
	case "kick":
		return withName(Kick, keyword, args)
	case "ban":
		return withName(Ban, keyword, args)
	case "unban":
		if len(args) != 1 {
			return Command{}, fmt.Errorf("usage: unban <ip>")
		}
		addr, err := netip.ParseAddr(args[0])
		if err != nil {
			return Command{}, fmt.Errorf("invalid ip address: %s", args[0])
		}
		return Command{Kind: Unban, Arg: addr.String()}, nil
	case "view":
		if len(args) != 1 {
			return Command{}, fmt.Errorf("usage: view <username> | view all")
		}
		if args[0] == "all" {
			return Command{Kind: View, All: true}, nil
		}
		return Command{Kind: View, Arg: args[0]}, nil
	case "list":
		switch {
		case len(args) == 0 || (len(args) == 1 && args[0] == "users"):
			return Command{Kind: List, Target: ListUsers}, nil
		case len(args) == 1 && args[0] == "bans":
			return Command{Kind: List, Target: ListBans}, nil
		default:
			return Command{}, fmt.Errorf("usage: list [users|bans]")
		}
	case "help", "?":
		return bare(Help, keyword, args)
	case "quit", "exit":
		return bare(Quit, keyword, args)
	default:
		return Command{}, fmt.Errorf("%w: %s (type 'help' for available commands)", ErrUnknownCommand, keyword)
	}
}

func bare(kind Kind, keyword string, args []string) (Command, error) {
	if len(args) != 0 {
		return Command{}, fmt.Errorf("%s takes no arguments", keyword)
	}
	return Command{Kind: kind}, nil
}

func withName(kind Kind, keyword string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, fmt.Errorf("usage: %s <username>", keyword)
	}
	return Command{Kind: kind, Arg: args[0]}, nil
}

// HelpText is the static command reference shown for "help".
func HelpText() string {
	return `Available commands:
  start          - Start the quiz (lobby only)
  stop           - End the quiz and send final results
  kick <user>    - Disconnect a participant
  ban <user>     - Kick a participant and ban their IP
  unban <ip>     - Remove an IP from the ban list
  view <user>    - Show one participant's progress
  view all       - Show all participants' progress
  list           - List connected participants
  list bans      - List banned IPs
  help, ?        - Show this help
  quit, exit     - Shut down the server`
}
