// Package protocol defines the wire messages exchanged between the
// quiz server and its clients. Every message is a single JSON object
// per WebSocket text frame, tagged by its "type" field.
package protocol

import (
	"errors"
	"strings"
)

// DefaultPort is the port the server listens on unless overridden.
const DefaultPort = 8712

// Client -> Server message types.
const (
	TypeJoin   = "Join"
	TypeAnswer = "Answer"
)

// Server -> Client message types.
const (
	TypeJoinResult   = "JoinResult"
	TypeQuestion     = "Question"
	TypeAnswerResult = "AnswerResult"
	TypeLeaderboard  = "Leaderboard"
	TypeModeration   = "Moderation"
	TypeSessionEnded = "SessionEnded"
)

// Join rejection reasons carried in JoinResult.
const (
	ReasonBanned            = "banned"
	ReasonDuplicateUsername = "duplicate_username"
	ReasonSessionClosed     = "session_closed"
	ReasonInvalidUsername   = "invalid_username"
)

// Moderation kinds.
const (
	ModerationKicked = "kicked"
	ModerationBanned = "banned"
)

type ClientMessage struct {
	Type          string `json:"type"`
	Username      string `json:"username,omitempty"`
	QuestionIndex int    `json:"question_index"`
	OptionIndex   int    `json:"option_index"`
}

type ServerMessage struct {
	Type string `json:"type"`

	// JoinResult
	Accepted bool   `json:"accepted,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Resumed  bool   `json:"resumed,omitempty"`

	// Question and AnswerResult
	Index         int      `json:"index"`
	Text          string   `json:"text,omitempty"`
	Code          string   `json:"code,omitempty"`
	Options       []string `json:"options,omitempty"`
	Correct       bool     `json:"correct,omitempty"`
	CorrectOption int      `json:"correct_option,omitempty"`

	// Moderation
	Kind string `json:"kind,omitempty"`

	// Leaderboard and SessionEnded
	Entries []LeaderboardEntry `json:"entries,omitempty"`
}

type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	Score    int    `json:"score"`
	Answered int    `json:"answered"`
}

// Username length limits, applied to the trimmed name.
const (
	UsernameMinLength = 3
	UsernameMaxLength = 16
)

var ErrUsernameTooShort = errors.New("username must be at least 3 characters")
var ErrUsernameTooLong = errors.New("username must be at most 16 characters")

// ValidateUsername reports whether a join request carries an
// acceptable username. The name is trimmed before measuring.
func ValidateUsername(username string) error {
	trimmed := strings.TrimSpace(username)
	if len(trimmed) < UsernameMinLength {
		return ErrUsernameTooShort
	}
	if len(trimmed) > UsernameMaxLength {
		return ErrUsernameTooLong
	}
	return nil
}
