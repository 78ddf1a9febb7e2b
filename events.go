/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"time"

	"github.com/google/uuid"
)

// Inbound event types.
const (
	evStartSession    = "start-session"
	evJoinSession     = "join-session"
	evCreatePoll      = "create-poll"
	evSubmitAnswer    = "submit-answer"
	evClosePoll       = "close-poll"
	evKickStudent     = "kick-student"
	evSendMessage     = "send-message"
	evGetPollHistory  = "get-poll-history"
	evGetCurrentState = "get-current-state"
)

// ClientMessage is the single inbound envelope; unused fields stay empty
// depending on Type.
type ClientMessage struct {
	Type      string       `json:"type"`
	Name      string       `json:"name,omitempty"`      // start-session / join-session
	Question  string       `json:"question,omitempty"`  // create-poll
	Options   []OptionSpec `json:"options,omitempty"`   // create-poll
	TimeLimit int          `json:"timeLimit,omitempty"` // create-poll, seconds
	OptionID  string       `json:"optionId,omitempty"`  // submit-answer
	StudentID string       `json:"studentId,omitempty"` // kick-student
	Message   string       `json:"message,omitempty"`   // send-message
}

// ChatMessage is broadcast to the room as-is.
type ChatMessage struct {
	ID         string `json:"id"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	SenderRole string `json:"senderRole"`
	Message    string `json:"message"`
	Timestamp  int64  `json:"timestamp"`
}

// PollSnapshot is the active-poll view sent to late joiners and state
// requests: the full poll minus the ledger, with live time remaining.
type PollSnapshot struct {
	PollID        string    `json:"pollId"`
	Question      string    `json:"question"`
	Options       []*Option `json:"options"`
	TimeRemaining int       `json:"timeRemaining"`
}

// Outbound messages. Each carries its own type tag so clients can switch
// on a single field.

type SessionStartedMessage struct {
	Type        string          `json:"type"` // "session-started"
	Students    []*Student      `json:"students"`
	PollHistory []HistoryRecord `json:"pollHistory"`
}

type SessionEndedMessage struct {
	Type    string `json:"type"` // "session-ended"
	Message string `json:"message,omitempty"`
}

type TeacherReplacedMessage struct {
	Type    string `json:"type"` // "teacher-replaced"
	Message string `json:"message"`
}

type JoinSuccessMessage struct {
	Type        string        `json:"type"` // "join-success"
	UserID      string        `json:"userId"`
	CurrentPoll *PollSnapshot `json:"currentPoll"`
}

type StudentJoinedMessage struct {
	Type    string   `json:"type"` // "student-joined"
	Student *Student `json:"student"`
}

type StudentLeftMessage struct {
	Type        string `json:"type"` // "student-left" / "student-removed"
	StudentID   string `json:"studentId"`
	StudentName string `json:"studentName"`
}

type KickedOutMessage struct {
	Type    string `json:"type"` // "kicked-out"
	Message string `json:"message"`
}

type StudentsListMessage struct {
	Type     string     `json:"type"` // "students-list"
	Students []*Student `json:"students"`
}

type PollStartedMessage struct {
	Type      string    `json:"type"` // "poll-started"
	PollID    string    `json:"pollId"`
	Question  string    `json:"question"`
	Options   []*Option `json:"options"`
	TimeLimit int       `json:"timeLimit"`
}

type TimeUpdateMessage struct {
	Type             string `json:"type"` // "time-update"
	SecondsRemaining int    `json:"secondsRemaining"`
}

type PollEndedMessage struct {
	Type    string         `json:"type"` // "poll-ended"
	Results map[string]int `json:"results"`
}

type LiveResultsMessage struct {
	Type    string         `json:"type"` // "live-results"
	Results map[string]int `json:"results"`
}

type AnswerSubmittedMessage struct {
	Type    string `json:"type"` // "answer-submitted"
	Success bool   `json:"success"`
}

type PollHistoryMessage struct {
	Type    string          `json:"type"` // "poll-history"
	History []HistoryRecord `json:"history"`
}

type NewChatMessage struct {
	Type        string      `json:"type"` // "new-message"
	ChatMessage ChatMessage `json:"chatMessage"`
}

type CurrentStateMessage struct {
	Type             string        `json:"type"` // "current-state"
	HasActiveSession bool          `json:"hasActiveSession"`
	Students         []*Student    `json:"students"`
	CurrentPoll      *PollSnapshot `json:"currentPoll"`
}

type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

func errorMessage(err error) ErrorMessage {
	return ErrorMessage{
		Type:    "error",
		Message: err.Error(),
	}
}

func snapshotPoll(poll *Poll) *PollSnapshot {
	if poll == nil || !poll.Active {
		return nil
	}

	return &PollSnapshot{
		PollID:        poll.ID,
		Question:      poll.Question,
		Options:       poll.Options,
		TimeRemaining: poll.TimeRemaining,
	}
}

func newChatMessage(senderID, senderName, senderRole, text string) ChatMessage {
	return ChatMessage{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		SenderName: senderName,
		SenderRole: senderRole,
		Message:    text,
		Timestamp:  time.Now().UnixMilli(),
	}
}
