/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Option is one choice in a poll. The vote count is a cached projection of
// the ledger, kept in sync on every accepted vote.
type Option struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// OptionSpec is what a teacher supplies when creating a poll; counts always
// start from zero.
type OptionSpec struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Poll is one timed, single-choice question. The votes map is the
// authoritative ledger: one entry per student, studentID to optionID.
type Poll struct {
	ID            string    `json:"pollId"`
	Question      string    `json:"question"`
	Options       []*Option `json:"options"`
	TimeLimit     int       `json:"timeLimit"`
	TimeRemaining int       `json:"timeRemaining"`
	Active        bool      `json:"-"`
	CreatedAt     time.Time `json:"-"`

	votes map[string]string
}

// OptionResult is one row of the detailed tally, percentage included.
type OptionResult struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Votes      int    `json:"votes"`
	Percentage int    `json:"percentage"`
}

// Participant records which option a student picked, for the archive.
type Participant struct {
	StudentID      string `json:"studentId"`
	StudentName    string `json:"studentName"`
	SelectedOption string `json:"selectedOption"`
}

// HistoryRecord is an immutable snapshot of a poll taken at the moment it
// closed.
type HistoryRecord struct {
	PollID       string        `json:"pollId"`
	Question     string        `json:"question"`
	Options      []Option      `json:"options"`
	TotalVotes   int           `json:"totalVotes"`
	CreatedAt    time.Time     `json:"createdAt"`
	ClosedAt     time.Time     `json:"closedAt"`
	Participants []Participant `json:"participants"`
}

// PollManager owns the current poll and the archive of closed ones. Like
// the roster, it performs no I/O and holds no locks of its own.
type PollManager struct {
	current      *Poll
	history      []HistoryRecord
	historyLimit int
}

func newPollManager(historyLimit int) *PollManager {
	return &PollManager{
		historyLimit: historyLimit,
	}
}

func (m *PollManager) Current() *Poll {
	return m.current
}

// HasActivePoll reports whether a poll is currently accepting votes.
func (m *PollManager) HasActivePoll() bool {
	return m.current != nil && m.current.Active
}

// Start validates the poll spec and installs a fresh active poll. The
// previous-poll-unanswered guard belongs to the caller, which can see the
// roster.
func (m *PollManager) Start(question string, options []OptionSpec, timeLimit int) (*Poll, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrBlankQuestion
	}
	if len(options) < 2 {
		return nil, ErrNotEnoughOptions
	}

	poll := &Poll{
		ID:            uuid.NewString(),
		Question:      question,
		Options:       make([]*Option, 0, len(options)),
		TimeLimit:     timeLimit,
		TimeRemaining: timeLimit,
		Active:        true,
		CreatedAt:     time.Now(),
		votes:         make(map[string]string),
	}

	for _, spec := range options {
		id := spec.ID
		if id == "" {
			id = uuid.NewString()
		}
		poll.Options = append(poll.Options, &Option{
			ID:   id,
			Text: spec.Text,
		})
	}

	m.current = poll

	return poll, nil
}

// RecordVote inserts a ledger entry for the student and bumps the matching
// option's cached count. At most one vote per student per poll is ever
// accepted.
func (m *PollManager) RecordVote(studentID, optionID string) error {
	poll := m.current
	if poll == nil || !poll.Active {
		return ErrNoActivePoll
	}

	if _, voted := poll.votes[studentID]; voted {
		return ErrDuplicateVote
	}

	var chosen *Option
	for _, option := range poll.Options {
		if option.ID == optionID {
			chosen = option
			break
		}
	}
	if chosen == nil {
		return ErrOptionNotFound
	}

	// Ledger entry and cached count move together, keeping the tallies
	// derivable from the ledger.
	poll.votes[studentID] = optionID
	chosen.Votes++

	return nil
}

// Tick counts down one second on the active poll and reports whether it
// just expired. An expired poll is not closed here; the caller closes it so
// results and archival happen on its side of the lock.
func (m *PollManager) Tick() (remaining int, expired bool) {
	poll := m.current
	if poll == nil || !poll.Active {
		return 0, false
	}

	poll.TimeRemaining--

	return poll.TimeRemaining, poll.TimeRemaining <= 0
}

// Close marks the current poll inactive, archives a snapshot, and returns
// the final tallies. Closing an already-closed poll is a no-op. The name
// lookup resolves student IDs for the archive's participant list; votes
// from students who have since left stay in the totals but get no
// participant row.
func (m *PollManager) Close(studentName func(id string) (string, bool)) map[string]int {
	poll := m.current
	if poll == nil || !poll.Active {
		return nil
	}

	poll.Active = false

	record := HistoryRecord{
		PollID:       poll.ID,
		Question:     poll.Question,
		Options:      make([]Option, 0, len(poll.Options)),
		TotalVotes:   len(poll.votes),
		CreatedAt:    poll.CreatedAt,
		ClosedAt:     time.Now(),
		Participants: make([]Participant, 0, len(poll.votes)),
	}

	for _, option := range poll.Options {
		record.Options = append(record.Options, *option)
	}

	for _, option := range poll.Options {
		for studentID, optionID := range poll.votes {
			if optionID != option.ID {
				continue
			}
			name, ok := studentName(studentID)
			if !ok {
				continue
			}
			record.Participants = append(record.Participants, Participant{
				StudentID:      studentID,
				StudentName:    name,
				SelectedOption: optionID,
			})
		}
	}

	m.history = append(m.history, record)
	if len(m.history) > m.historyLimit {
		m.history = m.history[len(m.history)-m.historyLimit:]
	}

	return m.Results()
}

// Results returns the current tallies as optionID to count.
func (m *PollManager) Results() map[string]int {
	poll := m.current
	if poll == nil {
		return map[string]int{}
	}

	results := make(map[string]int, len(poll.Options))
	for _, option := range poll.Options {
		results[option.ID] = option.Votes
	}

	return results
}

// DetailedResults returns per-option tallies with rounded percentages, in
// declared option order. With no votes, every percentage is zero.
func (m *PollManager) DetailedResults() []OptionResult {
	poll := m.current
	if poll == nil {
		return nil
	}

	totalVotes := len(poll.votes)

	results := make([]OptionResult, 0, len(poll.Options))
	for _, option := range poll.Options {
		percentage := 0
		if totalVotes > 0 {
			percentage = int(math.Round(float64(option.Votes) / float64(totalVotes) * 100))
		}
		results = append(results, OptionResult{
			ID:         option.ID,
			Text:       option.Text,
			Votes:      option.Votes,
			Percentage: percentage,
		})
	}

	return results
}

// History returns a copy of the archive, oldest first.
func (m *PollManager) History() []HistoryRecord {
	history := make([]HistoryRecord, len(m.history))
	copy(history, m.history)
	return history
}

// ClearHistory drops the archive; a new teacher starts with no residue.
func (m *PollManager) ClearHistory() {
	m.history = nil
}

// Reset drops the current poll without archiving it, for session teardown.
func (m *PollManager) Reset() {
	m.current = nil
}
