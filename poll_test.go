/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"testing"
)

func twoOptions() []OptionSpec {
	return []OptionSpec{
		{ID: "o1", Text: "Yes"},
		{ID: "o2", Text: "No"},
	}
}

func noNames(string) (string, bool) {
	return "", false
}

func TestStartValidation(t *testing.T) {
	tests := []struct {
		name     string
		question string
		options  []OptionSpec
		want     error
	}{
		{"blank question", "   ", twoOptions(), ErrBlankQuestion},
		{"no options", "Ready?", nil, ErrNotEnoughOptions},
		{"one option", "Ready?", []OptionSpec{{ID: "o1", Text: "Yes"}}, ErrNotEnoughOptions},
		{"valid", "Ready?", twoOptions(), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := newPollManager(50)
			_, err := manager.Start(tt.question, tt.options, 30)
			if !errors.Is(err, tt.want) {
				t.Errorf("Start() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRecordVoteLedgerInvariants(t *testing.T) {
	manager := newPollManager(50)
	poll, err := manager.Start("Ready?", twoOptions(), 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := manager.RecordVote("s1", "o1"); err != nil {
		t.Fatalf("first vote should be accepted: %v", err)
	}
	if err := manager.RecordVote("s1", "o2"); !errors.Is(err, ErrDuplicateVote) {
		t.Fatalf("expected ErrDuplicateVote, got %v", err)
	}
	if err := manager.RecordVote("s2", "bogus"); !errors.Is(err, ErrOptionNotFound) {
		t.Fatalf("expected ErrOptionNotFound, got %v", err)
	}
	if err := manager.RecordVote("s2", "o2"); err != nil {
		t.Fatalf("second student vote should be accepted: %v", err)
	}

	sum := 0
	for _, option := range poll.Options {
		sum += option.Votes
	}
	if sum != len(poll.votes) {
		t.Errorf("sum of option votes %d != ledger size %d", sum, len(poll.votes))
	}

	results := manager.Results()
	if results["o1"] != 1 || results["o2"] != 1 {
		t.Errorf("unexpected tallies: %v", results)
	}
}

func TestRecordVoteWithoutActivePoll(t *testing.T) {
	manager := newPollManager(50)

	if err := manager.RecordVote("s1", "o1"); !errors.Is(err, ErrNoActivePoll) {
		t.Fatalf("expected ErrNoActivePoll, got %v", err)
	}

	if _, err := manager.Start("Ready?", twoOptions(), 30); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	manager.Close(noNames)

	if err := manager.RecordVote("s1", "o1"); !errors.Is(err, ErrNoActivePoll) {
		t.Fatalf("vote after close should be rejected, got %v", err)
	}
}

func TestCloseArchivesAndIsIdempotent(t *testing.T) {
	manager := newPollManager(50)
	if _, err := manager.Start("Ready?", twoOptions(), 30); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_ = manager.RecordVote("s1", "o1")

	names := map[string]string{"s1": "Alice"}
	lookup := func(id string) (string, bool) {
		name, ok := names[id]
		return name, ok
	}

	results := manager.Close(lookup)
	if results["o1"] != 1 || results["o2"] != 0 {
		t.Errorf("unexpected final results: %v", results)
	}

	if again := manager.Close(lookup); again != nil {
		t.Error("second close should be a no-op")
	}

	history := manager.History()
	if len(history) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(history))
	}

	record := history[0]
	if record.TotalVotes != 1 {
		t.Errorf("expected totalVotes 1, got %d", record.TotalVotes)
	}
	if len(record.Participants) != 1 || record.Participants[0].StudentName != "Alice" {
		t.Errorf("unexpected participants: %+v", record.Participants)
	}
	if record.Participants[0].SelectedOption != "o1" {
		t.Errorf("expected Alice's vote on o1, got %s", record.Participants[0].SelectedOption)
	}
	if record.ClosedAt.Before(record.CreatedAt) {
		t.Error("closedAt should not precede createdAt")
	}
}

func TestCloseSkipsDepartedStudents(t *testing.T) {
	manager := newPollManager(50)
	if _, err := manager.Start("Ready?", twoOptions(), 30); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_ = manager.RecordVote("gone", "o1")
	results := manager.Close(noNames)

	if results["o1"] != 1 {
		t.Errorf("departed student's vote should still count: %v", results)
	}

	record := manager.History()[0]
	if record.TotalVotes != 1 {
		t.Errorf("expected totalVotes 1, got %d", record.TotalVotes)
	}
	if len(record.Participants) != 0 {
		t.Errorf("departed students get no participant row: %+v", record.Participants)
	}
}

func TestHistoryRingEviction(t *testing.T) {
	manager := newPollManager(2)

	for i := 0; i < 3; i++ {
		question := fmt.Sprintf("Question %d", i)
		if _, err := manager.Start(question, twoOptions(), 30); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		manager.Close(noNames)
	}

	history := manager.History()
	if len(history) != 2 {
		t.Fatalf("expected history capped at 2, got %d", len(history))
	}
	if history[0].Question != "Question 1" || history[1].Question != "Question 2" {
		t.Errorf("oldest record should be evicted first: %q, %q", history[0].Question, history[1].Question)
	}
}

func TestClearHistory(t *testing.T) {
	manager := newPollManager(50)
	if _, err := manager.Start("Ready?", twoOptions(), 30); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	manager.Close(noNames)

	manager.ClearHistory()
	if len(manager.History()) != 0 {
		t.Error("history should be empty after clear")
	}
}

func TestDetailedResults(t *testing.T) {
	manager := newPollManager(50)
	options := []OptionSpec{
		{ID: "o1", Text: "Red"},
		{ID: "o2", Text: "Green"},
		{ID: "o3", Text: "Blue"},
	}
	if _, err := manager.Start("Favorite color?", options, 30); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	detailed := manager.DetailedResults()
	for _, row := range detailed {
		if row.Percentage != 0 {
			t.Errorf("with no votes, %s should be 0%%, got %d", row.ID, row.Percentage)
		}
	}

	_ = manager.RecordVote("s1", "o1")
	_ = manager.RecordVote("s2", "o1")
	_ = manager.RecordVote("s3", "o2")

	detailed = manager.DetailedResults()
	if len(detailed) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(detailed))
	}
	if detailed[0].ID != "o1" || detailed[1].ID != "o2" || detailed[2].ID != "o3" {
		t.Error("rows should keep declared option order")
	}
	if detailed[0].Percentage != 67 {
		t.Errorf("2/3 should round to 67, got %d", detailed[0].Percentage)
	}
	if detailed[1].Percentage != 33 {
		t.Errorf("1/3 should round to 33, got %d", detailed[1].Percentage)
	}
	if detailed[2].Percentage != 0 {
		t.Errorf("0/3 should be 0, got %d", detailed[2].Percentage)
	}
}

func TestTick(t *testing.T) {
	manager := newPollManager(50)
	if _, err := manager.Start("Ready?", twoOptions(), 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	remaining, expired := manager.Tick()
	if remaining != 1 || expired {
		t.Errorf("first tick: got (%d, %v), want (1, false)", remaining, expired)
	}

	remaining, expired = manager.Tick()
	if remaining != 0 || !expired {
		t.Errorf("second tick: got (%d, %v), want (0, true)", remaining, expired)
	}

	manager.Close(noNames)

	if _, expired := manager.Tick(); expired {
		t.Error("tick on a closed poll should do nothing")
	}
}

func TestOptionSpecWithoutIDGetsOne(t *testing.T) {
	manager := newPollManager(50)
	poll, err := manager.Start("Ready?", []OptionSpec{{Text: "Yes"}, {Text: "No"}}, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, option := range poll.Options {
		if option.ID == "" {
			t.Error("options without client-supplied IDs should get generated ones")
		}
	}
}
