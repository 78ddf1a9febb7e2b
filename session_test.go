/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"testing"
)

func TestAddStudentRequiresSession(t *testing.T) {
	roster := newRoster()

	if _, err := roster.AddStudent("conn-1", "Alice"); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}

	roster.AcquireTeacher("conn-t", "Ms. Frizzle")

	student, err := roster.AddStudent("conn-1", "Alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if student.ID == "" {
		t.Error("student ID should be allocated server-side")
	}
	if student.HasAnswered {
		t.Error("new student should not be marked answered")
	}
}

func TestAcquireTeacherReturnsDisplacedAndClearsStudents(t *testing.T) {
	roster := newRoster()

	if displaced := roster.AcquireTeacher("conn-a", "Teacher A"); displaced != nil {
		t.Fatalf("expected no displaced teacher, got %+v", displaced)
	}

	if _, err := roster.AddStudent("conn-1", "Alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := roster.AddStudent("conn-2", "Bob"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	displaced := roster.AcquireTeacher("conn-b", "Teacher B")
	if displaced == nil || displaced.Name != "Teacher A" {
		t.Fatalf("expected Teacher A displaced, got %+v", displaced)
	}

	if len(roster.Students()) != 0 {
		t.Errorf("takeover should clear the roster, found %d students", len(roster.Students()))
	}
	if !roster.Active() {
		t.Error("session should be active after takeover")
	}
}

func TestReleaseClearsEverything(t *testing.T) {
	roster := newRoster()
	roster.AcquireTeacher("conn-t", "Teacher")
	_, _ = roster.AddStudent("conn-1", "Alice")

	roster.Release()

	if roster.Active() {
		t.Error("session should be empty after release")
	}
	if roster.Teacher() != nil {
		t.Error("teacher should be cleared")
	}
	if len(roster.Students()) != 0 {
		t.Error("students should be cleared")
	}
}

func TestRemoveStudentIdempotent(t *testing.T) {
	roster := newRoster()
	roster.AcquireTeacher("conn-t", "Teacher")
	student, _ := roster.AddStudent("conn-1", "Alice")

	roster.RemoveStudent(student.ID)
	roster.RemoveStudent(student.ID)
	roster.RemoveStudent("never-existed")

	if len(roster.Students()) != 0 {
		t.Error("student should be gone")
	}
}

func TestAllAnswered(t *testing.T) {
	roster := newRoster()
	roster.AcquireTeacher("conn-t", "Teacher")

	if !roster.AllAnswered() {
		t.Error("empty roster should count as all answered")
	}

	alice, _ := roster.AddStudent("conn-1", "Alice")
	bob, _ := roster.AddStudent("conn-2", "Bob")

	if roster.AllAnswered() {
		t.Error("nobody has answered yet")
	}

	alice.HasAnswered = true
	if roster.AllAnswered() {
		t.Error("Bob is still outstanding")
	}
	if roster.AnsweredCount() != 1 {
		t.Errorf("expected 1 answered, got %d", roster.AnsweredCount())
	}

	bob.HasAnswered = true
	if !roster.AllAnswered() {
		t.Error("everyone has answered")
	}

	roster.ResetAnswered()
	if roster.AllAnswered() {
		t.Error("reset should clear answered flags")
	}
	if roster.AnsweredCount() != 0 {
		t.Errorf("expected 0 answered after reset, got %d", roster.AnsweredCount())
	}
}

func TestRemovingLastUnansweredStudentFlipsAllAnswered(t *testing.T) {
	roster := newRoster()
	roster.AcquireTeacher("conn-t", "Teacher")

	alice, _ := roster.AddStudent("conn-1", "Alice")
	bob, _ := roster.AddStudent("conn-2", "Bob")
	alice.HasAnswered = true

	if roster.AllAnswered() {
		t.Fatal("Bob has not answered")
	}

	roster.RemoveStudent(bob.ID)

	if !roster.AllAnswered() {
		t.Error("removal is synchronous; the post-removal roster has all answered")
	}
}
