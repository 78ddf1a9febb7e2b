/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Teacher is the single presenter of the session.
type Teacher struct {
	ConnectionID string `json:"-"`
	Name         string `json:"name"`
}

// Student is one participant. IDs are allocated server-side on join and
// stay stable for the lifetime of the session.
type Student struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ConnectionID string    `json:"-"`
	HasAnswered  bool      `json:"hasAnswered"`
	JoinedAt     time.Time `json:"joinedAt"`
}

// Roster owns the canonical session state: who the teacher is and which
// students are in the room. All methods are plain in-memory mutations with
// no I/O; callers serialize access (the room holds one mutex over both the
// roster and the poll manager).
type Roster struct {
	teacher  *Teacher
	students map[string]*Student
}

func newRoster() *Roster {
	return &Roster{
		students: make(map[string]*Student),
	}
}

// Active reports whether a teacher currently holds the session.
func (r *Roster) Active() bool {
	return r.teacher != nil
}

func (r *Roster) Teacher() *Teacher {
	return r.teacher
}

// AcquireTeacher installs a new teacher, returning the displaced one if the
// session was already held. A takeover starts a fresh session: every
// student is dropped so no roster state leaks between teachers.
func (r *Roster) AcquireTeacher(connectionID, name string) *Teacher {
	displaced := r.teacher
	r.teacher = &Teacher{
		ConnectionID: connectionID,
		Name:         name,
	}
	r.students = make(map[string]*Student)
	return displaced
}

// Release clears the teacher and every student, returning the session to
// its empty state.
func (r *Roster) Release() {
	r.teacher = nil
	r.students = make(map[string]*Student)
}

// AddStudent allocates a fresh identity and inserts it. Joining an empty
// session is rejected.
func (r *Roster) AddStudent(connectionID, name string) (*Student, error) {
	if r.teacher == nil {
		return nil, ErrNoActiveSession
	}

	student := &Student{
		ID:           uuid.NewString(),
		Name:         name,
		ConnectionID: connectionID,
		HasAnswered:  false,
		JoinedAt:     time.Now(),
	}
	r.students[student.ID] = student

	return student, nil
}

// Student returns the student with the given ID, or nil.
func (r *Roster) Student(id string) *Student {
	return r.students[id]
}

// RemoveStudent drops a student from the roster. Removing an unknown ID is
// a no-op, so disconnect-after-kick stays harmless.
func (r *Roster) RemoveStudent(id string) {
	delete(r.students, id)
}

// ResetAnswered clears every student's answered flag ahead of a new poll.
func (r *Roster) ResetAnswered() {
	for _, student := range r.students {
		student.HasAnswered = false
	}
}

// AllAnswered reports whether every current student has answered. An empty
// roster counts as answered, which is what lets a teacher run polls alone
// and what unblocks poll creation when the last unanswered student is
// kicked.
func (r *Roster) AllAnswered() bool {
	for _, student := range r.students {
		if !student.HasAnswered {
			return false
		}
	}
	return true
}

func (r *Roster) AnsweredCount() int {
	count := 0
	for _, student := range r.students {
		if student.HasAnswered {
			count++
		}
	}
	return count
}

// Students returns the roster ordered by join time, so every broadcast
// list is stable.
func (r *Roster) Students() []*Student {
	students := make([]*Student, 0, len(r.students))
	for _, student := range r.students {
		students = append(students, student)
	}

	sort.Slice(students, func(i, j int) bool {
		if students[i].JoinedAt.Equal(students[j].JoinedAt) {
			return students[i].ID < students[j].ID
		}
		return students[i].JoinedAt.Before(students[j].JoinedAt)
	})

	return students
}
