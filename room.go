/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

// Livepoll session coordinator
//
// One teacher runs timed multiple-choice polls for many students over
// websockets. Everything lives in a single logical room.
//
// Features:
// - WebSocket endpoint at /ws carrying the whole event protocol
// - First start-session acquires the session; a later one evicts the
//   previous teacher and starts over with an empty roster and history
// - Students get server-generated IDs on join, one vote per poll
// - Polls carry a once-per-second countdown and close themselves at zero
// - Teacher can close polls early and kick students
// - Live tallies after every vote, detailed history after every close
// - Room-wide chat for anyone who has joined
// - Closed polls are archived in a bounded ring, retrievable by the teacher
// - In-browser QR button to share the session URL, backed by go-qrcode

package main

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	roleNone    = ""
	roleTeacher = "teacher"
	roleStudent = "student"
)

// Client binds one websocket connection to an identity. Role, userID and
// name are assigned at most once, by start-session or join-session, and
// are only ever touched under the room mutex.
type Client struct {
	conn   wsConn
	send   chan any
	id     string
	role   string
	userID string
	name   string
}

// wsConn is the slice of *websocket.Conn the room needs, so tests can
// drive the coordinator without a network.
type wsConn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

// countdown is the cancellation handle for one poll's ticker goroutine.
type countdown struct {
	stop chan struct{}
	once sync.Once
}

func (cd *countdown) cancel() {
	cd.once.Do(func() {
		close(cd.stop)
	})
}

// Room is the single session coordinator. One mutex guards the roster, the
// poll manager, and every client identity; each inbound event is applied
// atomically under it.
type Room struct {
	cfg   *Config
	clock clockwork.Clock

	mu        sync.Mutex
	clients   map[*Client]bool
	roster    *Roster
	polls     *PollManager
	countdown *countdown
}

func newRoom(cfg *Config, clock clockwork.Clock) *Room {
	return &Room{
		cfg:     cfg,
		clock:   clock,
		clients: make(map[*Client]bool),
		roster:  newRoster(),
		polls:   newPollManager(cfg.historyLimit),
	}
}

func (r *Room) register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients[c] = true
}

// unregister drops the connection and runs role-specific cleanup: the
// teacher leaving tears the whole session down, a student leaving is
// announced to the room.
func (r *Room) unregister(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[c]; ok {
		delete(r.clients, c)
		close(c.send)
	}

	switch c.role {
	case roleTeacher:
		teacher := r.roster.Teacher()
		if teacher != nil && teacher.ConnectionID == c.id {
			logf(r.cfg, "ROOM: Teacher %q disconnected, ending session", c.name)
			r.endSessionLocked("Teacher has left. Session ended.")
		}

	case roleStudent:
		if student := r.roster.Student(c.userID); student != nil {
			r.roster.RemoveStudent(student.ID)
			logf(r.cfg, "ROOM: Student %q disconnected", student.Name)
			r.broadcastLocked(StudentLeftMessage{
				Type:        "student-left",
				StudentID:   student.ID,
				StudentName: student.Name,
			})
		}
	}

	c.role, c.userID, c.name = roleNone, "", ""
}

// dispatch routes one inbound event. Unknown types are ignored.
func (r *Room) dispatch(c *Client, msg ClientMessage) {
	switch msg.Type {
	case evStartSession:
		r.handleStartSession(c, msg)
	case evJoinSession:
		r.handleJoinSession(c, msg)
	case evCreatePoll:
		r.handleCreatePoll(c, msg)
	case evSubmitAnswer:
		r.handleSubmitAnswer(c, msg)
	case evClosePoll:
		r.handleClosePoll(c)
	case evKickStudent:
		r.handleKickStudent(c, msg)
	case evSendMessage:
		r.handleSendMessage(c, msg)
	case evGetPollHistory:
		r.handlePollHistory(c)
	case evGetCurrentState:
		r.handleCurrentState(c)
	}
}

// handleStartSession acquires the session for a new teacher. If another
// teacher holds it, they are displaced first: countdown cancelled, poll and
// history discarded, the displaced teacher told personally, then the room
// told the session ended, in that order.
func (r *Room) handleStartSession(c *Client, msg ClientMessage) {
	name := strings.TrimSpace(msg.Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		r.sendLocked(c, errorMessage(ErrBlankName))
		return
	}
	if c.role != roleNone {
		r.sendLocked(c, errorMessage(ErrAlreadyJoined))
		return
	}

	if r.roster.Active() {
		displaced := r.roster.Teacher()

		r.cancelCountdownLocked()
		r.polls.Reset()
		r.polls.ClearHistory()

		if dc := r.clientByConnectionLocked(displaced.ConnectionID); dc != nil {
			r.sendLocked(dc, TeacherReplacedMessage{
				Type:    "teacher-replaced",
				Message: "Another teacher has taken over the session",
			})
		}
		r.broadcastLocked(SessionEndedMessage{Type: "session-ended"})
		r.clearIdentitiesLocked()
		r.roster.Release()

		logf(r.cfg, "ROOM: Teacher %q displaced by %q", displaced.Name, name)
	}

	r.polls.ClearHistory()
	r.roster.AcquireTeacher(c.id, name)
	c.role = roleTeacher
	c.name = name

	r.sendLocked(c, SessionStartedMessage{
		Type:        "session-started",
		Students:    r.roster.Students(),
		PollHistory: r.polls.History(),
	})

	logf(r.cfg, "ROOM: Teacher %q started a session", name)
}

func (r *Room) handleJoinSession(c *Client, msg ClientMessage) {
	name := strings.TrimSpace(msg.Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		r.sendLocked(c, errorMessage(ErrBlankName))
		return
	}
	if c.role != roleNone {
		r.sendLocked(c, errorMessage(ErrAlreadyJoined))
		return
	}

	student, err := r.roster.AddStudent(c.id, name)
	if err != nil {
		r.sendLocked(c, errorMessage(err))
		return
	}

	c.role = roleStudent
	c.userID = student.ID
	c.name = name

	r.broadcastLocked(StudentJoinedMessage{
		Type:    "student-joined",
		Student: student,
	})
	r.sendLocked(c, JoinSuccessMessage{
		Type:        "join-success",
		UserID:      student.ID,
		CurrentPoll: snapshotPoll(r.polls.Current()),
	})

	logf(r.cfg, "ROOM: Student %q joined", name)
}

// handleCreatePoll starts a new poll, provided the previous one is not
// still waiting on answers from current students.
func (r *Room) handleCreatePoll(c *Client, msg ClientMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.role != roleTeacher {
		r.sendLocked(c, errorMessage(ErrTeacherOnly))
		return
	}

	if r.polls.HasActivePoll() && !r.roster.AllAnswered() {
		r.sendLocked(c, errorMessage(ErrPreviousPollUnanswered))
		return
	}

	timeLimit := msg.TimeLimit
	if timeLimit <= 0 {
		timeLimit = int(r.cfg.defaultPollTime.Seconds())
	}

	poll, err := r.polls.Start(msg.Question, msg.Options, timeLimit)
	if err != nil {
		r.sendLocked(c, errorMessage(err))
		return
	}

	r.roster.ResetAnswered()

	r.broadcastLocked(PollStartedMessage{
		Type:      "poll-started",
		PollID:    poll.ID,
		Question:  poll.Question,
		Options:   poll.Options,
		TimeLimit: poll.TimeLimit,
	})

	r.startCountdownLocked(poll)

	logf(r.cfg, "POLL: %q started, %d options, %ds", poll.Question, len(poll.Options), poll.TimeLimit)
}

func (r *Room) handleSubmitAnswer(c *Client, msg ClientMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.role != roleStudent {
		r.sendLocked(c, errorMessage(ErrStudentOnly))
		return
	}

	if err := r.polls.RecordVote(c.userID, msg.OptionID); err != nil {
		r.sendLocked(c, errorMessage(err))
		return
	}

	if student := r.roster.Student(c.userID); student != nil {
		student.HasAnswered = true
	}

	r.sendLocked(c, AnswerSubmittedMessage{Type: "answer-submitted", Success: true})
	r.broadcastLocked(StudentsListMessage{Type: "students-list", Students: r.roster.Students()})
	r.broadcastLocked(LiveResultsMessage{Type: "live-results", Results: r.polls.Results()})

	logf(r.cfg, "POLL: Student %q answered (%d/%d)", c.name, r.roster.AnsweredCount(), len(r.roster.Students()))
}

func (r *Room) handleClosePoll(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.role != roleTeacher {
		r.sendLocked(c, errorMessage(ErrTeacherOnly))
		return
	}

	r.closePollLocked()
	r.broadcastLocked(PollEndedMessage{Type: "poll-ended", Results: r.polls.Results()})

	logf(r.cfg, "POLL: Closed by teacher %q", c.name)
}

func (r *Room) handleKickStudent(c *Client, msg ClientMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.role != roleTeacher {
		r.sendLocked(c, errorMessage(ErrTeacherOnly))
		return
	}

	student := r.roster.Student(msg.StudentID)
	if student == nil {
		r.sendLocked(c, errorMessage(ErrStudentNotFound))
		return
	}

	if sc := r.clientByConnectionLocked(student.ConnectionID); sc != nil {
		r.sendLocked(sc, KickedOutMessage{
			Type:    "kicked-out",
			Message: "You have been removed from the session by the teacher",
		})
		// The kicked client keeps its connection but loses its identity,
		// so its eventual disconnect is a clean no-op.
		sc.role, sc.userID, sc.name = roleNone, "", ""
	}

	r.roster.RemoveStudent(student.ID)

	r.broadcastLocked(StudentLeftMessage{
		Type:        "student-removed",
		StudentID:   student.ID,
		StudentName: student.Name,
	})

	logf(r.cfg, "ROOM: Teacher %q kicked student %q", c.name, student.Name)
}

func (r *Room) handleSendMessage(c *Client, msg ClientMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.role == roleNone {
		r.sendLocked(c, errorMessage(ErrJoinFirst))
		return
	}

	senderID := c.userID
	if senderID == "" {
		senderID = c.id
	}

	chat := newChatMessage(senderID, c.name, c.role, strings.TrimSpace(msg.Message))
	r.broadcastLocked(NewChatMessage{Type: "new-message", ChatMessage: chat})

	logf(r.cfg, "CHAT: %s %q: %s", c.role, c.name, chat.Message)
}

func (r *Room) handlePollHistory(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.role != roleTeacher {
		r.sendLocked(c, errorMessage(ErrTeacherOnly))
		return
	}

	r.sendLocked(c, PollHistoryMessage{Type: "poll-history", History: r.polls.History()})
}

// handleCurrentState answers anyone, joined or not, with a full
// resynchronization snapshot.
func (r *Room) handleCurrentState(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sendLocked(c, CurrentStateMessage{
		Type:             "current-state",
		HasActiveSession: r.roster.Active(),
		Students:         r.roster.Students(),
		CurrentPoll:      snapshotPoll(r.polls.Current()),
	})
}

// startCountdownLocked schedules the once-per-second ticker for a freshly
// started poll.
func (r *Room) startCountdownLocked(poll *Poll) {
	cd := &countdown{stop: make(chan struct{})}
	r.countdown = cd
	go r.runCountdown(poll, cd)
}

func (r *Room) runCountdown(poll *Poll, cd *countdown) {
	ticker := r.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-cd.stop:
			return
		case <-ticker.Chan():
			if !r.tick(poll) {
				return
			}
		}
	}
}

// tick applies one countdown second. A tick that raced a teardown finds the
// poll it was started for no longer current or active and does nothing;
// every state check and mutation happens under the room mutex, so a stale
// ticker can never touch torn-down state.
func (r *Room) tick(poll *Poll) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.polls.Current() != poll || !poll.Active {
		return false
	}

	remaining, expired := r.polls.Tick()
	r.broadcastLocked(TimeUpdateMessage{Type: "time-update", SecondsRemaining: remaining})

	if !expired {
		return true
	}

	r.closePollLocked()
	r.broadcastLocked(PollEndedMessage{Type: "poll-ended", Results: r.polls.Results()})

	logf(r.cfg, "POLL: Time expired, poll closed")

	return false
}

// closePollLocked cancels the countdown and archives the poll. Safe to call
// on every teardown path; closing twice is a no-op.
func (r *Room) closePollLocked() {
	r.cancelCountdownLocked()
	r.polls.Close(func(id string) (string, bool) {
		student := r.roster.Student(id)
		if student == nil {
			return "", false
		}
		return student.Name, true
	})
}

func (r *Room) cancelCountdownLocked() {
	if r.countdown != nil {
		r.countdown.cancel()
		r.countdown = nil
	}
}

// endSessionLocked tears the whole session down: countdown first, then
// state, then the notification, so no tick can fire against cleared state.
func (r *Room) endSessionLocked(message string) {
	r.cancelCountdownLocked()
	r.polls.Reset()
	r.roster.Release()

	r.broadcastLocked(SessionEndedMessage{
		Type:    "session-ended",
		Message: message,
	})
	r.clearIdentitiesLocked()
}

// clearIdentitiesLocked resets every remaining client to unauthenticated;
// after a session ends, everyone rejoins from scratch.
func (r *Room) clearIdentitiesLocked() {
	for client := range r.clients {
		client.role, client.userID, client.name = roleNone, "", ""
	}
}

func (r *Room) clientByConnectionLocked(connectionID string) *Client {
	for client := range r.clients {
		if client.id == connectionID {
			return client
		}
	}
	return nil
}

// sendLocked delivers to one client, dropping the connection if its send
// buffer is full.
func (r *Room) sendLocked(c *Client, msg any) {
	select {
	case c.send <- msg:
	default:
		delete(r.clients, c)
		close(c.send)
	}
}

// broadcastLocked fans out to every client that has joined the room.
// Delivery is best-effort; nobody queues for the disconnected.
func (r *Room) broadcastLocked(msg any) {
	for client := range r.clients {
		if client.role == roleNone {
			continue
		}
		r.sendLocked(client, msg)
	}
}

func (c *Client) readPump(r *Room) {
	defer func() {
		r.unregister(c)
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		r.dispatch(c, msg)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func newClient(conn wsConn) *Client {
	return &Client{
		conn: conn,
		send: make(chan any, 8),
		id:   uuid.NewString(),
	}
}
