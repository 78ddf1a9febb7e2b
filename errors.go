/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// Coordinator errors. Every one of these is recoverable: it is reported
// to the offending client as a targeted "error" event and nothing else
// happens.
var (
	ErrNoActiveSession        = errors.New("session has not started yet")
	ErrNoActivePoll           = errors.New("no active poll")
	ErrDuplicateVote          = errors.New("answer already submitted for this poll")
	ErrPreviousPollUnanswered = errors.New("previous poll still has unanswered students")
	ErrStudentNotFound        = errors.New("student not found")
	ErrOptionNotFound         = errors.New("option not found")
	ErrBlankQuestion          = errors.New("poll question cannot be blank")
	ErrNotEnoughOptions       = errors.New("poll needs at least two options")
	ErrBlankName              = errors.New("name cannot be blank")
	ErrAlreadyJoined          = errors.New("this connection already joined the session")
	ErrTeacherOnly            = errors.New("only the teacher can do that")
	ErrStudentOnly            = errors.New("only students can submit answers")
	ErrJoinFirst              = errors.New("join the session first")
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}
