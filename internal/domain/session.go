package domain

import (
	"fmt"
	"time"
)

// SessionStatus is the lifecycle of a live session.
type SessionStatus string

const (
	SessionPending SessionStatus = "pending"
	SessionRunning SessionStatus = "running"
	SessionEnded   SessionStatus = "ended"
)

// QuestionState is the display state of the current question. The empty value
// means no question is on screen.
type QuestionState string

const (
	QuestionHidden         QuestionState = "hidden"
	QuestionShowing        QuestionState = "showing"
	QuestionAnswerRevealed QuestionState = "answer_revealed"
	QuestionCompleted      QuestionState = "completed"
	QuestionNone           QuestionState = ""
)

func (q QuestionState) order() int {
	switch q {
	case QuestionHidden:
		return 0
	case QuestionShowing:
		return 1
	case QuestionAnswerRevealed:
		return 2
	case QuestionCompleted:
		return 3
	}
	return -1
}

// Valid reports whether q names a real display state.
func (q QuestionState) Valid() bool { return q.order() >= 0 }

// LiveSession is the runtime instance of a match being played. Revision is the
// optimistic-concurrency token: stores must reject an update whose expected
// revision no longer matches, so a lost race surfaces as ErrConflict rather
// than a silent overwrite.
type LiveSession struct {
	ID                     string        `json:"id"`
	MatchID                string        `json:"matchId"`
	Status                 SessionStatus `json:"status"`
	CurrentRoundType       RoundType     `json:"currentRoundType,omitempty"`
	CurrentQuestionState   QuestionState `json:"currentQuestionState,omitempty"`
	CurrentRoundQuestionID string        `json:"currentRoundQuestionId,omitempty"`
	AccessCode             string        `json:"accessCode"`
	Revision               int64         `json:"revision"`
	CreatedAt              time.Time     `json:"createdAt"`
}

// Start moves the session from pending to running. Starting an already-running
// session is a no-op; a session that has ended cannot be restarted.
func (s *LiveSession) Start() error {
	switch s.Status {
	case SessionPending:
		s.Status = SessionRunning
		return nil
	case SessionRunning:
		return nil
	default:
		return fmt.Errorf("start session %s (status %s): %w", s.ID, s.Status, ErrInvalidState)
	}
}

// AdvanceRound moves the round pointer forward through the ordered sequence.
// Skipping forward is allowed (resuming after an interruption); moving
// backward is not a supported transition here, use ResumeRound for that.
func (s *LiveSession) AdvanceRound(rt RoundType) error {
	if s.Status != SessionRunning {
		return fmt.Errorf("set round on session %s (status %s): %w", s.ID, s.Status, ErrInvalidState)
	}
	if !rt.Valid() {
		return fmt.Errorf("unknown round type %q: %w", rt, ErrInvalidState)
	}
	if s.CurrentRoundType.Valid() && rt.Order() <= s.CurrentRoundType.Order() {
		return fmt.Errorf("round %s does not advance past %s: %w", rt, s.CurrentRoundType, ErrInvalidState)
	}
	s.CurrentRoundType = rt
	s.clearQuestion()
	return nil
}

// ResumeRound sets the round pointer to any round, including an earlier one.
// This is the explicit recovery path for a host correcting the round after a
// data-entry mistake or resuming an interrupted match.
func (s *LiveSession) ResumeRound(rt RoundType) error {
	if s.Status != SessionRunning {
		return fmt.Errorf("resume round on session %s (status %s): %w", s.ID, s.Status, ErrInvalidState)
	}
	if !rt.Valid() {
		return fmt.Errorf("unknown round type %q: %w", rt, ErrInvalidState)
	}
	s.CurrentRoundType = rt
	s.clearQuestion()
	return nil
}

// SelectQuestion points the session at a question of the current round and
// resets the display state to hidden.
func (s *LiveSession) SelectQuestion(q RoundQuestion) error {
	if s.Status != SessionRunning {
		return fmt.Errorf("select question on session %s (status %s): %w", s.ID, s.Status, ErrInvalidState)
	}
	if !s.CurrentRoundType.Valid() {
		return fmt.Errorf("select question with no round set: %w", ErrInvalidState)
	}
	if q.MatchID != s.MatchID {
		return fmt.Errorf("question %s belongs to match %s, not %s: %w", q.ID, q.MatchID, s.MatchID, ErrInvalidState)
	}
	if q.RoundType != s.CurrentRoundType {
		return fmt.Errorf("question %s is a %s question, current round is %s: %w", q.ID, q.RoundType, s.CurrentRoundType, ErrInvalidState)
	}
	s.CurrentRoundQuestionID = q.ID
	s.CurrentQuestionState = QuestionHidden
	return nil
}

// SetQuestionState advances the display state of the current question. The
// state only moves forward through hidden -> showing -> answer_revealed ->
// completed; going back means selecting the question again.
func (s *LiveSession) SetQuestionState(qs QuestionState) error {
	if s.Status != SessionRunning {
		return fmt.Errorf("set question state on session %s (status %s): %w", s.ID, s.Status, ErrInvalidState)
	}
	if !s.CurrentRoundType.Valid() {
		return fmt.Errorf("set question state with no round set: %w", ErrInvalidState)
	}
	if !qs.Valid() {
		return fmt.Errorf("unknown question state %q: %w", qs, ErrInvalidState)
	}
	if s.CurrentRoundQuestionID == "" {
		return fmt.Errorf("set question state with no question selected: %w", ErrInvalidState)
	}
	if qs.order() < s.CurrentQuestionState.order() {
		return fmt.Errorf("question state %s does not advance past %s: %w", qs, s.CurrentQuestionState, ErrInvalidState)
	}
	s.CurrentQuestionState = qs
	return nil
}

// End is the one-way terminal transition. Ending an already-ended session is a
// no-op; the returned flag reports whether anything changed.
func (s *LiveSession) End() bool {
	if s.Status == SessionEnded {
		return false
	}
	s.Status = SessionEnded
	s.clearQuestion()
	return true
}

func (s *LiveSession) clearQuestion() {
	s.CurrentRoundQuestionID = ""
	s.CurrentQuestionState = QuestionNone
}
