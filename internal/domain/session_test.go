package domain

import (
	"errors"
	"testing"
)

func runningSession() LiveSession {
	return LiveSession{ID: "s1", MatchID: "m1", Status: SessionRunning}
}

func TestStartTransitions(t *testing.T) {
	s := LiveSession{ID: "s1", Status: SessionPending}
	if err := s.Start(); err != nil {
		t.Fatalf("start pending: %v", err)
	}
	if s.Status != SessionRunning {
		t.Fatalf("expected running, got %s", s.Status)
	}

	// Starting again is a no-op.
	if err := s.Start(); err != nil {
		t.Fatalf("start running: %v", err)
	}

	s.Status = SessionEnded
	if err := s.Start(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState restarting ended session, got %v", err)
	}
}

func TestAdvanceRoundIsForwardOnly(t *testing.T) {
	s := runningSession()
	if err := s.AdvanceRound(RoundKhoiDong); err != nil {
		t.Fatalf("advance to khoi dong: %v", err)
	}
	// Skipping a round forward is fine.
	if err := s.AdvanceRound(RoundTangToc); err != nil {
		t.Fatalf("skip to tang toc: %v", err)
	}
	if err := s.AdvanceRound(RoundVCNV); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState going backward, got %v", err)
	}
	if err := s.AdvanceRound(RoundTangToc); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState repeating round, got %v", err)
	}
	if err := s.AdvanceRound(RoundType("bonus")); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for unknown round, got %v", err)
	}
}

func TestResumeRoundAllowsBackward(t *testing.T) {
	s := runningSession()
	if err := s.AdvanceRound(RoundVeDich); err != nil {
		t.Fatalf("advance: %v", err)
	}
	s.CurrentRoundQuestionID = "vd1"
	s.CurrentQuestionState = QuestionShowing

	if err := s.ResumeRound(RoundKhoiDong); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if s.CurrentRoundType != RoundKhoiDong {
		t.Fatalf("expected khoi dong, got %s", s.CurrentRoundType)
	}
	if s.CurrentRoundQuestionID != "" || s.CurrentQuestionState != QuestionNone {
		t.Fatalf("resume must clear the question, got %+v", s)
	}
}

func TestSelectQuestionValidation(t *testing.T) {
	s := runningSession()
	q := RoundQuestion{ID: "kd1", MatchID: "m1", RoundType: RoundKhoiDong}

	if err := s.SelectQuestion(q); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState with no round set, got %v", err)
	}

	if err := s.AdvanceRound(RoundKhoiDong); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := s.SelectQuestion(RoundQuestion{ID: "x", MatchID: "other", RoundType: RoundKhoiDong}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for wrong match, got %v", err)
	}
	if err := s.SelectQuestion(RoundQuestion{ID: "vd1", MatchID: "m1", RoundType: RoundVeDich}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for wrong round, got %v", err)
	}

	if err := s.SelectQuestion(q); err != nil {
		t.Fatalf("select: %v", err)
	}
	if s.CurrentRoundQuestionID != "kd1" || s.CurrentQuestionState != QuestionHidden {
		t.Fatalf("expected hidden kd1, got %+v", s)
	}
}

func TestQuestionStateIsForwardOnly(t *testing.T) {
	s := runningSession()
	if err := s.AdvanceRound(RoundKhoiDong); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := s.SetQuestionState(QuestionShowing); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState with no question, got %v", err)
	}

	if err := s.SelectQuestion(RoundQuestion{ID: "kd1", MatchID: "m1", RoundType: RoundKhoiDong}); err != nil {
		t.Fatalf("select: %v", err)
	}
	for _, qs := range []QuestionState{QuestionShowing, QuestionAnswerRevealed, QuestionCompleted} {
		if err := s.SetQuestionState(qs); err != nil {
			t.Fatalf("advance to %s: %v", qs, err)
		}
	}
	if err := s.SetQuestionState(QuestionShowing); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState going backward, got %v", err)
	}

	// Re-selecting the question resets the display state.
	if err := s.SelectQuestion(RoundQuestion{ID: "kd1", MatchID: "m1", RoundType: RoundKhoiDong}); err != nil {
		t.Fatalf("reselect: %v", err)
	}
	if s.CurrentQuestionState != QuestionHidden {
		t.Fatalf("expected hidden after reselect, got %s", s.CurrentQuestionState)
	}
}

func TestEndIsIdempotent(t *testing.T) {
	s := runningSession()
	s.CurrentRoundQuestionID = "kd1"
	s.CurrentQuestionState = QuestionShowing

	if !s.End() {
		t.Fatal("first end must report a change")
	}
	if s.Status != SessionEnded || s.CurrentRoundQuestionID != "" {
		t.Fatalf("expected ended session with cleared question, got %+v", s)
	}
	if s.End() {
		t.Fatal("second end must be a no-op")
	}
}
