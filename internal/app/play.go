package app

import (
	"context"
	"fmt"

	"olympia-live-service/internal/domain"
	"olympia-live-service/internal/resolve"
)

// RecordBuzz appends a buzz attempt for the current question. The store
// assigns the timestamp; ordering is settled later by the race resolver, so
// concurrent buzzes need no coordination here.
func (s *LiveService) RecordBuzz(ctx context.Context, sessionID, contestantID string) (domain.BuzzerEvent, error) {
	return s.recordAttempt(ctx, sessionID, contestantID, domain.BuzzerBuzz)
}

// RecordSteal appends a steal attempt, made after the primary contestant
// failed the question.
func (s *LiveService) RecordSteal(ctx context.Context, sessionID, contestantID string) (domain.BuzzerEvent, error) {
	return s.recordAttempt(ctx, sessionID, contestantID, domain.BuzzerSteal)
}

func (s *LiveService) recordAttempt(ctx context.Context, sessionID, contestantID string, kind domain.BuzzerEventType) (domain.BuzzerEvent, error) {
	session, err := s.questionInPlay(ctx, sessionID)
	if err != nil {
		return domain.BuzzerEvent{}, err
	}
	if err := s.requireSeat(ctx, session.MatchID, contestantID); err != nil {
		return domain.BuzzerEvent{}, err
	}

	event, err := s.events.AppendBuzzerEvent(ctx, domain.BuzzerEvent{
		MatchID:         session.MatchID,
		RoundQuestionID: session.CurrentRoundQuestionID,
		ContestantID:    contestantID,
		EventType:       kind,
		Result:          domain.BuzzerWin,
	})
	if err != nil {
		return domain.BuzzerEvent{}, fmt.Errorf("append %s event: %w", kind, err)
	}
	s.emit("buzzer.appended", sessionID, map[string]any{
		"contestantId": contestantID,
		"eventType":    string(kind),
	})
	return event, nil
}

// ResetBuzzers appends a reset boundary event. Earlier attempts stay in the
// log for auditing but become ineligible for resolution.
func (s *LiveService) ResetBuzzers(ctx context.Context, sessionID string) (domain.BuzzerEvent, error) {
	session, err := s.currentQuestion(ctx, sessionID)
	if err != nil {
		return domain.BuzzerEvent{}, err
	}
	event, err := s.events.AppendBuzzerEvent(ctx, domain.BuzzerEvent{
		MatchID:         session.MatchID,
		RoundQuestionID: session.CurrentRoundQuestionID,
		EventType:       domain.BuzzerReset,
	})
	if err != nil {
		return domain.BuzzerEvent{}, fmt.Errorf("append reset event: %w", err)
	}
	s.emit("buzzer.reset", sessionID, nil)
	return event, nil
}

// BuzzerWinner resolves the race for the current question. A nil winner with
// a nil error means nobody has buzzed (or a reset cleared the attempts).
func (s *LiveService) BuzzerWinner(ctx context.Context, sessionID string) (*domain.BuzzerEvent, error) {
	session, err := s.currentQuestion(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.resolver.ResolveWinner(ctx, session.MatchID, session.CurrentRoundQuestionID)
}

// Resolver exposes the race resolver for callers that re-derive winners from
// the event log themselves.
func (s *LiveService) Resolver() *resolve.Resolver { return s.resolver }

// SubmitAnswer appends a contestant's response to the current question.
func (s *LiveService) SubmitAnswer(ctx context.Context, sessionID, contestantID, text string) (domain.Answer, error) {
	session, err := s.questionInPlay(ctx, sessionID)
	if err != nil {
		return domain.Answer{}, err
	}
	if err := s.requireSeat(ctx, session.MatchID, contestantID); err != nil {
		return domain.Answer{}, err
	}

	answer, err := s.events.AppendAnswer(ctx, domain.Answer{
		MatchID:         session.MatchID,
		RoundQuestionID: session.CurrentRoundQuestionID,
		ContestantID:    contestantID,
		RoundType:       session.CurrentRoundType,
		Text:            text,
	})
	if err != nil {
		return domain.Answer{}, fmt.Errorf("append answer: %w", err)
	}
	s.emit("answer.submitted", sessionID, map[string]any{
		"answerId":     answer.ID,
		"contestantId": contestantID,
	})
	return answer, nil
}

// questionInPlay loads the session and checks that attempts are currently
// legal: running, question selected and on screen.
func (s *LiveService) questionInPlay(ctx context.Context, sessionID string) (domain.LiveSession, error) {
	session, err := s.currentQuestion(ctx, sessionID)
	if err != nil {
		return domain.LiveSession{}, err
	}
	if session.CurrentQuestionState != domain.QuestionShowing {
		return domain.LiveSession{}, fmt.Errorf("question %s is %s, not showing: %w",
			session.CurrentRoundQuestionID, session.CurrentQuestionState, domain.ErrInvalidState)
	}
	return session, nil
}

func (s *LiveService) currentQuestion(ctx context.Context, sessionID string) (domain.LiveSession, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.LiveSession{}, err
	}
	if session.Status != domain.SessionRunning {
		return domain.LiveSession{}, fmt.Errorf("session %s is %s: %w", sessionID, session.Status, domain.ErrInvalidState)
	}
	if session.CurrentRoundQuestionID == "" {
		return domain.LiveSession{}, fmt.Errorf("session %s has no question selected: %w", sessionID, domain.ErrInvalidState)
	}
	return session, nil
}

func (s *LiveService) requireSeat(ctx context.Context, matchID, contestantID string) error {
	assignments, err := s.seats.Assignments(ctx, matchID)
	if err != nil {
		return fmt.Errorf("load seat assignments for match %s: %w", matchID, err)
	}
	for _, a := range assignments {
		if a.ContestantID == contestantID {
			return nil
		}
	}
	return fmt.Errorf("contestant %s holds no seat in match %s: %w", contestantID, matchID, domain.ErrNotFound)
}
