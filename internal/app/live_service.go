// Package app contains the live-match use cases: room lifecycle, round and
// question control, buzzer intake, answer judging and the derived scoreboard.
package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"olympia-live-service/internal/domain"
	"olympia-live-service/internal/resolve"
	"olympia-live-service/internal/scoring"
)

// SessionStore persists live sessions with optimistic concurrency. Update must
// reject a write whose expected revision is stale with domain.ErrConflict.
type SessionStore interface {
	Create(ctx context.Context, s domain.LiveSession) error
	Get(ctx context.Context, sessionID string) (domain.LiveSession, error)
	ByAccessCode(ctx context.Context, code string) (domain.LiveSession, error)
	ActiveByMatch(ctx context.Context, matchID string) (domain.LiveSession, error)
	Update(ctx context.Context, sessionID string, expectedRevision int64, s domain.LiveSession) (domain.LiveSession, error)
}

// EventStore is the append-only log of buzzer events and answers. Appends
// assign the id and the authoritative timestamp; reads come back ordered by
// that timestamp. JudgeAnswer writes the judgment exactly once and returns
// domain.ErrConflict on a second attempt. JudgeSteal judges the steal and
// main answers atomically: either both rows are written or neither is.
type EventStore interface {
	AppendBuzzerEvent(ctx context.Context, ev domain.BuzzerEvent) (domain.BuzzerEvent, error)
	BuzzerEvents(ctx context.Context, matchID, roundQuestionID string) ([]domain.BuzzerEvent, error)
	AppendAnswer(ctx context.Context, a domain.Answer) (domain.Answer, error)
	Answer(ctx context.Context, answerID string) (domain.Answer, error)
	AnswersByQuestion(ctx context.Context, roundQuestionID string) ([]domain.Answer, error)
	JudgeAnswer(ctx context.Context, answerID string, isCorrect bool, points int) (domain.Answer, error)
	JudgeSteal(ctx context.Context, stealAnswerID string, stealCorrect bool, stealPoints int, mainAnswerID string, mainPoints int) (domain.Answer, domain.Answer, error)
	JudgedAnswers(ctx context.Context, matchID string) ([]domain.Answer, error)
}

// QuestionRepository loads round-question reference data.
type QuestionRepository interface {
	Question(ctx context.Context, questionID string) (domain.RoundQuestion, error)
}

// SeatStore reads seat assignments for a match.
type SeatStore interface {
	Assignments(ctx context.Context, matchID string) ([]domain.SeatAssignment, error)
}

// RoomDirectory is an optional fast lookup from access code to session id
// (Redis-backed in production). The session store remains the authority.
type RoomDirectory interface {
	Register(ctx context.Context, code, sessionID string) error
	Resolve(ctx context.Context, code string) (string, bool, error)
	Unregister(ctx context.Context, code string) error
}

// Deps wires a LiveService. Rooms, Rules, Now and NewID are optional.
type Deps struct {
	Sessions  SessionStore
	Events    EventStore
	Questions QuestionRepository
	Seats     SeatStore
	Rooms     RoomDirectory
	Rules     *scoring.Rules
	Now       func() time.Time
	NewID     func() string
}

// LiveService implements the host-facing operations of a live match.
type LiveService struct {
	sessions  SessionStore
	events    EventStore
	questions QuestionRepository
	seats     SeatStore
	rooms     RoomDirectory
	resolver  *resolve.Resolver
	rules     scoring.Rules
	feed      *Hub
	now       func() time.Time
	newID     func() string

	mu          sync.Mutex
	lastEmitted int64
	rnd         *rand.Rand
}

func NewLiveService(d Deps) *LiveService {
	rules := scoring.DefaultRules()
	if d.Rules != nil {
		rules = *d.Rules
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	newID := d.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &LiveService{
		sessions:  d.Sessions,
		events:    d.Events,
		questions: d.Questions,
		seats:     d.Seats,
		rooms:     d.Rooms,
		resolver:  resolve.NewResolver(d.Events),
		rules:     rules,
		feed:      NewHub(),
		now:       now,
		newID:     newID,
		rnd:       rand.New(rand.NewSource(now().UnixNano())),
	}
}

// Rules exposes the scoring constants in effect, for transports that surface
// them to clients.
func (s *LiveService) Rules() scoring.Rules { return s.rules }

// SubscribeChanges taps the committed change feed. Observers must run every
// event through their own reconciliation guard before applying it.
func (s *LiveService) SubscribeChanges() (<-chan domain.ChangeEvent, func()) {
	return s.feed.Subscribe()
}

// Session loads a session by id.
func (s *LiveService) Session(ctx context.Context, sessionID string) (domain.LiveSession, error) {
	return s.sessions.Get(ctx, sessionID)
}

// SessionByCode resolves a join code to its session, consulting the room
// directory first when one is configured.
func (s *LiveService) SessionByCode(ctx context.Context, code string) (domain.LiveSession, error) {
	if s.rooms != nil {
		if id, ok, err := s.rooms.Resolve(ctx, code); err == nil && ok {
			return s.sessions.Get(ctx, id)
		}
	}
	return s.sessions.ByAccessCode(ctx, code)
}

// OpenRoom creates the pending session for a match. A match can have at most
// one session that is not yet ended.
func (s *LiveService) OpenRoom(ctx context.Context, matchID string) (domain.LiveSession, error) {
	existing, err := s.sessions.ActiveByMatch(ctx, matchID)
	if err == nil && existing.Status != domain.SessionEnded {
		return domain.LiveSession{}, fmt.Errorf("match %s already has live session %s: %w", matchID, existing.ID, domain.ErrConflict)
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.LiveSession{}, fmt.Errorf("check live session for match %s: %w", matchID, err)
	}

	session := domain.LiveSession{
		ID:         s.newID(),
		MatchID:    matchID,
		Status:     domain.SessionPending,
		AccessCode: s.newAccessCode(),
		CreatedAt:  s.now(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return domain.LiveSession{}, fmt.Errorf("create session: %w", err)
	}
	if s.rooms != nil {
		if err := s.rooms.Register(ctx, session.AccessCode, session.ID); err != nil {
			return domain.LiveSession{}, fmt.Errorf("register room code: %w", err)
		}
	}
	s.emit("session.opened", session.ID, map[string]any{"matchId": matchID})
	return session, nil
}

// StartSession moves a pending session to running.
func (s *LiveService) StartSession(ctx context.Context, sessionID string) (domain.LiveSession, error) {
	session, err := s.updateSession(ctx, sessionID, func(sess *domain.LiveSession) error {
		return sess.Start()
	})
	if err != nil {
		return domain.LiveSession{}, err
	}
	s.emit("session.started", sessionID, nil)
	return session, nil
}

// AdvanceRound moves the round pointer forward.
func (s *LiveService) AdvanceRound(ctx context.Context, sessionID string, rt domain.RoundType) (domain.LiveSession, error) {
	session, err := s.updateSession(ctx, sessionID, func(sess *domain.LiveSession) error {
		return sess.AdvanceRound(rt)
	})
	if err != nil {
		return domain.LiveSession{}, err
	}
	s.emit("session.round", sessionID, map[string]any{"roundType": string(rt)})
	return session, nil
}

// ResumeRound sets the round pointer explicitly, including backward, as a
// recovery operation.
func (s *LiveService) ResumeRound(ctx context.Context, sessionID string, rt domain.RoundType) (domain.LiveSession, error) {
	session, err := s.updateSession(ctx, sessionID, func(sess *domain.LiveSession) error {
		return sess.ResumeRound(rt)
	})
	if err != nil {
		return domain.LiveSession{}, err
	}
	s.emit("session.round_resumed", sessionID, map[string]any{"roundType": string(rt)})
	return session, nil
}

// SelectQuestion points the session at a question of the current round.
func (s *LiveService) SelectQuestion(ctx context.Context, sessionID, questionID string) (domain.LiveSession, error) {
	question, err := s.questions.Question(ctx, questionID)
	if err != nil {
		return domain.LiveSession{}, fmt.Errorf("load question %s: %w", questionID, err)
	}
	session, err := s.updateSession(ctx, sessionID, func(sess *domain.LiveSession) error {
		return sess.SelectQuestion(question)
	})
	if err != nil {
		return domain.LiveSession{}, err
	}
	s.emit("session.question_selected", sessionID, map[string]any{"roundQuestionId": questionID})
	return session, nil
}

// SetQuestionState advances the display state of the current question.
func (s *LiveService) SetQuestionState(ctx context.Context, sessionID string, qs domain.QuestionState) (domain.LiveSession, error) {
	session, err := s.updateSession(ctx, sessionID, func(sess *domain.LiveSession) error {
		return sess.SetQuestionState(qs)
	})
	if err != nil {
		return domain.LiveSession{}, err
	}
	s.emit("session.question_state", sessionID, map[string]any{"questionState": string(qs)})
	return session, nil
}

// CloseRoom ends the session. Ending an already-ended session is a no-op
// success.
func (s *LiveService) CloseRoom(ctx context.Context, sessionID string) (domain.LiveSession, error) {
	current, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.LiveSession{}, err
	}
	if current.Status == domain.SessionEnded {
		return current, nil
	}
	session, err := s.updateSession(ctx, sessionID, func(sess *domain.LiveSession) error {
		sess.End()
		return nil
	})
	if err != nil {
		return domain.LiveSession{}, err
	}
	if s.rooms != nil {
		_ = s.rooms.Unregister(ctx, session.AccessCode)
	}
	s.emit("session.ended", sessionID, nil)
	return session, nil
}

// updateSession applies mutate under optimistic concurrency: read, check
// preconditions, conditional write. A lost race surfaces as ErrConflict and is
// never retried here; the caller refreshes its view and redoes the operation.
func (s *LiveService) updateSession(ctx context.Context, sessionID string, mutate func(*domain.LiveSession) error) (domain.LiveSession, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.LiveSession{}, err
	}
	expected := session.Revision
	if err := mutate(&session); err != nil {
		return domain.LiveSession{}, err
	}
	updated, err := s.sessions.Update(ctx, sessionID, expected, session)
	if err != nil {
		return domain.LiveSession{}, fmt.Errorf("update session %s: %w", sessionID, err)
	}
	return updated, nil
}

func (s *LiveService) emit(eventType, sessionID string, payload map[string]any) {
	s.mu.Lock()
	ts := s.now().UnixMilli()
	if ts <= s.lastEmitted {
		ts = s.lastEmitted + 1
	}
	s.lastEmitted = ts
	s.mu.Unlock()

	s.feed.Publish(domain.ChangeEvent{
		ID:         s.newID(),
		EntityID:   sessionID,
		Type:       eventType,
		Intent:     domain.IntentMutation,
		OccurredAt: ts,
		Payload:    payload,
	})
}

const accessCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

func (s *LiveService) newAccessCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	code := make([]byte, 6)
	for i := range code {
		code[i] = accessCodeAlphabet[s.rnd.Intn(len(accessCodeAlphabet))]
	}
	return string(code)
}
