package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"olympia-live-service/internal/domain"
)

// EventStore is the in-memory append-only log of buzzer events and answers.
// It assigns ids and strictly increasing timestamps under its own lock, which
// makes it the single serialization point the resolvers rely on.
type EventStore struct {
	mu     sync.Mutex
	clock  func() time.Time
	lastTS time.Time

	buzzes  []domain.BuzzerEvent
	answers []domain.Answer
	byID    map[string]int // answer id -> index into answers
}

func NewEventStore() *EventStore {
	return NewEventStoreWithClock(time.Now)
}

// NewEventStoreWithClock allows deterministic timestamps in tests.
func NewEventStoreWithClock(clock func() time.Time) *EventStore {
	return &EventStore{
		clock: clock,
		byID:  make(map[string]int),
	}
}

// nextTimestamp returns a store-assigned time strictly after every previously
// assigned one. Callers must hold mu.
func (s *EventStore) nextTimestamp() time.Time {
	ts := s.clock()
	if !ts.After(s.lastTS) {
		ts = s.lastTS.Add(time.Millisecond)
	}
	s.lastTS = ts
	return ts
}

func (s *EventStore) AppendBuzzerEvent(_ context.Context, ev domain.BuzzerEvent) (domain.BuzzerEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev.ID = uuid.NewString()
	ev.OccurredAt = s.nextTimestamp()
	s.buzzes = append(s.buzzes, ev)
	return ev, nil
}

func (s *EventStore) BuzzerEvents(_ context.Context, matchID, roundQuestionID string) ([]domain.BuzzerEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.BuzzerEvent
	for _, ev := range s.buzzes {
		if ev.MatchID == matchID && ev.RoundQuestionID == roundQuestionID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *EventStore) AppendAnswer(_ context.Context, a domain.Answer) (domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = uuid.NewString()
	a.SubmittedAt = s.nextTimestamp()
	a.IsCorrect = nil
	a.PointsAwarded = nil
	s.byID[a.ID] = len(s.answers)
	s.answers = append(s.answers, a)
	return a, nil
}

func (s *EventStore) Answer(_ context.Context, answerID string) (domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byID[answerID]
	if !ok {
		return domain.Answer{}, fmt.Errorf("answer %s: %w", answerID, domain.ErrNotFound)
	}
	return s.answers[idx], nil
}

func (s *EventStore) AnswersByQuestion(_ context.Context, roundQuestionID string) ([]domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Answer
	for _, a := range s.answers {
		if a.RoundQuestionID == roundQuestionID {
			out = append(out, a)
		}
	}
	return out, nil
}

// JudgeAnswer writes the judgment exactly once; a second attempt is a
// conflict, never an overwrite.
func (s *EventStore) JudgeAnswer(_ context.Context, answerID string, isCorrect bool, points int) (domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.unjudgedIndex(answerID)
	if err != nil {
		return domain.Answer{}, err
	}
	s.writeJudgment(idx, isCorrect, points)
	return s.answers[idx], nil
}

// JudgeSteal settles a steal attempt and the main contestant's answer as one
// write: both rows are checked unjudged before either is touched, so a
// judged main answer aborts the settlement with nothing applied.
func (s *EventStore) JudgeSteal(_ context.Context, stealAnswerID string, stealCorrect bool, stealPoints int, mainAnswerID string, mainPoints int) (domain.Answer, domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stealIdx, err := s.unjudgedIndex(stealAnswerID)
	if err != nil {
		return domain.Answer{}, domain.Answer{}, err
	}
	mainIdx, err := s.unjudgedIndex(mainAnswerID)
	if err != nil {
		return domain.Answer{}, domain.Answer{}, err
	}
	s.writeJudgment(stealIdx, stealCorrect, stealPoints)
	s.writeJudgment(mainIdx, false, mainPoints)
	return s.answers[stealIdx], s.answers[mainIdx], nil
}

// unjudgedIndex resolves an answer id that must still be open for judging.
// Callers must hold mu.
func (s *EventStore) unjudgedIndex(answerID string) (int, error) {
	idx, ok := s.byID[answerID]
	if !ok {
		return 0, fmt.Errorf("answer %s: %w", answerID, domain.ErrNotFound)
	}
	if s.answers[idx].IsCorrect != nil {
		return 0, fmt.Errorf("answer %s already judged: %w", answerID, domain.ErrConflict)
	}
	return idx, nil
}

func (s *EventStore) writeJudgment(idx int, isCorrect bool, points int) {
	correct := isCorrect
	awarded := points
	s.answers[idx].IsCorrect = &correct
	s.answers[idx].PointsAwarded = &awarded
}

// JudgedAnswers returns the judged answers of a match in submission order.
func (s *EventStore) JudgedAnswers(_ context.Context, matchID string) ([]domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Answer
	for _, a := range s.answers {
		if a.MatchID == matchID && a.IsCorrect != nil {
			out = append(out, a)
		}
	}
	return out, nil
}
