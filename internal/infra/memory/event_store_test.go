package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"olympia-live-service/internal/domain"
)

func TestEventStoreAssignsIncreasingTimestamps(t *testing.T) {
	ctx := context.Background()
	// Frozen clock: the store still has to hand out strictly increasing times.
	frozen := time.Date(2024, 11, 22, 20, 0, 0, 0, time.UTC)
	store := NewEventStoreWithClock(func() time.Time { return frozen })

	first, err := store.AppendBuzzerEvent(ctx, domain.BuzzerEvent{
		MatchID: "m1", RoundQuestionID: "rq1", ContestantID: "c1",
		EventType: domain.BuzzerBuzz, Result: domain.BuzzerWin,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	second, err := store.AppendBuzzerEvent(ctx, domain.BuzzerEvent{
		MatchID: "m1", RoundQuestionID: "rq1", ContestantID: "c2",
		EventType: domain.BuzzerBuzz, Result: domain.BuzzerWin,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	if first.ID == "" || second.ID == "" || first.ID == second.ID {
		t.Fatalf("expected distinct assigned ids, got %q and %q", first.ID, second.ID)
	}
	if !second.OccurredAt.After(first.OccurredAt) {
		t.Fatalf("timestamps not strictly increasing: %v then %v", first.OccurredAt, second.OccurredAt)
	}

	events, err := store.BuzzerEvents(ctx, "m1", "rq1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
}

func TestEventStoreFiltersByRoundQuestion(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore()

	_, _ = store.AppendBuzzerEvent(ctx, domain.BuzzerEvent{MatchID: "m1", RoundQuestionID: "rq1", EventType: domain.BuzzerBuzz})
	_, _ = store.AppendBuzzerEvent(ctx, domain.BuzzerEvent{MatchID: "m1", RoundQuestionID: "rq2", EventType: domain.BuzzerBuzz})

	events, err := store.BuzzerEvents(ctx, "m1", "rq2")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 1 || events[0].RoundQuestionID != "rq2" {
		t.Fatalf("expected only rq2 events, got %+v", events)
	}
}

func TestJudgeAnswerIsSingleWrite(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore()

	answer, err := store.AppendAnswer(ctx, domain.Answer{
		MatchID: "m1", RoundQuestionID: "rq1", ContestantID: "c1",
		RoundType: domain.RoundKhoiDong, Text: "42",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	judged, err := store.JudgeAnswer(ctx, answer.ID, true, 10)
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if judged.IsCorrect == nil || !*judged.IsCorrect || *judged.PointsAwarded != 10 {
		t.Fatalf("unexpected judgment: %+v", judged)
	}

	if _, err := store.JudgeAnswer(ctx, answer.ID, false, 0); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("second judgment must conflict, got %v", err)
	}

	if _, err := store.JudgeAnswer(ctx, "missing", true, 10); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestJudgeStealSettlesBothOrNeither(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore()

	mainAnswer, _ := store.AppendAnswer(ctx, domain.Answer{MatchID: "m1", RoundQuestionID: "rq1", ContestantID: "c1", RoundType: domain.RoundVeDich})
	stealAnswer, _ := store.AppendAnswer(ctx, domain.Answer{MatchID: "m1", RoundQuestionID: "rq1", ContestantID: "c2", RoundType: domain.RoundVeDich})

	steal, main, err := store.JudgeSteal(ctx, stealAnswer.ID, true, 30, mainAnswer.ID, -30)
	if err != nil {
		t.Fatalf("judge steal: %v", err)
	}
	if *steal.PointsAwarded != 30 || *main.PointsAwarded != -30 {
		t.Fatalf("unexpected settlement: steal=%+v main=%+v", steal, main)
	}
}

func TestJudgeStealAbortsWhenMainAlreadyJudged(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore()

	mainAnswer, _ := store.AppendAnswer(ctx, domain.Answer{MatchID: "m1", RoundQuestionID: "rq1", ContestantID: "c1", RoundType: domain.RoundVeDich})
	stealAnswer, _ := store.AppendAnswer(ctx, domain.Answer{MatchID: "m1", RoundQuestionID: "rq1", ContestantID: "c2", RoundType: domain.RoundVeDich})
	if _, err := store.JudgeAnswer(ctx, mainAnswer.ID, false, 0); err != nil {
		t.Fatalf("judge main: %v", err)
	}

	if _, _, err := store.JudgeSteal(ctx, stealAnswer.ID, true, 30, mainAnswer.ID, -30); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	// The steal answer must still be open: nothing was half-applied.
	open, err := store.Answer(ctx, stealAnswer.ID)
	if err != nil {
		t.Fatalf("load steal answer: %v", err)
	}
	if open.Judged() {
		t.Fatalf("steal answer judged by aborted settlement: %+v", open)
	}
}

func TestJudgedAnswersKeepSubmissionOrder(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore()

	a1, _ := store.AppendAnswer(ctx, domain.Answer{MatchID: "m1", RoundQuestionID: "rq1", ContestantID: "c1", RoundType: domain.RoundKhoiDong})
	a2, _ := store.AppendAnswer(ctx, domain.Answer{MatchID: "m1", RoundQuestionID: "rq1", ContestantID: "c1", RoundType: domain.RoundKhoiDong})
	_, _ = store.JudgeAnswer(ctx, a2.ID, true, 10)
	_, _ = store.JudgeAnswer(ctx, a1.ID, false, -5)

	judged, err := store.JudgedAnswers(ctx, "m1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(judged) != 2 || judged[0].ID != a1.ID || judged[1].ID != a2.ID {
		t.Fatalf("expected submission order regardless of judging order, got %+v", judged)
	}
}
