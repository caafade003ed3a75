package app

import (
	"context"
	"fmt"

	"olympia-live-service/internal/domain"
	"olympia-live-service/internal/scoring"
)

// Judgments write is_correct and points_awarded exactly once per answer; the
// event store returns ErrConflict on a second attempt. Points are computed by
// the scoring engine here so that no client-supplied total is ever trusted.

// JudgeKhoiDong rules on an opening-round answer.
func (s *LiveService) JudgeKhoiDong(ctx context.Context, sessionID, answerID string, correct bool) (domain.Answer, error) {
	delta, _ := s.rules.KhoiDongCommonScore(0, correct)
	return s.judge(ctx, sessionID, answerID, correct, delta)
}

// JudgeVCNVFinal rules on a full-puzzle answer in the obstacle round.
// tilesOpened is how many grid tiles the contestant had revealed beforehand.
func (s *LiveService) JudgeVCNVFinal(ctx context.Context, sessionID, answerID string, correct bool, tilesOpened int) (domain.Answer, error) {
	points := 0
	if correct {
		points = s.rules.VCNVFinalScore(tilesOpened)
	}
	return s.judge(ctx, sessionID, answerID, correct, points)
}

// JudgeVeDichMain rules on the main contestant's finish-round turn for the
// declared wager.
func (s *LiveService) JudgeVeDichMain(ctx context.Context, sessionID, answerID string, value int, decision scoring.Decision, starActive bool) (domain.Answer, error) {
	if err := validWager(value); err != nil {
		return domain.Answer{}, err
	}
	points := s.rules.VeDichMainDelta(value, decision, starActive)
	return s.judge(ctx, sessionID, answerID, decision == scoring.DecisionCorrect, points)
}

// JudgeVeDichSteal rules on a steal attempt and settles the main contestant's
// answer in the same store write, so the wager transfer cannot be
// half-applied: if either answer was already judged, the settlement aborts
// with ErrConflict and neither row changes.
func (s *LiveService) JudgeVeDichSteal(ctx context.Context, sessionID, stealAnswerID, mainAnswerID string, value int, decision scoring.Decision, mainStarActive bool) (domain.Answer, domain.Answer, error) {
	if err := validWager(value); err != nil {
		return domain.Answer{}, domain.Answer{}, err
	}
	stealDelta, mainExtra := s.rules.VeDichStealTransfer(value, decision, mainStarActive)
	mainPoints := s.rules.VeDichMainDelta(value, scoring.DecisionWrong, mainStarActive) + mainExtra

	steal, main, err := s.events.JudgeSteal(ctx, stealAnswerID, decision == scoring.DecisionCorrect, stealDelta, mainAnswerID, mainPoints)
	if err != nil {
		return domain.Answer{}, domain.Answer{}, fmt.Errorf("settle steal %s against %s: %w", stealAnswerID, mainAnswerID, err)
	}
	s.emit("answer.judged", sessionID, map[string]any{"answerId": stealAnswerID})
	s.emit("answer.judged", sessionID, map[string]any{"answerId": mainAnswerID})
	return steal, main, nil
}

// JudgeTangToc settles one acceleration question: the answers in
// correctAnswerIDs are ranked by submission time with the tie window and
// awarded per-rank points; every other submission for the question is judged
// incorrect with zero points.
func (s *LiveService) JudgeTangToc(ctx context.Context, sessionID, roundQuestionID string, correctAnswerIDs []string) ([]domain.Answer, error) {
	answers, err := s.events.AnswersByQuestion(ctx, roundQuestionID)
	if err != nil {
		return nil, fmt.Errorf("load answers for question %s: %w", roundQuestionID, err)
	}

	correct := make(map[string]bool, len(correctAnswerIDs))
	for _, id := range correctAnswerIDs {
		correct[id] = true
	}

	subs := make([]scoring.Submission, 0, len(correctAnswerIDs))
	for _, a := range answers {
		if correct[a.ID] {
			subs = append(subs, scoring.Submission{ID: a.ID, SubmittedAt: a.SubmittedAt})
		}
	}
	awarded := s.rules.RankTangToc(subs)

	judged := make([]domain.Answer, 0, len(answers))
	for _, a := range answers {
		if a.Judged() {
			continue
		}
		result, err := s.events.JudgeAnswer(ctx, a.ID, correct[a.ID], awarded[a.ID])
		if err != nil {
			return judged, fmt.Errorf("judge answer %s: %w", a.ID, err)
		}
		judged = append(judged, result)
	}
	s.emit("answers.judged", sessionID, map[string]any{"roundQuestionId": roundQuestionID})
	return judged, nil
}

func (s *LiveService) judge(ctx context.Context, sessionID, answerID string, correct bool, points int) (domain.Answer, error) {
	answer, err := s.events.JudgeAnswer(ctx, answerID, correct, points)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("judge answer %s: %w", answerID, err)
	}
	s.emit("answer.judged", sessionID, map[string]any{"answerId": answerID})
	return answer, nil
}

func validWager(value int) error {
	if value != 20 && value != 30 {
		return fmt.Errorf("wager must be 20 or 30, got %d: %w", value, domain.ErrInvalidState)
	}
	return nil
}
