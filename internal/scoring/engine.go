// Package scoring holds the pure point arithmetic for each round of a match.
// Every function is stateless and re-derivable: replaying the same judged
// events through these rules always yields the same totals.
package scoring

import "math"

// Decision is the host's ruling on a finish-round attempt.
type Decision string

const (
	DecisionCorrect Decision = "correct"
	DecisionWrong   Decision = "wrong"
	DecisionTimeout Decision = "timeout"
)

// Rules carries the tunable constants of the scoring engine. Zero values are
// not meaningful; construct with DefaultRules and override fields as needed.
type Rules struct {
	// Opening round: delta for a correct / incorrect common answer.
	// CommonIncorrect must be zero or negative.
	CommonCorrect   int
	CommonIncorrect int

	// Obstacle round final reveal: base score and per-opened-tile penalty.
	VCNVBase        int
	VCNVTilePenalty int

	// Finish round star modifier and steal penalty. StealPenaltyFraction is
	// normalized: a value above 1 is read as a percentage.
	StarMultiplier       int
	StealPenaltyFraction float64

	// Acceleration round: points per rank slot and the simultaneity window.
	TangTocPoints    []int
	TangTocTieWindow int64 // milliseconds
}

// DefaultRules are the broadcast-format constants.
func DefaultRules() Rules {
	return Rules{
		CommonCorrect:        10,
		CommonIncorrect:      -5,
		VCNVBase:             60,
		VCNVTilePenalty:      10,
		StarMultiplier:       2,
		StealPenaltyFraction: 0.5,
		TangTocPoints:        []int{40, 30, 20, 10},
		TangTocTieWindow:     100,
	}
}

// KhoiDongCommonScore scores one common opening-round answer. The running
// total for the round is clamped at zero, so nextTotal never goes negative
// regardless of how many answers are missed.
func (r Rules) KhoiDongCommonScore(currentTotal int, correct bool) (delta, nextTotal int) {
	if correct {
		delta = r.CommonCorrect
	} else {
		delta = r.CommonIncorrect
	}
	nextTotal = currentTotal + delta
	if nextTotal < 0 {
		nextTotal = 0
	}
	return delta, nextTotal
}

// VCNVFinalScore scores a correct full-puzzle answer in the obstacle round:
// the fewer tiles the contestant had opened before answering, the higher the
// score. Clamped at zero.
func (r Rules) VCNVFinalScore(tilesOpened int) int {
	score := r.VCNVBase - r.VCNVTilePenalty*tilesOpened
	if score < 0 {
		return 0
	}
	return score
}

// VeDichMainDelta scores the main contestant's own finish-round turn for a
// declared wager. A wrong answer or timeout only costs points when the star
// was played; a correct answer pays the wager, multiplied if starred.
func (r Rules) VeDichMainDelta(value int, decision Decision, starActive bool) int {
	if decision != DecisionCorrect {
		if starActive {
			return -value
		}
		return 0
	}
	if starActive {
		return value * r.StarMultiplier
	}
	return value
}

// VeDichStealTransfer scores a steal attempt made after the main contestant
// failed. It returns the stealing contestant's delta and the additional delta
// applied to the main contestant. On a successful steal the main contestant
// loses the wager unless their star was active, in which case their own
// judgment already charged it.
func (r Rules) VeDichStealTransfer(value int, decision Decision, mainStarActive bool) (stealDelta, mainDelta int) {
	if decision == DecisionCorrect {
		stealDelta = value
		if !mainStarActive {
			mainDelta = -value
		}
		return stealDelta, mainDelta
	}
	return -stealPenalty(value, r.StealPenaltyFraction), 0
}

func stealPenalty(value int, fraction float64) int {
	if fraction > 1 {
		fraction /= 100
	}
	return int(math.Ceil(float64(value) * fraction))
}
