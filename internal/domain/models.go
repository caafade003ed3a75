package domain

import "time"

// MatchStatus is the administrative lifecycle of a match.
type MatchStatus string

const (
	MatchDraft     MatchStatus = "draft"
	MatchScheduled MatchStatus = "scheduled"
	MatchLive      MatchStatus = "live"
	MatchFinished  MatchStatus = "finished"
	MatchCancelled MatchStatus = "cancelled"
)

// Match is a competitive event with four contestant seats.
type Match struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Status MatchStatus `json:"status"`
}

// SeatCount is fixed for this game format.
const SeatCount = 4

// RoundType identifies one of the four scored phases of a match.
type RoundType string

const (
	RoundKhoiDong RoundType = "khoi_dong" // opening: common rapid-fire questions
	RoundVCNV     RoundType = "vcnv"      // obstacle: grid puzzle
	RoundTangToc  RoundType = "tang_toc"  // acceleration: timed ranking questions
	RoundVeDich   RoundType = "ve_dich"   // finish: wagered questions
)

// Order returns the position of the round in the match sequence, or -1 for an
// unknown or unset round.
func (r RoundType) Order() int {
	switch r {
	case RoundKhoiDong:
		return 0
	case RoundVCNV:
		return 1
	case RoundTangToc:
		return 2
	case RoundVeDich:
		return 3
	}
	return -1
}

// Valid reports whether r names a real round.
func (r RoundType) Valid() bool { return r.Order() >= 0 }

// RoundQuestion is one question placed into one round slot of one match.
// Immutable reference data once the round begins.
type RoundQuestion struct {
	ID         string         `json:"id"`
	MatchID    string         `json:"matchId"`
	RoundType  RoundType      `json:"roundType"`
	OrderIndex int            `json:"orderIndex"`
	TargetSeat *int           `json:"targetSeat,omitempty"` // set when the question is directed at one seat
	Prompt     string         `json:"prompt"`
	Metadata   map[string]any `json:"metadata,omitempty"` // e.g. obstacle tile count, wager values
}

// BuzzerEventType distinguishes attempt records.
type BuzzerEventType string

const (
	BuzzerBuzz  BuzzerEventType = "buzz"
	BuzzerSteal BuzzerEventType = "steal"
	BuzzerReset BuzzerEventType = "reset"
)

// BuzzerResult marks whether an attempt was accepted by the intake.
type BuzzerResult string

const (
	BuzzerWin  BuzzerResult = "win"
	BuzzerLose BuzzerResult = "lose"
	BuzzerNone BuzzerResult = ""
)

// BuzzerEvent is an append-only, store-timestamped attempt record. A reset
// event carries no contestant and establishes a new eligibility boundary for
// the round question.
type BuzzerEvent struct {
	ID              string          `json:"id"`
	MatchID         string          `json:"matchId"`
	RoundQuestionID string          `json:"roundQuestionId"`
	ContestantID    string          `json:"contestantId,omitempty"`
	EventType       BuzzerEventType `json:"eventType"`
	Result          BuzzerResult    `json:"result,omitempty"`
	OccurredAt      time.Time       `json:"occurredAt"` // assigned by the store, never the client
}

// Answer is a submitted response. IsCorrect and PointsAwarded stay nil until
// the host judges it, and are written exactly once.
type Answer struct {
	ID              string    `json:"id"`
	MatchID         string    `json:"matchId"`
	RoundQuestionID string    `json:"roundQuestionId"`
	ContestantID    string    `json:"contestantId"`
	RoundType       RoundType `json:"roundType"`
	Text            string    `json:"text"`
	IsCorrect       *bool     `json:"isCorrect,omitempty"`
	PointsAwarded   *int      `json:"pointsAwarded,omitempty"`
	SubmittedAt     time.Time `json:"submittedAt"`
}

// Judged reports whether the host has ruled on the answer.
func (a Answer) Judged() bool { return a.IsCorrect != nil }

// SeatAssignment binds one contestant to one of the four seats of a match.
type SeatAssignment struct {
	MatchID      string `json:"matchId"`
	Seat         int    `json:"seat"` // 1..4
	ContestantID string `json:"contestantId"`
	DisplayName  string `json:"displayName"`
}

// ScoreboardEntry is one seat's derived totals. ByRound is a fold over judged
// events, never a stored counter.
type ScoreboardEntry struct {
	Seat         int               `json:"seat"`
	ContestantID string            `json:"contestantId"`
	DisplayName  string            `json:"displayName"`
	ByRound      map[RoundType]int `json:"byRound"`
	Total        int               `json:"total"`
}

// Scoreboard is the per-match view derived from the authoritative event log.
type Scoreboard struct {
	MatchID   string            `json:"matchId"`
	Entries   []ScoreboardEntry `json:"entries"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// ChangeIntent tags a change notification by whether it mutates observer state.
type ChangeIntent string

const (
	IntentMutation ChangeIntent = "mutation"
	IntentInfo     ChangeIntent = "info"
)

// ChangeEvent is the row-level change notification fanned out to observers.
// OccurredAt is unix milliseconds from the store clock; observers must run
// every event through a reconciliation guard before applying it.
type ChangeEvent struct {
	ID         string         `json:"id"`
	EntityID   string         `json:"entityId"` // session the change belongs to
	Type       string         `json:"type"`     // e.g. "session.round", "buzzer.appended"
	Intent     ChangeIntent   `json:"intent"`
	OccurredAt int64          `json:"occurredAt"`
	Payload    map[string]any `json:"payload,omitempty"`
}
