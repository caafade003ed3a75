package scoring

import (
	"sort"
	"time"
)

// Submission is one acceleration-round entry to be ranked.
type Submission struct {
	ID          string
	SubmittedAt time.Time
}

// RankSubmissions orders acceleration-round submissions into rank slots and
// returns the points awarded per submission id.
//
// Submissions are sorted ascending by time. Consecutive submissions join the
// current tie-cluster while their gap from the cluster's FIRST member stays
// within the tie window; every member of a cluster gets the point value of the
// cluster's rank, and the next cluster's rank advances by the cluster size (a
// two-way tie for first consumes ranks 1 and 2). Submissions beyond the
// available rank slots score zero.
//
// The input slice is not mutated, and equal timestamps keep their input order,
// so output is deterministic for a given input ordering.
func RankSubmissions(subs []Submission, tieWindow time.Duration, pointsByRank []int) map[string]int {
	awarded := make(map[string]int, len(subs))
	if len(subs) == 0 {
		return awarded
	}

	ordered := make([]Submission, len(subs))
	copy(ordered, subs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SubmittedAt.Before(ordered[j].SubmittedAt)
	})

	rank := 0
	clusterStart := 0
	for i := 1; i <= len(ordered); i++ {
		if i < len(ordered) && ordered[i].SubmittedAt.Sub(ordered[clusterStart].SubmittedAt) <= tieWindow {
			continue
		}
		points := 0
		if rank < len(pointsByRank) {
			points = pointsByRank[rank]
		}
		for j := clusterStart; j < i; j++ {
			awarded[ordered[j].ID] = points
		}
		rank += i - clusterStart
		clusterStart = i
	}
	return awarded
}

// RankTangToc applies the configured acceleration-round constants.
func (r Rules) RankTangToc(subs []Submission) map[string]int {
	return RankSubmissions(subs, time.Duration(r.TangTocTieWindow)*time.Millisecond, r.TangTocPoints)
}
