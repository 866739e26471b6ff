package content

import "math"

const (
	likeWeight    = 2.0
	commentWeight = 3.0
	shareWeight   = 4.0
	viewWeight    = 0.2
	scoreDivisor  = 10.0
	maxScore      = 100
)

// EngagementScore weighs interactions into a bounded 0..100 score. Halves round up.
func EngagementScore(views, likes, comments, shares int64) int {
	raw := (float64(likes)*likeWeight +
		float64(comments)*commentWeight +
		float64(shares)*shareWeight +
		float64(views)*viewWeight) / scoreDivisor

	score := math.Floor(raw + 0.5)
	switch {
	case score < 0:
		return 0
	case score > maxScore:
		return maxScore
	default:
		return int(score)
	}
}
