package rating

import "math"

// Baseline is the score assumed for a team that has no recorded rating yet.
const Baseline = 200

const (
	gainScale  = 1e-4
	lossScale  = 7e-5
	gapDivisor = 90

	// a loser that still scored at least this much keeps its rating
	lossCeiling = 1500
)

// normCDF is the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// Update folds one match outcome into both participants' ratings.
//
// delta holds each side's final match score, prior their ratings before the
// match, index-aligned. Internally the pair is rotated into winner-first
// order (higher delta first, higher prior breaking a score tie) and rotated
// back before returning, so callers may pass the sides in either order.
// A tie on both score and rating changes nothing.
//
// The winner's gain grows with its score and with how unexpected the win
// was given the rating gap. The loser's loss shrinks as its own score
// approaches 1500, above which it loses nothing. Outputs are not clamped;
// a weak enough loser can go negative.
func Update(delta [2]int, prior [2]int) [2]int {
	reversed := false
	if delta[0] < delta[1] || (delta[0] == delta[1] && prior[0] < prior[1]) {
		delta = [2]int{delta[1], delta[0]}
		prior = [2]int{prior[1], prior[0]}
		reversed = true
	}
	if delta[0] == delta[1] && prior[0] == prior[1] {
		return prior
	}

	d0 := float64(delta[0])
	d1 := float64(delta[1])
	gap := float64(prior[0] - prior[1])

	surprise := 1 - normCDF(gap/gapDivisor)
	z := (d0-d1-100)/100 - gap/100
	correctness := normCDF(z)

	gain := math.Round(d0 * d0 * gainScale * surprise * correctness)
	loss := 0.0
	if delta[1] < lossCeiling {
		loss = math.Round((1000 - d1) * (1000 - d1) * lossScale * surprise * correctness)
	}

	next := [2]int{prior[0] + int(gain), prior[1] - int(loss)}
	if reversed {
		next = [2]int{next[1], next[0]}
	}
	return next
}
