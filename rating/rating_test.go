package rating_test

import (
	"testing"

	"github.com/botarena/backend/rating"
	"github.com/stretchr/testify/assert"
)

func TestUpdateWinnerGainsLoserLoses(t *testing.T) {
	// evenly rated teams, a clear 600:300 win
	next := rating.Update([2]int{600, 300}, [2]int{200, 200})
	assert.Equal(t, [2]int{218, 183}, next)
}

func TestUpdateOrientationInvariance(t *testing.T) {
	cases := []struct {
		name  string
		delta [2]int
		prior [2]int
	}{
		{"even ratings", [2]int{600, 300}, [2]int{200, 200}},
		{"underdog wins", [2]int{900, 100}, [2]int{150, 800}},
		{"favourite wins", [2]int{700, 200}, [2]int{950, 300}},
		{"score tie", [2]int{500, 500}, [2]int{400, 250}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fwd := rating.Update(tc.delta, tc.prior)
			rev := rating.Update(
				[2]int{tc.delta[1], tc.delta[0]},
				[2]int{tc.prior[1], tc.prior[0]},
			)
			assert.Equal(t, fwd[0], rev[1])
			assert.Equal(t, fwd[1], rev[0])
		})
	}
}

func TestUpdateTrueTieIsNoOp(t *testing.T) {
	next := rating.Update([2]int{500, 500}, [2]int{340, 340})
	assert.Equal(t, [2]int{340, 340}, next)
}

func TestUpdateLoserAboveCeilingKeepsRating(t *testing.T) {
	next := rating.Update([2]int{2000, 1500}, [2]int{200, 200})
	assert.Equal(t, 200, next[1])
	assert.Greater(t, next[0], 200)
}

func TestUpdateMayGoNegative(t *testing.T) {
	next := rating.Update([2]int{600, 300}, [2]int{10, 10})
	assert.Equal(t, [2]int{28, -7}, next)
	assert.Negative(t, next[1])
}
