package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ZVal returns the two-tailed Z-value associated with a specific confidence interval.
// The interval is a number from 0 to 100 percent.
func ZVal(confidenceInterval float64) float64 {
	dist := distuv.Normal{
		Mu:    0,
		Sigma: 1,
	}
	area := (1 + (confidenceInterval / 100)) / 2
	return dist.Quantile(area)
}

// Outcomes tallies finished games by result.
type Outcomes struct {
	FirstWins  int
	SecondWins int
	Draws      int
}

// Add records one game. winner is 0 or 1 for the player who won, -1 for a
// draw.
func (o *Outcomes) Add(winner int) {
	switch winner {
	case 0:
		o.FirstWins++
	case 1:
		o.SecondWins++
	default:
		o.Draws++
	}
}

func (o *Outcomes) Games() int {
	return o.FirstWins + o.SecondWins + o.Draws
}

// FirstPlayerScore is the first player's average result, counting a draw
// as half a win.
func (o *Outcomes) FirstPlayerScore() float64 {
	n := o.Games()
	if n == 0 {
		return 0
	}
	return (float64(o.FirstWins) + float64(o.Draws)/2) / float64(n)
}

// FirstPlayerInterval is the normal-approximation confidence interval of
// FirstPlayerScore, clamped to [0, 1].
func (o *Outcomes) FirstPlayerInterval(confidence float64) (float64, float64) {
	n := o.Games()
	if n == 0 {
		return 0, 1
	}
	p := o.FirstPlayerScore()
	half := ZVal(confidence) * math.Sqrt(p*(1-p)/float64(n))
	return math.Max(0, p-half), math.Min(1, p+half)
}

func (o *Outcomes) String() string {
	return fmt.Sprintf("first %d, second %d, draws %d", o.FirstWins, o.SecondWins, o.Draws)
}
