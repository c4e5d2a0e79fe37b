// Package rating estimates the player's strength against the bot from the
// recorded game history.
package rating

import "math"

// Elo holds the player's and the bot's ratings.
type Elo struct {
	Player, Bot float64
	K           float64 // base K
	Games       int
}

func NewElo(start, k float64) Elo { return Elo{Player: start, Bot: start, K: k} }

func (e Elo) expect() (ep, eb float64) {
	ep = 1.0 / (1.0 + math.Pow(10, (e.Bot-e.Player)/400.0))
	return ep, 1.0 - ep
}

// Update applies one game with player score s in [0,1]. margin is the final
// score difference over the target score, taken within [-1,1]. Returns the
// deltas applied.
func (e *Elo) Update(s, margin float64) (dP, dB float64) {
	margin = clamp(margin, -1, 1)
	ep, eb := e.expect()
	k := e.K * marginScale(margin) * decay(e.Games)

	dP = k * (s - ep)
	dB = k * ((1 - s) - eb)
	e.Player += dP
	e.Bot += dB
	e.Games++
	return dP, dB
}

// Expected is the player's win probability at the current ratings.
func (e Elo) Expected() float64 {
	ep, _ := e.expect()
	return ep
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// marginScale rewards decisive games up to ~1.35x.
func marginScale(margin float64) float64 {
	return 1.0 + 0.35*math.Tanh(2*math.Abs(margin))
}

func decay(games int) float64 {
	return 1.0 / (1.0 + 0.01*float64(games))
}
