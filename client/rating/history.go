package rating

import (
	"math"
	"sort"

	"truco-table/client/loop"
)

type Summary struct {
	Games    int     `json:"games"`
	Elo      float64 `json:"elo"`
	BotElo   float64 `json:"bot_elo"`
	Expected float64 `json:"expected"`
	Glicko   Glicko  `json:"glicko"`
}

// Score maps a finished game to [0,1]. Close games stay near 0.5.
func Score(g loop.GameRecord) float64 {
	if g.TargetScore <= 0 {
		if g.Won {
			return 1
		}
		return 0
	}
	margin := float64(g.MyScore-g.OpponentScore) / float64(g.TargetScore)
	s := 0.5 + 0.5*math.Tanh(2*margin)
	// the sign of the result wins over the margin curve
	if g.Won && s < 0.5 {
		s = 0.5
	}
	if !g.Won && s > 0.5 {
		s = 0.5
	}
	return s
}

// FromGames replays games oldest first.
func FromGames(games []loop.GameRecord) Summary {
	ordered := append([]loop.GameRecord(nil), games...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].EndedAt.Before(ordered[j].EndedAt) })

	elo := NewElo(1500, 24)
	me, bot := NewGlicko(), NewGlicko()
	for _, g := range ordered {
		s := Score(g)
		margin := 0.0
		if g.TargetScore > 0 {
			margin = float64(g.MyScore-g.OpponentScore) / float64(g.TargetScore)
		}
		elo.Update(s, margin)

		before := me
		me.Update(bot, s)
		bot.Update(before, 1-s)
	}
	return Summary{
		Games:    len(ordered),
		Elo:      elo.Player,
		BotElo:   elo.Bot,
		Expected: elo.Expected(),
		Glicko:   me,
	}
}
