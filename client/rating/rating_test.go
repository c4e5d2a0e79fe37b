package rating

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"truco-table/client/loop"
)

func TestEloWinMovesRatingsApart(t *testing.T) {
	e := NewElo(1500, 24)
	assert.InDelta(t, 0.5, e.Expected(), 1e-9)

	dP, dB := e.Update(1, 0.5)
	assert.Greater(t, dP, 0.0)
	assert.InDelta(t, -dP, dB, 1e-9)
	assert.Greater(t, e.Player, e.Bot)
	assert.Equal(t, 1, e.Games)
}

func TestEloMarginIsBounded(t *testing.T) {
	a, b := NewElo(1500, 24), NewElo(1500, 24)
	da, _ := a.Update(1, 5)
	db, _ := b.Update(1, 1)
	assert.InDelta(t, db, da, 1e-9)

	c := NewElo(1500, 24)
	dc, _ := c.Update(0, -3)
	assert.InDelta(t, -db, dc, 1e-9)
}

func TestGlickoPaperExample(t *testing.T) {
	// first opponent of Glickman's worked example
	p := Glicko{Rating: 1500, RD: 200, Volatility: 0.06}
	p.Update(Glicko{Rating: 1400, RD: 30}, 1)
	assert.Greater(t, p.Rating, 1500.0)
	assert.Less(t, p.RD, 200.0)
	assert.InDelta(t, 0.06, p.Volatility, 0.001)
}

func TestScore(t *testing.T) {
	assert.InDelta(t, 0.5, Score(loop.GameRecord{TargetScore: 30, MyScore: 30, OpponentScore: 30, Won: true}), 1e-9)
	assert.Greater(t, Score(loop.GameRecord{TargetScore: 30, MyScore: 30, OpponentScore: 5, Won: true}), 0.9)
	assert.Less(t, Score(loop.GameRecord{TargetScore: 30, MyScore: 10, OpponentScore: 30}), 0.5)
	assert.Equal(t, 1.0, Score(loop.GameRecord{Won: true}))
}

func TestFromGamesReplaysOldestFirst(t *testing.T) {
	now := time.Now()
	games := []loop.GameRecord{
		{TargetScore: 30, MyScore: 30, OpponentScore: 12, Won: true, EndedAt: now},
		{TargetScore: 30, MyScore: 30, OpponentScore: 20, Won: true, EndedAt: now.Add(-time.Hour)},
	}
	sum := FromGames(games)
	assert.Equal(t, 2, sum.Games)
	assert.Greater(t, sum.Elo, 1500.0)
	assert.Less(t, sum.BotElo, 1500.0)
	assert.Greater(t, sum.Expected, 0.5)
	assert.Equal(t, 2, sum.Glicko.Games)
	assert.Greater(t, sum.Glicko.Rating, 1500.0)

	// the input slice is left alone
	assert.True(t, games[0].EndedAt.Equal(now))
	assert.Zero(t, FromGames(nil).Games)
}
