package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statePayload = `{
  "phase": "playing",
  "is_turn": false,
  "waiting_for_response": null,
  "my_score": 4,
  "opp_score": 7,
  "target_score": 30,
  "hand_number": 2,
  "round_winners": [2, 1],
  "my_cards": [{"id": 12, "str": "7 de Oro"}],
  "my_played": ["1 de Espada", "4 de Copa"],
  "opp_played": ["3 de Basto"],
  "valid_actions": ["call_truco", "play_card_12"],
  "log": ["--- Arranca la mano 3 ---", "TrucoBot: ¡Envido!"],
  "my_envido": 27
}`

func TestDecodeEnginePayload(t *testing.T) {
	s, err := Decode([]byte(statePayload))
	require.NoError(t, err)

	assert.Equal(t, Playing, s.Phase)
	assert.Equal(t, PendingNone, s.WaitingFor)
	assert.Equal(t, 30, s.TargetScore)
	assert.Equal(t, []Card{{ID: 12, Label: "7 de Oro"}}, s.MyCards)
	assert.Equal(t, 2, s.OpponentCardCount())
	assert.True(t, s.Can(PlayCardAction(12)))
	assert.False(t, s.Can("call_retruco"))

	mine, opp := s.Tricks()
	assert.Equal(t, 1, mine)
	assert.Equal(t, 1, opp)
}

func TestDecodePendingBid(t *testing.T) {
	s, err := Decode([]byte(`{"phase":"playing","is_turn":true,"waiting_for_response":"truco"}`))
	require.NoError(t, err)
	assert.Equal(t, PendingTruco, s.WaitingFor)
	assert.Equal(t, HandSize, s.OpponentCardCount())
}

func TestDecodeRejectsUnknownPhase(t *testing.T) {
	_, err := Decode([]byte(`{"phase":"shuffling"}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestOpponentCardCountNeverNegative(t *testing.T) {
	s := Snapshot{OpponentPlayed: []string{"a", "b", "c", "d"}}
	assert.Equal(t, 0, s.OpponentCardCount())
}
