package snapshot

import (
	"encoding/json"
	"fmt"
)

type Phase string

const (
	Dealing  Phase = "dealing"
	Playing  Phase = "playing"
	RoundEnd Phase = "round_end"
	GameOver Phase = "game_over"
)

func (p Phase) Valid() bool {
	switch p {
	case Dealing, Playing, RoundEnd, GameOver:
		return true
	}
	return false
}

// Pending names the bid the engine is waiting on. Empty means none.
type Pending string

const (
	PendingNone   Pending = ""
	PendingEnvido Pending = "envido"
	PendingTruco  Pending = "truco"
)

// HandSize is the number of cards dealt to each side per hand.
const HandSize = 3

type Card struct {
	ID    int    `json:"id"`
	Label string `json:"str"` // e.g. "1 de Espada"
}

// Snapshot is the full game state as returned by one poll. Values are never
// mutated after decoding.
type Snapshot struct {
	Phase          Phase    `json:"phase"`
	IsMyTurn       bool     `json:"is_turn"`
	WaitingFor     Pending  `json:"waiting_for_response"`
	MyScore        int      `json:"my_score"`
	OpponentScore  int      `json:"opp_score"`
	TargetScore    int      `json:"target_score"`
	HandNumber     int      `json:"hand_number"`
	RoundWinners   []int    `json:"round_winners"` // 1 = me, 2 = opponent, one per trick
	MyCards        []Card   `json:"my_cards"`
	MyPlayed       []string `json:"my_played"`
	OpponentPlayed []string `json:"opp_played"`
	ValidActions   []string `json:"valid_actions"`
	Log            []string `json:"log"`
	MyEnvido       int      `json:"my_envido"`
	LastBotAction  string   `json:"last_bot_action,omitempty"`
}

// OpponentCardCount is the number of face-down cards the opponent still holds.
func (s Snapshot) OpponentCardCount() int {
	n := HandSize - len(s.OpponentPlayed)
	if n < 0 {
		return 0
	}
	return n
}

func (s Snapshot) Can(action string) bool {
	for _, a := range s.ValidActions {
		if a == action {
			return true
		}
	}
	return false
}

// Tricks counts tricks won by each side so far in the hand.
func (s Snapshot) Tricks() (mine, opponent int) {
	for _, w := range s.RoundWinners {
		switch w {
		case 1:
			mine++
		case 2:
			opponent++
		}
	}
	return
}

// Decode parses an engine state payload. The engine sends null for
// waiting_for_response when nothing is pending.
func Decode(b []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return Snapshot{}, err
	}
	if !s.Phase.Valid() {
		return Snapshot{}, fmt.Errorf("unknown phase %q", s.Phase)
	}
	return s, nil
}

// PlayCardAction is the action id that plays the card with the given id.
func PlayCardAction(id int) string { return fmt.Sprintf("%s%d", PlayCardPrefix, id) }

const PlayCardPrefix = "play_card_"
