package loop

import (
	"truco-table/client/detect"
	"truco-table/client/phrase"
	"truco-table/client/snapshot"
)

// Tally counts what happened over one game, one hand at a time.
type Tally struct {
	Hands          int `json:"hands"`
	MyTricks       int `json:"my_tricks"`
	OpponentTricks int `json:"opp_tricks"`
	MyFolds        int `json:"my_folds"`
	OpponentFolds  int `json:"opp_folds"`
	Refusals       int `json:"refusals"`
}

// addHand records a finished hand. s is the round_end snapshot.
func (t *Tally) addHand(s snapshot.Snapshot, e detect.Event) {
	t.Hands++
	mine, opp := s.Tricks()
	t.MyTricks += mine
	t.OpponentTricks += opp
	switch e.Folded {
	case phrase.Self:
		t.MyFolds++
	case phrase.Opponent:
		t.OpponentFolds++
	}
	if e.Ending == detect.EndRefused {
		t.Refusals++
	}
}

// TrickShare is the fraction of decided tricks this side won.
func (t Tally) TrickShare() float64 {
	total := t.MyTricks + t.OpponentTricks
	if total == 0 {
		return 0
	}
	return float64(t.MyTricks) / float64(total)
}
