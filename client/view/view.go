// Package view renders a snapshot into the view model the front end draws.
// Rendering depends on the snapshot alone; timed overlays live in effects.
package view

import (
	"fmt"
	"strings"

	"truco-table/client/phrase"
	"truco-table/client/snapshot"
)

type Button struct {
	Action string `json:"action"`
	Label  string `json:"label"`
	Style  Style  `json:"style"`
}

type Card struct {
	ID       int    `json:"id"`
	Label    string `json:"label,omitempty"`
	Rank     string `json:"rank,omitempty"`
	Suit     string `json:"suit,omitempty"`
	FaceUp   bool   `json:"face_up"`
	Playable bool   `json:"playable,omitempty"`
	Action   string `json:"action,omitempty"` // set when Playable
}

type LogEntry struct {
	Text      string `json:"text"`
	Important bool   `json:"important,omitempty"`
	Opponent  bool   `json:"opponent,omitempty"`
}

type Model struct {
	Phase         snapshot.Phase `json:"phase"`
	MyScore       int            `json:"my_score"`
	OpponentScore int            `json:"opp_score"`
	TargetScore   int            `json:"target_score"`
	HandLabel     string         `json:"hand_label"`
	// Status is empty at game over; the terminal overlay speaks instead.
	Status         string     `json:"status"`
	Buttons        []Button   `json:"buttons"`
	MyHand         []Card     `json:"my_hand"`
	OpponentHand   []Card     `json:"opp_hand"`
	MyPlayed       []Card     `json:"my_played"`
	OpponentPlayed []Card     `json:"opp_played"`
	Log            []LogEntry `json:"log"`
}

type Reconciler struct {
	book *phrase.Book
}

func NewReconciler(book *phrase.Book) *Reconciler {
	if book == nil {
		book = phrase.Default
	}
	return &Reconciler{book: book}
}

// Reconcile renders s in full. The same snapshot always yields an equal model.
func (r *Reconciler) Reconcile(s snapshot.Snapshot) Model {
	m := Model{
		Phase:          s.Phase,
		MyScore:        s.MyScore,
		OpponentScore:  s.OpponentScore,
		TargetScore:    s.TargetScore,
		HandLabel:      fmt.Sprintf("Hand %d", s.HandNumber+1),
		Status:         Status(s),
		Buttons:        buttons(s),
		MyHand:         []Card{},
		OpponentHand:   []Card{},
		MyPlayed:       faceUp(s.MyPlayed),
		OpponentPlayed: faceUp(s.OpponentPlayed),
		Log:            make([]LogEntry, 0, len(s.Log)),
	}
	for i := 0; i < s.OpponentCardCount(); i++ {
		m.OpponentHand = append(m.OpponentHand, Card{})
	}
	for _, c := range s.MyCards {
		rank, suit := splitCard(c.Label)
		vc := Card{ID: c.ID, Label: c.Label, Rank: rank, Suit: suit, FaceUp: true}
		if act := snapshot.PlayCardAction(c.ID); s.IsMyTurn && s.Can(act) {
			vc.Playable, vc.Action = true, act
		}
		m.MyHand = append(m.MyHand, vc)
	}
	for _, line := range s.Log {
		l := r.book.Parse(line)
		m.Log = append(m.Log, LogEntry{
			Text:      line,
			Important: r.book.Is(l, phrase.Important),
			Opponent:  r.book.OpponentTag != "" && strings.Contains(line, r.book.OpponentTag),
		})
	}
	return m
}

// Status is the turn/status line. First match wins.
func Status(s snapshot.Snapshot) string {
	switch {
	case s.Phase == snapshot.GameOver:
		return ""
	case s.Phase == snapshot.Dealing:
		return "Dealing cards..."
	case s.Phase == snapshot.RoundEnd:
		mine, opp := s.Tricks()
		return fmt.Sprintf("Round Ended! You won %d tricks, Bot won %d.", mine, opp)
	case s.IsMyTurn && s.WaitingFor == snapshot.PendingEnvido:
		return fmt.Sprintf("Opponent called Envido. What do you do? (You have %d pts)", s.MyEnvido)
	case s.IsMyTurn && s.WaitingFor == snapshot.PendingTruco:
		return "Opponent called Truco. What do you do?"
	case s.IsMyTurn:
		return "Your turn to play!"
	case s.WaitingFor != snapshot.PendingNone:
		return "Waiting for Opponent to respond..."
	default:
		return "Opponent is thinking..."
	}
}

// buttons lists the bid/response controls. Card plays are attached to the
// hand cards instead.
func buttons(s snapshot.Snapshot) []Button {
	out := []Button{}
	if s.Phase != snapshot.Playing || !s.IsMyTurn {
		return out
	}
	for _, a := range s.ValidActions {
		if strings.HasPrefix(a, "play_") {
			continue
		}
		out = append(out, Button{Action: a, Label: Label(a), Style: styleFor(a)})
	}
	return out
}

func faceUp(labels []string) []Card {
	out := make([]Card, 0, len(labels))
	for _, l := range labels {
		rank, suit := splitCard(l)
		out = append(out, Card{Label: l, Rank: rank, Suit: suit, FaceUp: true})
	}
	return out
}
