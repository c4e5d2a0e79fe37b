// Package detect infers presentation events by diffing two consecutive
// engine snapshots. Detection is a pure function of its inputs; guarding
// against showing the same thing twice is the caller's job.
package detect

import (
	"fmt"

	"truco-table/client/phrase"
	"truco-table/client/snapshot"
)

type Kind string

const (
	EnterDealing  Kind = "enter_dealing"  // clear transient notifications
	Speech        Kind = "speech"         // speech bubble for one side
	LogLine       Kind = "log"            // plain log entry
	RoundBoundary Kind = "round_boundary" // playing -> round_end
	ResetMarkers  Kind = "reset_markers"  // clear fold markers from the last hand
	GameOver      Kind = "game_over"      // level-triggered
)

// Ending says how a hand finished.
type Ending string

const (
	EndNormal  Ending = "normal"
	EndRefused Ending = "refused"
	EndFolded  Ending = "folded"
)

// Outcome is the final result carried by a GameOver event.
type Outcome struct {
	Won           bool
	MyScore       int
	OpponentScore int
	TargetScore   int
}

type Event struct {
	Kind Kind
	// ID identifies the transition instance. Two events with the same ID
	// describe the same thing and must only be presented once.
	ID string

	Index   int // log index; -1 for phase events
	Speaker phrase.Speaker
	Text    string
	// Unclassified marks a log line no rule recognised.
	Unclassified bool

	Ending  Ending
	Folded  phrase.Speaker // side whose hand gets the folded marker
	Summary []string

	Outcome Outcome
}

type Result struct {
	Events []Event
	Cursor int
	// Rescanned is set when the cursor no longer fit the log and the whole
	// log was read again. Line ids then repeat those of the old log.
	Rescanned bool
}

// Kinds returns the event kinds in order, mostly for logs and tests.
func (r Result) Kinds() []Kind {
	out := make([]Kind, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Kind
	}
	return out
}

const noSummary = "Ronda completada."

type Detector struct {
	book *phrase.Book
}

func New(book *phrase.Book) *Detector {
	if book == nil {
		book = phrase.Default
	}
	return &Detector{book: book}
}

// Detect diffs prev (nil on the first poll of a game) against cur. cursor is
// the number of log entries already processed. The returned cursor is always
// len(cur.Log).
func (d *Detector) Detect(prev *snapshot.Snapshot, cur snapshot.Snapshot, cursor int) Result {
	start := cursor
	if start < 0 || start > len(cur.Log) {
		// The log never shrinks within a game, so a cursor past its end means
		// the engine was reset underneath us. Read it again from the top.
		start = 0
	}
	fresh := cur.Log[start:]

	res := Result{Rescanned: start != cursor}
	entering := prev != nil && cur.Phase == snapshot.Dealing && prev.Phase != snapshot.Dealing

	if entering {
		res.Events = append(res.Events, Event{Kind: EnterDealing, ID: transitionID(prev, cur, start), Index: -1})
	}

	for i, raw := range fresh {
		res.Events = append(res.Events, d.lineEvent(start+i, raw))
	}
	res.Cursor = len(cur.Log)

	if prev != nil && prev.Phase == snapshot.Playing && cur.Phase == snapshot.RoundEnd {
		ev := d.boundary(fresh, cur.Log)
		ev.ID = transitionID(prev, cur, start)
		res.Events = append(res.Events, ev)
	}

	if entering {
		res.Events = append(res.Events, Event{Kind: ResetMarkers, ID: transitionID(prev, cur, start) + "/markers", Index: -1})
	}

	if cur.Phase == snapshot.GameOver {
		res.Events = append(res.Events, Event{
			Kind:    GameOver,
			ID:      string(GameOver),
			Index:   -1,
			Outcome: outcome(cur),
		})
	}
	return res
}

func (d *Detector) lineEvent(idx int, raw string) Event {
	l := d.book.Parse(raw)
	id := fmt.Sprintf("log@%d", idx)
	if d.book.Is(l, phrase.Speech) {
		return Event{Kind: Speech, ID: id, Index: idx, Speaker: l.Speaker, Text: l.Said}
	}
	return Event{
		Kind:         LogLine,
		ID:           id,
		Index:        idx,
		Speaker:      l.Speaker,
		Text:         raw,
		Unclassified: len(d.book.Kinds(l)) == 0,
	}
}

// boundary classifies the end of a hand. Only the last two freshly appended
// lines are consulted, so an old refusal earlier in the log can never mark
// a later hand.
func (d *Detector) boundary(fresh, full []string) Event {
	window := fresh
	if len(window) > 2 {
		window = window[len(window)-2:]
	}
	lines := make([]phrase.Line, len(window))
	for i, raw := range window {
		lines[i] = d.book.Parse(raw)
	}

	ev := Event{Kind: RoundBoundary, Index: -1, Ending: EndNormal, Summary: d.summary(full)}
	for _, l := range lines {
		if d.book.Is(l, phrase.Fold) {
			ev.Ending = EndFolded
			break
		}
		if d.book.Is(l, phrase.Refusal) {
			ev.Ending = EndRefused
		}
	}
	if ev.Ending == EndNormal {
		return ev
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if d.book.Is(lines[i], phrase.SelfWin) {
			ev.Folded = phrase.Opponent
			break
		}
		if d.book.Is(lines[i], phrase.OpponentWin) {
			ev.Folded = phrase.Self
			break
		}
	}
	return ev
}

// summary collects the score lines of the current hand, newest first.
func (d *Detector) summary(log []string) []string {
	var out []string
	for i := len(log) - 1; i >= 0; i-- {
		l := d.book.Parse(log[i])
		if d.book.Is(l, phrase.HandStart) {
			break
		}
		if d.book.Is(l, phrase.Important) || d.book.Is(l, phrase.Points) {
			out = append(out, log[i])
		}
	}
	if len(out) == 0 {
		return []string{noSummary}
	}
	return out
}

func outcome(s snapshot.Snapshot) Outcome {
	return Outcome{
		Won:           (s.TargetScore > 0 && s.MyScore >= s.TargetScore) || s.MyScore > s.OpponentScore,
		MyScore:       s.MyScore,
		OpponentScore: s.OpponentScore,
		TargetScore:   s.TargetScore,
	}
}

func transitionID(prev *snapshot.Snapshot, cur snapshot.Snapshot, cursor int) string {
	return fmt.Sprintf("%s>%s@%d", prev.Phase, cur.Phase, cursor)
}
