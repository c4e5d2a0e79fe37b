// Package effects turns detected transitions into timed presentation state:
// speech bubbles, fold markers, the round summary and the game-over overlay.
//
// A Scheduler is not safe for concurrent use. Apply, DismissSummary, Reset
// and every timer callback must run on one goroutine; the poll loop arranges
// that by handing the scheduler a clock that posts callbacks back to it.
package effects

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"truco-table/client/detect"
	"truco-table/client/phrase"
)

type Durations struct {
	Speech       time.Duration // bubble lifetime
	SummaryDelay time.Duration // round end -> summary shown
	SummaryShow  time.Duration // summary shown -> auto dismiss
}

func DefaultDurations() Durations {
	return Durations{Speech: 2500 * time.Millisecond, SummaryDelay: time.Second, SummaryShow: 2 * time.Second}
}

type Mode string

const (
	NoMode    Mode = ""
	Celebrate Mode = "celebrate"
	Boo       Mode = "boo"
)

type Bubble struct {
	Visible bool   `json:"visible"`
	Text    string `json:"text,omitempty"`
}

type Summary struct {
	Visible bool     `json:"visible"`
	Lines   []string `json:"lines,omitempty"`
}

type Final struct {
	Visible bool   `json:"visible"`
	Won     bool   `json:"won"`
	Title   string `json:"title,omitempty"`
	Score   string `json:"score,omitempty"`
	Mode    Mode   `json:"mode,omitempty"`
}

// Overlay is everything drawn on top of the reconciled board.
type Overlay struct {
	MySpeech       Bubble  `json:"my_speech"`
	OpponentSpeech Bubble  `json:"opp_speech"`
	MyFolded       bool    `json:"my_folded"`
	OpponentFolded bool    `json:"opp_folded"`
	Summary        Summary `json:"summary"`
	GameOver       Final   `json:"game_over"`
}

// Feedback plays the decorative win/loss effect. It is invoked at most once
// per game.
type Feedback interface {
	Celebrate(detect.Outcome)
	Boo(detect.Outcome)
}

type handle struct {
	name string
	t    Timer
}

type Scheduler struct {
	clock    Clock
	dur      Durations
	log      *logrus.Entry
	feedback Feedback
	advance  func()
	changed  func()

	overlay Overlay
	handled map[string]struct{}
	pending map[*handle]struct{}
	speech  map[phrase.Speaker]*handle
	summary *handle
}

type Option func(*Scheduler)

func WithFeedback(f Feedback) Option { return func(s *Scheduler) { s.feedback = f } }

func WithLogger(l *logrus.Entry) Option { return func(s *Scheduler) { s.log = l } }

// WithAdvance sets the request sent to the engine when the round summary is
// dismissed.
func WithAdvance(f func()) Option { return func(s *Scheduler) { s.advance = f } }

// WithOnChange is called after a timer changed the overlay.
func WithOnChange(f func()) Option { return func(s *Scheduler) { s.changed = f } }

func NewScheduler(clock Clock, dur Durations, opts ...Option) *Scheduler {
	s := &Scheduler{
		clock: clock,
		dur:   dur,
		log:   logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, o := range opts {
		o(s)
	}
	s.clear()
	return s
}

func (s *Scheduler) clear() {
	s.overlay = Overlay{}
	s.handled = map[string]struct{}{}
	s.pending = map[*handle]struct{}{}
	s.speech = map[phrase.Speaker]*handle{}
	s.summary = nil
}

// Apply presents each event whose transition has not been seen yet. Events
// already handled are skipped, so re-applying a poll result is harmless.
func (s *Scheduler) Apply(events []detect.Event) {
	for _, e := range events {
		if _, seen := s.handled[e.ID]; seen {
			continue
		}
		s.handled[e.ID] = struct{}{}

		switch e.Kind {
		case detect.EnterDealing:
			s.clearSpeech()
		case detect.Speech:
			s.showSpeech(e.Speaker, e.Text)
		case detect.LogLine:
			if e.Unclassified {
				s.log.WithField("index", e.Index).Debugf("plain log line: %s", e.Text)
			}
		case detect.RoundBoundary:
			s.roundEnded(e)
		case detect.ResetMarkers:
			s.overlay.MyFolded = false
			s.overlay.OpponentFolded = false
		case detect.GameOver:
			s.gameOver(e.Outcome)
		}
	}
}

// Overlay returns a copy of the current overlay state.
func (s *Scheduler) Overlay() Overlay {
	o := s.overlay
	o.Summary.Lines = append([]string(nil), s.overlay.Summary.Lines...)
	return o
}

// Pending is the number of armed timers.
func (s *Scheduler) Pending() int { return len(s.pending) }

// DismissSummary hides a visible round summary and asks the engine to move
// on. It reports whether anything was dismissed; an already hidden summary
// sends nothing.
func (s *Scheduler) DismissSummary() bool {
	if !s.overlay.Summary.Visible {
		return false
	}
	s.cancel(s.summary)
	s.summary = nil
	s.overlay.Summary = Summary{}
	s.log.Debug("round summary dismissed")
	if s.advance != nil {
		s.advance()
	}
	return true
}

// Reset cancels every pending timer and forgets all handled transitions.
// Called on restart, before any state of the new game is processed.
func (s *Scheduler) Reset() {
	for h := range s.pending {
		h.t.Stop()
	}
	s.clear()
}

func (s *Scheduler) showSpeech(who phrase.Speaker, text string) {
	b := s.bubble(who)
	if b == nil {
		return
	}
	// A new line for the same side replaces the old one and restarts its timer.
	s.cancel(s.speech[who])
	*b = Bubble{Visible: true, Text: text}
	s.speech[who] = s.after("speech:"+string(who), s.dur.Speech, func() {
		delete(s.speech, who)
		if b := s.bubble(who); b != nil {
			*b = Bubble{}
		}
	})
}

func (s *Scheduler) clearSpeech() {
	for who, h := range s.speech {
		s.cancel(h)
		delete(s.speech, who)
	}
	s.overlay.MySpeech = Bubble{}
	s.overlay.OpponentSpeech = Bubble{}
}

func (s *Scheduler) bubble(who phrase.Speaker) *Bubble {
	switch who {
	case phrase.Self:
		return &s.overlay.MySpeech
	case phrase.Opponent:
		return &s.overlay.OpponentSpeech
	}
	return nil
}

func (s *Scheduler) roundEnded(e detect.Event) {
	s.clearSpeech()
	switch e.Folded {
	case phrase.Self:
		s.overlay.MyFolded = true
	case phrase.Opponent:
		s.overlay.OpponentFolded = true
	}
	lines := append([]string(nil), e.Summary...)
	s.log.WithFields(logrus.Fields{"ending": e.Ending, "folded": e.Folded}).Debug("round ended")

	s.cancel(s.summary)
	s.summary = s.after("summary:show", s.dur.SummaryDelay, func() {
		s.overlay.Summary = Summary{Visible: true, Lines: lines}
		s.summary = s.after("summary:dismiss", s.dur.SummaryShow, func() {
			s.summary = nil
			s.DismissSummary()
		})
	})
}

func (s *Scheduler) gameOver(o detect.Outcome) {
	if s.overlay.GameOver.Visible {
		return
	}
	// A summary still queued from the last hand has nothing left to advance.
	s.cancel(s.summary)
	s.summary = nil
	s.overlay.Summary = Summary{}

	f := Final{Visible: true, Won: o.Won, Score: fmt.Sprintf("%d - %d", o.MyScore, o.OpponentScore)}
	if o.Won {
		f.Title, f.Mode = "¡Ganaste!", Celebrate
	} else {
		f.Title, f.Mode = "¡Te ganaron!", Boo
	}
	s.overlay.GameOver = f
	s.log.WithFields(logrus.Fields{"won": o.Won, "score": f.Score}).Info("game over")

	if s.feedback == nil {
		return
	}
	if o.Won {
		s.feedback.Celebrate(o)
	} else {
		s.feedback.Boo(o)
	}
}

func (s *Scheduler) after(name string, d time.Duration, f func()) *handle {
	h := &handle{name: name}
	h.t = s.clock.AfterFunc(d, func() {
		// A timer stopped after it already fired can still land here; only
		// handles still pending may run.
		if _, ok := s.pending[h]; !ok {
			return
		}
		delete(s.pending, h)
		s.log.WithField("effect", h.name).Debug("effect fired")
		f()
		if s.changed != nil {
			s.changed()
		}
	})
	s.pending[h] = struct{}{}
	return h
}

func (s *Scheduler) cancel(h *handle) {
	if h == nil {
		return
	}
	if _, ok := s.pending[h]; ok {
		h.t.Stop()
		delete(s.pending, h)
	}
}
