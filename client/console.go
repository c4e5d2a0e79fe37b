package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"truco-table/client/detect"
	"truco-table/client/effects"
	"truco-table/client/loop"
	"truco-table/client/view"
)

//
// ===== pretty printing =====
//

const (
	colReset  = "\033[0m"
	colBold   = "\033[1m"
	colDim    = "\033[2m"
	colGreen  = "\033[32m"
	colRed    = "\033[31m"
	colYellow = "\033[33m"
	colMag    = "\033[35m"
	colCyan   = "\033[36m"
)

// console prints the parts of the board that changed since the last print,
// plus the overlays as they come and go.
type console struct {
	out   io.Writer
	color bool

	lastOverlay effects.Overlay
}

func newConsole(out io.Writer, color bool) *console {
	return &console{out: out, color: color}
}

func (p *console) c(code, s string) string {
	if !p.color {
		return s
	}
	return code + s + colReset
}
func (p *console) bold(s string) string { return p.c(colBold, s) }
func (p *console) dim(s string) string  { return p.c(colDim, s) }
func (p *console) good(s string) string { return p.c(colGreen, s) }
func (p *console) warn(s string) string { return p.c(colYellow, s) }
func (p *console) bad(s string) string  { return p.c(colRed, s) }
func (p *console) cyan(s string) string { return p.c(colCyan, s) }
func (p *console) mag(s string) string  { return p.c(colMag, s) }

func (p *console) section(title string) {
	fmt.Fprintf(p.out, "\n%s %s %s\n", p.dim("──"), p.bold(title), p.dim("──"))
}

// Show is registered as the loop's screen hook and runs on its goroutine.
func (p *console) Show(s loop.Screen, changed []view.Section) {
	m := s.View
	if view.Has(changed, view.SectionScores) {
		p.section(m.HandLabel)
		fmt.Fprintf(p.out, "%s %d  %s %d  %s\n",
			p.cyan("You"), m.MyScore, p.warn("Bot"), m.OpponentScore, p.dim(fmt.Sprintf("to %d", m.TargetScore)))
	}
	if view.Has(changed, view.SectionCards) {
		fmt.Fprintf(p.out, "%s %s\n", p.dim("table:"), p.played(m.MyPlayed, m.OpponentPlayed))
		fmt.Fprintf(p.out, "%s %s  %s %d\n", p.dim("hand:"), p.hand(m.MyHand), p.dim("bot holds"), len(m.OpponentHand))
	}
	if view.Has(changed, view.SectionLog) {
		p.logTail(m.Log)
	}
	if view.Has(changed, view.SectionStatus) && m.Status != "" {
		fmt.Fprintf(p.out, "%s %s\n", p.dim("•"), p.bold(m.Status))
	}
	if view.Has(changed, view.SectionButtons) && len(m.Buttons) > 0 {
		fmt.Fprintf(p.out, "%s %s\n", p.dim("actions:"), p.buttons(m.Buttons))
	}
	p.overlay(s.Overlay)
	if s.LastError != "" && view.Has(changed, view.SectionStatus) {
		fmt.Fprintf(p.out, "%s %s\n", p.bad("!"), s.LastError)
	}
}

func (p *console) overlay(o effects.Overlay) {
	prev := p.lastOverlay
	p.lastOverlay = o
	if o.OpponentSpeech.Visible && o.OpponentSpeech != prev.OpponentSpeech {
		fmt.Fprintf(p.out, "  %s %s\n", p.warn("Bot says"), p.bold(o.OpponentSpeech.Text))
	}
	if o.MySpeech.Visible && o.MySpeech != prev.MySpeech {
		fmt.Fprintf(p.out, "  %s %s\n", p.cyan("You say"), p.bold(o.MySpeech.Text))
	}
	if o.OpponentFolded && !prev.OpponentFolded {
		fmt.Fprintf(p.out, "  %s\n", p.good("Bot folded"))
	}
	if o.MyFolded && !prev.MyFolded {
		fmt.Fprintf(p.out, "  %s\n", p.bad("You folded"))
	}
	if o.Summary.Visible && !prev.Summary.Visible {
		p.section("Round summary")
		for _, l := range o.Summary.Lines {
			fmt.Fprintf(p.out, "  %s\n", l)
		}
	}
	if o.GameOver.Visible && !prev.GameOver.Visible {
		title := p.good(o.GameOver.Title)
		if !o.GameOver.Won {
			title = p.bad(o.GameOver.Title)
		}
		p.section("Game over")
		fmt.Fprintf(p.out, "  %s  %s\n", p.bold(title), o.GameOver.Score)
	}
}

func (p *console) hand(cards []view.Card) string {
	parts := make([]string, 0, len(cards))
	for _, c := range cards {
		label := c.Label
		if c.Playable {
			label = p.good(label) + p.dim(fmt.Sprintf(" [%s]", c.Action))
		}
		parts = append(parts, label)
	}
	if len(parts) == 0 {
		return p.dim("(empty)")
	}
	return strings.Join(parts, ", ")
}

func (p *console) played(mine, theirs []view.Card) string {
	labels := func(cs []view.Card) string {
		out := make([]string, 0, len(cs))
		for _, c := range cs {
			out = append(out, c.Label)
		}
		if len(out) == 0 {
			return "-"
		}
		return strings.Join(out, " ")
	}
	return fmt.Sprintf("%s %s | %s %s", p.cyan("you"), labels(mine), p.warn("bot"), labels(theirs))
}

func (p *console) buttons(bs []view.Button) string {
	parts := make([]string, 0, len(bs))
	for _, b := range bs {
		label := b.Label
		switch b.Style {
		case view.Danger:
			label = p.bad(label)
		case view.Primary:
			label = p.good(label)
		}
		parts = append(parts, fmt.Sprintf("%s%s", label, p.dim("="+b.Action)))
	}
	return strings.Join(parts, "  ")
}

// logTail prints the last few transcript lines.
func (p *console) logTail(entries []view.LogEntry) {
	const tail = 3
	start := len(entries) - tail
	if start < 0 {
		start = 0
	}
	for _, e := range entries[start:] {
		text := e.Text
		switch {
		case e.Important:
			text = p.mag(text)
		case e.Opponent:
			text = p.warn(text)
		}
		fmt.Fprintf(p.out, "  %s %s\n", p.dim("›"), text)
	}
}

// feedback is the end-of-game flourish. On a terminal it is a line of
// confetti or a boo plus a log line.
type feedback struct {
	out io.Writer
	log *logrus.Entry
}

func (f feedback) Celebrate(o detect.Outcome) {
	fmt.Fprintln(f.out, "  🎉 🎊 🎉 🎊 🎉")
	f.log.WithFields(logrus.Fields{"my_score": o.MyScore, "opp_score": o.OpponentScore}).Info("celebrate")
}

func (f feedback) Boo(o detect.Outcome) {
	fmt.Fprintln(f.out, "  👎 buuu...")
	f.log.WithFields(logrus.Fields{"my_score": o.MyScore, "opp_score": o.OpponentScore}).Info("boo")
}
