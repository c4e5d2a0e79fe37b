// Package phrase classifies engine log lines. The engine only emits free
// text, so every match here is a plain substring test against an accent- and
// case-folded copy of the line. New phrasings go into the rule tables; no
// caller branches on raw text.
package phrase

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type Speaker string

const (
	Nobody   Speaker = ""
	Self     Speaker = "self"
	Opponent Speaker = "opponent"
)

type Kind string

const (
	Speech      Kind = "speech"       // a bid or shout worth a speech bubble
	Refusal     Kind = "refusal"      // someone declined a bid
	Fold        Kind = "fold"         // someone left the hand
	SelfWin     Kind = "self_win"     // this client's player took the points
	OpponentWin Kind = "opponent_win" // the opponent took the points
	Important   Kind = "important"    // highlighted in the transcript
	Points      Kind = "points"       // a score line
	HandStart   Kind = "hand_start"   // first line of a new hand
)

// Line is one log entry prepared for matching.
type Line struct {
	Raw     string
	Folded  string
	Speaker Speaker
	Said    string // text after the speaker prefix, trimmed
}

type Predicate func(Line) bool

type Rule struct {
	Kind  Kind
	Match Predicate
}

// Book holds the speaker tags and the ordered rule table.
type Book struct {
	SelfTag     string
	OpponentTag string
	Rules       []Rule
}

// NewBook builds the default rule table for the given speaker names.
func NewBook(selfTag, opponentTag string) *Book {
	opp := Normalize(opponentTag)
	return &Book{
		SelfTag:     selfTag,
		OpponentTag: opponentTag,
		Rules: []Rule{
			{Speech, spoken(Contains("¡", "no quiero", "mazo"))},
			{Refusal, Contains("no quiso")},
			{Fold, Contains("me voy al mazo", "te la dejo", "me chicho", "me achico")},
			{SelfWin, Contains("vos ganas")},
			{OpponentWin, Contains(opp + " gana")},
			{Important, Contains("gana")},
			{Points, Contains("suma")},
			{HandStart, Contains("--- arranca")},
		},
	}
}

var Default = NewBook("Vos", "TrucoBot")

// Parse folds the line and works out who said it.
func (b *Book) Parse(raw string) Line {
	l := Line{Raw: raw, Folded: Normalize(raw)}
	for _, t := range []struct {
		tag string
		who Speaker
	}{{b.SelfTag, Self}, {b.OpponentTag, Opponent}} {
		if t.tag == "" {
			continue
		}
		if i := strings.Index(raw, t.tag+":"); i >= 0 {
			l.Speaker = t.who
			l.Said = strings.TrimSpace(raw[i+len(t.tag)+1:])
			break
		}
	}
	return l
}

// Is reports whether any rule of the given kind matches.
func (b *Book) Is(l Line, k Kind) bool {
	for _, r := range b.Rules {
		if r.Kind == k && r.Match(l) {
			return true
		}
	}
	return false
}

// Kinds lists every matching kind in table order. An empty result is a line
// no rule knows about; callers treat it as plain text.
func (b *Book) Kinds(l Line) []Kind {
	var out []Kind
	for _, r := range b.Rules {
		if r.Match(l) && !hasKind(out, r.Kind) {
			out = append(out, r.Kind)
		}
	}
	return out
}

func hasKind(ks []Kind, k Kind) bool {
	for _, x := range ks {
		if x == k {
			return true
		}
	}
	return false
}

// Contains matches when the folded line holds any of the needles.
func Contains(needles ...string) Predicate {
	folded := make([]string, len(needles))
	for i, n := range needles {
		folded[i] = Normalize(n)
	}
	return func(l Line) bool {
		for _, n := range folded {
			if n != "" && strings.Contains(l.Folded, n) {
				return true
			}
		}
		return false
	}
}

func spoken(p Predicate) Predicate {
	return func(l Line) bool { return l.Speaker != Nobody && p(l) }
}

// Normalize lowercases s and strips combining marks, so "Ganás" and "ganas"
// compare equal. Punctuation such as "¡" is kept.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
